package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	bucket, key, err := ParseURI("s3://docs/in/invoice_march.pdf")
	require.NoError(t, err)
	assert.Equal(t, "docs", bucket)
	assert.Equal(t, "in/invoice_march.pdf", key)

	_, _, err = ParseURI("/local/path.pdf")
	assert.Error(t, err)

	_, _, err = ParseURI("s3://bucket-only")
	assert.Error(t, err)

	_, _, err = ParseURI("s3:///missing-bucket")
	assert.Error(t, err)
}
