package classify_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"doctriage/internal/classify"
	"doctriage/internal/domain"
	"doctriage/internal/port"
	"doctriage/internal/provider"
	"doctriage/internal/warm"
	"doctriage/mocks"
)

// nativePDF looks like a PDF with an embedded font, i.e. a text layer.
var nativePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Font /Subtype /Type1 >>\nendobj\nBT (hello) Tj ET\n%%EOF")

// scannedPDF has the header but no font or text operators.
var scannedPDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /XObject /Subtype /Image >>\nendobj\n%%EOF")

func TestFastClassify_NativePDFInvoice(t *testing.T) {
	c := classify.FastClassify(classify.Input{
		FileName:            "invoice_march.pdf",
		FileBytes:           nativePDF,
		DeclaredContentType: "application/pdf",
	})

	assert.Equal(t, "invoice", c.DocumentKind)
	assert.Equal(t, domain.ComplexitySimple, c.Complexity)
	assert.True(t, c.HasTable)
	assert.Equal(t, domain.ProviderGemini, c.Recommended)
	// keyword + pdf type + extension match on top of the base.
	assert.Equal(t, 95, c.Confidence)
}

func TestFastClassify_ScannedPDFPrefersClaude(t *testing.T) {
	c := classify.FastClassify(classify.Input{
		FileName:            "scan001.pdf",
		FileBytes:           scannedPDF,
		DeclaredContentType: "application/pdf",
	})

	assert.Equal(t, domain.ProviderClaude, c.Recommended)
	assert.NotEqual(t, domain.ProviderOCR, c.Recommended)
}

func TestFastClassify_NeverRecommendsOCR(t *testing.T) {
	inputs := []classify.Input{
		{FileName: "invoice_march.pdf", FileBytes: nativePDF},
		{FileName: "scan.pdf", FileBytes: scannedPDF},
		{FileName: "photo.jpg", FileBytes: bytes.Repeat([]byte{0xff}, 64), DeclaredContentType: "image/jpeg"},
		{FileName: "mystery.bin", FileBytes: []byte("???"), DeclaredContentType: "application/octet-stream"},
	}
	for _, in := range inputs {
		c := classify.FastClassify(in)
		assert.NotEqual(t, domain.ProviderOCR, c.Recommended, "input %s", in.FileName)
	}
}

func TestFastClassify_ComplexityFromSize(t *testing.T) {
	small := classify.FastClassify(classify.Input{FileName: "a.pdf", FileBytes: nativePDF})
	assert.Equal(t, domain.ComplexitySimple, small.Complexity)

	big := make([]byte, 3*1024*1024)
	copy(big, scannedPDF)
	large := classify.FastClassify(classify.Input{FileName: "a.pdf", FileBytes: big})
	assert.Equal(t, domain.ComplexityComplex, large.Complexity)
}

func TestClassify_HighConfidenceMakesNoProviderCalls(t *testing.T) {
	p := mocks.NewMockProvider(domain.ProviderClaude)
	pool := provider.NewPoolFromProviders(p)
	warmer := warm.New(pool, warm.Config{})
	warmer.MarkWarm(domain.ProviderClaude, true)

	c := classify.New(pool, warmer, 70)
	result := c.Classify(context.Background(), classify.Input{
		FileName:  "invoice_march.pdf",
		FileBytes: nativePDF,
	})

	assert.GreaterOrEqual(t, result.Confidence, 70)
	p.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestClassify_LowConfidenceEscalatesToWarmProvider(t *testing.T) {
	p := mocks.NewMockProvider(domain.ProviderClaude)
	p.On("Invoke", mock.Anything, mock.Anything).Return(&port.InvokeOutput{
		Text: `{"document_kind":"contract","complexity":"complex","has_table":false,"recommended_provider":"claude","confidence":88,"reasoning":"dense legal text"}`,
	}, nil)
	pool := provider.NewPoolFromProviders(p)
	warmer := warm.New(pool, warm.Config{})
	warmer.MarkWarm(domain.ProviderClaude, true)

	c := classify.New(pool, warmer, 70)
	result := c.Classify(context.Background(), classify.Input{
		FileName:  "mystery.bin",
		FileBytes: []byte("not much to go on"),
	})

	assert.Equal(t, "contract", result.DocumentKind)
	assert.Equal(t, domain.ComplexityComplex, result.Complexity)
	assert.Equal(t, 88, result.Confidence)
	p.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestClassify_EscalationUnparseableFallsBackToBasic(t *testing.T) {
	p := mocks.NewMockProvider(domain.ProviderClaude)
	p.On("Invoke", mock.Anything, mock.Anything).Return(&port.InvokeOutput{
		Text: "I'm sorry, I cannot classify this document.",
	}, nil)
	pool := provider.NewPoolFromProviders(p)
	warmer := warm.New(pool, warm.Config{})
	warmer.MarkWarm(domain.ProviderClaude, true)

	c := classify.New(pool, warmer, 70)
	result := c.Classify(context.Background(), classify.Input{
		FileName:  "mystery.bin",
		FileBytes: []byte("not much to go on"),
	})

	assert.Equal(t, "unknown", result.DocumentKind)
	assert.Equal(t, 30, result.Confidence)
}

func TestClassify_NoWarmProviderUsesHeuristicResult(t *testing.T) {
	p := mocks.NewMockProvider(domain.ProviderClaude)
	pool := provider.NewPoolFromProviders(p)
	warmer := warm.New(pool, warm.Config{}) // everything cold

	c := classify.New(pool, warmer, 70)
	result := c.Classify(context.Background(), classify.Input{
		FileName:  "mystery.bin",
		FileBytes: []byte("not much to go on"),
	})

	assert.NotEmpty(t, result.Reasoning)
	p.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestDetectContentType_ByteSniffOverridesDeclared(t *testing.T) {
	got := classify.DetectContentType(nativePDF, "application/octet-stream")
	assert.Equal(t, "application/pdf", got)

	// Unrecognized bytes fall back to the declared type.
	got = classify.DetectContentType([]byte("plain nonsense"), "application/x-custom")
	assert.Equal(t, "application/x-custom", got)
}
