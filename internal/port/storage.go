package port

import "context"

// ObjectStorage abstracts fetching document bytes from object storage, used
// when a process request names an s3:// source instead of a local path.
type ObjectStorage interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}
