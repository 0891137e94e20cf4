package uploader

import "fmt"

// BucketNotFoundError indicates the target S3 bucket does not exist.
type BucketNotFoundError struct {
	Bucket string
}

func (e *BucketNotFoundError) Error() string {
	return fmt.Sprintf("S3 bucket %s does not exist", e.Bucket)
}
