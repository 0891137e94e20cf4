// Package uploader implements the content-addressed S3 artifact uploader
// used by template packaging. Object keys are derived from the artifact's
// checksum, so identical content always converges to one physical object
// and repeated runs are idempotent.
package uploader

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	awsclient "github.com/cfn-tools/cfndeploy/internal/aws"
)

// checksumBlockSize is the chunk size for streaming file checksums.
const checksumBlockSize = 4096

// Options configures optional uploader behavior.
type Options struct {
	// Prefix is prepended to every remote key.
	Prefix string

	// KMSKeyID switches server-side encryption from the default AES256
	// to aws:kms envelope encryption with the given key.
	KMSKeyID string

	// ForceUpload transfers bytes even when the remote key already exists.
	ForceUpload bool

	// Progress receives advisory transfer output. Nil disables it.
	Progress io.Writer
}

// Uploader uploads artifacts to a single S3 bucket under content-addressed
// keys.
type Uploader struct {
	api      awsclient.S3API
	transfer *manager.Uploader
	bucket   string
	region   string
	opts     Options
}

// New creates an uploader for the given bucket.
func New(api awsclient.S3API, bucket, region string, opts Options) *Uploader {
	return &Uploader{
		api:      api,
		transfer: manager.NewUploader(api),
		bucket:   bucket,
		region:   region,
		opts:     opts,
	}
}

// Upload uploads the named file to remoteKey. When the key already exists
// and ForceUpload is unset, no bytes are transferred and the existing
// object's locator is returned.
func (u *Uploader) Upload(ctx context.Context, filename, remoteKey string) (string, error) {
	if u.opts.Prefix != "" {
		remoteKey = u.opts.Prefix + "/" + remoteKey
	}

	if !u.opts.ForceUpload {
		exists, err := u.FileExists(ctx, remoteKey)
		if err != nil {
			return "", err
		}
		if exists {
			return u.URL(remoteKey), nil
		}
	}

	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:               aws.String(u.bucket),
		Key:                  aws.String(remoteKey),
		Body:                 newProgressReader(file, info.Size(), remoteKey, u.opts.Progress),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	}
	if u.opts.KMSKeyID != "" {
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(u.opts.KMSKeyID)
	}

	if _, err := u.transfer.Upload(ctx, input); err != nil {
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) {
			return "", &BucketNotFoundError{Bucket: u.bucket}
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket" {
			return "", &BucketNotFoundError{Bucket: u.bucket}
		}
		return "", err
	}

	return u.URL(remoteKey), nil
}

// UploadWithDedup derives the remote key from the file's content checksum
// and delegates to Upload. Identical content at different local paths maps
// to the same key; unrelated content never collides.
func (u *Uploader) UploadWithDedup(ctx context.Context, filename, extension string) (string, error) {
	sum, err := FileChecksum(filename)
	if err != nil {
		return "", err
	}

	remoteKey := sum
	if extension != "" {
		remoteKey = sum + "." + extension
	}

	return u.Upload(ctx, filename, remoteKey)
}

// FileExists probes the remote key with a metadata-only request. Only a
// genuine not-found response maps to false; authorization and transport
// failures propagate rather than masquerading as absence.
func (u *Uploader) FileExists(ctx context.Context, remoteKey string) (bool, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(remoteKey),
	}

	_, err := u.api.HeadObject(ctx, input)
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return false, nil
		}
	}

	return false, err
}

// URL returns the canonical s3:// locator for an object key.
func (u *Uploader) URL(key string) string {
	return fmt.Sprintf("s3://%s/%s", u.bucket, key)
}

// PathStyleURL returns the HTTPS path-style URL for an object key, keyed by
// the uploader's region.
func (u *Uploader) PathStyleURL(key, version string) string {
	base := "https://s3.amazonaws.com"
	if u.region != "" && u.region != "us-east-1" {
		base = fmt.Sprintf("https://s3-%s.amazonaws.com", u.region)
	}

	result := fmt.Sprintf("%s/%s/%s", base, u.bucket, key)
	if version != "" {
		result = fmt.Sprintf("%s?versionId=%s", result, version)
	}
	return result
}

// Checksum computes the MD5 hex digest of the reader's full content,
// streaming in fixed-size chunks. The reader's position is restored
// afterwards, so an external read cursor is never perturbed.
func Checksum(rs io.ReadSeeker) (string, error) {
	current, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	hash := md5.New()
	buf := make([]byte, checksumBlockSize)
	if _, err := io.CopyBuffer(hash, rs, buf); err != nil {
		return "", err
	}

	if _, err := rs.Seek(current, io.SeekStart); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// FileChecksum computes the MD5 hex digest of the named file.
func FileChecksum(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return Checksum(file)
}
