// Package archive backs up published reports and collection ledgers.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
)

// Uploader stores an object under a key.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
}

// S3Uploader uploads to a bucket, under a key prefix.
type S3Uploader struct {
	Bucket string
	Prefix string
	api    s3manager.UploaderAPI
}

// NewS3 creates an uploader using the shared AWS configuration (environment,
// ~/.aws files). An empty region uses the configured one.
func NewS3(bucket, prefix, region string) (*S3Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("no S3 bucket configured")
	}
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create AWS session: %w", err)
	}
	return NewS3With(s3manager.NewUploader(sess), bucket, prefix), nil
}

// NewS3With creates an uploader on top of api.
func NewS3With(api s3manager.UploaderAPI, bucket, prefix string) *S3Uploader {
	return &S3Uploader{Bucket: bucket, Prefix: strings.Trim(prefix, "/"), api: api}
}

// Key returns the object key of name.
func (u *S3Uploader) Key(name string) string {
	return path.Join(u.Prefix, filepath.ToSlash(name))
}

// Upload stores body under the prefixed key.
func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	in := &s3manager.UploadInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(u.Key(key)),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := u.api.UploadWithContext(ctx, in); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", u.Bucket, u.Key(key), err)
	}
	return nil
}

// Dir uploads every file of root, keyed by its path relative to root.
// It returns the number of files uploaded.
func Dir(ctx context.Context, up Uploader, root fs.FS, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := 0
	err := fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(root, p)
		if err != nil {
			return err
		}
		if err := up.Upload(ctx, p, ContentType(p), bytes.NewReader(data)); err != nil {
			return err
		}
		logger.Debug("uploaded", zap.String("file", p), zap.Int("bytes", len(data)))
		n++
		return nil
	})
	return n, err
}

// ContentType guesses the content type of a file from its extension.
func ContentType(name string) string {
	switch path.Ext(name) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".jsonl":
		return "application/jsonl"
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
