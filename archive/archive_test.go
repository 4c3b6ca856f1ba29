package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"testing/fstest"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	objects map[string]string
	types   map[string]string
	err     error
}

func (f *fakeAPI) Upload(in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(context.Background(), in, opts...)
}

func (f *fakeAPI) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.StringValue(in.Bucket) + "/" + aws.StringValue(in.Key)
	f.objects[key] = string(data)
	f.types[key] = aws.StringValue(in.ContentType)
	return &s3manager.UploadOutput{Location: "s3://" + key}, nil
}

var _ s3manager.UploaderAPI = (*fakeAPI)(nil)

func newFake() *fakeAPI {
	return &fakeAPI{objects: map[string]string{}, types: map[string]string{}}
}

func TestDir(t *testing.T) {
	api := newFake()
	up := NewS3With(api, "vault", "/backups/")
	root := fstest.MapFS{
		"reports/binder/holding.md": {Data: []byte("# binder")},
		"collections/binder.jsonl":  {Data: []byte("{}\n")},
	}

	n, err := Dir(context.Background(), up, root, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]string{
		"vault/backups/reports/binder/holding.md": "# binder",
		"vault/backups/collections/binder.jsonl":  "{}\n",
	}, api.objects)
	assert.Equal(t, "text/markdown; charset=utf-8", api.types["vault/backups/reports/binder/holding.md"])
	assert.Equal(t, "application/jsonl", api.types["vault/backups/collections/binder.jsonl"])
}

func TestDir_error(t *testing.T) {
	api := newFake()
	api.err = errors.New("denied")
	up := NewS3With(api, "vault", "")
	_, err := Dir(context.Background(), up, fstest.MapFS{"a.md": {Data: []byte("a")}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload s3://vault/a.md: denied")
}

func TestNewS3(t *testing.T) {
	_, err := NewS3("", "", "")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/octet-stream", ContentType("noext"))
	assert.Contains(t, ContentType("index.html"), "text/html")
}
