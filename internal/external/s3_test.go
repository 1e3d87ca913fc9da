package external

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labmaint/internal/types"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver_Put(t *testing.T) {
	api := &fakeS3{}
	a := NewS3ArchiverWithAPI(api, "lab-reports", nil)

	err := a.Put(context.Background(), "reportes/2026-01/historial.pdf", "application/pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, "lab-reports", aws.ToString(api.input.Bucket))
	assert.Equal(t, "reportes/2026-01/historial.pdf", aws.ToString(api.input.Key))
	assert.Equal(t, "application/pdf", aws.ToString(api.input.ContentType))
	assert.Equal(t, int64(8), aws.ToInt64(api.input.ContentLength))
	assert.Equal(t, "%PDF-1.3", string(api.body))
}

func TestS3Archiver_PutError(t *testing.T) {
	a := NewS3ArchiverWithAPI(&fakeS3{err: errors.New("access denied")}, "lab-reports", nil)

	err := a.Put(context.Background(), "k", "text/plain", nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeUpstreamStorage))
}
