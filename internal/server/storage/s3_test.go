package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/knifecatalog/internal/common"
	sc "github.com/dmitrijs2005/knifecatalog/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	put    *s3.PutObjectInput
	putErr error
	body   string
	getErr error
	del    *s3.DeleteObjectInput
	delErr error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	return &s3.PutObjectOutput{}, f.putErr
}

func (f *fakeObjects) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.del = in
	return &s3.DeleteObjectOutput{}, f.delErr
}

func testConfig() *sc.Config {
	return &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "catalog",
	}
}

func TestNewS3Storage_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minioadmin", creds.AccessKeyID)
		return aws.Config{Region: lo.Region, Credentials: lo.Credentials}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.NewFromConfig(cfg, optFns...)
	}

	s, err := NewS3Storage(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, "catalog", s.bucket)
	assert.NotNil(t, s.presign)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Storage_LoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Storage(context.Background(), testConfig())
	assert.ErrorContains(t, err, "no config")
}

func TestS3Storage_Objects(t *testing.T) {
	f := &fakeObjects{body: "blob"}
	s := &S3Storage{client: f, bucket: "catalog"}
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "items/a.jpg", "image/jpeg", strings.NewReader("blob"), 4))
	assert.Equal(t, "catalog", aws.ToString(f.put.Bucket))
	assert.Equal(t, "items/a.jpg", aws.ToString(f.put.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(f.put.ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(f.put.ContentLength))

	rc, err := s.Open(ctx, "items/a.jpg")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "blob", string(data))

	require.NoError(t, s.Delete(ctx, "items/a.jpg"))
	assert.Equal(t, "items/a.jpg", aws.ToString(f.del.Key))
}

func TestS3Storage_Errors(t *testing.T) {
	ctx := context.Background()

	s := &S3Storage{client: &fakeObjects{getErr: &types.NoSuchKey{}}, bucket: "b"}
	_, err := s.Open(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	s = &S3Storage{client: &fakeObjects{
		putErr: errors.New("put boom"),
		getErr: errors.New("get boom"),
		delErr: errors.New("del boom"),
	}, bucket: "b"}
	assert.ErrorContains(t, s.Put(ctx, "k", "", strings.NewReader(""), 0), "put boom")
	_, err = s.Open(ctx, "k")
	assert.ErrorContains(t, err, "get boom")
	assert.ErrorContains(t, s.Delete(ctx, "k"), "del boom")
}

func TestS3Storage_URL(t *testing.T) {
	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })

	s := &S3Storage{bucket: "catalog"}

	presignGetObject = func(_ *s3.PresignClient, _ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, PresignExpiry, po.Expires)
		return &v4.PresignedHTTPRequest{URL: "https://s3/" + aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)}, nil
	}
	u, err := s.URL(context.Background(), "items/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/catalog/items/a.jpg", u)

	presignGetObject = func(*s3.PresignClient, context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign boom")
	}
	_, err = s.URL(context.Background(), "items/a.jpg")
	assert.ErrorContains(t, err, "sign boom")
}
