package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	sc "github.com/dmitrijs2005/eventhub/internal/server/config"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

func s3TestConfig() *sc.Config {
	return &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "events",
	}
}

// stubPresign replaces the AWS seams for the duration of the test.
func stubPresign(t *testing.T, put func(in *s3.PutObjectInput, opts s3.PresignOptions) (*v4.PresignedHTTPRequest, error)) *string {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
	})

	var endpoint string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var o s3.Options
		for _, fn := range optFns {
			fn(&o)
		}
		require.NotNil(t, o.BaseEndpoint)
		endpoint = *o.BaseEndpoint
		assert.True(t, o.UsePathStyle)
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		return put(in, po)
	}
	return &endpoint
}

func newImageFixture(t *testing.T) (*ImageService, *CatalogService, string) {
	t.Helper()
	store := repomanager.NewMemoryStore()
	catalog := NewCatalogService(store, logging.Nop())
	ev, err := catalog.Create(context.Background(), eventInput("With image", "2026-11-20", 5))
	require.NoError(t, err)

	svc := NewImageService(catalog, s3TestConfig(), logging.Nop())
	svc.clock = fixedClock(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))
	return svc, catalog, ev.ID
}

func TestPresignUpload_Success(t *testing.T) {
	svc, catalog, eventID := newImageFixture(t)

	var gotKey string
	endpoint := stubPresign(t, func(in *s3.PutObjectInput, po s3.PresignOptions) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "events", aws.ToString(in.Bucket))
		assert.Equal(t, uploadValidity, po.Expires)
		gotKey = aws.ToString(in.Key)
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/events/" + gotKey + "?sig=1", Method: "PUT"}, nil
	})

	up, err := svc.PresignUpload(context.Background(), eventID, "Cover.PNG")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000", *endpoint)
	assert.Equal(t, eventID, up.EventID)
	assert.Equal(t, gotKey, up.Key)
	assert.True(t, strings.HasPrefix(up.Key, "events/"+eventID+"/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Contains(t, up.URL, "sig=1")
	assert.Equal(t, time.Date(2026, 10, 16, 12, 15, 0, 0, time.UTC), up.ExpiresAt)

	ev, err := catalog.Get(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, up.Key, ev.Image)
}

func TestPresignUpload_UnknownEvent(t *testing.T) {
	svc, _, _ := newImageFixture(t)
	stubPresign(t, func(*s3.PutObjectInput, s3.PresignOptions) (*v4.PresignedHTTPRequest, error) {
		t.Fatal("presign must not be called")
		return nil, nil
	})

	_, err := svc.PresignUpload(context.Background(), "evt_missing", "a.png")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPresignUpload_PresignErrorIsInternal(t *testing.T) {
	svc, catalog, eventID := newImageFixture(t)
	stubPresign(t, func(*s3.PutObjectInput, s3.PresignOptions) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign fail")
	})

	_, err := svc.PresignUpload(context.Background(), eventID, "a.png")
	assert.ErrorIs(t, err, common.ErrorInternal)

	ev, err := catalog.Get(context.Background(), eventID)
	require.NoError(t, err)
	assert.Empty(t, ev.Image)
}

func TestPresignUpload_ConfigErrorIsInternal(t *testing.T) {
	svc, _, eventID := newImageFixture(t)
	stubPresign(t, nil)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := svc.PresignUpload(context.Background(), eventID, "a.png")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestImageKey(t *testing.T) {
	assert.True(t, strings.HasSuffix(imageKey("evt_1", "x.JPEG"), ".jpeg"))
	assert.False(t, strings.Contains(imageKey("evt_1", "x.exe"), ".exe"))
	assert.NotEqual(t, imageKey("evt_1", ""), imageKey("evt_1", ""))
}
