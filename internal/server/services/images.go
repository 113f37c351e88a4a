package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrijs2005/eventhub/internal/logging"
	sc "github.com/dmitrijs2005/eventhub/internal/server/config"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/shared"
)

// uploadValidity is how long a presigned image upload URL stays usable.
const uploadValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// ImageService hands out presigned object-storage URLs for event images.
type ImageService struct {
	catalog *CatalogService
	config  *sc.Config
	log     logging.Logger
	clock   Clock
}

func NewImageService(catalog *CatalogService, cfg *sc.Config, log logging.Logger) *ImageService {
	return &ImageService{
		catalog: catalog,
		config:  cfg,
		log:     orNop(log).With("module", "images"),
		clock:   time.Now,
	}
}

// imageKey builds an object key under the event's prefix, keeping the
// original file extension when it looks sane.
func imageKey(eventID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		ext = ""
	}
	return fmt.Sprintf("events/%s/%s%s", eventID, shared.MakeRandHexString(8), ext)
}

func (s *ImageService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload returns a URL the admin client PUTs the image to. The event
// must exist; its Image field is pointed at the new object key right away.
func (s *ImageService) PresignUpload(ctx context.Context, eventID, fileName string) (upload *models.ImageUpload, err error) {
	ctx, span := startSpan(ctx, "ImageService.PresignUpload", attribute.String("event.id", eventID))
	defer func() { endSpan(span, err) }()

	if _, err = s.catalog.Get(ctx, eventID); err != nil {
		return nil, err
	}

	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, hideInternal(ctx, s.log, "presign client", err)
	}

	key := imageKey(eventID, fileName)
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(uploadValidity))
	if err != nil {
		return nil, hideInternal(ctx, s.log, "presign put", err)
	}

	if _, err = s.catalog.SetImage(ctx, eventID, key); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "image upload presigned", "event_id", eventID, "key", key)
	return &models.ImageUpload{
		EventID:   eventID,
		Key:       key,
		URL:       req.URL,
		ExpiresAt: stamp(s.clock).Add(uploadValidity),
	}, nil
}
