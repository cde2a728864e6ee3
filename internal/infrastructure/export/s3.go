// Package export provides the save capabilities tried before a plain
// browser download
package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"

	"github.com/alchemorsel/chefnano/internal/ports/outbound"
)

// S3Config configures the bucket sharer
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3Sharer uploads saved images to an S3-compatible bucket
type S3Sharer struct {
	config   S3Config
	uploader *s3manager.Uploader
	logger   *zap.Logger
	now      func() time.Time
}

var _ outbound.ImageSharer = (*S3Sharer)(nil)

// NewS3Sharer creates a bucket sharer
func NewS3Sharer(config S3Config, logger *zap.Logger) (*S3Sharer, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(config.ForcePathStyle),
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}
	if config.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Sharer{
		config:   config,
		uploader: s3manager.NewUploader(sess),
		logger:   logger.Named("s3-sharer"),
		now:      time.Now,
	}, nil
}

// Name implements outbound.ImageSharer.
func (s *S3Sharer) Name() string { return "s3" }

// CanShare reports whether a bucket is configured.
func (s *S3Sharer) CanShare(context.Context) bool {
	return s.config.Bucket != ""
}

// Share uploads the image and returns its object URL.
func (s *S3Sharer) Share(ctx context.Context, filename string, data []byte) (string, error) {
	key := path.Join(s.config.Prefix, s.now().UTC().Format("20060102-150405")+"-"+filename)

	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to bucket %s: %w", key, s.config.Bucket, err)
	}

	s.logger.Info("Image uploaded",
		zap.String("bucket", s.config.Bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return out.Location, nil
}
