package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
)

// deleteBatchSize is the DeleteObjects limit per request.
const deleteBatchSize = 1000

// AWSOptions configures the S3 session. Static credentials are used when
// AccessKeyID is set; otherwise the SDK's default provider chain applies.
type AWSOptions struct {
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewSession builds an AWS session from explicit options without touching the
// process environment.
func NewSession(opts AWSOptions) (*session.Session, error) {
	cfg := &aws.Config{
		Region:           aws.String(opts.Region),
		S3ForcePathStyle: aws.Bool(opts.ForcePathStyle),
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}
	if opts.AccessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}

// S3Store is a Store rooted at a bucket prefix.
type S3Store struct {
	client   s3iface.S3API
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
	logger   *zap.Logger
}

// NewS3Store returns a store for bucket/prefix using client.
func NewS3Store(client s3iface.S3API, bucket, prefix string, logger *zap.Logger) *S3Store {
	return &S3Store{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger,
	}
}

func (s *S3Store) key(key string) string {
	return JoinKey(s.prefix, key)
}

// URI implements Store.
func (s *S3Store) URI(key string) string {
	return "s3://" + s.bucket + "/" + s.key(key)
}

// List returns every object below prefix, sorted by key.
func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	full := dirPrefix(s.key(prefix))
	root := dirPrefix(s.prefix)

	var objects []Object
	err := s.client.ListObjectsV2PagesWithContext(ctx,
		&s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(full),
		},
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				k := aws.StringValue(obj.Key)
				if strings.HasSuffix(k, "/") {
					continue
				}
				objects = append(objects, Object{
					Key:  strings.TrimPrefix(k, root),
					Size: aws.Int64Value(obj.Size),
				})
			}
			return !lastPage
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.bucket, full, err)
	}
	return objects, nil
}

// Open streams an object rather than buffering it in memory.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start download stream for %s: %w", s.URI(key), err)
	}
	return out.Body, nil
}

// Clear deletes every object below prefix.
func (s *S3Store) Clear(ctx context.Context, prefix string) error {
	if dirPrefix(prefix) == "" {
		return fmt.Errorf("refusing to clear the store root s3://%s/%s", s.bucket, s.prefix)
	}
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}

	for start := 0; start < len(objects); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(objects))
		ids := make([]*s3.ObjectIdentifier, 0, end-start)
		for _, obj := range objects[start:end] {
			ids = append(ids, &s3.ObjectIdentifier{Key: aws.String(s.key(obj.Key))})
		}
		out, err := s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects under %s: %w", s.URI(prefix), err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("failed to delete %d objects under %s, first %s: %s",
				len(out.Errors), s.URI(prefix), aws.StringValue(first.Key), aws.StringValue(first.Message))
		}
	}

	s.logger.Debug("cleared prefix", zap.String("uri", s.URI(prefix)), zap.Int("objects", len(objects)))
	return nil
}

// Put uploads localPath to key and verifies the object exists afterwards.
func (s *S3Store) Put(ctx context.Context, key, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open temp file for upload: %w", err)
	}
	defer file.Close()

	result, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", s.URI(key), err)
	}

	_, err = s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return fmt.Errorf("upload verification failed for %s: %w", s.URI(key), err)
	}

	s.logger.Debug("uploaded object", zap.String("uri", s.URI(key)), zap.String("location", result.Location))
	return nil
}

// CheckAccess writes and removes a marker object to prove the credentials can
// write under the store prefix before any table is touched.
func (s *S3Store) CheckAccess(ctx context.Context) error {
	testKey := s.key(".connection-test")

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(testKey),
		Body:   strings.NewReader("S3 connection test successful"),
	})
	if err != nil {
		return fmt.Errorf("S3 upload test failed: %w", err)
	}

	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(testKey),
	})
	if err != nil {
		s.logger.Warn("failed to clean up S3 access test object", zap.String("key", testKey), zap.Error(err))
	}
	return nil
}

// OpenStore returns a Store for root, creating an AWS session only for S3 roots.
func OpenStore(root string, opts AWSOptions, logger *zap.Logger) (Store, error) {
	loc, err := ParseLocation(root)
	if err != nil {
		return nil, err
	}
	if !loc.IsS3() {
		return NewLocalStore(loc.Path), nil
	}
	sess, err := NewSession(opts)
	if err != nil {
		return nil, err
	}
	return NewS3Store(s3.New(sess), loc.Bucket, loc.Prefix, logger), nil
}
