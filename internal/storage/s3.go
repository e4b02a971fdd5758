package storage

import (
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bench-export/internal/resilience"
)

// S3Config configures the S3 client. Empty credentials fall back to the
// default AWS credential chain.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3API is the subset of the S3 client used here.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store downloads and uploads objects in any bucket the client can reach.
type S3Store struct {
	client S3API
	retry  resilience.RetryConfig
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	loadOptions := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, eris.Wrap(err, "storage: load aws config")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewS3Store wraps client with transient-error retries.
func NewS3Store(client S3API, retry resilience.RetryConfig) *S3Store {
	return &S3Store{client: client, retry: retry}
}

// Download writes the object at loc to path.
func (s *S3Store) Download(ctx context.Context, loc Location, dest string) (int64, error) {
	if loc.Key == "" {
		return 0, eris.Errorf("storage: s3 location %s has no key", loc)
	}
	log := zap.L().With(zap.String("bucket", loc.Bucket), zap.String("key", loc.Key))
	log.Info("storage: downloading", zap.String("path", dest))

	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("s3", "get_object")
	n, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (int64, error) {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
		})
		if err != nil {
			return 0, err
		}
		defer out.Body.Close() //nolint:errcheck
		return writeFile(dest, out.Body)
	})
	if err != nil {
		return 0, eris.Wrapf(err, "storage: s3 get %s", loc)
	}
	log.Info("storage: download completed", zap.Int64("bytes", n))
	return n, nil
}

// UploadDir uploads every file under dir to loc's bucket, keyed by loc.Key
// joined with the file's path relative to dir. It returns the uploaded keys.
func (s *S3Store) UploadDir(ctx context.Context, dir string, loc Location) ([]string, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(files))
	for _, rel := range files {
		key := objectKey(loc.Key, rel)
		if err := s.uploadFile(ctx, filepath.Join(dir, rel), loc.Bucket, key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *S3Store) uploadFile(ctx context.Context, localPath, bucket, key string) error {
	zap.L().Info("storage: uploading",
		zap.String("path", localPath),
		zap.String("bucket", bucket),
		zap.String("key", key),
	)

	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("s3", "put_object")
	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		f, err := os.Open(localPath)
		if err != nil {
			return eris.Wrap(err, "storage: open upload file")
		}
		defer f.Close() //nolint:errcheck

		in := &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   f,
		}
		if ct := contentType(localPath); ct != "" {
			in.ContentType = aws.String(ct)
		}
		_, err = s.client.PutObject(ctx, in)
		return err
	})
	return eris.Wrapf(err, "storage: s3 put s3://%s/%s", bucket, key)
}

// objectKey joins prefix and a slash-separated relative path.
func objectKey(prefix, rel string) string {
	rel = filepath.ToSlash(rel)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

var contentTypes = map[string]string{
	".xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".jsonl": "application/x-ndjson",
	".yaml":  "application/yaml",
	".yml":   "application/yaml",
}

func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}
