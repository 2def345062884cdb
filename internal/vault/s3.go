package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"changestore/internal/config"
	"changestore/internal/store"
)

// s3VersionKey is the user metadata key carrying a metadata item's version.
const s3VersionKey = "chs-version"

// s3API is the subset of the S3 client the vault uses.
type s3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Vault stores payloads and metadata as objects in one bucket:
//
//	<prefix>content/<key>
//	<prefix>metadata/<storeID>/<name>
//
// Uploads go through the s3 manager so large payloads use multipart uploads.
type S3Vault struct {
	client   s3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Vault creates an S3 vault from configuration, loading AWS settings from
// the environment unless static credentials are configured.
func NewS3Vault(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		secret := os.Getenv(cfg.S3SecretKeyEnv)
		if secret == "" {
			return nil, fmt.Errorf("s3_access_key_id is set but %q holds no secret key", cfg.S3SecretKeyEnv)
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Vault(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

func newS3Vault(client s3API, bucket, prefix string) *S3Vault {
	return &S3Vault{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (v *S3Vault) contentKey(key string) string {
	return v.prefix + path.Join("content", key)
}

func (v *S3Vault) metadataKey(storeID, name string) string {
	return v.prefix + path.Join("metadata", storeID, name)
}

// countingReader counts bytes read so uploads can be checked against the
// declared size.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (v *S3Vault) upload(ctx context.Context, key string, r io.Reader, size int64, metadata map[string]string) error {
	body := &countingReader{r: r}
	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(v.bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}

	if body.n != size {
		// Do not leave a truncated object behind.
		if err := v.deleteObject(ctx, key); err != nil {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d (cleanup failed: %v)", size, body.n, err)
		}
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, body.n)
	}
	return nil
}

func (v *S3Vault) download(ctx context.Context, key string, w io.Writer, what string) error {
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("%w: %s", store.ErrNotFound, what)
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

func (v *S3Vault) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	out, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checking %s: %w", key, err)
	}
	return out, nil
}

func (v *S3Vault) deleteObject(ctx context.Context, key string) error {
	_, err := v.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// PutContent uploads a payload unless an object already exists under key.
func (v *S3Vault) PutContent(ctx context.Context, key string, r io.Reader, size int64) error {
	existing, err := v.head(ctx, v.contentKey(key))
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return v.upload(ctx, v.contentKey(key), r, size, nil)
}

func (v *S3Vault) GetContent(ctx context.Context, key string, w io.Writer) error {
	return v.download(ctx, v.contentKey(key), w, "content "+key)
}

func (v *S3Vault) HasContent(ctx context.Context, key string) (bool, error) {
	out, err := v.head(ctx, v.contentKey(key))
	if err != nil {
		return false, err
	}
	return out != nil, nil
}

func (v *S3Vault) DeleteContent(ctx context.Context, key string) error {
	return v.deleteObject(ctx, v.contentKey(key))
}

// PutMetadata uploads a metadata item with its version in the object's user
// metadata.
func (v *S3Vault) PutMetadata(ctx context.Context, storeID, name string, r io.Reader, size int64, version uint64) error {
	return v.upload(ctx, v.metadataKey(storeID, name), r, size, map[string]string{
		s3VersionKey: strconv.FormatUint(version, 10),
	})
}

func (v *S3Vault) GetMetadata(ctx context.Context, storeID, name string, w io.Writer) error {
	return v.download(ctx, v.metadataKey(storeID, name), w, fmt.Sprintf("metadata %q for store %s", name, storeID))
}

// GetMetadataVersion returns 0 if the item does not exist.
func (v *S3Vault) GetMetadataVersion(ctx context.Context, storeID, name string) (uint64, error) {
	out, err := v.head(ctx, v.metadataKey(storeID, name))
	if err != nil || out == nil {
		return 0, err
	}

	raw, ok := out.Metadata[s3VersionKey]
	if !ok {
		return 0, nil
	}
	version, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

var _ store.Vault = (*S3Vault)(nil)
