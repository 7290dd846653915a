package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"camcheck/internal/camcheck"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3Client is the subset of the S3 API used by S3Vault.
type s3Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures an S3Vault.
type S3Options struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint selects an S3-compatible service instead of AWS. Path-style
	// addressing is used when set.
	Endpoint string

	// Static credentials. When empty, the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Vault stores artifacts as objects under <prefix>/<deviceID>/<name>.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   s3Client
	uploader *manager.Uploader
}

// NewS3Vault creates a vault backed by an S3 bucket.
func NewS3Vault(ctx context.Context, name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		provider := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(provider))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3VaultWithClient(name, opts.Bucket, opts.Prefix, client), nil
}

func newS3VaultWithClient(name, bucket, prefix string, client s3Client) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

func (v *S3Vault) devicePrefix(deviceID string) (string, error) {
	if deviceID == "" || strings.Contains(deviceID, "/") {
		return "", fmt.Errorf("invalid device ID: %q", deviceID)
	}
	if v.prefix == "" {
		return deviceID + "/", nil
	}
	return v.prefix + "/" + deviceID + "/", nil
}

func (v *S3Vault) objectKey(deviceID, name string) (string, error) {
	if err := checkArtifactName(name); err != nil {
		return "", err
	}
	p, err := v.devicePrefix(deviceID)
	if err != nil {
		return "", err
	}
	return p + name, nil
}

// PutArtifact uploads an artifact, replacing any earlier object with the same key.
func (v *S3Vault) PutArtifact(deviceID string, name string, r io.Reader, size int64) error {
	key, err := v.objectKey(deviceID, name)
	if err != nil {
		return err
	}
	ctx := context.Background()

	cr := &countingReader{r: r}
	_, err = v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
		Body:   cr,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}

	if cr.n != size {
		// Do not leave a truncated artifact behind.
		_, delErr := v.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(v.bucket),
			Key:    aws.String(key),
		})
		if delErr != nil {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d (cleanup failed: %v)", size, cr.n, delErr)
		}
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, cr.n)
	}
	return nil
}

// GetArtifact downloads an artifact and writes it to w.
func (v *S3Vault) GetArtifact(deviceID string, name string, w io.Writer) error {
	key, err := v.objectKey(deviceID, name)
	if err != nil {
		return err
	}

	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("artifact %q not found for device: %s", name, deviceID)
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

// ListArtifacts returns the sorted names of a device's artifacts starting with prefix.
func (v *S3Vault) ListArtifacts(deviceID string, prefix string) ([]string, error) {
	base, err := v.devicePrefix(deviceID)
	if err != nil {
		return nil, err
	}

	p := s3.NewListObjectsV2Paginator(v.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(v.bucket),
		Prefix: aws.String(base + prefix),
	})

	var names []string
	for p.HasMorePages() {
		page, err := p.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("listing artifacts: %w", err)
		}
		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(obj.Key), base))
		}
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup checks that the bucket exists and is reachable with the
// configured credentials.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", path.Join(v.bucket, v.prefix), err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Compile-time check that S3Vault implements camcheck.Vault interface
var _ camcheck.Vault = (*S3Vault)(nil)
