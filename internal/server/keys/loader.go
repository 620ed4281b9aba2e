package keys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return c.GetObject(ctx, in)
	}
)

// S3Options configure access to key objects referenced as s3://bucket/key.
// Empty credentials fall back to the default AWS chain.
type S3Options struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// Loader reads PEM material from the local filesystem or from S3 compatible
// object storage.
type Loader struct {
	s3opts S3Options
}

func NewLoader(opts S3Options) *Loader {
	return &Loader{s3opts: opts}
}

// Read returns the bytes at location, either a file path or s3://bucket/key.
func (l *Loader) Read(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, s3Scheme) {
		b, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		return b, nil
	}

	bucket, key, err := splitS3(location)
	if err != nil {
		return nil, err
	}

	client, err := l.s3Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	out, err := getObject(client, ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", location, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", location, err)
	}
	return b, nil
}

// Load reads both keys and parses them for alg.
func (l *Loader) Load(ctx context.Context, alg, privateLocation, publicLocation string) (*KeyPair, error) {
	priv, err := l.Read(ctx, privateLocation)
	if err != nil {
		return nil, err
	}
	pub, err := l.Read(ctx, publicLocation)
	if err != nil {
		return nil, err
	}
	return ParseKeyPair(alg, priv, pub)
}

func (l *Loader) s3Client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if l.s3opts.Region != "" {
		opts = append(opts, config.WithRegion(l.s3opts.Region))
	}
	if l.s3opts.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			l.s3opts.AccessKey,
			l.s3opts.SecretKey,
			"",
		)))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if l.s3opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(l.s3opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func splitS3(location string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(location, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", errors.New("invalid s3 location, want s3://bucket/key: " + location)
	}
	return bucket, key, nil
}
