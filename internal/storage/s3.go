// Package storage keeps graph snapshots in an S3 bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/cinegraph/backend/internal/util"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(util.GetEnv("AWS_REGION")),
		config.WithBaseEndpoint(util.GetEnv("AWS_ENDPOINT")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			util.GetEnv("AWS_ACCESS_KEY"),
			util.GetEnv("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// ObjectAPI is the part of the S3 client snapshots need.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Snapshots loads and saves graphs as JSON objects.
type Snapshots struct {
	client ObjectAPI
	bucket string
}

func NewSnapshots(client ObjectAPI, bucket string) *Snapshots {
	return &Snapshots{client: client, bucket: bucket}
}

// Load reads the graph stored under key. A missing object yields an empty
// graph and found false.
func (s *Snapshots) Load(ctx context.Context, key string) (g *graph.Graph, found bool, err error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	var missing *types.NoSuchKey
	if errors.As(err, &missing) {
		return graph.New(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get snapshot %s from S3: %w", key, err)
	}
	defer out.Body.Close()

	g, err = graph.Decode(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return g, true, nil
}

func (s *Snapshots) Save(ctx context.Context, key string, g *graph.Graph) error {
	var buf bytes.Buffer
	if err := g.Encode(&buf); err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", key, err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot %s to S3: %w", key, err)
	}
	return nil
}
