package lambda

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stahnma/gh-metrics/internal/commands"
)

// Uploader is the part of the S3 client the handler needs.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Exporter writes a comparison snapshot of the configured repositories.
type Exporter interface {
	ExportJSON(ctx context.Context, w io.Writer, names []string) error
}

// NewHandler returns a Lambda handler function that exports a comparison
// snapshot and uploads it to S3.
func NewHandler(app *commands.App) func(context.Context, any) (string, error) {
	return newHandler(app, app.Config.S3Bucket, app.Config.S3ObjectKey, func(ctx context.Context) (Uploader, error) {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(app.Config.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return s3.NewFromConfig(cfg), nil
	})
}

func newHandler(exp Exporter, bucket, objectKey string, uploader func(context.Context) (Uploader, error)) func(context.Context, any) (string, error) {
	return func(ctx context.Context, event any) (string, error) {
		if bucket == "" || objectKey == "" {
			return "", fmt.Errorf("S3_BUCKET_NAME and S3_OBJECT_KEY environment variables must be set")
		}

		var buf bytes.Buffer
		if err := exp.ExportJSON(ctx, &buf, nil); err != nil {
			return "", fmt.Errorf("export: %w", err)
		}
		if buf.Len() == 0 {
			return "", fmt.Errorf("export command produced no output")
		}

		svc, err := uploader(ctx)
		if err != nil {
			return "", err
		}

		key := ObjectKey(objectKey, time.Now())
		_, err = svc.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return "", fmt.Errorf("failed to upload file to S3: %w", err)
		}

		return fmt.Sprintf("Snapshot uploaded to s3://%s/%s", bucket, key), nil
	}
}

// ObjectKey fills the date into pattern when it has a %s verb.
func ObjectKey(pattern string, now time.Time) string {
	if !strings.Contains(pattern, "%s") {
		return pattern
	}
	return fmt.Sprintf(pattern, now.Format("2006-Jan-02"))
}
