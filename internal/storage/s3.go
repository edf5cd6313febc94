package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"article-api/internal/domain"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archive writes published articles to Amazon S3 (or compatible APIs).
type S3Archive struct {
	uploader  uploader
	bucket    string
	keyPrefix string
}

func NewS3Archive(client *s3.Client, bucket, keyPrefix string) *S3Archive {
	return &S3Archive{
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		keyPrefix: keyPrefix,
	}
}

// ArchiveArticle uploads article as JSON and returns its s3:// location.
func (a *S3Archive) ArchiveArticle(ctx context.Context, article domain.Article) (string, error) {
	if a.bucket == "" {
		return "", fmt.Errorf("archive bucket is required")
	}
	if article.ID == "" {
		return "", fmt.Errorf("article id is required")
	}

	body, err := json.Marshal(newArchivedArticle(article))
	if err != nil {
		return "", fmt.Errorf("encode article: %w", err)
	}

	key := ObjectKey(a.keyPrefix, article)
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
