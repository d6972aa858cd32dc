// Package archive keeps a JSON copy of every finished article in S3,
// independent of the CMS. The archive is append-only.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"medscribe/types"
)

// Config selects the bucket and key layout. Region falls back to the
// standard AWS config chain when empty.
type Config struct {
	Bucket string
	Region string
	// Prefix is prepended to every key, e.g. "articles".
	Prefix string
	// UsePathStyle forces path-style addressing for S3-compatible providers.
	UsePathStyle bool
}

// Archive wraps the AWS SDK v2 S3 client behind the article operations.
type Archive struct {
	client *s3.Client
	cfg    Config
}

// New creates the archive using the default AWS credential chain.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket not configured")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Archive{client: client, cfg: cfg}, nil
}

func (a *Archive) key(slug string) string {
	return path.Join(a.cfg.Prefix, slug+".json")
}

// Store uploads the article as JSON under <prefix>/<slug>.json and returns
// the key.
func (a *Archive) Store(ctx context.Context, article types.FinalArticle) (string, error) {
	body, err := json.MarshalIndent(article, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal article %s: %w", article.Slug, err)
	}

	key := a.key(article.Slug)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", article.Slug, err)
	}
	return key, nil
}

// Load fetches a previously archived article by slug.
func (a *Archive) Load(ctx context.Context, slug string) (types.FinalArticle, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(a.key(slug)),
	})
	if err != nil {
		return types.FinalArticle{}, fmt.Errorf("load archived %s: %w", slug, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return types.FinalArticle{}, fmt.Errorf("read archived %s: %w", slug, err)
	}
	var article types.FinalArticle
	if err := json.Unmarshal(data, &article); err != nil {
		return types.FinalArticle{}, fmt.Errorf("decode archived %s: %w", slug, err)
	}
	return article, nil
}

// Exists reports whether a slug is already archived. HTTP 404 and the
// NotFound API code both mean absent; anything else is an error.
func (a *Archive) Exists(ctx context.Context, slug string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(a.key(slug)),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}
	return false, err
}
