// Package s3 serves an S3 (or MinIO) bucket as a document tree.
//
// Document IDs are "<bucket>:<key>". Directories are key prefixes and carry
// a trailing slash; "<bucket>:" is the bucket root.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"docbridge/internal/constants"
	apperrors "docbridge/internal/errors"
	"docbridge/internal/logging"
	"docbridge/internal/metrics"
	"docbridge/internal/provider"
)

// TypeName is the registry type of S3 providers.
const TypeName = "s3"

// Config is a JSON-serializable config for S3 providers.
type Config struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Region    string `json:"region"`
}

// API is the subset of the S3 client the provider uses.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Provider implements provider.Provider on top of an S3 bucket.
type Provider struct {
	client API
	bucket string
}

// New creates a provider from a Config.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 provider requires a bucket")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket), nil
}

// NewFromJSON creates a provider from a raw JSON config block.
func NewFromJSON(ctx context.Context, raw json.RawMessage) (*Provider, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse s3 config: %w", err)
	}
	return New(ctx, cfg)
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, bucket string) *Provider {
	return &Provider{client: client, bucket: bucket}
}

func (p *Provider) Type() string { return TypeName }

// RootID returns the document ID of the bucket root.
func (p *Provider) RootID() string { return p.bucket + ":" }

// key splits a document ID into its object key and whether it names a directory.
func (p *Provider) key(id string) (string, bool, error) {
	i := strings.IndexByte(id, ':')
	if i < 0 {
		return "", false, fmt.Errorf("document id %q has no bucket", id)
	}
	if id[:i] != p.bucket {
		return "", false, fmt.Errorf("document %q: %w", id, os.ErrNotExist)
	}
	k := id[i+1:]
	return k, k == "" || strings.HasSuffix(k, "/"), nil
}

func (p *Provider) id(key string) string { return p.bucket + ":" + key }

func (p *Provider) record(start time.Time) {
	metrics.RecordProviderQuery(TypeName, time.Since(start))
}

func (p *Provider) OpenDocument(ctx context.Context, id string, mode provider.Mode) (provider.Document, error) {
	key, dir, err := p.key(id)
	if err != nil {
		return nil, err
	}
	if dir {
		return nil, fmt.Errorf("document %q is a directory", id)
	}
	switch {
	case mode.ReadOnly():
		start := time.Now()
		out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		})
		p.record(start)
		if err != nil {
			return nil, fmt.Errorf("get object %s: %w", key, err)
		}
		return &readDocument{body: out.Body}, nil
	case mode.Write && !mode.Read && !mode.Append:
		return &writeDocument{ctx: ctx, p: p, key: key}, nil
	default:
		return nil, fmt.Errorf("open mode %s: %w", mode, apperrors.ErrUnsupported)
	}
}

func (p *Provider) QueryDocument(ctx context.Context, id string) (provider.Row, error) {
	key, dir, err := p.key(id)
	if err != nil {
		return provider.Row{}, err
	}
	start := time.Now()
	defer p.record(start)

	if dir {
		if key != "" {
			out, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:  aws.String(p.bucket),
				Prefix:  aws.String(key),
				MaxKeys: aws.Int32(1),
			})
			if err != nil {
				return provider.Row{}, err
			}
			if len(out.Contents) == 0 {
				return provider.Row{}, fmt.Errorf("prefix %s: %w", key, os.ErrNotExist)
			}
		}
		return p.dirRow(key), nil
	}

	out, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return provider.Row{}, fmt.Errorf("head object %s: %w", key, err)
	}
	return provider.Row{
		DocumentID:   id,
		DisplayName:  path.Base(key),
		MimeType:     provider.MimeTypeFor(key, false),
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: provider.Millis(aws.ToTime(out.LastModified)),
	}, nil
}

func (p *Provider) dirRow(prefix string) provider.Row {
	name := p.bucket
	if prefix != "" {
		name = path.Base(strings.TrimSuffix(prefix, "/"))
	}
	return provider.Row{DocumentID: p.id(prefix), DisplayName: name, MimeType: constants.MimeTypeDirectory}
}

func (p *Provider) QueryChildDocuments(ctx context.Context, parentID string) (provider.Cursor, error) {
	prefix, dir, err := p.key(parentID)
	if err != nil {
		return nil, err
	}
	if !dir {
		return nil, fmt.Errorf("document %q is not a directory", parentID)
	}
	pager := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(constants.S3ListPageSize),
	})
	return &listCursor{ctx: ctx, p: p, prefix: prefix, pager: pager}, nil
}

func (p *Provider) DeleteDocument(ctx context.Context, id string) (int, error) {
	key, dir, err := p.key(id)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	defer p.record(start)

	if !dir {
		if _, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		}); err != nil {
			return 0, fmt.Errorf("head object %s: %w", key, err)
		}
		if _, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		}); err != nil {
			return 0, err
		}
		logging.Debug("S3 delete object", zap.String("key", key))
		return 1, nil
	}
	if key == "" {
		return 0, fmt.Errorf("document %q: cannot delete bucket root", id)
	}

	deleted := 0
	pager := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(key),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return deleted, err
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		out, err := p.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(p.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, err
		}
		deleted += len(ids) - len(out.Errors)
	}
	logging.Debug("S3 delete prefix", zap.String("prefix", key), zap.Int("objects", deleted))
	return deleted, nil
}

func (p *Provider) Close() error { return nil }

// listCursor walks one delimiter-separated level, fetching pages on demand.
type listCursor struct {
	ctx    context.Context
	p      *Provider
	prefix string
	pager  *s3.ListObjectsV2Paginator
	rows   []provider.Row
	pos    int
	err    error
}

func (c *listCursor) Next() bool {
	for c.pos >= len(c.rows) {
		if c.err != nil || !c.pager.HasMorePages() {
			return false
		}
		start := time.Now()
		page, err := c.pager.NextPage(c.ctx)
		c.p.record(start)
		if err != nil {
			c.err = err
			return false
		}
		c.rows, c.pos = c.pageRows(page), 0
	}
	c.pos++
	return true
}

func (c *listCursor) pageRows(page *s3.ListObjectsV2Output) []provider.Row {
	rows := make([]provider.Row, 0, len(page.CommonPrefixes)+len(page.Contents))
	for _, cp := range page.CommonPrefixes {
		rows = append(rows, c.p.dirRow(aws.ToString(cp.Prefix)))
	}
	for _, obj := range page.Contents {
		key := aws.ToString(obj.Key)
		if key == c.prefix {
			// directory placeholder object
			continue
		}
		rows = append(rows, provider.Row{
			DocumentID:   c.p.id(key),
			DisplayName:  path.Base(key),
			MimeType:     provider.MimeTypeFor(key, false),
			Size:         aws.ToInt64(obj.Size),
			LastModified: provider.Millis(aws.ToTime(obj.LastModified)),
		})
	}
	return rows
}

func (c *listCursor) Row() (provider.Row, error) {
	if c.pos == 0 || c.pos > len(c.rows) {
		return provider.Row{}, errors.New("cursor is not positioned on a row")
	}
	return c.rows[c.pos-1], nil
}

func (c *listCursor) Err() error   { return c.err }
func (c *listCursor) Close() error { return nil }

type readDocument struct{ body io.ReadCloser }

func (d *readDocument) Read(b []byte) (int, error) { return d.body.Read(b) }
func (d *readDocument) Write([]byte) (int, error) {
	return 0, fmt.Errorf("write: %w", apperrors.ErrUnsupported)
}
func (d *readDocument) Close() error { return d.body.Close() }

// writeDocument buffers the object and uploads it on Close.
type writeDocument struct {
	ctx    context.Context
	p      *Provider
	key    string
	buf    bytes.Buffer
	closed bool
}

func (d *writeDocument) Read([]byte) (int, error) {
	return 0, fmt.Errorf("read: %w", apperrors.ErrUnsupported)
}

func (d *writeDocument) Write(b []byte) (int, error) { return d.buf.Write(b) }

// Abort drops the buffered content without uploading it.
func (d *writeDocument) Abort() error {
	d.closed = true
	d.buf.Reset()
	return nil
}

func (d *writeDocument) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	start := time.Now()
	size := int64(d.buf.Len())
	_, err := d.p.client.PutObject(d.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.p.bucket),
		Key:           aws.String(d.key),
		Body:          bytes.NewReader(d.buf.Bytes()),
		ContentLength: aws.Int64(size),
	})
	d.p.record(start)
	if err != nil {
		return fmt.Errorf("put object %s: %w", d.key, err)
	}
	logging.Debug("S3 put object", zap.String("key", d.key), zap.Int64("size", size))
	return nil
}
