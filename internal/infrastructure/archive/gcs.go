package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/lines-ledger/internal/usecase"
	"google.golang.org/api/option"
)

const defaultPrefix = "purges"

// ObjectWriter opens a writer for one object. Close commits it.
type ObjectWriter interface {
	NewWriter(ctx context.Context, name string) io.WriteCloser
}

type bucketWriter struct {
	bucket *storage.BucketHandle
}

func (b bucketWriter) NewWriter(ctx context.Context, name string) io.WriteCloser {
	w := b.bucket.Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-cache"
	return w
}

// GCSArchiver writes each purge batch as one JSON object.
type GCSArchiver struct {
	client *storage.Client
	writer ObjectWriter
	prefix string
}

func NewGCSArchiver(ctx context.Context, bucket, credentialsFile string) (*GCSArchiver, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	opts := make([]option.ClientOption, 0, 1)
	if strings.TrimSpace(credentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, crerr.Wrap(err, "create GCS storage client")
	}
	return &GCSArchiver{
		client: client,
		writer: bucketWriter{bucket: client.Bucket(bucket)},
		prefix: defaultPrefix,
	}, nil
}

// NewArchiverWithWriter is NewGCSArchiver over an arbitrary object sink.
func NewArchiverWithWriter(writer ObjectWriter, prefix string) *GCSArchiver {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &GCSArchiver{writer: writer, prefix: prefix}
}

func (a *GCSArchiver) Archive(ctx context.Context, batch usecase.ArchiveBatch) error {
	if len(batch.Entries) == 0 {
		return nil
	}
	raw, err := sonic.Marshal(batch)
	if err != nil {
		return crerr.Wrap(err, "marshal purge batch")
	}

	name := ObjectName(a.prefix, batch)
	w := a.writer.NewWriter(ctx, name)
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return crerr.Wrapf(err, "write archive object %s", name)
	}
	if err := w.Close(); err != nil {
		return crerr.Wrapf(err, "close archive object %s", name)
	}
	return nil
}

func (a *GCSArchiver) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}

// ObjectName is prefix/YYYY-MM-DD/<unix-nanos>.json in UTC.
func ObjectName(prefix string, batch usecase.ArchiveBatch) string {
	at := batch.PurgedAt.UTC()
	return fmt.Sprintf("%s/%s/%d.json", prefix, at.Format("2006-01-02"), at.UnixNano())
}
