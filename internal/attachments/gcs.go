package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"google.golang.org/api/iterator"
)

// GCS stores attachments in a Google Cloud Storage bucket. It assumes
// Application Default Credentials are configured.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a GCS attachment store with its own client.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCS: create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Close closes the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// Upload writes r as an attachment of transactionID and returns its gs:// URI.
func (g *GCS) Upload(ctx context.Context, transactionID, name string, r io.Reader) (string, error) {
	objectName, err := ObjectName(transactionID, name)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Upload: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", g.bucket, objectName), nil
}

// Download reads one attachment.
func (g *GCS) Download(ctx context.Context, transactionID, name string) ([]byte, error) {
	objectName, err := ObjectName(transactionID, name)
	if err != nil {
		return nil, err
	}

	r, err := g.client.Bucket(g.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Download: open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Download: read GCS object: %w", err)
	}
	return data, nil
}

// RemoveAttachments deletes every object under the transaction's prefix.
func (g *GCS) RemoveAttachments(ctx context.Context, transactionID string) error {
	bkt := g.client.Bucket(g.bucket)
	it := bkt.Objects(ctx, &storage.Query{Prefix: Prefix(transactionID)})

	removed := 0
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("RemoveAttachments: list objects: %w", err)
		}
		err = bkt.Object(attrs.Name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("RemoveAttachments: delete %s: %w", attrs.Name, err)
		}
		removed++
	}

	if removed > 0 {
		log := logger.FromContext(ctx)
		log.Debug().
			Str("transaction_id", transactionID).
			Int("objects", removed).
			Msg("Attachments removed")
	}
	return nil
}

var _ Store = (*GCS)(nil)
