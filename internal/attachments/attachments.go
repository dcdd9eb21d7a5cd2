// Package attachments keeps the opaque files users attach to ledger
// transactions. Objects live under attachments/<transaction id>/ so that all
// files of a transaction can be dropped by prefix.
package attachments

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

const rootPrefix = "attachments/"

// Store uploads, fetches and removes attachments.
type Store interface {
	Upload(ctx context.Context, transactionID, name string, r io.Reader) (string, error)
	Download(ctx context.Context, transactionID, name string) ([]byte, error)
	RemoveAttachments(ctx context.Context, transactionID string) error
}

// Prefix returns the object prefix shared by every attachment of a
// transaction.
func Prefix(transactionID string) string {
	return rootPrefix + transactionID + "/"
}

// ObjectName returns the object key for one attachment. Only the base name of
// name is kept.
func ObjectName(transactionID, name string) (string, error) {
	if transactionID == "" || strings.Contains(transactionID, "/") {
		return "", fmt.Errorf("ObjectName: invalid transaction id %q", transactionID)
	}
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("ObjectName: invalid file name %q", name)
	}
	return Prefix(transactionID) + base, nil
}

// ParseURI splits gs://bucket/attachments/<id>/<file> into bucket, transaction
// id and file name.
func ParseURI(uri string) (bucket, transactionID, name string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || !strings.HasPrefix(parts[1], rootPrefix) {
		return "", "", "", fmt.Errorf("invalid attachment URI: %s", uri)
	}
	rest := strings.SplitN(strings.TrimPrefix(parts[1], rootPrefix), "/", 2)
	if len(rest) != 2 || rest[0] == "" || rest[1] == "" {
		return "", "", "", fmt.Errorf("invalid attachment URI: %s", uri)
	}
	return parts[0], rest[0], rest[1], nil
}

// Nop discards attachments. It is used when no bucket is configured.
type Nop struct{}

func (Nop) Upload(ctx context.Context, transactionID, name string, r io.Reader) (string, error) {
	return "", fmt.Errorf("Upload: attachment storage is not configured")
}

func (Nop) Download(ctx context.Context, transactionID, name string) ([]byte, error) {
	return nil, fmt.Errorf("Download: attachment storage is not configured")
}

func (Nop) RemoveAttachments(ctx context.Context, transactionID string) error { return nil }

var _ Store = Nop{}
