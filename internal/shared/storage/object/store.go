// Package object stores uploaded documents outside the history database.
package object

import (
	"context"
	"errors"
	"io"
	"net/http"
)

var (
	// ErrInvalidKey is returned for keys that escape the store's namespace.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrNotFound is returned by Open for keys with no stored object.
	ErrNotFound = errors.New("object not found")
)

// Info describes a saved object.
type Info struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStore defines the contract for saving, reading and removing binary objects.
type ObjectStore interface {
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (Info, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Sniff reads up to 512 bytes from r and returns them with their detected content type. The
// caller writes the returned bytes before the rest of r.
func Sniff(r io.Reader) ([]byte, string, error) {
	var buf [512]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, "", err
	}
	head := buf[:n]
	return head, http.DetectContentType(head), nil
}
