package handlers

import "context"

// ObjectStore is the slice of the snapshot store the handlers use. Satisfied
// by storage.MinIOStore.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}
