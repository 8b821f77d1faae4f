package storage

import "context"

// ObjectStorage is the artifact store: generated cover letters, tailored
// CVs, interview Q&A, and portfolio pages are written as objects.
type ObjectStorage interface {
	// Upload writes an object.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// Download reads an object's content.
	Download(ctx context.Context, key string) ([]byte, error)

	// GetURL returns the public URL for an object.
	GetURL(key string) string

	// Delete removes an object.
	Delete(ctx context.Context, key string) error

	// Exists checks whether an object exists.
	Exists(ctx context.Context, key string) (bool, error)
}
