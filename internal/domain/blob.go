package domain

import "context"

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type BlobStore interface {
	// Put stores data under key and returns an opaque reference.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PublicURL(ctx context.Context, ref string) (string, error)
}
