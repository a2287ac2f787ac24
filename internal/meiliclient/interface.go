package meiliclient

import (
	"context"
	"errors"
)

// ErrNotFound is returned for 404 responses from the Meilisearch API.
var ErrNotFound = errors.New("meilisearch: not found")

// Client is the operator's view of one Meilisearch server. Implementations
// must be safe for use from a single reconcile; remote state is never cached
// across reconciles.
type Client interface {
	Health(ctx context.Context) error

	GetIndex(ctx context.Context, uid string) (*Index, error)
	CreateIndex(ctx context.Context, uid string, primaryKey *string) error
	DeleteIndex(ctx context.Context, uid string) error

	GetKey(ctx context.Context, uid string) (*Key, error)
	// ListKeys returns all keys, following pagination.
	ListKeys(ctx context.Context) ([]Key, error)
	CreateKey(ctx context.Context, params KeyParams) (*Key, error)
	DeleteKey(ctx context.Context, uid string) error
}

// Factory builds a Client for a server endpoint authenticated with the given
// bearer credential. Controllers hold a Factory so tests can substitute the
// mock.
type Factory func(endpoint, apiKey string) Client
