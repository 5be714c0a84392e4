// Package storage defines the object-store boundary the pipeline reads
// and writes through. Keys are "/"-delimited paths; the concrete store
// behind the interface is an external collaborator.
package storage

import "context"

// ObjectStore is the contract every store implementation satisfies.
//
// GetText returns a NOT_FOUND error (see internal/errors) when the key
// has no backing object; callers treat that as data, not failure.
// ListPrefixes is the cheap folder-level listing used for date
// discovery: it returns only the names of immediate child folders, not
// leaf keys, since leaf counts can reach hundreds of thousands.
type ObjectStore interface {
	GetText(ctx context.Context, key string) (string, error)
	PutText(ctx context.Context, key, content string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}
