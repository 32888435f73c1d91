package catalog

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=catalog

// Resolver turns an ISBN into title and author using an external source.
type Resolver interface {
	Resolve(ctx context.Context, isbn string) (Metadata, error)
}

// SnapshotRepository reads and writes the whole serialized catalog.
// Read returns ErrSnapshotNotFound when nothing has been written yet.
type SnapshotRepository interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}
