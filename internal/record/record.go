// Package record declares the hosted data-backend contract. The dashboard
// side of the product persists its records through this service; the chat
// client only carries the credential, so the backend is consumed as an
// interface and never reimplemented here.
package record

import (
	"context"
	"encoding/json"
	"fmt"
)

// Record is one document in a named collection.
type Record struct {
	ID     string          `json:"id"`
	Fields json.RawMessage `json:"fields"`
}

// Backend is a generic create/read/update/delete service over named
// collections. No consistency guarantees beyond last write wins.
type Backend interface {
	Create(ctx context.Context, collection string, fields json.RawMessage) (*Record, error)
	Get(ctx context.Context, collection, id string) (*Record, error)
	List(ctx context.Context, collection string) ([]Record, error)
	Update(ctx context.Context, collection, id string, fields json.RawMessage) (*Record, error)
	Delete(ctx context.Context, collection, id string) error
}

// Error is a backend failure with a message suitable for display.
type Error struct {
	Collection string
	Op         string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Collection, e.Message)
}
