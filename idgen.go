package gosio

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator produces process-unique connection ids.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random v4 UUIDs as 32 hex characters.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ULIDGenerator issues lexicographically sortable ULIDs.
type ULIDGenerator struct{}

func (ULIDGenerator) NewID() string {
	return ulid.Make().String()
}

// NewIDGenerator returns the generator for format ("uuid" or "ulid").
func NewIDGenerator(format string) (IDGenerator, error) {
	switch strings.ToLower(format) {
	case "", "uuid":
		return UUIDGenerator{}, nil
	case "ulid":
		return ULIDGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown id format %q", format)
	}
}
