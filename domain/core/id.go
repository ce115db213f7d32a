package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific identifier types
type (
	ConversionID ID
	ModelName    string
	ParamName    string
)

func (id ConversionID) String() string { return ID(id).String() }
func (m ModelName) String() string     { return string(m) }
func (p ParamName) String() string     { return string(p) }

// ParseModelName parses a string into ModelName
func ParseModelName(s string) (ModelName, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("model name cannot be empty")
	}
	return ModelName(s), nil
}
