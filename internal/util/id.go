package util

import (
	"strings"

	"github.com/google/uuid"
)

func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return raw
	}
	return prefix + "_" + raw
}

// ShortID is the 12 character form used in human-facing ids.
func ShortID(prefix string) string {
	id := NewID("")[:12]
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
