// Package uuid issues time-ordered request identifiers.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a UUIDv7 string, falling back to v4 if the random source fails.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.New().String()
	}
	return id.String()
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
