package utils

import "github.com/google/uuid"

// UUIDGenerator produces ids for entities staged by the client.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a UUIDv7, so ids staged on one device sort by creation
// time. A random UUIDv4 is returned if the clock cannot be read.
func (g *UUIDGenerator) Generate() string {
	if v7, err := uuid.NewV7(); err == nil {
		return v7.String()
	}
	return uuid.NewString()
}
