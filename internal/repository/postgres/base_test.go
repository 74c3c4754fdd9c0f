package postgres

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsSerializationFailure(t *testing.T) {
	serial := &pq.Error{Code: "40001"}

	assert.True(t, isSerializationFailure(serial))
	// Driver errors reach the helper wrapped by the statement that raised them.
	assert.True(t, isSerializationFailure(fmt.Errorf("failed to create appointment: %w", serial)))

	assert.False(t, isSerializationFailure(&pq.Error{Code: "23505"}))
	assert.False(t, isSerializationFailure(fmt.Errorf("plain error")))
	assert.False(t, isSerializationFailure(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pq.Error{Code: "23505"}

	assert.True(t, isUniqueViolation(unique))
	assert.True(t, isUniqueViolation(fmt.Errorf("failed to create user: %w", unique)))

	assert.False(t, isUniqueViolation(&pq.Error{Code: "40001"}))
	assert.False(t, isUniqueViolation(nil))
}
