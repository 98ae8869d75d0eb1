package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/apperror"
)

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		err   error
		check func(error) bool
	}{
		{apperror.ThrowInvalidArgument(nil, "TEST-1", "bad input"), apperror.IsInvalidArgument},
		{apperror.ThrowNotFound(nil, "TEST-2", "missing"), apperror.IsNotFound},
		{apperror.ThrowAlreadyExists(nil, "TEST-3", "dup"), apperror.IsAlreadyExists},
		{apperror.ThrowPreconditionFailed(nil, "TEST-4", "wrong state"), apperror.IsPreconditionFailed},
		{apperror.ThrowPermissionDenied(nil, "TEST-5", "denied"), apperror.IsPermissionDenied},
		{apperror.ThrowConcurrencyConflict(nil, "TEST-6", "conflict"), apperror.IsConcurrencyConflict},
		{apperror.ThrowInternal(nil, "TEST-7", "boom"), apperror.IsInternal},
		{apperror.ThrowTransient(nil, "TEST-8", "retry"), apperror.IsTransient},
	}

	for _, tt := range tests {
		assert.True(t, tt.check(tt.err), tt.err.Error())
	}
}

func TestWrappingPreservesKindAndCode(t *testing.T) {
	inner := apperror.ThrowNotFound(nil, "COMMAND-Org11", "org not found")
	wrapped := fmt.Errorf("loading write model: %w", inner)

	require.True(t, apperror.IsNotFound(wrapped))
	assert.Equal(t, "COMMAND-Org11", apperror.Code(wrapped))
}

func TestUniqueConstraintIsAlreadyExists(t *testing.T) {
	err := apperror.ThrowUniqueConstraintViolation("usernames", "john", "COMMAND-User20", "username already taken")

	assert.True(t, apperror.IsUniqueConstraintViolation(err))
	assert.True(t, apperror.IsAlreadyExists(err))
	assert.Equal(t, "COMMAND-User20", apperror.Code(err))
}

func TestUniqueConstraintErrorContract(t *testing.T) {
	var err error = apperror.ThrowUniqueConstraintViolation("usernames", "john", "COMMAND-User20", "username already taken")

	// The message comes from the inner error, and unwrapping reaches it.
	assert.Contains(t, err.Error(), "COMMAND-User20")
	assert.Contains(t, err.Error(), "username already taken")

	var inner *apperror.Error
	require.True(t, errors.As(err, &inner))
	assert.Equal(t, apperror.KindAlreadyExists, inner.Kind)

	wrapped := fmt.Errorf("pushing events: %w", err)
	assert.True(t, apperror.IsUniqueConstraintViolation(wrapped))
	assert.True(t, apperror.IsAlreadyExists(wrapped))
	assert.Equal(t, "COMMAND-User20", apperror.Code(wrapped))

	assert.True(t, errors.Is(err, &apperror.UniqueConstraintError{ConstraintType: "usernames"}))
	assert.False(t, errors.Is(err, &apperror.UniqueConstraintError{ConstraintType: "org_names"}))
}

func TestErrorsIsMatchesKindProbe(t *testing.T) {
	err := apperror.ThrowPreconditionFailed(nil, "COMMAND-Org31", "org not active")

	assert.True(t, errors.Is(err, &apperror.Error{Kind: apperror.KindPreconditionFailed}))
	assert.True(t, errors.Is(err, &apperror.Error{Kind: apperror.KindPreconditionFailed, Code: "COMMAND-Org31"}))
	assert.False(t, errors.Is(err, &apperror.Error{Kind: apperror.KindPreconditionFailed, Code: "COMMAND-Org32"}))
	assert.False(t, errors.Is(err, &apperror.Error{Kind: apperror.KindNotFound}))
}
