package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New(State, "code_expired", "code expired; request a new one")

	assert.ErrorIs(t, New(State, "code_expired", "different wording"), sentinel)
	assert.NotErrorIs(t, New(State, "code_invalid", "invalid code"), sentinel)
	assert.NotErrorIs(t, errors.New("code_expired"), sentinel)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Unavailable, "gateway_unavailable", "could not verify payment state", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Unavailable, KindOf(err))
	assert.Equal(t, "gateway_unavailable", CodeOf(err))
	assert.Equal(t, "could not verify payment state", MessageOf(err))
}

func TestWrappedErrorSurvivesFmtChain(t *testing.T) {
	inner := New(NotFound, "purchase_not_found", "purchase not found")
	outer := fmt.Errorf("confirm checkout: %w", inner)

	assert.Equal(t, NotFound, KindOf(outer))
	assert.Equal(t, "purchase_not_found", CodeOf(outer))
}

func TestPlainErrorDefaults(t *testing.T) {
	err := errors.New("disk full")

	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, "internal", CodeOf(err))
	assert.Equal(t, "internal server error", MessageOf(err))
}
