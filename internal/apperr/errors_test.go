package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := Conflict("transaction reference %q already used", "TXN-1")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrValidation)

	wrapped := fmt.Errorf("record deposit: %w", err)
	assert.ErrorIs(t, wrapped, ErrConflict)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, `transaction reference "TXN-1" already used`, MessageOf(wrapped))
}

func TestWrapKeepsExistingKind(t *testing.T) {
	inner := NotFound("booking 7 not found")
	out := Wrap(inner, KindInternal, "load booking")
	assert.Equal(t, KindNotFound, KindOf(out))

	cause := sql.ErrConnDone
	out = Wrap(cause, KindInternal, "load booking")
	assert.Equal(t, KindInternal, KindOf(out))
	assert.True(t, errors.Is(out, sql.ErrConnDone))
	assert.Nil(t, Wrap(nil, KindInternal, "noop"))
}

func TestUntypedErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", MessageOf(err))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "invalid_state: booking is Rejected", InvalidState("booking is %s", "Rejected").Error())
	assert.Equal(t, "validation_error", ErrValidation.Error())
}
