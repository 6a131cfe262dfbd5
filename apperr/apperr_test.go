package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := NotFound("get_contact", "contact", "abc")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "get_contact: contact abc not found", err.Error())
}

func TestWrappedErrorKeepsKind(t *testing.T) {
	base := Service("complete", errors.New("timeout"))
	wrapped := fmt.Errorf("draft follow-up: %w", base)

	assert.True(t, errors.Is(wrapped, ErrService))
	assert.Equal(t, KindService, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestValidationFormatsMessage(t *testing.T) {
	err := Validation("save_icp", "min_employees %d exceeds max_employees %d", 500, 50)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "min_employees 500 exceeds max_employees 50")
}

func TestConflictUnwraps(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed")
	err := Conflict("upsert_opportunity", cause)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrConflict))
}
