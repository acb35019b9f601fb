package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelMatchesVariants(t *testing.T) {
	err := Forbidden("only admins or creator can add members")
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "only admins or creator can add members", err.Message)
	assert.Equal(t, "not allowed", ErrForbidden.Message)
}

func TestWrappedErrorKeepsKind(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("save group: %w", Storage(cause))

	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestUnknownErrorIsInternal(t *testing.T) {
	err := As(errors.New("boom"))
	assert.Equal(t, KindInternal, err.Kind)
	assert.Equal(t, "internal", err.Code)
	assert.Nil(t, As(nil))
}

func TestDistinctCodesDoNotMatch(t *testing.T) {
	assert.False(t, errors.Is(ErrAlreadyMember, ErrNotMember))
	assert.Equal(t, KindConflict, KindOf(ErrCannotRemoveCreator))
}
