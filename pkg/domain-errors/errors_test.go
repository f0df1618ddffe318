package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	t.Run("wrap keeps cause reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeDeliveryFailed, "failed to send OTP")

		assert.ErrorIs(t, err, cause)
		assert.True(t, HasCode(err, CodeDeliveryFailed))
		assert.Equal(t, "failed to send OTP: connection refused", err.Error())
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("submit: %w", New(CodePending, "submission in progress"))
		assert.Equal(t, CodePending, CodeOf(err))
	})

	t.Run("uncoded errors are internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeNotFound))
	})
}
