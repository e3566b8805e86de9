package melcloud

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageUsesTableForKnownCodes(t *testing.T) {
	for code := 0; code < 10; code++ {
		id := code
		resp := LoginResponse{ErrorID: &id}

		msg, err := resp.ErrorMessage()
		require.NoError(t, err)
		assert.Equal(t, loginErrorMessages[code], msg)
		assert.NotEmpty(t, msg)
	}
}

func TestErrorMessagePrefersServerMessage(t *testing.T) {
	id := 4
	text := "Conta bloqueada por 30 minutos"
	resp := LoginResponse{ErrorID: &id, Message: &text}

	msg, err := resp.ErrorMessage()
	require.NoError(t, err)
	assert.Equal(t, text, msg)
}

func TestErrorMessageOutOfRangeCode(t *testing.T) {
	for _, code := range []int{-1, 10, 99} {
		id := code
		resp := LoginResponse{ErrorID: &id}

		_, err := resp.ErrorMessage()
		assert.True(t, errors.Is(err, ErrUnknownLoginError), "code %d", code)
	}
}

func TestTokenWithoutLoginData(t *testing.T) {
	assert.Empty(t, LoginResponse{}.Token())
	assert.False(t, LoginResponse{}.HasError())
}
