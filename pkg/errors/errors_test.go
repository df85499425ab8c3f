package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventErrorMessage(t *testing.T) {
	err := NewFetch("ktcu", "HTTP 500", stderrors.New("boom"))
	assert.Equal(t, "[fetch] ktcu: HTTP 500 - boom", err.Error())

	err = NewConfiguration("TELEGRAM_CHAT_ID is required", nil)
	assert.Equal(t, "[configuration] TELEGRAM_CHAT_ID is required", err.Error())

	err = NewParse("sjac", "empty document", nil)
	assert.Equal(t, "[parse] sjac: empty document", err.Error())
}

func TestIsType(t *testing.T) {
	base := NewDelivery("HTTP 502", nil)
	wrapped := fmt.Errorf("send digest: %w", base)

	assert.True(t, IsType(wrapped, ErrorTypeDelivery))
	assert.False(t, IsType(wrapped, ErrorTypeFetch))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeDelivery))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewStoreWrite("sent:ktcu:1", cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, NewFetch("a", "b", nil).IsRetryable())
	assert.True(t, NewDelivery("b", nil).IsRetryable())
	assert.False(t, NewParse("a", "b", nil).IsRetryable())
	assert.False(t, NewRateLimit("a", time.Minute).IsRetryable())
}
