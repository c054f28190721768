package exchange

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindHierarchy(t *testing.T) {
	assert.True(t, OrderNotFound.IsA(InvalidOrder))
	assert.True(t, OrderNotFound.IsA(ExchangeError))
	assert.True(t, OrderNotFound.IsA(BaseError))
	assert.False(t, OrderNotFound.IsA(NetworkError))

	assert.True(t, RateLimitExceeded.IsA(DDoSProtection))
	assert.True(t, OnMaintenance.IsA(ExchangeNotAvailable))
	assert.True(t, PermissionDenied.IsA(AuthenticationError))
	assert.True(t, BadSymbol.IsA(BadRequest))

	assert.True(t, RequestTimeout.Transient())
	assert.True(t, RateLimitExceeded.Transient())
	assert.False(t, InsufficientFunds.Transient())
}

func TestErrorIsAndKindOf(t *testing.T) {
	err := NewError(InsufficientFunds, "bibox", "balance %s too low", "BTC")
	assert.Equal(t, "bibox InsufficientFunds: balance BTC too low", err.Error())

	wrapped := pkgerrors.Wrap(err, "create order")
	assert.True(t, errors.Is(wrapped, InsufficientFunds))
	assert.True(t, errors.Is(wrapped, ExchangeError))
	assert.False(t, errors.Is(wrapped, NetworkError))
	assert.Equal(t, InsufficientFunds, KindOf(wrapped))

	assert.True(t, errors.Is(RateLimitExceeded, NetworkError))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestExceptionsMatching(t *testing.T) {
	x := Exceptions{
		Exact: map[string]Kind{"2033": OrderNotFound},
		Broad: map[string]Kind{"symbol not found": BadSymbol, "not found": ExchangeError},
	}

	kind, ok := x.Exactly("2033")
	assert.True(t, ok)
	assert.Equal(t, OrderNotFound, kind)

	_, ok = x.Exactly("")
	assert.False(t, ok)
	_, ok = x.Exactly("9999")
	assert.False(t, ok)

	// "not found" < "symbol not found" по алфавиту
	kind, ok = x.Broadly(`{"error":"symbol not found"}`)
	assert.True(t, ok)
	assert.Equal(t, ExchangeError, kind)

	_, ok = x.Broadly("all good")
	assert.False(t, ok)
}

func TestKindForStatus(t *testing.T) {
	cases := map[int]Kind{
		200: "",
		302: "",
		400: ExchangeError,
		401: AuthenticationError,
		403: PermissionDenied,
		404: ExchangeNotAvailable,
		418: DDoSProtection,
		429: RateLimitExceeded,
		504: RequestTimeout,
		522: ExchangeNotAvailable,
		599: ExchangeError,
	}
	for status, want := range cases {
		assert.Equal(t, want, KindForStatus(status), "status %d", status)
	}
}
