package exchange

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind - вид ошибки биржи. Kind сам является error, поэтому
// errors.Is(err, exchange.InsufficientFunds) работает с любой *Error.
type Kind string

const (
	BaseError            Kind = "BaseError"
	ExchangeError        Kind = "ExchangeError"
	AuthenticationError  Kind = "AuthenticationError"
	PermissionDenied     Kind = "PermissionDenied"
	AccountSuspended     Kind = "AccountSuspended"
	ArgumentsRequired    Kind = "ArgumentsRequired"
	BadRequest           Kind = "BadRequest"
	BadSymbol            Kind = "BadSymbol"
	BadResponse          Kind = "BadResponse"
	InsufficientFunds    Kind = "InsufficientFunds"
	InvalidAddress       Kind = "InvalidAddress"
	InvalidOrder         Kind = "InvalidOrder"
	OrderNotFound        Kind = "OrderNotFound"
	NotSupported         Kind = "NotSupported"
	NetworkError         Kind = "NetworkError"
	DDoSProtection       Kind = "DDoSProtection"
	RateLimitExceeded    Kind = "RateLimitExceeded"
	ExchangeNotAvailable Kind = "ExchangeNotAvailable"
	OnMaintenance        Kind = "OnMaintenance"
	RequestTimeout       Kind = "RequestTimeout"
)

// parents - иерархия видов: InsufficientFunds -> ExchangeError -> BaseError
var parents = map[Kind]Kind{
	ExchangeError:        BaseError,
	AuthenticationError:  ExchangeError,
	PermissionDenied:     AuthenticationError,
	AccountSuspended:     AuthenticationError,
	ArgumentsRequired:    ExchangeError,
	BadRequest:           ExchangeError,
	BadSymbol:            BadRequest,
	BadResponse:          ExchangeError,
	InsufficientFunds:    ExchangeError,
	InvalidAddress:       ExchangeError,
	InvalidOrder:         ExchangeError,
	OrderNotFound:        InvalidOrder,
	NotSupported:         ExchangeError,
	NetworkError:         BaseError,
	DDoSProtection:       NetworkError,
	RateLimitExceeded:    DDoSProtection,
	ExchangeNotAvailable: NetworkError,
	OnMaintenance:        ExchangeNotAvailable,
	RequestTimeout:       NetworkError,
}

func (k Kind) Error() string { return string(k) }

func (k Kind) Is(target error) bool {
	t, ok := target.(Kind)
	return ok && k.IsA(t)
}

// IsA сообщает, является ли k видом target или его потомком
func (k Kind) IsA(target Kind) bool {
	for cur := k; cur != ""; cur = parents[cur] {
		if cur == target {
			return true
		}
	}
	return false
}

// Transient - сетевые виды, которые вызывающий может повторить
func (k Kind) Transient() bool {
	return k.IsA(NetworkError)
}

// Error - ошибка биржи с видом и исходным ответом
type Error struct {
	Kind     Kind
	Exchange string
	Message  string
}

// NewError создаёт ошибку вида kind
func NewError(kind Kind, exchangeID, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Exchange: exchangeID, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Exchange == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Exchange, e.Kind, e.Message)
}

// Is поддерживает сравнение как с видом, так и с другой *Error
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind.IsA(t)
	case *Error:
		return e.Kind.IsA(t.Kind)
	}
	return false
}

// KindOf возвращает вид ошибки или "" для посторонних ошибок
func KindOf(err error) Kind {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Kind
		case Kind:
			return e
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			c, ok := err.(interface{ Cause() error })
			if !ok {
				return ""
			}
			err = c.Cause()
			continue
		}
		err = u.Unwrap()
	}
	return ""
}

// Exceptions - таблицы кодов ошибок биржи: точное совпадение и подстрока
type Exceptions struct {
	Exact map[string]Kind
	Broad map[string]Kind
}

// Exactly ищет код в таблице точных совпадений
func (x Exceptions) Exactly(code string) (Kind, bool) {
	if code == "" {
		return "", false
	}
	k, ok := x.Exact[code]
	return k, ok
}

// Broadly ищет первую (по алфавиту) подстроку из таблицы в сообщении
func (x Exceptions) Broadly(message string) (Kind, bool) {
	if message == "" || len(x.Broad) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(x.Broad))
	for k := range x.Broad {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(message, k) {
			return x.Broad[k], true
		}
	}
	return "", false
}

// httpStatusKinds - виды по HTTP-статусу, если биржа не вернула свою ошибку
var httpStatusKinds = map[int]Kind{
	http.StatusUnprocessableEntity:           ExchangeError,
	http.StatusTeapot:                        DDoSProtection,
	http.StatusTooManyRequests:               RateLimitExceeded,
	http.StatusNotFound:                      ExchangeNotAvailable,
	http.StatusConflict:                      ExchangeNotAvailable,
	http.StatusGone:                          ExchangeNotAvailable,
	http.StatusUnavailableForLegalReasons:    ExchangeNotAvailable,
	http.StatusInternalServerError:           ExchangeNotAvailable,
	http.StatusNotImplemented:                ExchangeNotAvailable,
	http.StatusBadGateway:                    ExchangeNotAvailable,
	http.StatusServiceUnavailable:            ExchangeNotAvailable,
	http.StatusGatewayTimeout:                RequestTimeout,
	http.StatusUnauthorized:                  AuthenticationError,
	http.StatusForbidden:                     PermissionDenied,
	http.StatusProxyAuthRequired:             AuthenticationError,
	http.StatusNetworkAuthenticationRequired: AuthenticationError,
}

// KindForStatus - вид ошибки для HTTP-статуса; для 2xx/3xx и неизвестных кодов ""
func KindForStatus(status int) Kind {
	if k, ok := httpStatusKinds[status]; ok {
		return k
	}
	if status >= 520 && status <= 530 {
		return ExchangeNotAvailable
	}
	if status >= 400 {
		return ExchangeError
	}
	return ""
}
