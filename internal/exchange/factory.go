package exchange

import (
	"sort"
	"strings"

	"ct-exchange/pkg/log"
)

var factoryLogger = log.New("exchange_factory")

// Constructor создаёт адаптер по ключам и опциям
type Constructor func(creds Credentials, opts Options) Adapter

var constructors = map[string]Constructor{
	"bibox":  func(c Credentials, o Options) Adapter { return NewBiboxAdapter(c, o) },
	"delta":  func(c Credentials, o Options) Adapter { return NewDeltaAdapter(c, o) },
	"eqonex": func(c Credentials, o Options) Adapter { return NewEqonexAdapter(c, o) },
	"qtrade": func(c Credentials, o Options) Adapter { return NewQtradeAdapter(c, o) },
}

// NewAdapter создает биржевой адаптер по id биржи
func NewAdapter(id string, creds Credentials, opts Options) (Adapter, error) {
	exchangeID := strings.ToLower(strings.TrimSpace(id))
	factoryLogger.Debug("Creating adapter for exchange: id='%s'", exchangeID)

	ctor, ok := constructors[exchangeID]
	if !ok {
		factoryLogger.Warn("Unknown exchange id '%s'", id)
		return nil, NewError(NotSupported, exchangeID, "unknown exchange %q, supported: %s", id, strings.Join(Supported(), ", "))
	}
	return ctor(creds, opts), nil
}

// Supported - id поддерживаемых бирж по алфавиту
func Supported() []string {
	ids := make([]string, 0, len(constructors))
	for id := range constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
