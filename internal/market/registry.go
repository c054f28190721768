package market

import (
	"sort"
	"strings"
)

// Resolver - то, что нужно парсерам для разрешения биржевых id
type Resolver interface {
	MarketByID(id string) (*Market, bool)
	MarketByNumericID(id string) (*Market, bool)
	CurrencyCode(id string) string
	CurrencyByNumericID(id string) (*Currency, bool)
}

// MarketSet - загруженные рынки и валюты биржи с индексами по id.
// После Load не изменяется; для обновления строится новый набор.
type MarketSet struct {
	common map[string]string

	bySymbol    map[string]*Market
	byID        map[string]*Market
	byNumericID map[string]*Market

	currencies       map[string]*Currency
	currencyByID     map[string]*Currency
	currencyByNumber map[string]*Currency
}

// NewMarketSet создаёт пустой набор с таблицей переименований валют биржи
func NewMarketSet(common map[string]string) *MarketSet {
	return &MarketSet{
		common:           common,
		bySymbol:         map[string]*Market{},
		byID:             map[string]*Market{},
		byNumericID:      map[string]*Market{},
		currencies:       map[string]*Currency{},
		currencyByID:     map[string]*Currency{},
		currencyByNumber: map[string]*Currency{},
	}
}

// Load строит индексы; валюты загружаются первыми
func (s *MarketSet) Load(markets []Market, currencies []Currency) {
	for i := range currencies {
		c := &currencies[i]
		s.currencies[c.Code] = c
		s.currencyByID[c.ID] = c
		if c.NumericID != "" {
			s.currencyByNumber[c.NumericID] = c
		}
	}
	for i := range markets {
		m := &markets[i]
		s.bySymbol[m.Symbol] = m
		s.byID[m.ID] = m
		if m.NumericID != "" {
			s.byNumericID[m.NumericID] = m
		}
	}
}

// Loaded - есть ли рынки
func (s *MarketSet) Loaded() bool { return len(s.bySymbol) > 0 }

// Market по унифицированному символу
func (s *MarketSet) Market(symbol string) (*Market, bool) {
	m, ok := s.bySymbol[symbol]
	return m, ok
}

func (s *MarketSet) MarketByID(id string) (*Market, bool) {
	m, ok := s.byID[id]
	return m, ok
}

func (s *MarketSet) MarketByNumericID(id string) (*Market, bool) {
	m, ok := s.byNumericID[id]
	return m, ok
}

// Currency по унифицированному коду
func (s *MarketSet) Currency(code string) (*Currency, bool) {
	c, ok := s.currencies[code]
	return c, ok
}

func (s *MarketSet) CurrencyByNumericID(id string) (*Currency, bool) {
	c, ok := s.currencyByNumber[id]
	return c, ok
}

// CurrencyCode переводит биржевой id валюты в унифицированный код
func (s *MarketSet) CurrencyCode(id string) string {
	if id == "" {
		return ""
	}
	if c, ok := s.currencyByID[id]; ok {
		return c.Code
	}
	return CommonCurrencyCode(strings.ToUpper(id), s.common)
}

// Symbols возвращает отсортированный список символов
func (s *MarketSet) Symbols() []string {
	out := make([]string, 0, len(s.bySymbol))
	for symbol := range s.bySymbol {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Markets возвращает рынки в порядке символов
func (s *MarketSet) Markets() []Market {
	symbols := s.Symbols()
	out := make([]Market, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, *s.bySymbol[symbol])
	}
	return out
}

// Currencies возвращает валюты в порядке кодов
func (s *MarketSet) Currencies() []Currency {
	codes := make([]string, 0, len(s.currencies))
	for code := range s.currencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]Currency, 0, len(codes))
	for _, code := range codes {
		out = append(out, *s.currencies[code])
	}
	return out
}

// SafeSymbol находит символ по id рынка. Неизвестный id делится по delimiter
// на валюты; если и это невозможно, возвращается сам id.
func SafeSymbol(r Resolver, marketID string, fallback *Market, delimiter string) string {
	if marketID == "" {
		if fallback != nil {
			return fallback.Symbol
		}
		return ""
	}
	if m, ok := r.MarketByID(marketID); ok {
		return m.Symbol
	}
	if base, quote, ok := SplitMarketID(marketID, delimiter); ok {
		return r.CurrencyCode(base) + "/" + r.CurrencyCode(quote)
	}
	if fallback != nil {
		return fallback.Symbol
	}
	return marketID
}

// SafeMarket возвращает рынок по id или fallback
func SafeMarket(r Resolver, marketID string, fallback *Market) *Market {
	if marketID != "" {
		if m, ok := r.MarketByID(marketID); ok {
			return m
		}
	}
	return fallback
}
