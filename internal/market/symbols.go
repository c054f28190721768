package market

import (
	"fmt"
	"strings"
	"time"
)

// SymbolSpec - составные части унифицированного символа.
// Формат: BASE/QUOTE[:SETTLE][-YYMMDD][:STRIKE:C|P|M]
type SymbolSpec struct {
	Base       string
	Quote      string
	Settle     string
	Expiry     time.Time
	Strike     string
	OptionType string // call, put, move
}

// String собирает символ по правилам:
// spot:   BTC/USDT
// swap:   BTC/USD:BTC
// future: BTC/USD:BTC-211231
// option: BTC/USD:USDT-211231:50000:C
func (s SymbolSpec) String() string {
	var b strings.Builder
	b.WriteString(s.Base)
	b.WriteByte('/')
	b.WriteString(s.Quote)
	if s.Settle == "" {
		return b.String()
	}
	b.WriteByte(':')
	b.WriteString(s.Settle)
	if !s.Expiry.IsZero() {
		b.WriteByte('-')
		b.WriteString(YYMMDD(s.Expiry))
	}
	if s.OptionType != "" {
		b.WriteByte(':')
		b.WriteString(s.Strike)
		b.WriteByte(':')
		b.WriteString(optionLetter(s.OptionType))
	}
	return b.String()
}

func optionLetter(optionType string) string {
	switch strings.ToLower(optionType) {
	case "call":
		return "C"
	case "put":
		return "P"
	case "move":
		return "M"
	default:
		return strings.ToUpper(optionType)
	}
}

// YYMMDD форматирует дату экспирации в UTC
func YYMMDD(t time.Time) string {
	return t.UTC().Format("060102")
}

// ParseUnifiedSymbol разбирает унифицированный символ обратно на части
func ParseUnifiedSymbol(symbol string) (SymbolSpec, error) {
	var spec SymbolSpec
	parts := strings.Split(symbol, ":")
	pair := strings.SplitN(parts[0], "/", 2)
	if len(pair) != 2 || pair[0] == "" || pair[1] == "" {
		return spec, fmt.Errorf("invalid symbol %q", symbol)
	}
	spec.Base, spec.Quote = pair[0], pair[1]
	if len(parts) == 1 {
		return spec, nil
	}
	settle := parts[1]
	if i := strings.IndexByte(settle, '-'); i >= 0 {
		expiry, err := time.Parse("060102", settle[i+1:])
		if err != nil {
			return spec, fmt.Errorf("invalid expiry in symbol %q: %w", symbol, err)
		}
		spec.Expiry = expiry
		settle = settle[:i]
	}
	spec.Settle = settle
	switch len(parts) {
	case 2:
	case 4:
		spec.Strike = parts[2]
		switch parts[3] {
		case "C":
			spec.OptionType = "call"
		case "P":
			spec.OptionType = "put"
		case "M":
			spec.OptionType = "move"
		default:
			return spec, fmt.Errorf("invalid option type in symbol %q", symbol)
		}
	default:
		return spec, fmt.Errorf("invalid symbol %q", symbol)
	}
	return spec, nil
}

// SplitMarketID делит биржевой id пары по разделителю: "BIX_BTC" -> BIX, BTC
func SplitMarketID(id, delimiter string) (base, quote string, ok bool) {
	if delimiter == "" {
		return "", "", false
	}
	parts := strings.Split(id, delimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// defaultCommonCurrencies - переименования, общие для всех бирж
var defaultCommonCurrencies = map[string]string{
	"XBT":    "BTC",
	"BCC":    "BCH",
	"BCHABC": "BCH",
	"BCHSV":  "BSV",
	"DRK":    "DASH",
}

// CommonCurrencyCode приводит код к общепринятому с учётом таблицы биржи
func CommonCurrencyCode(code string, exchangeCommon map[string]string) string {
	if mapped, ok := exchangeCommon[code]; ok {
		return mapped
	}
	if mapped, ok := defaultCommonCurrencies[code]; ok {
		return mapped
	}
	return code
}
