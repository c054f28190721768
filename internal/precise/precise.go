// Package precise - десятичная арифметика над строками и масштабированные целые.
//
// Пустая строка означает отсутствующее значение и проходит через операции
// без ошибок: Mul("", "2") == "".
package precise

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidNumber - строка не является десятичным числом
var ErrInvalidNumber = errors.New("invalid decimal number")

func parse(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Parse разбирает строку в decimal.Decimal
func Parse(s string) (decimal.Decimal, error) {
	d, ok := parse(s)
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrInvalidNumber, "%q", s)
	}
	return d, nil
}

// Valid сообщает, является ли s десятичным числом
func Valid(s string) bool {
	_, ok := parse(s)
	return ok
}

// Normalize приводит число к каноническому виду ("1.50" -> "1.5", "1e-3" -> "0.001")
func Normalize(s string) string {
	d, ok := parse(s)
	if !ok {
		return ""
	}
	return d.String()
}

func binary(a, b string, op func(x, y decimal.Decimal) decimal.Decimal) string {
	x, ok := parse(a)
	if !ok {
		return ""
	}
	y, ok := parse(b)
	if !ok {
		return ""
	}
	return op(x, y).String()
}

func Add(a, b string) string { return binary(a, b, decimal.Decimal.Add) }
func Sub(a, b string) string { return binary(a, b, decimal.Decimal.Sub) }
func Mul(a, b string) string { return binary(a, b, decimal.Decimal.Mul) }

// Div делит с точностью 18 знаков; деление на ноль даёт ""
func Div(a, b string) string {
	y, ok := parse(b)
	if !ok || y.IsZero() {
		return ""
	}
	return binary(a, b, func(x, y decimal.Decimal) decimal.Decimal { return x.DivRound(y, 18) })
}

// Neg меняет знак
func Neg(a string) string {
	x, ok := parse(a)
	if !ok {
		return ""
	}
	return x.Neg().String()
}

// Max возвращает большее из двух; отсутствующее значение игнорируется
func Max(a, b string) string {
	x, okA := parse(a)
	y, okB := parse(b)
	switch {
	case !okA && !okB:
		return ""
	case !okA:
		return y.String()
	case !okB:
		return x.String()
	case x.GreaterThanOrEqual(y):
		return x.String()
	default:
		return y.String()
	}
}

// Cmp сравнивает два числа; невалидные значения считаются нулём
func Cmp(a, b string) int {
	x, _ := parse(a)
	y, _ := parse(b)
	return x.Cmp(y)
}

// IsZero - true для "0", "0.00" и т.п.
func IsZero(a string) bool {
	x, ok := parse(a)
	return ok && x.IsZero()
}

// PrecisionFromDigits: "2" -> "0.01", "0" -> "1", "-1" -> "10"
func PrecisionFromDigits(digits string) string {
	n, ok := parse(digits)
	if !ok || !n.IsInteger() {
		return ""
	}
	return decimal.New(1, -int32(n.IntPart())).String()
}

// ScaleOf возвращает число значащих знаков после запятой: "0.010" -> 2, "100" -> 0
func ScaleOf(s string) int32 {
	d, ok := parse(s)
	if !ok {
		return 0
	}
	str := d.String()
	i := strings.IndexByte(str, '.')
	if i < 0 {
		return 0
	}
	return int32(len(strings.TrimRight(str[i+1:], "0")))
}

// TruncateToTick отбрасывает остаток от деления на шаг tick (к нулю): ("10.7", "1") -> "10"
func TruncateToTick(value, tick string) (string, error) {
	x, step, err := tickOperands(value, tick)
	if err != nil {
		return "", err
	}
	_, rem := x.QuoRem(step, 0)
	return x.Sub(rem).String(), nil
}

// RoundToTick округляет до ближайшего кратного tick, половина от нуля: ("20000.25", "0.5") -> "20000.5"
func RoundToTick(value, tick string) (string, error) {
	x, step, err := tickOperands(value, tick)
	if err != nil {
		return "", err
	}
	_, rem := x.QuoRem(step, 0)
	out := x.Sub(rem)
	if rem.Abs().Mul(decimal.NewFromInt(2)).GreaterThanOrEqual(step) {
		if x.Sign() < 0 {
			out = out.Sub(step)
		} else {
			out = out.Add(step)
		}
	}
	return out.String(), nil
}

func tickOperands(value, tick string) (decimal.Decimal, decimal.Decimal, error) {
	x, ok := parse(value)
	if !ok {
		return decimal.Zero, decimal.Zero, errors.Wrapf(ErrInvalidNumber, "%q", value)
	}
	step, ok := parse(tick)
	if !ok || step.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, errors.Wrapf(ErrInvalidNumber, "tick %q", tick)
	}
	return x, step.Abs(), nil
}
