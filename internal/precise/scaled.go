package precise

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Scaled - целое с десятичным порядком: Value * 10^-Scale.
// Так eqonex передаёт цены и объёмы (price=184204, price_scale=2 -> 1842.04).
type Scaled struct {
	Value int64
	Scale int32
}

// NewScaled кодирует десятичную строку с заданным порядком.
// Лишние знаки отбрасываются (усечение к нулю).
func NewScaled(s string, scale int32) (Scaled, error) {
	v, err := ToScaled(s, scale)
	if err != nil {
		return Scaled{}, err
	}
	return Scaled{Value: v, Scale: scale}, nil
}

// NewScaledExact кодирует строку с порядком, равным числу её знаков после запятой
func NewScaledExact(s string) (Scaled, error) {
	return NewScaled(s, ScaleOf(s))
}

// Decimal возвращает значение как decimal.Decimal
func (s Scaled) Decimal() decimal.Decimal {
	return decimal.New(s.Value, -s.Scale)
}

// String возвращает десятичную запись без хвостовых нулей
func (s Scaled) String() string {
	return s.Decimal().String()
}

// ToScaled: ToScaled("123.456", 2) == 12345
func ToScaled(s string, scale int32) (int64, error) {
	d, err := Parse(s)
	if err != nil {
		return 0, err
	}
	shifted := d.Shift(scale).Truncate(0)
	if !shifted.BigInt().IsInt64() {
		return 0, errors.Errorf("value %s overflows int64 at scale %d", s, scale)
	}
	return shifted.IntPart(), nil
}

// FromScaled: FromScaled("12345", 2) == "123.45"; невалидный вход даёт ""
func FromScaled(s string, scale int32) string {
	d, ok := parse(s)
	if !ok {
		return ""
	}
	return d.Shift(-scale).String()
}

// FromScaledInt - то же для целого
func FromScaledInt(v int64, scale int32) string {
	return FromScaled(strconv.FormatInt(v, 10), scale)
}

// FromScaledTick декодирует значение, порядок которого задан шагом цены ("0.01" -> 2)
func FromScaledTick(s, tick string) string {
	if tick == "" {
		return ""
	}
	return FromScaled(s, ScaleOf(tick))
}
