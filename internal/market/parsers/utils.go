package parsers

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"ct-exchange/internal/precise"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ErrMissingField - в ответе биржи нет обязательного поля
var ErrMissingField = errors.New("missing field")

// Str - скалярное значение из JSON: строка, число или null.
// Числа сохраняются как есть, без преобразования во float.
type Str string

func (s *Str) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Str(v)
	case b[0] == '{' || b[0] == '[':
		return errors.Errorf("expected scalar, got %s", truncate(string(b), 64))
	default:
		*s = Str(b)
	}
	return nil
}

func (s Str) String() string { return string(s) }

// Num - десятичная строка в канонической записи; невалидное значение даёт ""
func (s Str) Num() string {
	if s == "" {
		return ""
	}
	return precise.Normalize(string(s))
}

// Int - целое; ошибка разбора даёт 0
func (s Str) Int() int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(string(s)), 10, 64)
	if err != nil {
		d, perr := precise.Parse(string(s))
		if perr != nil {
			return 0
		}
		return d.IntPart()
	}
	return v
}

// Bool - true для true/"true"/1/"1"
func (s Str) Bool() bool {
	switch strings.ToLower(string(s)) {
	case "true", "1":
		return true
	}
	return false
}

// Unwrap достаёт вложенное поле по gjson-пути ("result.0.result.items")
func Unwrap(body []byte, path string) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.Errorf("invalid json: %s", truncate(string(body), 128))
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return res, errors.Wrapf(ErrMissingField, "%s", path)
	}
	return res, nil
}

// UnwrapOptional - как Unwrap, но отсутствующее поле не ошибка
func UnwrapOptional(body []byte, path string) gjson.Result {
	return gjson.GetBytes(body, path)
}

// Decode раскладывает gjson-результат в типизированную схему
func Decode(res gjson.Result, v interface{}) error {
	raw := res.Raw
	if raw == "" {
		raw = "null"
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}

// DecodePath = Unwrap + Decode
func DecodePath(body []byte, path string, v interface{}) error {
	res, err := Unwrap(body, path)
	if err != nil {
		return err
	}
	return Decode(res, v)
}

// Require проверяет обязательные поля схемы: пары имя, значение
func Require(fields ...interface{}) error {
	for i := 0; i+1 < len(fields); i += 2 {
		name, _ := fields[i].(string)
		switch v := fields[i+1].(type) {
		case Str:
			if v == "" {
				return errors.Wrapf(ErrMissingField, "%s", name)
			}
		case string:
			if v == "" {
				return errors.Wrapf(ErrMissingField, "%s", name)
			}
		case nil:
			return errors.Wrapf(ErrMissingField, "%s", name)
		}
	}
	return nil
}

// Millis - время из миллисекунд; 0 даёт нулевое время
func Millis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// FromMillis / FromMicros / FromSeconds для строковых отметок
func FromMillis(s Str) time.Time  { return Millis(s.Int()) }
func FromMicros(s Str) time.Time  { return Millis(s.Int() / 1000) }
func FromSeconds(s Str) time.Time { return Millis(s.Int() * 1000) }

// FromISO8601 разбирает RFC3339 с любой точностью; ошибка даёт нулевое время
func FromISO8601(s Str) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, string(s))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func rawJSON(res gjson.Result) json.RawMessage {
	if res.Raw == "" {
		return nil
	}
	return json.RawMessage(res.Raw)
}
