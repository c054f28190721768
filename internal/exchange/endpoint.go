package exchange

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// API-разделы
const (
	Public  = "public"
	Private = "private"
)

// Endpoint - конечная точка REST API биржи. API - раздел
// (public, private, v4Private, ...), Path может содержать {param}.
type Endpoint struct {
	API    string
	Method string
	Path   string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s %s %s", e.API, e.Method, e.Path)
}

// Params - параметры запроса
type Params map[string]interface{}

// Extend возвращает новую карту: p, поверх которой записаны extra
func (p Params) Extend(extra ...Params) Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, e := range extra {
		for k, v := range e {
			out[k] = v
		}
	}
	return out
}

// Omit возвращает копию без перечисленных ключей
func (p Params) Omit(keys ...string) Params {
	out := p.Extend()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Has - есть ли ключ
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String - значение ключа строкой; отсутствующий ключ даёт ""
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	return formatValue(v)
}

// Int - значение ключа целым; отсутствие или ошибка дают def
func (p Params) Int(key string, def int64) int64 {
	s := p.String(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// Keys - отсортированные ключи
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// ImplodePath подставляет {param} из params и возвращает путь и
// оставшиеся параметры
func ImplodePath(path string, params Params) (string, Params) {
	rest := params.Extend()
	var b strings.Builder
	for {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			b.WriteString(path)
			break
		}
		end := strings.IndexByte(path[open:], '}')
		if end < 0 {
			b.WriteString(path)
			break
		}
		key := path[open+1 : open+end]
		b.WriteString(path[:open])
		if v, ok := rest[key]; ok {
			b.WriteString(url.PathEscape(formatValue(v)))
			delete(rest, key)
		} else {
			b.WriteString(path[open : open+end+1])
		}
		path = path[open+end+1:]
	}
	return b.String(), rest
}

// Urlencode кодирует параметры в query-строку с ключами по алфавиту
func Urlencode(params Params) string {
	values := url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}
		values.Set(k, formatValue(v))
	}
	return values.Encode()
}

// JSON сериализует значение без экранирования HTML
func JSON(v interface{}) (string, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", errors.Wrap(err, "encode json")
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}
