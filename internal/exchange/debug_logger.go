package exchange

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"ct-exchange/pkg/log"
)

// DebugLogger - логгер сырых HTTP запросов и ответов
type DebugLogger struct {
	enabled  bool
	exchange string
	logger   *log.Logger
}

func NewDebugLogger(exchange string, enabled bool) *DebugLogger {
	return &DebugLogger{
		enabled:  enabled,
		exchange: exchange,
		logger:   log.New(fmt.Sprintf("http-%s", exchange)),
	}
}

const maxLoggedBody = 1000

// sensitiveHeaders - заголовки, значения которых не пишутся в лог
var sensitiveHeaders = map[string]bool{
	"api-key":        true,
	"signature":      true,
	"authorization":  true,
	"requesttoken":   true,
	"bibox-api-key":  true,
	"bibox-api-sign": true,
}

// sensitiveFields - поля тела запроса, значения которых маскируются
var sensitiveFields = []string{
	"apikey", "apiKey", "sign", "signature", "secret", "trade_pwd", "totp_code", "userId",
}

var sensitiveFieldRe = regexp.MustCompile(`("(?:` + strings.Join(sensitiveFields, "|") + `)"\s*:\s*)("(?:[^"\\]|\\.)*"|[^,}\s]+)`)

// LogRequest логирует исходящий запрос
func (dl *DebugLogger) LogRequest(method, url string, headers map[string]string, body string) {
	if !dl.enabled {
		return
	}
	dl.logger.Debug("[TX] %s %s headers=%s body=%s", method, url, dl.filterHeaders(headers), dl.cut(dl.filterSensitiveData(body)))
}

// LogResponse логирует ответ
func (dl *DebugLogger) LogResponse(status int, body []byte, elapsed time.Duration) {
	if !dl.enabled {
		return
	}
	dl.logger.Debug("[RX] status=%d elapsed=%s body=%s", status, elapsed.Round(time.Millisecond), dl.cut(string(body)))
}

// LogError логирует ошибки
func (dl *DebugLogger) LogError(operation string, err error) {
	if !dl.enabled {
		return
	}
	dl.logger.Error("[ERROR] %s: %v", operation, err)
}

func (dl *DebugLogger) cut(s string) string {
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "... [TRUNCATED]"
	}
	return s
}

func (dl *DebugLogger) filterHeaders(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := headers[k]
		if sensitiveHeaders[strings.ToLower(k)] {
			v = "***"
		}
		parts = append(parts, k+"="+v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// filterSensitiveData заменяет значения конфиденциальных полей на "***"
func (dl *DebugLogger) filterSensitiveData(data string) string {
	if data == "" {
		return data
	}
	return sensitiveFieldRe.ReplaceAllString(data, `$1"***"`)
}

// IsEnabled возвращает состояние debug логирования
func (dl *DebugLogger) IsEnabled() bool {
	return dl.enabled
}

// SetEnabled включает/выключает debug логирование
func (dl *DebugLogger) SetEnabled(enabled bool) {
	dl.enabled = enabled
	if enabled {
		dl.logger.Info("Debug logging ENABLED")
	} else {
		dl.logger.Info("Debug logging DISABLED")
	}
}
