package exchange

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ct-exchange/pkg/log"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// SignedRequest - готовый к отправке запрос: результат sign
type SignedRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Response - ответ биржи
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// RestClient - REST-транспорт на resty
type RestClient struct {
	client *resty.Client
	logger *log.Logger
	debug  *DebugLogger
}

// NewRestClient создаёт клиента с таймаутом
func NewRestClient(exchangeID string, timeout time.Duration, debug *DebugLogger) *RestClient {
	return newRestClient(resty.New(), exchangeID, timeout, debug)
}

// NewRestClientWithHTTP использует готовый http.Client (тесты, прокси)
func NewRestClientWithHTTP(exchangeID string, hc *http.Client, debug *DebugLogger) *RestClient {
	return newRestClient(resty.NewWithClient(hc), exchangeID, hc.Timeout, debug)
}

func newRestClient(c *resty.Client, exchangeID string, timeout time.Duration, debug *DebugLogger) *RestClient {
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	c.SetHeader("User-Agent", "ct-exchange/1.0")
	if debug == nil {
		debug = NewDebugLogger(exchangeID, false)
	}
	return &RestClient{
		client: c,
		logger: log.New("rest-" + exchangeID),
		debug:  debug,
	}
}

// Do выполняет запрос. Ошибки транспорта возвращаются как NetworkError/RequestTimeout;
// HTTP-статус не проверяется, это дело handleErrors.
func (c *RestClient) Do(ctx context.Context, req SignedRequest) (*Response, error) {
	method := strings.ToUpper(req.Method)
	r := c.client.R().SetContext(ctx).SetHeaders(req.Headers)
	if req.Body != "" {
		r.SetBody(req.Body)
	}
	c.logger.Debug("%s %s", method, req.URL)
	c.debug.LogRequest(method, req.URL, req.Headers, req.Body)

	started := time.Now()
	resp, err := r.Execute(method, req.URL)
	if err != nil {
		c.debug.LogError(method+" "+req.URL, err)
		kind := NetworkError
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = RequestTimeout
		}
		return nil, &Error{Kind: kind, Message: err.Error()}
	}
	c.debug.LogResponse(resp.StatusCode(), resp.Body(), time.Since(started))
	return &Response{
		Status:  resp.StatusCode(),
		Headers: resp.Header(),
		Body:    resp.Body(),
	}, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
