package exchange

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeRoundTripper struct {
	message string
	status  int
	err     error
	last    *http.Request
	sent    string
}

func (rt *FakeRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	rt.last = r
	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		r.Body.Close()
		rt.sent = string(b)
	}
	if rt.err != nil {
		return nil, rt.err
	}
	res := &http.Response{
		StatusCode: rt.status,
		Body:       io.NopCloser(strings.NewReader(rt.message)),
		Request:    r,
		Header:     make(http.Header),
	}
	res.Header.Set("Content-Type", "application/json")
	return res, nil
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestRestClient(rt http.RoundTripper) *RestClient {
	return NewRestClientWithHTTP("test", &http.Client{Transport: rt}, nil)
}

func TestRestClientReturnsBodyAndStatus(t *testing.T) {
	rt := &FakeRoundTripper{message: `{"ok":true}`, status: http.StatusServiceUnavailable}
	c := newTestRestClient(rt)

	resp, err := c.Do(context.Background(), SignedRequest{
		Method:  "post",
		URL:     "http://localhost:4243/v1/x",
		Headers: map[string]string{"api-key": "k"},
		Body:    `{"a":1}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))

	require.NotNil(t, rt.last)
	assert.Equal(t, http.MethodPost, rt.last.Method)
	assert.Equal(t, "k", rt.last.Header.Get("api-key"))
	assert.Equal(t, `{"a":1}`, rt.sent)
}

func TestRestClientTransportErrors(t *testing.T) {
	c := newTestRestClient(&FakeRoundTripper{err: errors.New("connection refused")})
	_, err := c.Do(context.Background(), SignedRequest{Method: http.MethodGet, URL: "http://localhost:4243/"})
	require.Error(t, err)
	assert.Equal(t, NetworkError, KindOf(err))

	c = newTestRestClient(&FakeRoundTripper{err: timeoutErr{}})
	_, err = c.Do(context.Background(), SignedRequest{Method: http.MethodGet, URL: "http://localhost:4243/"})
	require.Error(t, err)
	assert.Equal(t, RequestTimeout, KindOf(err))
	assert.True(t, errors.Is(err, NetworkError))
}

func TestRequestMapsHTTPStatusWhenBodyHasNoError(t *testing.T) {
	rt := &FakeRoundTripper{message: `<html>maintenance</html>`, status: http.StatusServiceUnavailable}
	opts := fixedOptions()
	opts.HTTPClient = &http.Client{Transport: rt}
	a := NewQtradeAdapter(Credentials{}, opts)

	_, err := a.FetchCurrencies(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ExchangeNotAvailable))
	assert.Equal(t, "https://api.qtrade.io/v1/currencies", rt.last.URL.String())

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "qtrade", e.Exchange)
}

func TestDebugLoggerMasksSecrets(t *testing.T) {
	dl := NewDebugLogger("bibox", true)
	assert.True(t, dl.IsEnabled())

	headers := dl.filterHeaders(map[string]string{
		"Content-Type":   "application/json",
		"bibox-api-sign": "abcdef",
		"Authorization":  "HMAC-SHA256 key:xyz",
	})
	assert.Equal(t, "{Authorization=***, Content-Type=application/json, bibox-api-sign=***}", headers)

	body := dl.filterSensitiveData(`{"apikey":"key","cmds":"[]","sign":"abc","nonce":1,"userId":42}`)
	assert.Equal(t, `{"apikey":"***","cmds":"[]","sign":"***","nonce":1,"userId":"***"}`, body)
	assert.Equal(t, "", dl.filterSensitiveData(""))

	long := strings.Repeat("x", maxLoggedBody+10)
	assert.True(t, strings.HasSuffix(dl.cut(long), "... [TRUNCATED]"))

	dl.SetEnabled(false)
	assert.False(t, dl.IsEnabled())
}
