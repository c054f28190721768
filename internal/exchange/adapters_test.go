package exchange

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ct-exchange/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeReply struct {
	status int
	body   string
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// fakeExchange отвечает по ключу "METHOD /path"; для bibox v1 к ключу добавляется ?cmd=...
type fakeExchange struct {
	t      *testing.T
	mu     sync.Mutex
	routes map[string]fakeReply
	seen   []recordedRequest
}

func newFakeExchange(t *testing.T, routes map[string]fakeReply) (*fakeExchange, *httptest.Server) {
	f := &fakeExchange{t: t, routes: routes}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func ok(body string) fakeReply { return fakeReply{status: http.StatusOK, body: body} }

func (f *fakeExchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.seen = append(f.seen, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	f.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	if cmd := r.URL.Query().Get("cmd"); cmd != "" {
		key += "?cmd=" + cmd
	}
	reply, found := f.routes[key]
	if !found {
		f.t.Errorf("unexpected request %s", key)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_, _ = io.WriteString(w, reply.body)
}

// last возвращает последний запрос к path
func (f *fakeExchange) last(path string) recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.seen) - 1; i >= 0; i-- {
		if f.seen[i].Path == path {
			return f.seen[i]
		}
	}
	f.t.Fatalf("no request to %s", path)
	return recordedRequest{}
}

func (f *fakeExchange) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.seen {
		if r.Path == path {
			n++
		}
	}
	return n
}

func serverOptions(url string) Options {
	opts := fixedOptions()
	opts.BaseURL = url
	opts.Timeout = 5 * time.Second
	return opts
}

// qtrade

const qtradeCurrenciesBody = `{"data":{"currencies":[
	{"code":"LTC","long_name":"Litecoin","type":"bitcoin_like","precision":8,"status":"ok","can_withdraw":true,
	 "withdraw_disabled":false,"deposit_disabled":false,"minimum_order":"0.0001","config":{"withdraw_fee":"0.001"}},
	{"code":"BTC","long_name":"Bitcoin","type":"bitcoin_like","precision":8,"status":"ok","can_withdraw":true,
	 "withdraw_disabled":false,"deposit_disabled":false,"minimum_order":"0.0001","config":{"withdraw_fee":"0.0005"}}
]}}`

const qtradeMarketsBody = `{"data":{"markets":[
	{"id":1,"market_string":"LTC_BTC","market_currency":"LTC","base_currency":"BTC","can_view":true,"can_trade":true,
	 "taker_fee":"0.005","maker_fee":"0","market_precision":8,"base_precision":8,
	 "minimum_sell_value":"0.0001","minimum_buy_value":"0.0001"}
]}}`

func qtradeRoutes(extra map[string]fakeReply) map[string]fakeReply {
	routes := map[string]fakeReply{
		"GET /v1/currencies": ok(qtradeCurrenciesBody),
		"GET /v1/markets":    ok(qtradeMarketsBody),
	}
	for k, v := range extra {
		routes[k] = v
	}
	return routes
}

func TestQtradeFetchOrderBookLoadsMarketsOnce(t *testing.T) {
	f, srv := newFakeExchange(t, qtradeRoutes(map[string]fakeReply{
		"GET /v1/orderbook/LTC_BTC": ok(`{"data":{"buy":{"0.0101":"3","0.0102":"1"},"sell":{"0.0104":"2","0.0103":"5"},"last_change":1600000000000000}}`),
	}))
	a := NewQtradeAdapter(Credentials{}, serverOptions(srv.URL))
	ctx := context.Background()

	ob, err := a.FetchOrderBook(ctx, "LTC/BTC", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "LTC/BTC", ob.Symbol)
	assert.Equal(t, []market.PriceLevel{{Price: "0.0102", Amount: "1"}}, ob.Bids)
	assert.Equal(t, []market.PriceLevel{{Price: "0.0103", Amount: "5"}}, ob.Asks)

	_, err = a.FetchOrderBook(ctx, "LTC/BTC", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("/v1/markets"))
	assert.Equal(t, 2, f.count("/v1/orderbook/LTC_BTC"))
}

func TestQtradeUnknownSymbol(t *testing.T) {
	_, srv := newFakeExchange(t, qtradeRoutes(nil))
	a := NewQtradeAdapter(Credentials{}, serverOptions(srv.URL))

	_, err := a.FetchTicker(context.Background(), "DOGE/BTC", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, BadSymbol))
}

func TestQtradeCreateOrder(t *testing.T) {
	f, srv := newFakeExchange(t, qtradeRoutes(map[string]fakeReply{
		"POST /v1/user/buy_limit": ok(`{"data":{"order":{"id":13,"created_at":"2018-04-06T20:46:52.899248Z","order_type":"buy_limit",
			"price":"0.01","market_amount":"1","market_amount_remaining":"1","open":true,"market_id":1,"trades":[]}}}`),
	}))
	a := NewQtradeAdapter(testCreds, serverOptions(srv.URL))

	o, err := a.CreateOrder(context.Background(), "LTC/BTC", "limit", market.SideBuy, "1", "0.01", nil)
	require.NoError(t, err)
	assert.Equal(t, "13", o.ID)
	assert.Equal(t, "LTC/BTC", o.Symbol)
	assert.Equal(t, market.SideBuy, o.Side)
	assert.Equal(t, "limit", o.Type)
	assert.Equal(t, market.OrderStatusOpen, o.Status)

	req := f.last("/v1/user/buy_limit")
	assert.JSONEq(t, `{"amount":"1","market_id":1,"price":"0.01"}`, req.Body)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "1600000000000", req.Header.Get("HMAC-Timestamp"))
	assert.Contains(t, req.Header.Get("Authorization"), "HMAC-SHA256 key:")
}

func TestQtradeCreateOrderRejectsMarketType(t *testing.T) {
	f, srv := newFakeExchange(t, qtradeRoutes(nil))
	a := NewQtradeAdapter(testCreds, serverOptions(srv.URL))

	_, err := a.CreateOrder(context.Background(), "LTC/BTC", "market", market.SideSell, "1", "", nil)
	assert.True(t, errors.Is(err, InvalidOrder))
	assert.Zero(t, f.count("/v1/markets"))
}

func TestQtradeErrorCodes(t *testing.T) {
	_, srv := newFakeExchange(t, qtradeRoutes(map[string]fakeReply{
		"GET /v1/user/balances_all": {status: http.StatusUnauthorized, body: `{"errors":[{"code":"invalid_auth","title":"Invalid HMAC signature"}]}`},
	}))
	a := NewQtradeAdapter(testCreds, serverOptions(srv.URL))

	_, err := a.FetchBalance(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, AuthenticationError))
	assert.Contains(t, err.Error(), "Invalid HMAC signature")
}

func TestQtradeFetchBalance(t *testing.T) {
	_, srv := newFakeExchange(t, qtradeRoutes(map[string]fakeReply{
		"GET /v1/user/balances_all": ok(`{"data":{"balances":[{"currency":"LTC","balance":"1.5"}],"order_balances":[{"currency":"LTC","balance":"0.5"}]}}`),
	}))
	a := NewQtradeAdapter(testCreds, serverOptions(srv.URL))

	b, err := a.FetchBalance(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, market.Balance{Free: "1.5", Used: "0.5", Total: "2"}, b.Currencies["LTC"])
}

// delta

const deltaAssetsBody = `{"success":true,"result":[
	{"id":2,"symbol":"BTC","name":"Bitcoin","precision":8,"deposit_status":"enabled","withdrawal_status":"enabled"},
	{"id":3,"symbol":"USD","name":"US Dollar","precision":2,"deposit_status":"disabled","withdrawal_status":"disabled"}
]}`

const deltaProductsBody = `{"success":true,"result":[
	{"id":139,"symbol":"BTCUSD","contract_type":"perpetual_futures","state":"live","tick_size":"0.5","contract_value":"1",
	 "underlying_asset":{"symbol":"BTC"},"quoting_asset":{"symbol":"USD"},"settling_asset":{"symbol":"BTC"}}
]}`

func deltaRoutes(extra map[string]fakeReply) map[string]fakeReply {
	routes := map[string]fakeReply{
		"GET /v2/assets":   ok(deltaAssetsBody),
		"GET /v2/products": ok(deltaProductsBody),
	}
	for k, v := range extra {
		routes[k] = v
	}
	return routes
}

func TestDeltaFetchOrderBookPassesDepth(t *testing.T) {
	f, srv := newFakeExchange(t, deltaRoutes(map[string]fakeReply{
		"GET /v2/l2orderbook/BTCUSD": ok(`{"success":true,"result":{"buy":[{"price":"100","size":2}],"sell":[{"price":"101","size":4}]}}`),
	}))
	a := NewDeltaAdapter(Credentials{}, serverOptions(srv.URL))

	ob, err := a.FetchOrderBook(context.Background(), "BTC/USD:BTC", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USD:BTC", ob.Symbol)
	assert.Equal(t, []market.PriceLevel{{Price: "100", Amount: "2"}}, ob.Bids)
	assert.Equal(t, "depth=1", f.last("/v2/l2orderbook/BTCUSD").Query)
}

func TestDeltaCreateOrderMapsErrorCode(t *testing.T) {
	f, srv := newFakeExchange(t, deltaRoutes(map[string]fakeReply{
		"POST /v2/orders": {status: http.StatusBadRequest, body: `{"success":false,"error":{"code":"insufficient_margin","context":{"available_balance":"0"}}}`},
	}))
	a := NewDeltaAdapter(testCreds, serverOptions(srv.URL))

	_, err := a.CreateOrder(context.Background(), "BTC/USD:BTC", "limit", market.SideBuy, "10", "20000", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, InsufficientFunds))
	assert.Equal(t, InsufficientFunds, KindOf(err))

	req := f.last("/v2/orders")
	body := gjson.Parse(req.Body)
	assert.Equal(t, gjson.Number, body.Get("product_id").Type)
	assert.Equal(t, int64(139), body.Get("product_id").Int())
	assert.Equal(t, "limit_order", body.Get("order_type").String())
	assert.Equal(t, "20000", body.Get("limit_price").String())
	assert.False(t, body.Get("client_order_id").Exists())
	assert.Equal(t, "1600000000", req.Header.Get("timestamp"))
}

func TestDeltaCreateOrderGeneratesClientOrderID(t *testing.T) {
	f, srv := newFakeExchange(t, deltaRoutes(map[string]fakeReply{
		"POST /v2/orders": ok(deltaOrderBody),
	}))
	opts := serverOptions(srv.URL)
	opts.GenerateClientOrderID = true
	a := NewDeltaAdapter(testCreds, opts)

	_, err := a.CreateOrder(context.Background(), "BTC/USD:BTC", "market", market.SideSell, "10", "", nil)
	require.NoError(t, err)
	id := gjson.Get(f.last("/v2/orders").Body, "client_order_id").String()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
}

func TestDeltaCreateOrderBelowAmountPrecision(t *testing.T) {
	f, srv := newFakeExchange(t, deltaRoutes(nil))
	a := NewDeltaAdapter(testCreds, serverOptions(srv.URL))

	_, err := a.CreateOrder(context.Background(), "BTC/USD:BTC", "market", market.SideBuy, "0.4", "", nil)
	assert.True(t, errors.Is(err, InvalidOrder))
	assert.Zero(t, f.count("/v2/orders"))
}

const deltaOrderBody = `{"success":true,"result":{"id":77,"product_id":139,"product_symbol":"BTCUSD","size":10,
	"unfilled_size":10,"side":"sell","order_type":"limit_order","limit_price":"20000","state":"open"}}`

// тела ордерных запросов: количество отбрасывается до шага рынка, цена округляется
func TestOrderRequestBodies(t *testing.T) {
	qtradeOrderBody := `{"data":{"order":{"id":13,"created_at":"2018-04-06T20:46:52.899248Z","order_type":"sell_limit",
		"price":"0.01234568","market_amount":"1.12345678","market_amount_remaining":"1.12345678","open":true,"market_id":1,"trades":[]}}}`

	cases := []struct {
		name   string
		routes map[string]fakeReply
		place  func(ctx context.Context, url string) error
		path   string
		method string
		body   string
	}{
		{
			name:   "delta create",
			routes: deltaRoutes(map[string]fakeReply{"POST /v2/orders": ok(deltaOrderBody)}),
			place: func(ctx context.Context, url string) error {
				a := NewDeltaAdapter(testCreds, serverOptions(url))
				_, err := a.CreateOrder(ctx, "BTC/USD:BTC", "limit", market.SideBuy, "10.7", "20000.123", nil)
				return err
			},
			path:   "/v2/orders",
			method: http.MethodPost,
			body:   `{"limit_price":"20000","order_type":"limit_order","product_id":139,"side":"buy","size":"10"}`,
		},
		{
			name:   "delta edit",
			routes: deltaRoutes(map[string]fakeReply{"PUT /v2/orders": ok(deltaOrderBody)}),
			place: func(ctx context.Context, url string) error {
				a := NewDeltaAdapter(testCreds, serverOptions(url))
				_, err := a.EditOrder(ctx, "77", "BTC/USD:BTC", "limit", market.SideBuy, "12.9", "20000.3", nil)
				return err
			},
			path:   "/v2/orders",
			method: http.MethodPut,
			body:   `{"id":77,"limit_price":"20000.5","product_id":139,"size":12}`,
		},
		{
			name:   "qtrade create",
			routes: qtradeRoutes(map[string]fakeReply{"POST /v1/user/sell_limit": ok(qtradeOrderBody)}),
			place: func(ctx context.Context, url string) error {
				a := NewQtradeAdapter(testCreds, serverOptions(url))
				_, err := a.CreateOrder(ctx, "LTC/BTC", "limit", market.SideSell, "1.123456789", "0.0123456789", nil)
				return err
			},
			path:   "/v1/user/sell_limit",
			method: http.MethodPost,
			body:   `{"amount":"1.12345678","market_id":1,"price":"0.01234568"}`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f, srv := newFakeExchange(t, c.routes)
			require.NoError(t, c.place(context.Background(), srv.URL))

			req := f.last(c.path)
			assert.Equal(t, c.method, req.Method)
			assert.JSONEq(t, c.body, req.Body)
		})
	}
}

func TestDeltaCreateOrderKeepsClientOrderID(t *testing.T) {
	f, srv := newFakeExchange(t, deltaRoutes(map[string]fakeReply{
		"POST /v2/orders": ok(`{"success":true,"result":{"id":77,"product_id":139,"product_symbol":"BTCUSD","size":10,
			"unfilled_size":10,"side":"sell","order_type":"market_order","state":"open","client_order_id":"mine"}}`),
	}))
	a := NewDeltaAdapter(testCreds, serverOptions(srv.URL))

	o, err := a.CreateOrder(context.Background(), "BTC/USD:BTC", "market", market.SideSell, "10", "", Params{"clientOrderId": "mine"})
	require.NoError(t, err)
	assert.Equal(t, "77", o.ID)
	assert.Equal(t, "BTC/USD:BTC", o.Symbol)

	body := gjson.Parse(f.last("/v2/orders").Body)
	assert.Equal(t, "mine", body.Get("client_order_id").String())
	assert.False(t, body.Get("clientOrderId").Exists())
	assert.False(t, body.Get("limit_price").Exists())
}

func TestDeltaFetchStatus(t *testing.T) {
	_, srv := newFakeExchange(t, map[string]fakeReply{
		"GET /v2/settings": ok(`{"success":true,"result":{"server_time":1600000000123456,"under_maintenance":"true"}}`),
	})
	a := NewDeltaAdapter(Credentials{}, serverOptions(srv.URL))

	st, err := a.FetchStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "maintenance", st.Status)
	assert.Equal(t, int64(1600000000123456), st.Updated.UnixMicro())

	ts, err := a.FetchTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1600000000123), ts.UnixMilli())
}

func TestDeltaPrivateWithoutCredentials(t *testing.T) {
	f, srv := newFakeExchange(t, deltaRoutes(nil))
	a := NewDeltaAdapter(Credentials{}, serverOptions(srv.URL))

	_, err := a.FetchBalance(context.Background(), nil)
	assert.True(t, errors.Is(err, AuthenticationError))
	assert.Zero(t, f.count("/v2/wallet/balances"))
}

// bibox

const biboxCurrenciesBody = `{"result":[
	{"symbol":"BTC","name":"Bitcoin","valid_decimals":8,"enable_deposit":true,"enable_withdraw":true,"withdraw_min":"0.001"},
	{"symbol":"USDT","name":"Tether","valid_decimals":6,"enable_deposit":true,"enable_withdraw":true,"withdraw_min":"10"}
]}`

func biboxRoutes(extra map[string]fakeReply) map[string]fakeReply {
	routes := map[string]fakeReply{
		"GET /v1/cdata?cmd=currencies":        ok(biboxCurrenciesBody),
		"GET /v1/mdata?cmd=pairList":          ok(`{"result":[{"id":7,"pair":"BTC_USDT","area_id":2,"decimal":2,"amount_scale":4}]}`),
		"GET /v1/orderpending?cmd=tradeLimit": ok(`{"result":{"min_trade_money":{"USDT":1}}}`),
	}
	for k, v := range extra {
		routes[k] = v
	}
	return routes
}

func TestBiboxFetchTicker(t *testing.T) {
	f, srv := newFakeExchange(t, biboxRoutes(map[string]fakeReply{
		"GET /v1/mdata?cmd=ticker": ok(`{"result":{"pair":"BTC_USDT","coin_symbol":"BTC","currency_symbol":"USDT",
			"last":"100","buy":"99","sell":"101","high":"110","low":"90","vol":"5","percent":"1.25%"},"cmd":"ticker"}`),
	}))
	a := NewBiboxAdapter(Credentials{}, serverOptions(srv.URL))

	tk, err := a.FetchTicker(context.Background(), "BTC/USDT", nil)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", tk.Symbol)
	assert.Equal(t, "100", tk.Last)
	assert.Equal(t, "1.25", tk.Percentage)
	assert.Equal(t, "cmd=ticker&pair=BTC_USDT", f.last("/v1/mdata").Query)

	markets, err := a.LoadMarkets(context.Background(), false)
	require.NoError(t, err)
	m, found := markets.Market("BTC/USDT")
	require.True(t, found)
	assert.Equal(t, "1", m.Limits.Cost.Min)
}

func TestBiboxErrorCode(t *testing.T) {
	_, srv := newFakeExchange(t, biboxRoutes(map[string]fakeReply{
		"GET /v1/mdata?cmd=ticker": ok(`{"error":{"code":"2033","msg":"order not found"},"cmd":"ticker"}`),
	}))
	a := NewBiboxAdapter(Credentials{}, serverOptions(srv.URL))

	_, err := a.FetchTicker(context.Background(), "BTC/USDT", nil)
	assert.True(t, errors.Is(err, OrderNotFound))
	assert.True(t, errors.Is(err, InvalidOrder))
}

func TestBiboxStateError(t *testing.T) {
	_, srv := newFakeExchange(t, biboxRoutes(map[string]fakeReply{
		"GET /v1/mdata?cmd=ticker": ok(`{"state":3012,"msg":"system busy"}`),
	}))
	a := NewBiboxAdapter(Credentials{}, serverOptions(srv.URL))

	_, err := a.FetchTicker(context.Background(), "BTC/USDT", nil)
	require.Error(t, err)
	assert.Equal(t, ExchangeError, KindOf(err))
}

// eqonex

const eqonexPairsBody = `{"instrumentPairs":[{"instrumentId":52,"symbol":"BTC/USDC","currency":"BTC","contAmtCurr":"USDC",
	"assetType":"PAIR","securityStatus":1,"price_scale":2,"quantity_scale":6,"minTradeVol":"0.0001"}]}`

func eqonexRoutes(extra map[string]fakeReply) map[string]fakeReply {
	routes := map[string]fakeReply{
		"GET /getInstruments":     ok(`{"instruments":[[3,"BTC",0,8,1,"0.0005","Bitcoin"],[1,"USDC",0,6,1,"0","USD Coin"]]}`),
		"GET /getInstrumentPairs": ok(eqonexPairsBody),
	}
	for k, v := range extra {
		routes[k] = v
	}
	return routes
}

func TestEqonexFetchOrderBookDecodesScale(t *testing.T) {
	f, srv := newFakeExchange(t, eqonexRoutes(map[string]fakeReply{
		"GET /getOrderBook": ok(`{"bids":[[184101,2000],[184204,150000]],"asks":[[184305,100000]]}`),
	}))
	a := NewEqonexAdapter(Credentials{}, serverOptions(srv.URL))

	ob, err := a.FetchOrderBook(context.Background(), "BTC/USDC", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDC", ob.Symbol)
	assert.Equal(t, []market.PriceLevel{{Price: "1842.04", Amount: "0.15"}}, ob.Bids)
	assert.Equal(t, []market.PriceLevel{{Price: "1843.05", Amount: "0.1"}}, ob.Asks)
	assert.Equal(t, "pairId=52", f.last("/getOrderBook").Query)
	assert.Equal(t, "verbose=true", f.last("/getInstrumentPairs").Query)
}

func TestEqonexBroadErrorMessage(t *testing.T) {
	f, srv := newFakeExchange(t, eqonexRoutes(map[string]fakeReply{
		"POST /getOrderStatus": ok(`{"error":"symbol not found for instrument 999"}`),
	}))
	a := NewEqonexAdapter(testCreds, serverOptions(srv.URL))

	_, err := a.FetchOrder(context.Background(), "123", "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, BadSymbol))

	req := f.last("/getOrderStatus")
	body := gjson.Parse(req.Body)
	assert.Equal(t, int64(123), body.Get("orderId").Int())
	assert.Equal(t, "42", body.Get("userId").String())
	assert.Equal(t, int64(1600000000000), body.Get("nonce").Int())
	assert.Equal(t, "key", req.Header.Get("requestToken"))
}

// factory

func TestNewAdapter(t *testing.T) {
	for _, id := range Supported() {
		a, err := NewAdapter(" "+id+" ", Credentials{}, Options{})
		require.NoError(t, err, id)
		assert.Equal(t, id, a.ID())
	}
	assert.Equal(t, []string{"bibox", "delta", "eqonex", "qtrade"}, Supported())

	_, err := NewAdapter("mtgox", Credentials{}, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, NotSupported))
}
