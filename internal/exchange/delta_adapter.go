package exchange

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ct-exchange/internal/market"
	"ct-exchange/internal/market/parsers"
	"ct-exchange/internal/precise"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var (
	deltaSettings      = Endpoint{API: Public, Method: http.MethodGet, Path: "settings"}
	deltaAssets        = Endpoint{API: Public, Method: http.MethodGet, Path: "assets"}
	deltaProducts      = Endpoint{API: Public, Method: http.MethodGet, Path: "products"}
	deltaTicker        = Endpoint{API: Public, Method: http.MethodGet, Path: "tickers/{symbol}"}
	deltaTickers       = Endpoint{API: Public, Method: http.MethodGet, Path: "tickers"}
	deltaOrderBook     = Endpoint{API: Public, Method: http.MethodGet, Path: "l2orderbook/{symbol}"}
	deltaTrades        = Endpoint{API: Public, Method: http.MethodGet, Path: "trades/{symbol}"}
	deltaCandles       = Endpoint{API: Public, Method: http.MethodGet, Path: "history/candles"}
	deltaBalances      = Endpoint{API: Private, Method: http.MethodGet, Path: "wallet/balances"}
	deltaPositions     = Endpoint{API: Private, Method: http.MethodGet, Path: "positions/margined"}
	deltaCreateOrder   = Endpoint{API: Private, Method: http.MethodPost, Path: "orders"}
	deltaEditOrder     = Endpoint{API: Private, Method: http.MethodPut, Path: "orders"}
	deltaCancelOrder   = Endpoint{API: Private, Method: http.MethodDelete, Path: "orders"}
	deltaCancelAll     = Endpoint{API: Private, Method: http.MethodDelete, Path: "orders/all"}
	deltaOpenOrders    = Endpoint{API: Private, Method: http.MethodGet, Path: "orders"}
	deltaOrderHistory  = Endpoint{API: Private, Method: http.MethodGet, Path: "orders/history"}
	deltaFills         = Endpoint{API: Private, Method: http.MethodGet, Path: "fills"}
	deltaTransactions  = Endpoint{API: Private, Method: http.MethodGet, Path: "wallet/transactions"}
	deltaDepositAddr   = Endpoint{API: Private, Method: http.MethodGet, Path: "deposits/address"}
	deltaDefaultCandle = 2000
)

func deltaTiers(pairs ...string) []market.FeeTier {
	out := make([]market.FeeTier, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, market.FeeTier{Volume: pairs[i], Rate: pairs[i+1]})
	}
	return out
}

func deltaConfig() Config {
	return Config{
		ID:        "delta",
		Name:      "Delta Exchange",
		Version:   "v2",
		Countries: []string{"VC"},
		RateLimit: 300 * time.Millisecond,
		URLs: URLs{
			API:  map[string]string{Public: "https://api.delta.exchange", Private: "https://api.delta.exchange"},
			Test: map[string]string{Public: "https://testnet-api.delta.exchange", Private: "https://testnet-api.delta.exchange"},
			WWW:  "https://www.delta.exchange",
			Doc:  []string{"https://docs.delta.exchange"},
		},
		Has: map[string]bool{
			"spot": true, "swap": true, "future": true, "option": true,
			"cancelAllOrders": true, "cancelOrder": true, "createOrder": true, "editOrder": true,
			"fetchBalance": true, "fetchClosedOrders": true, "fetchCurrencies": true,
			"fetchDepositAddress": true, "fetchLedger": true, "fetchMarkets": true,
			"fetchMyTrades": true, "fetchOHLCV": true, "fetchOpenOrders": true, "fetchOrderBook": true,
			"fetchPositions": true, "fetchStatus": true, "fetchTicker": true, "fetchTickers": true,
			"fetchTime": true, "fetchTrades": true, "fetchTradingFees": true,
		},
		Timeframes: map[string]string{
			"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m", "1h": "1h", "2h": "2h",
			"4h": "4h", "6h": "6h", "1d": "1d", "7d": "7d", "1w": "1w", "2w": "2w", "1M": "30d",
		},
		Fees: TradingFees{
			Taker:      "0.0015",
			Maker:      "0.001",
			Percentage: true,
			TierBased:  true,
			TakerTiers: deltaTiers("0", "0.0015", "100", "0.0013", "250", "0.0013", "1000", "0.001",
				"5000", "0.0009", "10000", "0.00075", "20000", "0.00065"),
			MakerTiers: deltaTiers("0", "0.001", "100", "0.001", "250", "0.0009", "1000", "0.00075",
				"5000", "0.0006", "10000", "0.0005", "20000", "0.0005"),
		},
		Exceptions: Exceptions{
			Exact: map[string]Kind{
				"insufficient_margin":               InsufficientFunds,
				"order_size_exceed_available":       InvalidOrder,
				"risk_limits_breached":              BadRequest,
				"invalid_contract":                  BadSymbol,
				"immediate_liquidation":             InvalidOrder,
				"out_of_bankruptcy":                 InvalidOrder,
				"self_matching_disrupted_post_only": InvalidOrder,
				"immediate_execution_post_only":     InvalidOrder,
				"bad_schema":                        BadRequest,
				"invalid_api_key":                   AuthenticationError,
				"invalid_signature":                 AuthenticationError,
				"open_order_not_found":              OrderNotFound,
				"unavailable":                       ExchangeNotAvailable,
			},
		},
		RequiredCredentials: RequiredCredentials{APIKey: true, Secret: true},
	}
}

// DeltaAdapter реализует Adapter для Delta Exchange (спот, фьючерсы, опционы)
type DeltaAdapter struct {
	*Base
	parser *parsers.DeltaParser
}

var _ Adapter = (*DeltaAdapter)(nil)

func NewDeltaAdapter(creds Credentials, opts Options) *DeltaAdapter {
	a := &DeltaAdapter{Base: NewBase(deltaConfig(), creds, opts)}
	a.parser = parsers.NewDeltaParser(a.Base)
	a.Bind(a.sign, a.handleErrors, a.loadMarkets)
	return a
}

// sign: подпись hex(HMAC-SHA256(method + timestamp + path [+ ?query | + body]))
func (a *DeltaAdapter) sign(ep Endpoint, params Params) (SignedRequest, error) {
	path, query := ImplodePath(ep.Path, params)
	requestPath := "/" + a.Describe().Version + "/" + path
	url := a.URL(ep.API) + requestPath
	req := SignedRequest{Method: ep.Method}

	if ep.API == Public {
		if len(query) > 0 {
			url += "?" + Urlencode(query)
		}
		req.URL = url
		return req, nil
	}

	if err := a.CheckRequiredCredentials(); err != nil {
		return SignedRequest{}, err
	}
	creds := a.Credentials()
	timestamp := strconv.FormatInt(a.Now().Unix(), 10)
	req.Headers = map[string]string{
		"api-key":   creds.APIKey,
		"timestamp": timestamp,
	}
	auth := ep.Method + timestamp + requestPath
	if ep.Method == http.MethodGet || ep.Method == http.MethodDelete {
		if len(query) > 0 {
			qs := "?" + Urlencode(query)
			auth += qs
			url += qs
		}
	} else {
		body, err := JSON(query)
		if err != nil {
			return SignedRequest{}, err
		}
		req.Body = body
		auth += body
		req.Headers["Content-Type"] = "application/json"
	}
	req.Headers["signature"] = HmacHex(SHA256, creds.Secret, auth)
	req.URL = url
	return req, nil
}

func (a *DeltaAdapter) handleErrors(resp *Response) error {
	code := gjson.GetBytes(resp.Body, "error.code")
	if !code.Exists() || code.Type == gjson.Null {
		return nil
	}
	feedback := string(resp.Body)
	exceptions := a.Describe().Exceptions
	if kind, ok := exceptions.Exactly(code.String()); ok {
		return a.Fail(kind, "%s", feedback)
	}
	if kind, ok := exceptions.Broadly(code.String()); ok {
		return a.Fail(kind, "%s", feedback)
	}
	return a.Fail(ExchangeError, "%s", feedback)
}

func (a *DeltaAdapter) result(ctx context.Context, ep Endpoint, params Params) ([]byte, gjson.Result, error) {
	body, err := a.Request(ctx, ep, params)
	if err != nil {
		return nil, gjson.Result{}, err
	}
	return body, gjson.GetBytes(body, "result"), nil
}

func (a *DeltaAdapter) loadMarkets(ctx context.Context) ([]market.Market, []market.Currency, error) {
	currencies, err := a.FetchCurrencies(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	markets, err := a.FetchMarkets(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return markets, currencies, nil
}

// FetchTime: server_time приходит в микросекундах
func (a *DeltaAdapter) FetchTime(ctx context.Context) (time.Time, error) {
	_, result, err := a.result(ctx, deltaSettings, nil)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMicro(result.Get("server_time").Int()).UTC(), nil
}

func (a *DeltaAdapter) FetchStatus(ctx context.Context) (market.ExchangeStatus, error) {
	_, result, err := a.result(ctx, deltaSettings, nil)
	if err != nil {
		return market.ExchangeStatus{}, err
	}
	status := market.ExchangeStatus{Status: "ok", Updated: a.Now().UTC()}
	if result.Get("under_maintenance").String() == "true" {
		status.Status = "maintenance"
	}
	if ts := result.Get("server_time").Int(); ts > 0 {
		status.Updated = time.UnixMicro(ts).UTC()
	}
	return status, nil
}

func (a *DeltaAdapter) FetchCurrencies(ctx context.Context, params Params) ([]market.Currency, error) {
	body, err := a.Request(ctx, deltaAssets, params)
	if err != nil {
		return nil, err
	}
	items, err := parsers.Unwrap(body, "result")
	if err != nil {
		return nil, err
	}
	return a.parser.Currencies(items)
}

func (a *DeltaAdapter) FetchMarkets(ctx context.Context, params Params) ([]market.Market, error) {
	body, err := a.Request(ctx, deltaProducts, params)
	if err != nil {
		return nil, err
	}
	items, err := parsers.Unwrap(body, "result")
	if err != nil {
		return nil, err
	}
	return a.parser.Markets(items)
}

func (a *DeltaAdapter) market(ctx context.Context, symbol string) (*market.Market, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return a.Market(symbol)
}

func (a *DeltaAdapter) FetchTicker(ctx context.Context, symbol string, params Params) (market.Ticker, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.Ticker{}, err
	}
	_, result, err := a.result(ctx, deltaTicker, Params{"symbol": m.ID}.Extend(params))
	if err != nil {
		return market.Ticker{}, err
	}
	return a.parser.Ticker(result, m)
}

func (a *DeltaAdapter) FetchTickers(ctx context.Context, symbols []string, params Params) (map[string]market.Ticker, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	filter, err := a.MarketSymbols(symbols)
	if err != nil {
		return nil, err
	}
	_, result, err := a.result(ctx, deltaTickers, params)
	if err != nil {
		return nil, err
	}
	tickers, err := a.parser.Tickers(result)
	if err != nil {
		return nil, err
	}
	return IndexTickers(tickers, filter), nil
}

func (a *DeltaAdapter) FetchOrderBook(ctx context.Context, symbol string, limit int, params Params) (market.OrderBook, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.OrderBook{}, err
	}
	req := Params{"symbol": m.ID}
	if limit > 0 {
		req["depth"] = limit
	}
	_, result, err := a.result(ctx, deltaOrderBook, req.Extend(params))
	if err != nil {
		return market.OrderBook{}, err
	}
	ob, err := a.parser.OrderBook(result, m.Symbol)
	if err != nil {
		return ob, err
	}
	ob.Truncate(limit)
	return ob, nil
}

func (a *DeltaAdapter) FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	_, result, err := a.result(ctx, deltaTrades, Params{"symbol": m.ID}.Extend(params))
	if err != nil {
		return nil, err
	}
	trades, err := a.parser.Trades(result, m)
	if err != nil {
		return nil, err
	}
	return market.FilterTrades(trades, since, limit), nil
}

// FetchOHLCV: окно [start, end] в секундах; без since заканчивается текущим моментом
func (a *DeltaAdapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int, params Params) ([]market.OHLCV, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	resolution, err := a.Timeframe(timeframe)
	if err != nil {
		return nil, err
	}
	duration, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, a.Fail(BadRequest, "%v", err)
	}
	if limit <= 0 {
		limit = deltaDefaultCandle
	}
	span := int64(limit) * int64(duration/time.Second)
	req := Params{"symbol": m.ID, "resolution": resolution}
	if since.IsZero() {
		end := a.Now().Unix()
		req["end"] = end
		req["start"] = end - span
	} else {
		start := since.Unix()
		req["start"] = start
		req["end"] = start + span
	}
	_, result, err := a.result(ctx, deltaCandles, req.Extend(params))
	if err != nil {
		return nil, err
	}
	candles, err := a.parser.OHLCV(result)
	if err != nil {
		return nil, err
	}
	return market.FilterOHLCV(candles, since, limit), nil
}

func (a *DeltaAdapter) FetchBalance(ctx context.Context, params Params) (*market.Balances, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	body, err := a.Request(ctx, deltaBalances, params)
	if err != nil {
		return nil, err
	}
	return a.parser.Balance(body)
}

// FetchPositions: symbols фильтруют результат positions/margined
func (a *DeltaAdapter) FetchPositions(ctx context.Context, symbols []string, params Params) ([]market.Position, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	filter, err := a.MarketSymbols(symbols)
	if err != nil {
		return nil, err
	}
	_, result, err := a.result(ctx, deltaPositions, params)
	if err != nil {
		return nil, err
	}
	positions, err := a.parser.Positions(result)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return positions, nil
	}
	out := positions[:0]
	for _, p := range positions {
		if filter[p.Symbol] {
			out = append(out, p)
		}
	}
	return out, nil
}

// CreateOrder: client_order_id уходит только если передан или включён GenerateClientOrderID
func (a *DeltaAdapter) CreateOrder(ctx context.Context, symbol, orderType string, side market.Side, amount, price string, params Params) (market.Order, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.Order{}, err
	}
	productID, err := a.productID(m)
	if err != nil {
		return market.Order{}, err
	}
	size, err := a.AmountToPrecision(m, amount)
	if err != nil {
		return market.Order{}, err
	}
	req := Params{
		"product_id": productID,
		"size":       size,
		"side":       string(side),
		"order_type": orderType + "_order",
	}
	if orderType == "limit" {
		if price == "" {
			return market.Order{}, a.ArgumentsRequired("createOrder", "price")
		}
		if req["limit_price"], err = a.PriceToPrecision(m, price); err != nil {
			return market.Order{}, err
		}
	}
	clientOrderID := params.String("clientOrderId")
	if clientOrderID == "" {
		clientOrderID = params.String("client_order_id")
	}
	if clientOrderID == "" && a.Options().GenerateClientOrderID {
		// лимит биржи 32 символа
		clientOrderID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if clientOrderID != "" {
		req["client_order_id"] = clientOrderID
	}
	_, result, err := a.result(ctx, deltaCreateOrder, req.Extend(params.Omit("clientOrderId", "client_order_id")))
	if err != nil {
		return market.Order{}, err
	}
	return a.parser.Order(result, m)
}

// productID - числовой id продукта, биржа ждёт его числом
func (a *DeltaAdapter) productID(m *market.Market) (int64, error) {
	n, err := strconv.ParseInt(m.NumericID, 10, 64)
	if err != nil {
		return 0, a.Fail(BadSymbol, "market %s has no numeric product id", m.Symbol)
	}
	return n, nil
}

func (a *DeltaAdapter) orderID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, a.Fail(BadRequest, "order id %q is not numeric", id)
	}
	return n, nil
}

func (a *DeltaAdapter) EditOrder(ctx context.Context, id, symbol, orderType string, side market.Side, amount, price string, params Params) (market.Order, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.Order{}, err
	}
	n, err := a.orderID(id)
	if err != nil {
		return market.Order{}, err
	}
	productID, err := a.productID(m)
	if err != nil {
		return market.Order{}, err
	}
	req := Params{"id": n, "product_id": productID}
	if amount != "" {
		size, err := a.AmountToPrecision(m, amount)
		if err != nil {
			return market.Order{}, err
		}
		// edit_order принимает size только целым числом
		d, _ := precise.Parse(size)
		req["size"] = d.IntPart()
	}
	if price != "" {
		if req["limit_price"], err = a.PriceToPrecision(m, price); err != nil {
			return market.Order{}, err
		}
	}
	_, result, err := a.result(ctx, deltaEditOrder, req.Extend(params))
	if err != nil {
		return market.Order{}, err
	}
	return a.parser.Order(result, m)
}

func (a *DeltaAdapter) CancelOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error) {
	if symbol == "" {
		return market.Order{}, a.ArgumentsRequired("cancelOrder", "symbol")
	}
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.Order{}, err
	}
	n, err := a.orderID(id)
	if err != nil {
		return market.Order{}, err
	}
	productID, err := a.productID(m)
	if err != nil {
		return market.Order{}, err
	}
	_, result, err := a.result(ctx, deltaCancelOrder, Params{"id": n, "product_id": productID}.Extend(params))
	if err != nil {
		return market.Order{}, err
	}
	return a.parser.Order(result, m)
}

// CancelAllOrders: биржа не возвращает список отменённых ордеров
func (a *DeltaAdapter) CancelAllOrders(ctx context.Context, symbol string, params Params) ([]market.Order, error) {
	if symbol == "" {
		return nil, a.ArgumentsRequired("cancelAllOrders", "symbol")
	}
	m, err := a.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	productID, err := a.productID(m)
	if err != nil {
		return nil, err
	}
	if _, err := a.Request(ctx, deltaCancelAll, Params{"product_id": productID}.Extend(params)); err != nil {
		return nil, err
	}
	return []market.Order{}, nil
}

// historyParams собирает фильтры orders/fills; start_time в микросекундах
func (a *DeltaAdapter) historyParams(ctx context.Context, symbol string, since time.Time, limit int) (Params, *market.Market, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, nil, err
	}
	req := Params{}
	var m *market.Market
	if symbol != "" {
		var err error
		if m, err = a.Market(symbol); err != nil {
			return nil, nil, err
		}
		req["product_ids"] = m.NumericID
	}
	if !since.IsZero() {
		req["start_time"] = strconv.FormatInt(since.UnixMilli(), 10) + "000"
	}
	if limit > 0 {
		req["page_size"] = limit
	}
	return req, m, nil
}

func (a *DeltaAdapter) fetchOrders(ctx context.Context, ep Endpoint, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	req, m, err := a.historyParams(ctx, symbol, since, limit)
	if err != nil {
		return nil, err
	}
	_, result, err := a.result(ctx, ep, req.Extend(params))
	if err != nil {
		return nil, err
	}
	orders, err := a.parser.Orders(result, m)
	if err != nil {
		return nil, err
	}
	return market.FilterOrders(orders, since, limit), nil
}

func (a *DeltaAdapter) FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	return a.fetchOrders(ctx, deltaOpenOrders, symbol, since, limit, params)
}

func (a *DeltaAdapter) FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	return a.fetchOrders(ctx, deltaOrderHistory, symbol, since, limit, params)
}

func (a *DeltaAdapter) FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error) {
	req, m, err := a.historyParams(ctx, symbol, since, limit)
	if err != nil {
		return nil, err
	}
	_, result, err := a.result(ctx, deltaFills, req.Extend(params))
	if err != nil {
		return nil, err
	}
	trades, err := a.parser.Trades(result, m)
	if err != nil {
		return nil, err
	}
	return market.FilterTrades(trades, since, limit), nil
}

func (a *DeltaAdapter) FetchLedger(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.LedgerEntry, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	req := Params{}
	var currency *market.Currency
	if code != "" {
		c, err := a.Currency(code)
		if err != nil {
			return nil, err
		}
		currency = c
		req["asset_id"] = c.NumericID
	}
	if limit > 0 {
		req["page_size"] = limit
	}
	_, result, err := a.result(ctx, deltaTransactions, req.Extend(params))
	if err != nil {
		return nil, err
	}
	entries, err := a.parser.Ledger(result, currency)
	if err != nil {
		return nil, err
	}
	return market.FilterLedger(entries, since, limit), nil
}

func (a *DeltaAdapter) FetchDepositAddress(ctx context.Context, code string, params Params) (market.DepositAddress, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.DepositAddress{}, err
	}
	c, err := a.Currency(code)
	if err != nil {
		return market.DepositAddress{}, err
	}
	body, result, err := a.result(ctx, deltaDepositAddr, Params{"asset_symbol": c.ID}.Extend(params))
	if err != nil {
		return market.DepositAddress{}, err
	}
	address := result.Get("address").String()
	if err := a.CheckAddress(address); err != nil {
		return market.DepositAddress{}, err
	}
	return market.DepositAddress{Currency: code, Address: address, Info: body}, nil
}

// FetchTradingFees берёт ставки из описания рынков, тарифная сетка - из конфигурации
func (a *DeltaAdapter) FetchTradingFees(ctx context.Context, params Params) (map[string]market.TradingFee, error) {
	fees, err := a.ConfigTradingFees(ctx)
	if err != nil {
		return nil, err
	}
	set, err := a.LoadMarkets(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, m := range set.Markets() {
		fee := fees[m.Symbol]
		if m.Maker != "" {
			fee.Maker = m.Maker
		}
		if m.Taker != "" {
			fee.Taker = m.Taker
		}
		fees[m.Symbol] = fee
	}
	return fees, nil
}
