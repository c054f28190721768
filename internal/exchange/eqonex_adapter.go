package exchange

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"ct-exchange/internal/market"
	"ct-exchange/internal/market/parsers"
	"ct-exchange/internal/precise"

	"github.com/tidwall/gjson"
)

var (
	eqonexInstrumentPairs = Endpoint{API: Public, Method: http.MethodGet, Path: "getInstrumentPairs"}
	eqonexInstruments     = Endpoint{API: Public, Method: http.MethodGet, Path: "getInstruments"}
	eqonexOrderBook       = Endpoint{API: Public, Method: http.MethodGet, Path: "getOrderBook"}
	eqonexTradeHistory    = Endpoint{API: Public, Method: http.MethodGet, Path: "getTradeHistory"}
	eqonexChart           = Endpoint{API: Public, Method: http.MethodGet, Path: "getChart"}
	eqonexExchangeInfo    = Endpoint{API: Public, Method: http.MethodGet, Path: "getExchangeInfo"}
	eqonexOrder           = Endpoint{API: Private, Method: http.MethodPost, Path: "order"}
	eqonexCancelOrder     = Endpoint{API: Private, Method: http.MethodPost, Path: "cancelOrder"}
	eqonexOrderStatus     = Endpoint{API: Private, Method: http.MethodPost, Path: "getOrderStatus"}
	eqonexOrders          = Endpoint{API: Private, Method: http.MethodPost, Path: "getOrders"}
	eqonexUserTrades      = Endpoint{API: Private, Method: http.MethodPost, Path: "userTrades"}
	eqonexPositions       = Endpoint{API: Private, Method: http.MethodPost, Path: "getPositions"}
	eqonexDepositAddrs    = Endpoint{API: Private, Method: http.MethodPost, Path: "getDepositAddresses"}
	eqonexDepositHistory  = Endpoint{API: Private, Method: http.MethodPost, Path: "getDepositHistory"}
	eqonexWithdrawals     = Endpoint{API: Private, Method: http.MethodPost, Path: "getWithdrawRequests"}
	eqonexSendWithdraw    = Endpoint{API: Private, Method: http.MethodPost, Path: "sendWithdrawRequest"}
)

// статусы getOrders
const (
	eqonexOrdStatusFilled   = "2"
	eqonexOrdStatusCanceled = "4"
)

func eqonexConfig() Config {
	return Config{
		ID:        "eqonex",
		Name:      "EQONEX",
		Version:   "",
		Countries: []string{"US", "SG"},
		RateLimit: 10 * time.Millisecond,
		URLs: URLs{
			API:  map[string]string{Public: "https://eqonex.com/api", Private: "https://eqonex.com/api"},
			Test: map[string]string{Public: "https://testnet.eqonex.com/api", Private: "https://testnet.eqonex.com/api"},
			WWW:  "https://eqonex.com",
			Doc:  []string{"https://developer.eqonex.com"},
		},
		Has: map[string]bool{
			"spot": true, "swap": true, "future": true,
			"cancelOrder": true, "createOrder": true, "editOrder": true, "fetchBalance": true,
			"fetchCanceledOrders": true, "fetchClosedOrders": true, "fetchCurrencies": true,
			"fetchDepositAddress": true, "fetchDeposits": true, "fetchMarkets": true,
			"fetchMyTrades": true, "fetchOHLCV": true, "fetchOrder": true, "fetchOrderBook": true,
			"fetchOrders": true, "fetchTrades": true, "fetchTradingFees": true,
			"fetchWithdrawals": true, "withdraw": true,
		},
		Timeframes: map[string]string{
			"1m": "1", "5m": "2", "15m": "3", "1h": "4", "6h": "5", "1d": "6", "7d": "7", "1w": "7",
		},
		Exceptions: Exceptions{
			Broad: map[string]Kind{
				"symbol not found": BadSymbol,
			},
		},
		RequiredCredentials: RequiredCredentials{APIKey: true, Secret: true, UID: true},
	}
}

// EqonexAdapter реализует Adapter для EQONEX. Цены и объёмы в запросах
// передаются целыми числами со шкалой
type EqonexAdapter struct {
	*Base
	parser *parsers.EqonexParser
}

var _ Adapter = (*EqonexAdapter)(nil)

func NewEqonexAdapter(creds Credentials, opts Options) *EqonexAdapter {
	a := &EqonexAdapter{Base: NewBase(eqonexConfig(), creds, opts)}
	a.parser = parsers.NewEqonexParser(a.Base)
	a.Bind(a.sign, a.handleErrors, a.loadMarkets)
	return a
}

// sign: приватные запросы - POST с JSON телом, подписанным HMAC-SHA384;
// format и type дублируются в query-строке
func (a *EqonexAdapter) sign(ep Endpoint, params Params) (SignedRequest, error) {
	path, query := ImplodePath(ep.Path, params)
	req := SignedRequest{Method: ep.Method}
	url := path
	if ep.API == Public {
		if len(query) > 0 {
			url += "?" + Urlencode(query)
		}
		req.URL = a.URL(ep.API) + "/" + url
		return req, nil
	}

	extension := Params{}
	for _, k := range []string{"format", "type"} {
		if v, ok := params[k]; ok {
			extension[k] = v
		}
	}
	if len(extension) > 0 {
		url += "?" + Urlencode(extension)
	}
	if err := a.CheckRequiredCredentials(); err != nil {
		return SignedRequest{}, err
	}
	creds := a.Credentials()
	body, err := JSON(query.Extend(Params{
		"userId": creds.UID,
		"nonce":  a.Milliseconds(),
	}))
	if err != nil {
		return SignedRequest{}, err
	}
	req.Body = body
	req.Headers = map[string]string{
		"Content-Type": "application/json",
		"requestToken": creds.APIKey,
		"signature":    HmacHex(SHA384, creds.Secret, body),
	}
	req.URL = a.URL(ep.API) + "/" + url
	return req, nil
}

func (a *EqonexAdapter) handleErrors(resp *Response) error {
	e := gjson.GetBytes(resp.Body, "error")
	if !e.Exists() || e.Type == gjson.Null {
		return nil
	}
	feedback := string(resp.Body)
	exceptions := a.Describe().Exceptions
	if kind, ok := exceptions.Exactly(e.String()); ok {
		return a.Fail(kind, "%s", feedback)
	}
	if kind, ok := exceptions.Broadly(feedback); ok {
		return a.Fail(kind, "%s", feedback)
	}
	return a.Fail(ExchangeError, "%s", feedback)
}

func (a *EqonexAdapter) loadMarkets(ctx context.Context) ([]market.Market, []market.Currency, error) {
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

func (a *EqonexAdapter) FetchMarkets(ctx context.Context, params Params) ([]market.Market, error) {
	body, err := a.Request(ctx, eqonexInstrumentPairs, Params{"verbose": true}.Extend(params))
	if err != nil {
		return nil, err
	}
	return a.parser.Markets(parsers.UnwrapOptional(body, "instrumentPairs"))
}

func (a *EqonexAdapter) FetchCurrencies(ctx context.Context, params Params) ([]market.Currency, error) {
	body, err := a.Request(ctx, eqonexInstruments, params)
	if err != nil {
		return nil, err
	}
	return a.parser.Currencies(parsers.UnwrapOptional(body, "instruments"))
}

func (a *EqonexAdapter) market(ctx context.Context, symbol string) (*market.Market, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return a.Market(symbol)
}

// pairID - числовой id рынка для запросов
func (a *EqonexAdapter) pairID(m *market.Market) (int64, error) {
	id, err := strconv.ParseInt(m.ID, 10, 64)
	if err != nil {
		return 0, a.Fail(BadSymbol, "market id %q of %s is not numeric", m.ID, m.Symbol)
	}
	return id, nil
}

func (a *EqonexAdapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int, params Params) ([]market.OHLCV, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	pairID, err := a.pairID(m)
	if err != nil {
		return nil, err
	}
	timespan, err := a.Timeframe(timeframe)
	if err != nil {
		return nil, err
	}
	span, _ := strconv.Atoi(timespan)
	req := Params{"pairId": pairID, "timespan": span}
	if limit > 0 {
		req["limit"] = limit
	}
	body, err := a.Request(ctx, eqonexChart, req.Extend(params))
	if err != nil {
		return nil, err
	}
	candles, err := a.parser.OHLCV(parsers.UnwrapOptional(body, "chart"), m)
	if err != nil {
		return nil, err
	}
	return market.FilterOHLCV(candles, since, limit), nil
}

func (a *EqonexAdapter) FetchOrderBook(ctx context.Context, symbol string, limit int, params Params) (market.OrderBook, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.OrderBook{}, err
	}
	pairID, err := a.pairID(m)
	if err != nil {
		return market.OrderBook{}, err
	}
	body, err := a.Request(ctx, eqonexOrderBook, Params{"pairId": pairID}.Extend(params))
	if err != nil {
		return market.OrderBook{}, err
	}
	ob, err := a.parser.OrderBook(body, m)
	if err != nil {
		return ob, err
	}
	ob.Truncate(limit)
	return ob, nil
}

func (a *EqonexAdapter) FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	pairID, err := a.pairID(m)
	if err != nil {
		return nil, err
	}
	body, err := a.Request(ctx, eqonexTradeHistory, Params{"pairId": pairID}.Extend(params))
	if err != nil {
		return nil, err
	}
	trades, err := a.parser.Trades(parsers.UnwrapOptional(body, "trades"), m)
	if err != nil {
		return nil, err
	}
	return market.FilterTrades(trades, since, limit), nil
}

func (a *EqonexAdapter) FetchBalance(ctx context.Context, params Params) (*market.Balances, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	body, err := a.Request(ctx, eqonexPositions, params)
	if err != nil {
		return nil, err
	}
	return a.parser.Balance(body)
}

// scaled кодирует десятичную строку как (целое, шкала) по числу её знаков
func (a *EqonexAdapter) scaled(name, value string) (int64, int32, error) {
	scale := precise.ScaleOf(value)
	v, err := precise.ToScaled(value, scale)
	if err != nil {
		return 0, 0, a.Fail(InvalidOrder, "%s %q: %v", name, value, err)
	}
	return v, scale, nil
}

// orderRequest собирает тело order для создания и изменения ордера
func (a *EqonexAdapter) orderRequest(op string, m *market.Market, orderType string, side market.Side, amount, price string, params Params) (Params, Params, error) {
	pairID, err := a.pairID(m)
	if err != nil {
		return nil, nil, err
	}
	orderSide := 2
	if side == market.SideBuy {
		orderSide = 1
	}
	quantity, quantityScale, err := a.scaled("amount", amount)
	if err != nil {
		return nil, nil, err
	}
	req := Params{
		"instrumentId":   pairID,
		"symbol":         m.UppercaseID,
		"side":           orderSide,
		"quantity":       quantity,
		"quantity_scale": quantityScale,
	}
	switch orderType {
	case "market":
		req["ordType"] = 1
	case "limit":
		if price == "" {
			return nil, nil, a.ArgumentsRequired(op, "price")
		}
		p, priceScale, err := a.scaled("price", price)
		if err != nil {
			return nil, nil, err
		}
		req["ordType"] = 2
		req["price"] = p
		req["priceScale"] = priceScale
	default:
		stopPrice := params.String("stopPrice")
		if stopPrice == "" {
			stopPrice = params.String("stopPx")
		}
		params = params.Omit("stopPrice", "stopPx")
		switch orderType {
		case "stop":
			trigger := stopPrice
			if trigger == "" {
				trigger = price
			}
			if trigger == "" {
				return nil, nil, a.Fail(ArgumentsRequired, "%s() requires a price argument or a stopPrice parameter or a stopPx parameter for %s orders", op, orderType)
			}
			stopPx, _, err := a.scaled("stopPrice", trigger)
			if err != nil {
				return nil, nil, err
			}
			req["ordType"] = 3
			req["stopPx"] = stopPx
		case "stop limit":
			if stopPrice == "" {
				return nil, nil, a.Fail(ArgumentsRequired, "%s() requires a stopPrice parameter or a stopPx parameter for %s orders", op, orderType)
			}
			if price == "" {
				return nil, nil, a.ArgumentsRequired(op, "price")
			}
			stopPx, stopScale, err := a.scaled("stopPrice", stopPrice)
			if err != nil {
				return nil, nil, err
			}
			p, priceScale, err := a.scaled("price", price)
			if err != nil {
				return nil, nil, err
			}
			req["ordType"] = 4
			req["price_scale"] = priceScale
			req["stopPx_scale"] = stopScale
			req["stopPx"] = stopPx
			req["price"] = p
		default:
			return nil, nil, a.Fail(InvalidOrder, "unsupported order type %q", orderType)
		}
	}
	return req, params, nil
}

func (a *EqonexAdapter) CreateOrder(ctx context.Context, symbol, orderType string, side market.Side, amount, price string, params Params) (market.Order, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.Order{}, err
	}
	req, rest, err := a.orderRequest("createOrder", m, orderType, side, amount, price, params)
	if err != nil {
		return market.Order{}, err
	}
	body, err := a.Request(ctx, eqonexOrder, req.Extend(rest))
	if err != nil {
		return market.Order{}, err
	}
	a.Logger().Info("[EQONEX] order placed: %s %s %s %s @ %s", symbol, side, orderType, amount, price)
	return a.parser.Order(gjson.ParseBytes(body), m)
}

// EditOrder отправляет order с origOrderId
func (a *EqonexAdapter) EditOrder(ctx context.Context, id, symbol, orderType string, side market.Side, amount, price string, params Params) (market.Order, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.Order{}, err
	}
	req, rest, err := a.orderRequest("editOrder", m, orderType, side, amount, price, params)
	if err != nil {
		return market.Order{}, err
	}
	req["origOrderId"] = id
	body, err := a.Request(ctx, eqonexOrder, req.Extend(rest))
	if err != nil {
		return market.Order{}, err
	}
	return a.parser.Order(gjson.ParseBytes(body), m)
}

func (a *EqonexAdapter) orderID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, a.Fail(BadRequest, "order id %q is not numeric", id)
	}
	return n, nil
}

func (a *EqonexAdapter) CancelOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error) {
	if symbol == "" {
		return market.Order{}, a.ArgumentsRequired("cancelOrder", "symbol")
	}
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.Order{}, err
	}
	pairID, err := a.pairID(m)
	if err != nil {
		return market.Order{}, err
	}
	n, err := a.orderID(id)
	if err != nil {
		return market.Order{}, err
	}
	body, err := a.Request(ctx, eqonexCancelOrder, Params{"origOrderId": n, "instrumentId": pairID}.Extend(params))
	if err != nil {
		return market.Order{}, err
	}
	return a.parser.Order(gjson.ParseBytes(body), m)
}

func (a *EqonexAdapter) FetchOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.Order{}, err
	}
	n, err := a.orderID(id)
	if err != nil {
		return market.Order{}, err
	}
	body, err := a.Request(ctx, eqonexOrderStatus, Params{"orderId": n}.Extend(params))
	if err != nil {
		return market.Order{}, err
	}
	return a.parser.Order(gjson.ParseBytes(body), nil)
}

func (a *EqonexAdapter) FetchOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	req := Params{}
	var m *market.Market
	if symbol != "" {
		var err error
		if m, err = a.Market(symbol); err != nil {
			return nil, err
		}
		pairID, err := a.pairID(m)
		if err != nil {
			return nil, err
		}
		req["instrumentId"] = pairID
	}
	if limit > 0 {
		req["limit"] = limit
	}
	body, err := a.Request(ctx, eqonexOrders, req.Extend(params))
	if err != nil {
		return nil, err
	}
	orders, err := a.parser.Orders(parsers.UnwrapOptional(body, "orders"), m)
	if err != nil {
		return nil, err
	}
	return market.FilterOrders(orders, since, limit), nil
}

func (a *EqonexAdapter) FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	return a.FetchOrders(ctx, symbol, since, limit, Params{"ordStatus": eqonexOrdStatusFilled}.Extend(params))
}

// FetchCanceledOrders - отменённые ордера (ordStatus 4)
func (a *EqonexAdapter) FetchCanceledOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	return a.FetchOrders(ctx, symbol, since, limit, Params{"ordStatus": eqonexOrdStatusCanceled}.Extend(params))
}

func (a *EqonexAdapter) FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	req := Params{}
	var m *market.Market
	if symbol != "" {
		var err error
		if m, err = a.Market(symbol); err != nil {
			return nil, err
		}
		req["instrumentId"] = m.ID
	}
	if !since.IsZero() {
		req["startTime"] = since.UnixMilli()
	}
	body, err := a.Request(ctx, eqonexUserTrades, req.Extend(params))
	if err != nil {
		return nil, err
	}
	trades, err := a.parser.Trades(parsers.UnwrapOptional(body, "trades"), m)
	if err != nil {
		return nil, err
	}
	return market.FilterTrades(trades, since, limit), nil
}

// instrumentID - числовой id валюты
func (a *EqonexAdapter) instrumentID(c *market.Currency) (int64, error) {
	id, err := strconv.ParseInt(c.ID, 10, 64)
	if err != nil {
		return 0, a.Fail(ExchangeError, "currency id %q of %s is not numeric", c.ID, c.Code)
	}
	return id, nil
}

func (a *EqonexAdapter) FetchDepositAddress(ctx context.Context, code string, params Params) (market.DepositAddress, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.DepositAddress{}, err
	}
	c, err := a.Currency(code)
	if err != nil {
		return market.DepositAddress{}, err
	}
	id, err := a.instrumentID(c)
	if err != nil {
		return market.DepositAddress{}, err
	}
	body, err := a.Request(ctx, eqonexDepositAddrs, Params{"instrumentId": id}.Extend(params))
	if err != nil {
		return market.DepositAddress{}, err
	}
	addr, err := a.parser.DepositAddress(gjson.GetBytes(body, "addresses.0"), c)
	if err != nil {
		return addr, a.Fail(InvalidAddress, "no deposit address for %s", code)
	}
	return addr, nil
}

func (a *EqonexAdapter) fetchTransactions(ctx context.Context, ep Endpoint, key string, kind market.TransactionType, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
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
		id, err := a.instrumentID(c)
		if err != nil {
			return nil, err
		}
		currency = c
		req["instrumentId"] = id
	}
	body, err := a.Request(ctx, ep, req.Extend(params))
	if err != nil {
		return nil, err
	}
	txs, err := a.parser.Transactions(parsers.UnwrapOptional(body, key), kind, currency)
	if err != nil {
		return nil, err
	}
	return market.FilterTransactions(txs, code, since, limit), nil
}

func (a *EqonexAdapter) FetchDeposits(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
	return a.fetchTransactions(ctx, eqonexDepositHistory, "deposits", market.TransactionDeposit, code, since, limit, params)
}

// FetchWithdrawals: список выводов биржа возвращает в поле addresses
func (a *EqonexAdapter) FetchWithdrawals(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
	return a.fetchTransactions(ctx, eqonexWithdrawals, "addresses", market.TransactionWithdrawal, code, since, limit, params)
}

func (a *EqonexAdapter) Withdraw(ctx context.Context, code, amount, address, tag string, params Params) (market.Transaction, error) {
	if err := a.CheckAddress(address); err != nil {
		return market.Transaction{}, err
	}
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.Transaction{}, err
	}
	c, err := a.Currency(code)
	if err != nil {
		return market.Transaction{}, err
	}
	id, err := a.instrumentID(c)
	if err != nil {
		return market.Transaction{}, err
	}
	scale := precise.ScaleOf(amount)
	quantity, err := precise.ToScaled(amount, scale)
	if err != nil {
		return market.Transaction{}, a.Fail(BadRequest, "amount %q: %v", amount, err)
	}
	symbol := gjson.GetBytes(c.Info, "1").String()
	if symbol == "" {
		symbol = c.Code
	}
	req := Params{
		"instrumentId":   id,
		"symbol":         symbol,
		"quantity":       quantity,
		"quantity_scale": scale,
		"address":        address,
	}
	body, err := a.Request(ctx, eqonexSendWithdraw, req.Extend(params))
	if err != nil {
		return market.Transaction{}, err
	}
	return a.parser.Transaction(gjson.ParseBytes(body), market.TransactionWithdrawal, c)
}

func (a *EqonexAdapter) FetchTradingFees(ctx context.Context, params Params) (map[string]market.TradingFee, error) {
	set, err := a.LoadMarkets(ctx, false)
	if err != nil {
		return nil, err
	}
	body, err := a.Request(ctx, eqonexExchangeInfo, params)
	if err != nil {
		return nil, err
	}
	return a.parser.TradingFees(body, set.Markets())
}
