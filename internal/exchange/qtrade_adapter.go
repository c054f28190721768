package exchange

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ct-exchange/internal/market"
	"ct-exchange/internal/market/parsers"

	"github.com/tidwall/gjson"
)

var (
	qtradeTicker       = Endpoint{API: Public, Method: http.MethodGet, Path: "ticker/{market_string}"}
	qtradeTickers      = Endpoint{API: Public, Method: http.MethodGet, Path: "tickers"}
	qtradeCurrencies   = Endpoint{API: Public, Method: http.MethodGet, Path: "currencies"}
	qtradeMarket       = Endpoint{API: Public, Method: http.MethodGet, Path: "market/{market_string}"}
	qtradeMarkets      = Endpoint{API: Public, Method: http.MethodGet, Path: "markets"}
	qtradeTrades       = Endpoint{API: Public, Method: http.MethodGet, Path: "market/{market_string}/trades"}
	qtradeOrderBook    = Endpoint{API: Public, Method: http.MethodGet, Path: "orderbook/{market_string}"}
	qtradeOHLCV        = Endpoint{API: Public, Method: http.MethodGet, Path: "market/{market_string}/ohlcv/{interval}"}
	qtradeBalances     = Endpoint{API: Private, Method: http.MethodGet, Path: "balances_all"}
	qtradeOrders       = Endpoint{API: Private, Method: http.MethodGet, Path: "orders"}
	qtradeOrder        = Endpoint{API: Private, Method: http.MethodGet, Path: "order/{order_id}"}
	qtradeMyTrades     = Endpoint{API: Private, Method: http.MethodGet, Path: "trades"}
	qtradeWithdrawal   = Endpoint{API: Private, Method: http.MethodGet, Path: "withdraw/{withdraw_id}"}
	qtradeWithdrawals  = Endpoint{API: Private, Method: http.MethodGet, Path: "withdraws"}
	qtradeDeposit      = Endpoint{API: Private, Method: http.MethodGet, Path: "deposit/{deposit_id}"}
	qtradeDeposits     = Endpoint{API: Private, Method: http.MethodGet, Path: "deposits"}
	qtradeCancelOrder  = Endpoint{API: Private, Method: http.MethodPost, Path: "cancel_order"}
	qtradeWithdraw     = Endpoint{API: Private, Method: http.MethodPost, Path: "withdraw"}
	qtradeDepositAddr  = Endpoint{API: Private, Method: http.MethodPost, Path: "deposit_address/{currency}"}
	qtradeSellLimit    = Endpoint{API: Private, Method: http.MethodPost, Path: "sell_limit"}
	qtradeBuyLimit     = Endpoint{API: Private, Method: http.MethodPost, Path: "buy_limit"}
	qtradeTimeframeDef = "5m"
)

func qtradeConfig() Config {
	return Config{
		ID:        "qtrade",
		Name:      "qTrade",
		Version:   "v1",
		Countries: []string{"US"},
		RateLimit: time.Second,
		URLs: URLs{
			API: map[string]string{"rest": "https://api.qtrade.io"},
			WWW: "https://qtrade.io",
			Doc: []string{"https://qtrade-exchange.github.io/qtrade-docs"},
		},
		Has: map[string]bool{
			"spot": true, "cancelOrder": true, "createOrder": true, "fetchBalance": true,
			"fetchClosedOrders": true, "fetchCurrencies": true, "fetchDeposit": true,
			"fetchDepositAddress": true, "fetchDeposits": true, "fetchMarkets": true,
			"fetchMyTrades": true, "fetchOHLCV": true, "fetchOpenOrders": true, "fetchOrder": true,
			"fetchOrderBook": true, "fetchOrders": true, "fetchTicker": true, "fetchTickers": true,
			"fetchTrades": true, "fetchTradingFee": true, "fetchTradingFees": true,
			"fetchWithdrawal": true, "fetchWithdrawals": true, "withdraw": true,
		},
		Timeframes: map[string]string{
			"5m": "fivemin", "15m": "fifteenmin", "30m": "thirtymin", "1h": "onehour",
			"2h": "twohour", "4h": "fourhour", "1d": "oneday",
		},
		Fees: TradingFees{Taker: "0.005", Maker: "0", Percentage: true, TierBased: true},
		CommonCurrencies: map[string]string{
			"BTM": "Bitmark",
		},
		Exceptions: Exceptions{
			Exact: map[string]Kind{
				"invalid_auth":     AuthenticationError,
				"insuff_funds":     InsufficientFunds,
				"market_not_found": BadSymbol,
				"too_small":        InvalidOrder,
				"limit_exceeded":   RateLimitExceeded,
			},
		},
		RequiredCredentials: RequiredCredentials{APIKey: true, Secret: true},
	}
}

// QtradeAdapter реализует Adapter для qTrade
type QtradeAdapter struct {
	*Base
	parser *parsers.QtradeParser
}

var _ Adapter = (*QtradeAdapter)(nil)

func NewQtradeAdapter(creds Credentials, opts Options) *QtradeAdapter {
	a := &QtradeAdapter{Base: NewBase(qtradeConfig(), creds, opts)}
	a.parser = parsers.NewQtradeParser(a.Base)
	a.Bind(a.sign, a.handleErrors, a.loadMarkets)
	return a
}

// sign: Authorization = "HMAC-SHA256 key:" + base64(sha256(method\nurl\ntimestamp\nbody\nsecret))
func (a *QtradeAdapter) sign(ep Endpoint, params Params) (SignedRequest, error) {
	path, query := ImplodePath(ep.Path, params)
	url := "/" + a.Describe().Version + "/"
	if ep.API == Private {
		url += "user/"
	}
	url += path
	req := SignedRequest{Method: ep.Method}
	if ep.Method == http.MethodPost {
		body, err := JSON(query)
		if err != nil {
			return SignedRequest{}, err
		}
		req.Body = body
	} else if len(query) > 0 {
		url += "?" + Urlencode(query)
	}
	if ep.API == Private {
		if err := a.CheckRequiredCredentials(); err != nil {
			return SignedRequest{}, err
		}
		creds := a.Credentials()
		timestamp := strconv.FormatInt(a.Milliseconds(), 10)
		auth := strings.Join([]string{ep.Method, url, timestamp, req.Body, creds.Secret}, "\n")
		req.Headers = map[string]string{
			"Authorization":  "HMAC-SHA256 " + creds.APIKey + ":" + HashBase64(SHA256, auth),
			"HMAC-Timestamp": timestamp,
		}
		if ep.Method == http.MethodPost {
			req.Headers["Content-Type"] = "application/json"
		}
	}
	req.URL = a.URL("rest") + url
	return req, nil
}

func (a *QtradeAdapter) handleErrors(resp *Response) error {
	errs := gjson.GetBytes(resp.Body, "errors")
	if !errs.IsArray() || len(errs.Array()) == 0 {
		return nil
	}
	feedback := string(resp.Body)
	exceptions := a.Describe().Exceptions
	for _, e := range errs.Array() {
		if kind, ok := exceptions.Exactly(e.Get("code").String()); ok {
			return a.Fail(kind, "%s", feedback)
		}
	}
	return a.Fail(ExchangeError, "%s", feedback)
}

// data возвращает поле data ответа
func (a *QtradeAdapter) data(ctx context.Context, ep Endpoint, params Params) ([]byte, gjson.Result, error) {
	body, err := a.Request(ctx, ep, params)
	if err != nil {
		return nil, gjson.Result{}, err
	}
	return body, gjson.GetBytes(body, "data"), nil
}

func (a *QtradeAdapter) loadMarkets(ctx context.Context) ([]market.Market, []market.Currency, error) {
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

func (a *QtradeAdapter) FetchMarkets(ctx context.Context, params Params) ([]market.Market, error) {
	_, data, err := a.data(ctx, qtradeMarkets, params)
	if err != nil {
		return nil, err
	}
	return a.parser.Markets(data.Get("markets"))
}

func (a *QtradeAdapter) FetchCurrencies(ctx context.Context, params Params) ([]market.Currency, error) {
	_, data, err := a.data(ctx, qtradeCurrencies, params)
	if err != nil {
		return nil, err
	}
	return a.parser.Currencies(data.Get("currencies"))
}

func (a *QtradeAdapter) market(ctx context.Context, symbol string) (*market.Market, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return a.Market(symbol)
}

func (a *QtradeAdapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int, params Params) ([]market.OHLCV, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if timeframe == "" {
		timeframe = qtradeTimeframeDef
	}
	interval, err := a.Timeframe(timeframe)
	if err != nil {
		return nil, err
	}
	_, data, err := a.data(ctx, qtradeOHLCV, Params{"market_string": m.ID, "interval": interval}.Extend(params))
	if err != nil {
		return nil, err
	}
	candles, err := a.parser.OHLCV(data.Get("slices"))
	if err != nil {
		return nil, err
	}
	return market.FilterOHLCV(candles, since, limit), nil
}

func (a *QtradeAdapter) FetchOrderBook(ctx context.Context, symbol string, limit int, params Params) (market.OrderBook, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.OrderBook{}, err
	}
	_, data, err := a.data(ctx, qtradeOrderBook, Params{"market_string": m.ID}.Extend(params))
	if err != nil {
		return market.OrderBook{}, err
	}
	ob, err := a.parser.OrderBook(data, m.Symbol)
	if err != nil {
		return ob, err
	}
	ob.Truncate(limit)
	return ob, nil
}

func (a *QtradeAdapter) FetchTicker(ctx context.Context, symbol string, params Params) (market.Ticker, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.Ticker{}, err
	}
	_, data, err := a.data(ctx, qtradeTicker, Params{"market_string": m.ID}.Extend(params))
	if err != nil {
		return market.Ticker{}, err
	}
	return a.parser.Ticker(data, m)
}

func (a *QtradeAdapter) FetchTickers(ctx context.Context, symbols []string, params Params) (map[string]market.Ticker, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	filter, err := a.MarketSymbols(symbols)
	if err != nil {
		return nil, err
	}
	_, data, err := a.data(ctx, qtradeTickers, params)
	if err != nil {
		return nil, err
	}
	tickers, err := a.parser.Tickers(data.Get("markets"))
	if err != nil {
		return nil, err
	}
	return IndexTickers(tickers, filter), nil
}

func (a *QtradeAdapter) FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	_, data, err := a.data(ctx, qtradeTrades, Params{"market_string": m.ID}.Extend(params))
	if err != nil {
		return nil, err
	}
	trades, err := a.parser.Trades(data.Get("trades"), m)
	if err != nil {
		return nil, err
	}
	return market.FilterTrades(trades, since, limit), nil
}

// marketFilter: params["market_id"] имеет приоритет над symbol
func (a *QtradeAdapter) marketFilter(symbol string, params Params) (Params, *market.Market, error) {
	req := Params{}
	if params.Has("market_id") {
		req["market_id"] = params["market_id"]
		return req, nil, nil
	}
	if symbol == "" {
		return req, nil, nil
	}
	m, err := a.Market(symbol)
	if err != nil {
		return nil, nil, err
	}
	req["market_string"] = m.ID
	return req, m, nil
}

func (a *QtradeAdapter) FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	req, m, err := a.marketFilter(symbol, params)
	if err != nil {
		return nil, err
	}
	req["desc"] = true
	_, data, err := a.data(ctx, qtradeMyTrades, req.Extend(params))
	if err != nil {
		return nil, err
	}
	trades, err := a.parser.Trades(data.Get("trades"), m)
	if err != nil {
		return nil, err
	}
	return market.FilterTrades(trades, since, limit), nil
}

// FetchTradingFee - комиссии одного рынка из market/{market_string}
func (a *QtradeAdapter) FetchTradingFee(ctx context.Context, symbol string, params Params) (market.TradingFee, error) {
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.TradingFee{}, err
	}
	_, data, err := a.data(ctx, qtradeMarket, Params{"market_string": m.ID}.Extend(params))
	if err != nil {
		return market.TradingFee{}, err
	}
	return a.parser.TradingFee(data.Get("market"), m.Symbol), nil
}

// FetchTradingFees берёт ставки из описания рынков
func (a *QtradeAdapter) FetchTradingFees(ctx context.Context, params Params) (map[string]market.TradingFee, error) {
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

func (a *QtradeAdapter) FetchBalance(ctx context.Context, params Params) (*market.Balances, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	body, err := a.Request(ctx, qtradeBalances, params)
	if err != nil {
		return nil, err
	}
	return a.parser.Balance(body)
}

// CreateOrder: биржа принимает только лимитные ордера
func (a *QtradeAdapter) CreateOrder(ctx context.Context, symbol, orderType string, side market.Side, amount, price string, params Params) (market.Order, error) {
	if orderType != "limit" {
		return market.Order{}, a.Fail(InvalidOrder, "createOrder() allows limit orders only")
	}
	if price == "" {
		return market.Order{}, a.ArgumentsRequired("createOrder", "price")
	}
	m, err := a.market(ctx, symbol)
	if err != nil {
		return market.Order{}, err
	}
	marketID, err := strconv.ParseInt(m.NumericID, 10, 64)
	if err != nil {
		return market.Order{}, a.Fail(BadSymbol, "market %s has no numeric id", m.Symbol)
	}
	ep := qtradeBuyLimit
	if side == market.SideSell {
		ep = qtradeSellLimit
	}
	if amount, err = a.AmountToPrecision(m, amount); err != nil {
		return market.Order{}, err
	}
	if price, err = a.PriceToPrecision(m, price); err != nil {
		return market.Order{}, err
	}
	req := Params{"amount": amount, "market_id": marketID, "price": price}
	_, data, err := a.data(ctx, ep, req.Extend(params))
	if err != nil {
		return market.Order{}, err
	}
	a.Logger().Info("[QTRADE] order placed: %s %s %s @ %s", symbol, side, amount, price)
	return a.parser.Order(data.Get("order"), m)
}

// CancelOrder: биржа не возвращает ордер, только подтверждение
func (a *QtradeAdapter) CancelOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return market.Order{}, a.Fail(BadRequest, "order id %q is not numeric", id)
	}
	body, err := a.Request(ctx, qtradeCancelOrder, Params{"id": n}.Extend(params))
	if err != nil {
		return market.Order{}, err
	}
	return market.Order{ID: id, Symbol: symbol, Status: market.OrderStatusCanceled, Info: body}, nil
}

func (a *QtradeAdapter) FetchOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.Order{}, err
	}
	_, data, err := a.data(ctx, qtradeOrder, Params{"order_id": id}.Extend(params))
	if err != nil {
		return market.Order{}, err
	}
	order := data.Get("order")
	if !order.Exists() {
		return market.Order{}, a.Fail(OrderNotFound, "order %s not found", id)
	}
	return a.parser.Order(order, nil)
}

func (a *QtradeAdapter) FetchOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	req, m, err := a.marketFilter(symbol, params)
	if err != nil {
		return nil, err
	}
	_, data, err := a.data(ctx, qtradeOrders, req.Extend(params))
	if err != nil {
		return nil, err
	}
	orders, err := a.parser.Orders(data.Get("orders"), m)
	if err != nil {
		return nil, err
	}
	return market.FilterOrders(orders, since, limit), nil
}

func (a *QtradeAdapter) FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	return a.FetchOrders(ctx, symbol, since, limit, Params{"open": true}.Extend(params))
}

func (a *QtradeAdapter) FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	return a.FetchOrders(ctx, symbol, since, limit, Params{"open": false}.Extend(params))
}

func (a *QtradeAdapter) FetchDepositAddress(ctx context.Context, code string, params Params) (market.DepositAddress, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.DepositAddress{}, err
	}
	c, err := a.Currency(code)
	if err != nil {
		return market.DepositAddress{}, err
	}
	_, data, err := a.data(ctx, qtradeDepositAddr, Params{"currency": c.ID}.Extend(params))
	if err != nil {
		return market.DepositAddress{}, err
	}
	addr, err := a.parser.DepositAddress(data, c.Code)
	if err != nil {
		return addr, a.Fail(InvalidAddress, "no deposit address for %s", code)
	}
	return addr, nil
}

// FetchDeposit - один депозит по id
func (a *QtradeAdapter) FetchDeposit(ctx context.Context, id string, params Params) (market.Transaction, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.Transaction{}, err
	}
	_, data, err := a.data(ctx, qtradeDeposit, Params{"deposit_id": id}.Extend(params))
	if err != nil {
		return market.Transaction{}, err
	}
	return a.parser.Transaction(data.Get("deposit"))
}

// FetchWithdrawal - один вывод по id
func (a *QtradeAdapter) FetchWithdrawal(ctx context.Context, id string, params Params) (market.Transaction, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.Transaction{}, err
	}
	_, data, err := a.data(ctx, qtradeWithdrawal, Params{"withdraw_id": id}.Extend(params))
	if err != nil {
		return market.Transaction{}, err
	}
	return a.parser.Transaction(data.Get("withdraw"))
}

func (a *QtradeAdapter) fetchTransactions(ctx context.Context, ep Endpoint, key, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	if code != "" {
		if _, err := a.Currency(code); err != nil {
			return nil, err
		}
	}
	_, data, err := a.data(ctx, ep, params)
	if err != nil {
		return nil, err
	}
	txs, err := a.parser.Transactions(data.Get(key))
	if err != nil {
		return nil, err
	}
	return market.FilterTransactions(txs, code, since, limit), nil
}

func (a *QtradeAdapter) FetchDeposits(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
	return a.fetchTransactions(ctx, qtradeDeposits, "deposits", code, since, limit, params)
}

func (a *QtradeAdapter) FetchWithdrawals(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
	return a.fetchTransactions(ctx, qtradeWithdrawals, "withdraws", code, since, limit, params)
}

// Withdraw: тег передаётся в адресе через двоеточие
func (a *QtradeAdapter) Withdraw(ctx context.Context, code, amount, address, tag string, params Params) (market.Transaction, error) {
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
	full := address
	if tag != "" {
		full += ":" + tag
	}
	_, data, err := a.data(ctx, qtradeWithdraw, Params{"address": full, "amount": amount, "currency": c.ID}.Extend(params))
	if err != nil {
		return market.Transaction{}, err
	}
	tx, err := a.parser.Transaction(data)
	if err != nil {
		return tx, err
	}
	tx.Type = market.TransactionWithdrawal
	tx.Currency = code
	tx.Address = address
	tx.AddressTo = address
	tx.Tag = tag
	tx.TagTo = tag
	tx.Amount = amount
	return tx, nil
}
