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

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Endpoints Bibox. Раздел API задаётся как версия + public/private.
var (
	biboxMdata        = Endpoint{API: "v1Public", Method: http.MethodGet, Path: "mdata"}
	biboxCdata        = Endpoint{API: "v1Public", Method: http.MethodGet, Path: "cdata"}
	biboxTradeLimit   = Endpoint{API: "v1Public", Method: http.MethodGet, Path: "orderpending"}
	biboxCandles      = Endpoint{API: "v4Public", Method: http.MethodGet, Path: "marketdata/candles"}
	biboxTransfer     = Endpoint{API: "v1Private", Method: http.MethodPost, Path: "transfer"}
	biboxOrderpending = Endpoint{API: "v1Private", Method: http.MethodPost, Path: "orderpending"}
)

func biboxConfig() Config {
	return Config{
		ID:        "bibox",
		Name:      "Bibox",
		Version:   "v3.1",
		Countries: []string{"CN", "US", "KR"},
		RateLimit: 166667 * time.Microsecond,
		URLs: URLs{
			API: map[string]string{"rest": "https://api.bibox.com"},
			WWW: "https://www.bibox365.com",
			Doc: []string{
				"https://biboxcom.github.io/en/",
				"https://biboxcom.github.io/v3/spot/en/",
				"https://biboxcom.github.io/api/spot/v4",
			},
		},
		Has: map[string]bool{
			"spot": true, "cancelOrder": true, "createOrder": true, "fetchBalance": true,
			"fetchClosedOrders": true, "fetchCurrencies": true, "fetchDepositAddress": true,
			"fetchDeposits": true, "fetchMarkets": true, "fetchMyTrades": true, "fetchOHLCV": true,
			"fetchOpenOrders": true, "fetchOrder": true, "fetchOrderBook": true, "fetchTicker": true,
			"fetchTickers": true, "fetchTrades": true, "fetchTransactionFees": true,
			"fetchWithdrawals": true, "withdraw": true,
		},
		Timeframes: map[string]string{
			"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m", "1h": "1h", "2h": "2h",
			"4h": "4h", "6h": "6h", "12h": "12h", "1d": "1d", "1w": "1w", "1M": "1M",
		},
		Fees: TradingFees{Taker: "0.002", Maker: "0.001", Percentage: true},
		CommonCurrencies: map[string]string{
			"APENFT(NFT)": "NFT",
			"BOX":         "DefiBox",
			"BPT":         "BlockPool Token",
			"GMT":         "GMT Token",
			"KEY":         "Bihu",
			"MTC":         "MTC Mesh Network",
			"NFT":         "NFT Protocol",
			"PAI":         "PCHAIN",
			"REVO":        "Revo Network",
			"STAR":        "Starbase",
			"TERN":        "Ternio-ERC20",
		},
		Exceptions: Exceptions{
			Exact: map[string]Kind{
				"2011": AccountSuspended,     // аккаунт заблокирован
				"2015": AuthenticationError,  // неверный код Google authenticator
				"2021": InsufficientFunds,    // недостаточно средств для вывода
				"2027": InsufficientFunds,    // недостаточно средств для сделки
				"2033": OrderNotFound,        // ордер уже исполнен или отменён
				"2065": InvalidOrder,         // цена слишком высокая
				"2066": InvalidOrder,         // цена слишком низкая
				"2067": InvalidOrder,         // рыночные ордера не поддерживаются
				"2068": InvalidOrder,         // количество меньше минимума
				"2078": InvalidOrder,         // неверная цена
				"2085": InvalidOrder,         // количество слишком мало
				"2091": RateLimitExceeded,    // слишком частые запросы
				"2092": InvalidOrder,         // минимальная сумма не достигнута
				"2131": InvalidOrder,         // количество больше максимума
				"3000": BadRequest,           // неверный параметр
				"3002": BadRequest,           // параметр не может быть пустым
				"3012": AuthenticationError,  // неверный apiKey
				"3016": BadSymbol,            // неверная пара
				"3024": PermissionDenied,     // нет прав у apiKey
				"3025": AuthenticationError,  // неверная подпись
				"4000": ExchangeNotAvailable, // сеть нестабильна
				"4003": DDoSProtection,       // сервер занят
			},
		},
		RequiredCredentials: RequiredCredentials{APIKey: true, Secret: true},
	}
}

// BiboxAdapter реализует Adapter для биржи Bibox
type BiboxAdapter struct {
	*Base
	parser *parsers.BiboxParser
}

var _ Adapter = (*BiboxAdapter)(nil)

func NewBiboxAdapter(creds Credentials, opts Options) *BiboxAdapter {
	a := &BiboxAdapter{Base: NewBase(biboxConfig(), creds, opts)}
	a.parser = parsers.NewBiboxParser(a.Base)
	a.Bind(a.sign, a.handleErrors, a.loadMarkets)
	return a
}

// biboxAPI делит раздел "v3.1Private" на версию и доступ
func biboxAPI(api string) (version, access string) {
	switch {
	case strings.HasSuffix(api, "Private"):
		return strings.TrimSuffix(api, "Private"), Private
	case strings.HasSuffix(api, "Public"):
		return strings.TrimSuffix(api, "Public"), Public
	}
	return api, Public
}

func (a *BiboxAdapter) sign(ep Endpoint, params Params) (SignedRequest, error) {
	version, access := biboxAPI(ep.API)
	prefix := ""
	if version == "v4" {
		prefix = "/api"
	}
	path, query := ImplodePath(ep.Path, params)
	url := a.URL("rest") + prefix + "/" + version + "/" + path

	var jsonParams string
	var err error
	if version == "v1" {
		jsonParams, err = JSON([]Params{query})
	} else {
		jsonParams, err = JSON(query)
	}
	if err != nil {
		return SignedRequest{}, err
	}

	headers := map[string]string{"content-type": "application/json"}
	var body interface{}
	if access == Public {
		switch {
		case ep.Method != http.MethodGet && version == "v1":
			body = map[string]string{"cmds": jsonParams}
		case ep.Method != http.MethodGet:
			body = map[string]string{"body": jsonParams}
		case len(query) > 0:
			url += "?" + Urlencode(query)
		}
	} else {
		if err := a.CheckRequiredCredentials(); err != nil {
			return SignedRequest{}, err
		}
		creds := a.Credentials()
		switch version {
		case "v3", "v3.1":
			timestamp := strconv.FormatInt(a.Milliseconds(), 10)
			toSign := timestamp
			if jsonParams != "{}" {
				toSign += jsonParams
			}
			headers["bibox-api-key"] = creds.APIKey
			headers["bibox-api-sign"] = HmacHex(MD5, creds.Secret, toSign)
			headers["bibox-timestamp"] = timestamp
			if ep.Method == http.MethodGet {
				url += "?" + Urlencode(query)
			} else if jsonParams != "{}" {
				body = query
			}
		case "v4":
			// подписывается отправляемое тело; без параметров тела нет и подпись идёт по пустой строке
			toSign := ""
			if ep.Method == http.MethodGet {
				toSign = Urlencode(query)
				url += "?" + toSign
			} else if jsonParams != "{}" {
				body = query
				toSign = jsonParams
			}
			headers["Bibox-Api-Key"] = creds.APIKey
			headers["Bibox-Api-Sign"] = HmacHex(SHA256, creds.Secret, toSign)
		default:
			signed := map[string]string{
				"apikey": creds.APIKey,
				"sign":   HmacHex(MD5, creds.Secret, jsonParams),
			}
			if version == "v1" {
				signed["cmds"] = jsonParams
			} else {
				signed["body"] = jsonParams
			}
			body = signed
		}
	}

	req := SignedRequest{Method: ep.Method, URL: url, Headers: headers}
	if body != nil {
		if req.Body, err = JSON(body); err != nil {
			return SignedRequest{}, err
		}
	}
	return req, nil
}

func (a *BiboxAdapter) handleErrors(resp *Response) error {
	if !gjson.ValidBytes(resp.Body) {
		return nil
	}
	res := gjson.ParseBytes(resp.Body)
	if !res.IsObject() {
		return nil
	}
	feedback := string(resp.Body)
	if state := res.Get("state"); state.Exists() {
		if precise.IsZero(state.String()) {
			return nil
		}
		return a.Fail(ExchangeError, "%s", feedback)
	}
	e := res.Get("error")
	if !e.Exists() {
		return nil
	}
	code := strconv.Itoa(resp.Status)
	if e.IsObject() {
		c := e.Get("code")
		if !c.Exists() {
			return a.Fail(ExchangeError, "%s", feedback)
		}
		code = c.String()
	}
	if kind, ok := a.Describe().Exceptions.Exactly(code); ok {
		return a.Fail(kind, "%s", feedback)
	}
	return a.Fail(ExchangeError, "%s", feedback)
}

// command вызывает v1 cmd-запрос и возвращает тело и result[0]
func (a *BiboxAdapter) command(ctx context.Context, ep Endpoint, cmd string, body Params) ([]byte, gjson.Result, error) {
	if body == nil {
		body = Params{}
	}
	raw, err := a.Request(ctx, ep, Params{"cmd": cmd, "body": body})
	if err != nil {
		return nil, gjson.Result{}, err
	}
	return raw, gjson.GetBytes(raw, "result.0"), nil
}

func (a *BiboxAdapter) loadMarkets(ctx context.Context) ([]market.Market, []market.Currency, error) {
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

func (a *BiboxAdapter) FetchMarkets(ctx context.Context, params Params) ([]market.Market, error) {
	body, err := a.Request(ctx, biboxMdata, Params{"cmd": "pairList"}.Extend(params))
	if err != nil {
		return nil, err
	}
	pairs, err := parsers.Unwrap(body, "result")
	if err != nil {
		return nil, err
	}
	limits, err := a.Request(ctx, biboxTradeLimit, Params{"cmd": "tradeLimit"}.Extend(params))
	if err != nil {
		return nil, err
	}
	minCosts := a.parser.MinCosts(parsers.UnwrapOptional(limits, "result.min_trade_money"))
	return a.parser.Markets(pairs, minCosts)
}

// FetchCurrencies: с ключами используется приватный список transfer/coinList
func (a *BiboxAdapter) FetchCurrencies(ctx context.Context, params Params) ([]market.Currency, error) {
	if a.HasCredentials() {
		body, first, err := a.command(ctx, biboxTransfer, "transfer/coinList", params)
		if err != nil {
			return nil, err
		}
		items := first.Get("result")
		if !items.Exists() {
			return nil, errors.Wrapf(parsers.ErrMissingField, "bibox coinList: %s", body)
		}
		return a.parser.Currencies(items, true)
	}
	body, err := a.Request(ctx, biboxCdata, Params{"cmd": "currencies"}.Extend(params))
	if err != nil {
		return nil, err
	}
	items, err := parsers.Unwrap(body, "result")
	if err != nil {
		return nil, err
	}
	return a.parser.Currencies(items, false)
}

func (a *BiboxAdapter) FetchTicker(ctx context.Context, symbol string, params Params) (market.Ticker, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.Ticker{}, err
	}
	m, err := a.Market(symbol)
	if err != nil {
		return market.Ticker{}, err
	}
	body, err := a.Request(ctx, biboxMdata, Params{"cmd": "ticker", "pair": m.ID}.Extend(params))
	if err != nil {
		return market.Ticker{}, err
	}
	result, err := parsers.Unwrap(body, "result")
	if err != nil {
		return market.Ticker{}, err
	}
	return a.parser.Ticker(result, m)
}

func (a *BiboxAdapter) FetchTickers(ctx context.Context, symbols []string, params Params) (map[string]market.Ticker, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	filter, err := a.MarketSymbols(symbols)
	if err != nil {
		return nil, err
	}
	body, err := a.Request(ctx, biboxMdata, Params{"cmd": "marketAll"}.Extend(params))
	if err != nil {
		return nil, err
	}
	result, err := parsers.Unwrap(body, "result")
	if err != nil {
		return nil, err
	}
	tickers, err := a.parser.Tickers(result)
	if err != nil {
		return nil, err
	}
	return IndexTickers(tickers, filter), nil
}

func (a *BiboxAdapter) FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	m, err := a.Market(symbol)
	if err != nil {
		return nil, err
	}
	req := Params{"cmd": "deals", "pair": m.ID}
	if limit > 0 {
		req["size"] = limit
	}
	body, err := a.Request(ctx, biboxMdata, req.Extend(params))
	if err != nil {
		return nil, err
	}
	result, err := parsers.Unwrap(body, "result")
	if err != nil {
		return nil, err
	}
	trades, err := a.parser.Trades(result, m)
	if err != nil {
		return nil, err
	}
	return market.FilterTrades(trades, since, limit), nil
}

func (a *BiboxAdapter) FetchOrderBook(ctx context.Context, symbol string, limit int, params Params) (market.OrderBook, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.OrderBook{}, err
	}
	m, err := a.Market(symbol)
	if err != nil {
		return market.OrderBook{}, err
	}
	req := Params{"cmd": "depth", "pair": m.ID}
	if limit > 0 {
		req["size"] = limit
	}
	body, err := a.Request(ctx, biboxMdata, req.Extend(params))
	if err != nil {
		return market.OrderBook{}, err
	}
	result, err := parsers.Unwrap(body, "result")
	if err != nil {
		return market.OrderBook{}, err
	}
	ob, err := a.parser.OrderBook(result, m)
	if err != nil {
		return ob, err
	}
	ob.Truncate(limit)
	return ob, nil
}

// FetchOHLCV: v4 candles; since и params["until"] взаимоисключающие
func (a *BiboxAdapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int, params Params) ([]market.OHLCV, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	m, err := a.Market(symbol)
	if err != nil {
		return nil, err
	}
	tf, err := a.Timeframe(timeframe)
	if err != nil {
		return nil, err
	}
	until := params.String("until")
	req := Params{"symbol": m.ID, "time_frame": tf}
	if limit > 0 {
		req["limit"] = limit
	}
	switch {
	case !since.IsZero() && until != "":
		return nil, a.Fail(BadRequest, "fetchOHLCV cannot take both a since parameter and params[\"until\"]")
	case !since.IsZero():
		req["after"] = since.UnixMilli()
	case until != "":
		req["before"] = until
	}
	body, err := a.Request(ctx, biboxCandles, req.Extend(params.Omit("until")))
	if err != nil {
		return nil, err
	}
	rows := gjson.ParseBytes(body)
	if e := rows.Get("e"); rows.IsObject() && e.Exists() {
		rows = e
	}
	candles, err := a.parser.OHLCV(rows)
	if err != nil {
		return nil, err
	}
	return market.FilterOHLCV(candles, since, limit), nil
}

// FetchBalance: params["type"] выбирает assets или mainAssets
func (a *BiboxAdapter) FetchBalance(ctx context.Context, params Params) (*market.Balances, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	kind := params.String("type")
	if kind == "" {
		kind = "assets"
	}
	body, _, err := a.command(ctx, biboxTransfer, "transfer/"+kind, Params{"select": 1}.Extend(params.Omit("type")))
	if err != nil {
		return nil, err
	}
	return a.parser.Balance(body)
}

func (a *BiboxAdapter) fetchTransfers(ctx context.Context, cmd string, kind market.TransactionType, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	req := Params{"page": 1, "size": limit}
	var currency *market.Currency
	if code != "" {
		c, err := a.Currency(code)
		if err != nil {
			return nil, err
		}
		currency = c
		req["symbol"] = c.ID
	}
	_, first, err := a.command(ctx, biboxTransfer, cmd, req.Extend(params))
	if err != nil {
		return nil, err
	}
	txs, err := a.parser.Transactions(first.Get("result.items"), kind, currency)
	if err != nil {
		return nil, err
	}
	return market.FilterTransactions(txs, code, since, limit), nil
}

func (a *BiboxAdapter) FetchDeposits(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
	return a.fetchTransfers(ctx, "transfer/transferInList", market.TransactionDeposit, code, since, limit, params)
}

func (a *BiboxAdapter) FetchWithdrawals(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
	return a.fetchTransfers(ctx, "transfer/transferOutList", market.TransactionWithdrawal, code, since, limit, params)
}

// CreateOrder: биржа возвращает только id ордера
func (a *BiboxAdapter) CreateOrder(ctx context.Context, symbol, orderType string, side market.Side, amount, price string, params Params) (market.Order, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.Order{}, err
	}
	m, err := a.Market(symbol)
	if err != nil {
		return market.Order{}, err
	}
	typeCode := 1
	if orderType == "limit" {
		typeCode = 2
	}
	sideCode := 2
	if side == market.SideBuy {
		sideCode = 1
	}
	req := Params{
		"pair":         m.ID,
		"account_type": 0,
		"order_type":   typeCode,
		"order_side":   sideCode,
		"pay_bix":      0,
		"amount":       amount,
	}
	if price != "" {
		req["price"] = price
	}
	body, first, err := a.command(ctx, biboxOrderpending, "orderpending/trade", req.Extend(params))
	if err != nil {
		return market.Order{}, err
	}
	a.Logger().Info("[BIBOX] order placed: %s %s %s %s @ %s", symbol, side, orderType, amount, price)
	return market.Order{
		ID:     first.Get("result").String(),
		Symbol: m.Symbol,
		Type:   orderType,
		Side:   side,
		Amount: amount,
		Price:  price,
		Info:   body,
	}, nil
}

func (a *BiboxAdapter) CancelOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error) {
	_, first, err := a.command(ctx, biboxOrderpending, "orderpending/cancelTrade", Params{"orders_id": id}.Extend(params))
	if err != nil {
		return market.Order{}, err
	}
	o := market.Order{ID: id, Symbol: symbol}
	if first.Exists() {
		o.Info = []byte(first.Raw)
	}
	return o, nil
}

func (a *BiboxAdapter) FetchOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.Order{}, err
	}
	_, first, err := a.command(ctx, biboxOrderpending, "orderpending/order", Params{"id": id, "account_type": 0}.Extend(params))
	if err != nil {
		return market.Order{}, err
	}
	order := first.Get("result")
	if !order.IsObject() || len(order.Map()) == 0 {
		return market.Order{}, a.Fail(OrderNotFound, "order %s not found", id)
	}
	return a.parser.Order(order, nil)
}

func (a *BiboxAdapter) fetchOrderList(ctx context.Context, cmd string, m *market.Market, since time.Time, limit int, params Params) ([]market.Order, error) {
	size := limit
	if size <= 0 {
		size = 200
	}
	req := Params{"account_type": 0, "page": 1, "size": size}
	if m != nil {
		req["pair"] = m.ID
	}
	_, first, err := a.command(ctx, biboxOrderpending, cmd, req.Extend(params))
	if err != nil {
		return nil, err
	}
	orders, err := a.parser.Orders(first.Get("result.items"), m)
	if err != nil {
		return nil, err
	}
	return market.FilterOrders(orders, since, limit), nil
}

func (a *BiboxAdapter) FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	var m *market.Market
	if symbol != "" {
		var err error
		if m, err = a.Market(symbol); err != nil {
			return nil, err
		}
	}
	return a.fetchOrderList(ctx, "orderpending/orderPendingList", m, since, limit, params)
}

func (a *BiboxAdapter) FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	if symbol == "" {
		return nil, a.ArgumentsRequired("fetchClosedOrders", "symbol")
	}
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	m, err := a.Market(symbol)
	if err != nil {
		return nil, err
	}
	return a.fetchOrderList(ctx, "orderpending/pendingHistoryList", m, since, limit, params)
}

func (a *BiboxAdapter) FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error) {
	if symbol == "" {
		return nil, a.ArgumentsRequired("fetchMyTrades", "symbol")
	}
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	m, err := a.Market(symbol)
	if err != nil {
		return nil, err
	}
	size := limit
	if size <= 0 {
		size = 200
	}
	req := Params{
		"pair":            m.ID,
		"account_type":    0,
		"page":            1,
		"size":            size,
		"coin_symbol":     m.BaseID,
		"currency_symbol": m.QuoteID,
	}
	_, first, err := a.command(ctx, biboxOrderpending, "orderpending/orderHistoryList", req.Extend(params))
	if err != nil {
		return nil, err
	}
	trades, err := a.parser.Trades(first.Get("result.items"), m)
	if err != nil {
		return nil, err
	}
	return market.FilterTrades(trades, since, limit), nil
}

func (a *BiboxAdapter) FetchDepositAddress(ctx context.Context, code string, params Params) (market.DepositAddress, error) {
	if _, err := a.LoadMarkets(ctx, false); err != nil {
		return market.DepositAddress{}, err
	}
	c, err := a.Currency(code)
	if err != nil {
		return market.DepositAddress{}, err
	}
	body, first, err := a.command(ctx, biboxTransfer, "transfer/transferIn", Params{"coin_symbol": c.ID}.Extend(params))
	if err != nil {
		return market.DepositAddress{}, err
	}
	result := first.Get("result")
	if !result.Exists() {
		return market.DepositAddress{}, errors.Wrap(parsers.ErrMissingField, "bibox transferIn result")
	}
	return a.parser.DepositAddress(result, code, body), nil
}

// Withdraw требует торговый пароль (Credentials.Password или trade_pwd) и totp_code
func (a *BiboxAdapter) Withdraw(ctx context.Context, code, amount, address, tag string, params Params) (market.Transaction, error) {
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
	password := a.Credentials().Password
	if password == "" && !params.Has("trade_pwd") {
		return market.Transaction{}, a.Fail(ExchangeError, "withdraw() requires a password credential or a trade_pwd parameter")
	}
	if !params.Has("totp_code") {
		return market.Transaction{}, a.Fail(ExchangeError, "withdraw() requires a totp_code parameter for 2FA authentication")
	}
	req := Params{
		"coin_symbol": c.ID,
		"amount":      amount,
		"addr":        address,
	}
	if password != "" {
		req["trade_pwd"] = password
	}
	if tag != "" {
		req["address_remark"] = tag
	}
	_, first, err := a.command(ctx, biboxTransfer, "transfer/transferOut", req.Extend(params))
	if err != nil {
		return market.Transaction{}, err
	}
	tx, err := a.parser.Transaction(first, market.TransactionWithdrawal, c)
	if err != nil {
		return tx, err
	}
	if tx.Amount == "" {
		tx.Amount = precise.Normalize(amount)
	}
	if tx.Address == "" {
		tx.Address = address
	}
	return tx, nil
}

// FetchTransactionFees запрашивает transfer/coinConfig по каждой валюте
func (a *BiboxAdapter) FetchTransactionFees(ctx context.Context, codes []string, params Params) (map[string]market.TransactionFee, error) {
	set, err := a.LoadMarkets(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		for _, c := range set.Currencies() {
			codes = append(codes, c.Code)
		}
	}
	out := make(map[string]market.TransactionFee, len(codes))
	for _, code := range codes {
		c, err := a.Currency(code)
		if err != nil {
			return nil, err
		}
		_, first, err := a.command(ctx, biboxTransfer, "transfer/coinConfig", Params{"coin_symbol": c.ID}.Extend(params))
		if err != nil {
			return nil, err
		}
		cfg := first.Get("result.0")
		out[code] = market.TransactionFee{
			Currency: code,
			Withdraw: precise.Normalize(cfg.Get("withdraw_fee").String()),
			Info:     []byte(cfg.Raw),
		}
	}
	return out, nil
}
