package parsers

import (
	"encoding/json"
	"strings"

	"ct-exchange/internal/market"
	"ct-exchange/internal/precise"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// BiboxParser - разбор ответов Bibox v1/v4
type BiboxParser struct {
	resolver market.Resolver
}

func NewBiboxParser(r market.Resolver) *BiboxParser {
	return &BiboxParser{resolver: r}
}

// biboxDisabledArea - зона листинга, пары из которой не торгуются
const biboxDisabledArea = 16

type biboxPair struct {
	ID          Str `json:"id"`
	Pair        Str `json:"pair"` // BIX_BTC
	AreaID      Str `json:"area_id"`
	Decimal     Str `json:"decimal"`      // знаков цены
	AmountScale Str `json:"amount_scale"` // знаков объёма
}

type biboxTicker struct {
	Pair           Str `json:"pair"`
	CoinSymbol     Str `json:"coin_symbol"`
	CurrencySymbol Str `json:"currency_symbol"`
	Timestamp      Str `json:"timestamp"`
	Last           Str `json:"last"`
	Change         Str `json:"change"`
	Percent        Str `json:"percent"` // "+1.25%"
	High           Str `json:"high"`
	Low            Str `json:"low"`
	Buy            Str `json:"buy"`
	BuyAmount      Str `json:"buy_amount"`
	Sell           Str `json:"sell"`
	SellAmount     Str `json:"sell_amount"`
	Vol            Str `json:"vol"`
	Vol24H         Str `json:"vol24H"`
	Amount         Str `json:"amount"` // объём в котируемой валюте
}

type biboxTrade struct {
	ID             Str `json:"id"`
	Pair           Str `json:"pair"`
	CoinSymbol     Str `json:"coin_symbol"`
	CurrencySymbol Str `json:"currency_symbol"`
	Time           Str `json:"time"`
	CreatedAt      Str `json:"createdAt"`
	Side           Str `json:"side"`
	OrderSide      Str `json:"order_side"`
	Price          Str `json:"price"`
	Amount         Str `json:"amount"`
	Fee            Str `json:"fee"`
	FeeSymbol      Str `json:"fee_symbol"`
}

type biboxLevel struct {
	Price  Str `json:"price"`
	Volume Str `json:"volume"`
}

type biboxDepth struct {
	Pair       Str          `json:"pair"`
	UpdateTime Str          `json:"update_time"`
	Bids       []biboxLevel `json:"bids"`
	Asks       []biboxLevel `json:"asks"`
}

type biboxCurrency struct {
	Symbol         Str `json:"symbol"`
	Name           Str `json:"name"`
	ValidDecimals  Str `json:"valid_decimals"`
	EnableDeposit  Str `json:"enable_deposit"`
	EnableWithdraw Str `json:"enable_withdraw"`
	WithdrawMin    Str `json:"withdraw_min"`
}

type biboxAsset struct {
	CoinSymbol Str `json:"coin_symbol"`
	Balance    Str `json:"balance"`
	Freeze     Str `json:"freeze"`
}

type biboxOrder struct {
	ID             Str `json:"id"`
	CoinSymbol     Str `json:"coin_symbol"`
	CurrencySymbol Str `json:"currency_symbol"`
	OrderType      Str `json:"order_type"`
	OrderSide      Str `json:"order_side"`
	CreatedAt      Str `json:"createdAt"`
	Price          Str `json:"price"`
	DealPrice      Str `json:"deal_price"`
	DealAmount     Str `json:"deal_amount"`
	Amount         Str `json:"amount"`
	DealMoney      Str `json:"deal_money"`
	Money          Str `json:"money"`
	Status         Str `json:"status"`
	Fee            Str `json:"fee"`
}

type biboxTransaction struct {
	ID         Str `json:"id"`
	Result     Str `json:"result"`
	ToAddress  Str `json:"to_address"`
	CoinSymbol Str `json:"coin_symbol"`
	CreatedAt  Str `json:"createdAt"`
	AddrRemark Str `json:"addr_remark"`
	Status     Str `json:"status"`
	Amount     Str `json:"amount"`
	Fee        Str `json:"fee"`
}

var biboxOrderStatuses = map[string]market.OrderStatus{
	"1": market.OrderStatusOpen,     // pending
	"2": market.OrderStatusOpen,     // part completed
	"3": market.OrderStatusClosed,   // completed
	"4": market.OrderStatusCanceled, // part canceled
	"5": market.OrderStatusCanceled,
	"6": market.OrderStatusCanceled, // canceling
}

var biboxTransactionStatuses = map[market.TransactionType]map[string]market.TransactionStatus{
	market.TransactionDeposit: {
		"1": market.TransactionStatusPending,
		"2": market.TransactionStatusOK,
	},
	market.TransactionWithdrawal: {
		"0": market.TransactionStatusPending,
		"3": market.TransactionStatusOK,
	},
}

// BiboxOrderStatus переводит код статуса; неизвестный код возвращается как есть
func BiboxOrderStatus(code string) market.OrderStatus {
	if s, ok := biboxOrderStatuses[code]; ok {
		return s
	}
	return market.OrderStatus(code)
}

// BiboxTransactionStatus - статус ввода/вывода с учётом типа операции
func BiboxTransactionStatus(code string, kind market.TransactionType) market.TransactionStatus {
	if s, ok := biboxTransactionStatuses[kind][code]; ok {
		return s
	}
	return market.TransactionStatus(code)
}

func biboxMarketID(pair, base, quote Str) string {
	if pair != "" {
		return string(pair)
	}
	if base != "" && quote != "" {
		return string(base) + "_" + string(quote)
	}
	return ""
}

// Markets собирает рынки из pairList и минимальных сумм tradeLimit (quote id -> min cost)
func (p *BiboxParser) Markets(pairs gjson.Result, minCosts map[string]string) ([]market.Market, error) {
	var out []market.Market
	for _, item := range pairs.Array() {
		var raw biboxPair
		if err := Decode(item, &raw); err != nil {
			return nil, errors.Wrap(err, "bibox pair")
		}
		if err := Require("pair", raw.Pair); err != nil {
			return nil, err
		}
		if raw.AreaID.Int() == biboxDisabledArea {
			continue
		}
		baseID, quoteID, ok := market.SplitMarketID(string(raw.Pair), "_")
		if !ok {
			return nil, errors.Errorf("bibox: unexpected pair format %q", raw.Pair)
		}
		base := p.resolver.CurrencyCode(baseID)
		quote := p.resolver.CurrencyCode(quoteID)
		out = append(out, market.Market{
			ID:        string(raw.Pair),
			NumericID: string(raw.ID),
			Symbol:    market.SymbolSpec{Base: base, Quote: quote}.String(),
			Base:      base,
			Quote:     quote,
			BaseID:    baseID,
			QuoteID:   quoteID,
			Type:      market.MarketTypeSpot,
			Spot:      true,
			Active:    true,
			Precision: market.Precision{
				Amount: precise.PrecisionFromDigits(string(raw.AmountScale)),
				Price:  precise.PrecisionFromDigits(string(raw.Decimal)),
			},
			Limits: market.Limits{
				Cost: market.MinMax{Min: precise.Normalize(minCosts[quoteID])},
			},
			Info: rawJSON(item),
		})
	}
	return out, nil
}

// MinCosts разбирает result.min_trade_money
func (p *BiboxParser) MinCosts(res gjson.Result) map[string]string {
	out := map[string]string{}
	res.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.String()
		return true
	})
	return out
}

// Ticker разбирает тикер mdata ticker/marketAll
func (p *BiboxParser) Ticker(item gjson.Result, m *market.Market) (market.Ticker, error) {
	var raw biboxTicker
	if err := Decode(item, &raw); err != nil {
		return market.Ticker{}, errors.Wrap(err, "bibox ticker")
	}
	marketID := ""
	if raw.CoinSymbol != "" && raw.CurrencySymbol != "" {
		marketID = string(raw.CoinSymbol) + "_" + string(raw.CurrencySymbol)
	}
	baseVolume := raw.Vol
	if baseVolume == "" {
		baseVolume = raw.Vol24H
	}
	t := market.Ticker{
		Symbol:      market.SafeSymbol(p.resolver, marketID, m, "_"),
		Timestamp:   FromMillis(raw.Timestamp),
		High:        raw.High.Num(),
		Low:         raw.Low.Num(),
		Bid:         raw.Buy.Num(),
		BidVolume:   raw.BuyAmount.Num(),
		Ask:         raw.Sell.Num(),
		AskVolume:   raw.SellAmount.Num(),
		Last:        raw.Last.Num(),
		Change:      raw.Change.Num(),
		Percentage:  precise.Normalize(strings.TrimSuffix(string(raw.Percent), "%")),
		BaseVolume:  baseVolume.Num(),
		QuoteVolume: raw.Amount.Num(),
		Info:        rawJSON(item),
	}
	t.Complete()
	return t, nil
}

// Tickers - список тикеров marketAll
func (p *BiboxParser) Tickers(items gjson.Result) ([]market.Ticker, error) {
	var out []market.Ticker
	for _, item := range items.Array() {
		t, err := p.Ticker(item, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Trade разбирает публичную (deals) или свою (orderHistoryList) сделку
func (p *BiboxParser) Trade(item gjson.Result, m *market.Market) (market.Trade, error) {
	var raw biboxTrade
	if err := Decode(item, &raw); err != nil {
		return market.Trade{}, errors.Wrap(err, "bibox trade")
	}
	ts := raw.Time
	if ts == "" {
		ts = raw.CreatedAt
	}
	sideCode := raw.Side
	if sideCode == "" {
		sideCode = raw.OrderSide
	}
	side := market.SideSell
	if sideCode.Int() == 1 {
		side = market.SideBuy
	}
	t := market.Trade{
		ID:        string(raw.ID),
		Timestamp: FromMillis(ts),
		Symbol:    market.SafeSymbol(p.resolver, biboxMarketID(raw.Pair, raw.CoinSymbol, raw.CurrencySymbol), m, "_"),
		Type:      "limit",
		Side:      side,
		Price:     raw.Price.Num(),
		Amount:    raw.Amount.Num(),
		Info:      rawJSON(item),
	}
	if raw.Fee != "" {
		t.Fee = &market.Fee{
			Cost:     precise.Neg(raw.Fee.Num()),
			Currency: p.resolver.CurrencyCode(string(raw.FeeSymbol)),
		}
	}
	t.Complete()
	return t, nil
}

// Trades - список сделок
func (p *BiboxParser) Trades(items gjson.Result, m *market.Market) ([]market.Trade, error) {
	var out []market.Trade
	for _, item := range items.Array() {
		t, err := p.Trade(item, m)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// OrderBook разбирает mdata depth
func (p *BiboxParser) OrderBook(item gjson.Result, m *market.Market) (market.OrderBook, error) {
	var raw biboxDepth
	if err := Decode(item, &raw); err != nil {
		return market.OrderBook{}, errors.Wrap(err, "bibox depth")
	}
	ob := market.OrderBook{
		Symbol:    market.SafeSymbol(p.resolver, string(raw.Pair), m, "_"),
		Timestamp: FromMillis(raw.UpdateTime),
	}
	for _, l := range raw.Bids {
		ob.Bids = append(ob.Bids, market.PriceLevel{Price: l.Price.Num(), Amount: l.Volume.Num()})
	}
	for _, l := range raw.Asks {
		ob.Asks = append(ob.Asks, market.PriceLevel{Price: l.Price.Num(), Amount: l.Volume.Num()})
	}
	ob.SortBook()
	return ob, nil
}

// OHLCV разбирает v4 candles: [[time, open, high, low, close, volume, ...]]
func (p *BiboxParser) OHLCV(items gjson.Result) ([]market.OHLCV, error) {
	var rows [][]Str
	if err := Decode(items, &rows); err != nil {
		return nil, errors.Wrap(err, "bibox candles")
	}
	out := make([]market.OHLCV, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			return nil, errors.Wrapf(ErrMissingField, "bibox candle has %d fields", len(r))
		}
		out = append(out, market.OHLCV{
			Timestamp: FromMillis(r[0]),
			Open:      r[1].Num(),
			High:      r[2].Num(),
			Low:       r[3].Num(),
			Close:     r[4].Num(),
			Volume:    r[5].Num(),
		})
	}
	return out, nil
}

// Currencies разбирает cdata currencies (public) или transfer/coinList (private).
// У приватного списка точность всегда 1e-8.
func (p *BiboxParser) Currencies(items gjson.Result, private bool) ([]market.Currency, error) {
	var out []market.Currency
	for _, item := range items.Array() {
		var raw biboxCurrency
		if err := Decode(item, &raw); err != nil {
			return nil, errors.Wrap(err, "bibox currency")
		}
		if err := Require("symbol", raw.Symbol); err != nil {
			return nil, err
		}
		prec := precise.PrecisionFromDigits(string(raw.ValidDecimals))
		if private {
			prec = "0.00000001"
		}
		deposit := raw.EnableDeposit.Bool()
		withdraw := raw.EnableWithdraw.Bool()
		c := market.Currency{
			ID:        string(raw.Symbol),
			Code:      p.resolver.CurrencyCode(string(raw.Symbol)),
			Name:      string(raw.Name),
			Precision: prec,
			Active:    deposit && withdraw,
			Deposit:   deposit,
			Withdraw:  withdraw,
			Limits: market.CurrencyLimits{
				Amount: market.MinMax{Min: prec},
			},
			Info: rawJSON(item),
		}
		if !private {
			c.Limits.Withdraw.Min = raw.WithdrawMin.Num()
		}
		out = append(out, c)
	}
	return out, nil
}

// Balance разбирает assets_list
func (p *BiboxParser) Balance(body []byte) (*market.Balances, error) {
	list, err := Unwrap(body, "result.0.result.assets_list")
	if err != nil {
		return nil, err
	}
	b := market.NewBalances()
	b.Info = json.RawMessage(body)
	for _, item := range list.Array() {
		var raw biboxAsset
		if err := Decode(item, &raw); err != nil {
			return nil, errors.Wrap(err, "bibox asset")
		}
		code := p.resolver.CurrencyCode(string(raw.CoinSymbol))
		b.Currencies[code] = market.Balance{Free: raw.Balance.Num(), Used: raw.Freeze.Num()}
	}
	b.Complete()
	return b, nil
}

// Order разбирает ордер orderpending
func (p *BiboxParser) Order(item gjson.Result, m *market.Market) (market.Order, error) {
	var raw biboxOrder
	if err := Decode(item, &raw); err != nil {
		return market.Order{}, errors.Wrap(err, "bibox order")
	}
	orderType := "limit"
	if raw.OrderType == "1" {
		orderType = "market"
	}
	side := market.SideSell
	if raw.OrderSide == "1" {
		side = market.SideBuy
	}
	cost := raw.DealMoney
	if cost == "" {
		cost = raw.Money
	}
	o := market.Order{
		ID:        string(raw.ID),
		Timestamp: FromMillis(raw.CreatedAt),
		Symbol:    market.SafeSymbol(p.resolver, biboxMarketID("", raw.CoinSymbol, raw.CurrencySymbol), m, "_"),
		Type:      orderType,
		Side:      side,
		Price:     raw.Price.Num(),
		Amount:    raw.Amount.Num(),
		Filled:    raw.DealAmount.Num(),
		Average:   raw.DealPrice.Num(),
		Cost:      cost.Num(),
		Status:    BiboxOrderStatus(string(raw.Status)),
		Info:      rawJSON(item),
	}
	if raw.Fee != "" {
		o.Fee = &market.Fee{Cost: raw.Fee.Num()}
	}
	o.Complete()
	return o, nil
}

// Orders - список ордеров
func (p *BiboxParser) Orders(items gjson.Result, m *market.Market) ([]market.Order, error) {
	var out []market.Order
	for _, item := range items.Array() {
		o, err := p.Order(item, m)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Transaction разбирает запись transferInList/transferOutList или ответ transferOut.
// У депозитов комиссия нулевая, а тег не передаётся.
func (p *BiboxParser) Transaction(item gjson.Result, kind market.TransactionType, currency *market.Currency) (market.Transaction, error) {
	var raw biboxTransaction
	if err := Decode(item, &raw); err != nil {
		return market.Transaction{}, errors.Wrap(err, "bibox transaction")
	}
	id := raw.ID
	if id == "" {
		id = raw.Result
	}
	code := p.resolver.CurrencyCode(string(raw.CoinSymbol))
	if code == "" && currency != nil {
		code = currency.Code
	}
	tag := string(raw.AddrRemark)
	feeCost := raw.Fee.Num()
	if kind == market.TransactionDeposit {
		feeCost = "0"
		tag = ""
	}
	tx := market.Transaction{
		ID:        string(id),
		Timestamp: FromMillis(raw.CreatedAt),
		Address:   string(raw.ToAddress),
		Tag:       tag,
		Type:      kind,
		Amount:    raw.Amount.Num(),
		Currency:  code,
		Status:    BiboxTransactionStatus(string(raw.Status), kind),
		Info:      rawJSON(item),
	}
	if feeCost != "" {
		tx.Fee = &market.Fee{Cost: feeCost, Currency: code}
	}
	return tx, nil
}

// Transactions - список вводов или выводов
func (p *BiboxParser) Transactions(items gjson.Result, kind market.TransactionType, currency *market.Currency) ([]market.Transaction, error) {
	var out []market.Transaction
	for _, item := range items.Array() {
		tx, err := p.Transaction(item, kind, currency)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// DepositAddress: result - строка адреса либо JSON {"account": ..., "memo": ...}
func (p *BiboxParser) DepositAddress(result gjson.Result, code string, body []byte) market.DepositAddress {
	addr := market.DepositAddress{Currency: code, Address: result.String(), Info: json.RawMessage(body)}
	text := strings.TrimSpace(result.String())
	if strings.HasPrefix(text, "{") && gjson.Valid(text) {
		parsed := gjson.Parse(text)
		addr.Address = parsed.Get("account").String()
		addr.Tag = parsed.Get("memo").String()
	}
	return addr
}
