package parsers

import (
	"encoding/json"
	"strings"

	"ct-exchange/internal/market"
	"ct-exchange/internal/precise"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// QtradeParser - разбор ответов qTrade v1 (envelope {"data": {...}})
type QtradeParser struct {
	resolver market.Resolver
}

func NewQtradeParser(r market.Resolver) *QtradeParser {
	return &QtradeParser{resolver: r}
}

type qtradeMarket struct {
	ID               Str `json:"id"`
	MarketString     Str `json:"market_string"` // LTC_BTC
	MarketCurrency   Str `json:"market_currency"`
	BaseCurrency     Str `json:"base_currency"` // котируемая валюта
	CanView          Str `json:"can_view"`
	CanTrade         Str `json:"can_trade"`
	TakerFee         Str `json:"taker_fee"`
	MakerFee         Str `json:"maker_fee"`
	MarketPrecision  Str `json:"market_precision"`
	BasePrecision    Str `json:"base_precision"`
	MinimumSellValue Str `json:"minimum_sell_value"`
	MinimumBuyValue  Str `json:"minimum_buy_value"`
}

type qtradeCurrency struct {
	Code             Str `json:"code"`
	LongName         Str `json:"long_name"`
	Type             Str `json:"type"`
	Precision        Str `json:"precision"`
	Status           Str `json:"status"`
	CanWithdraw      Str `json:"can_withdraw"`
	WithdrawDisabled Str `json:"withdraw_disabled"`
	DepositDisabled  Str `json:"deposit_disabled"`
	MinimumOrder     Str `json:"minimum_order"`
	Config           struct {
		WithdrawFee Str `json:"withdraw_fee"`
	} `json:"config"`
}

type qtradeTicker struct {
	IDHr            Str `json:"id_hr"` // LTC_BTC
	LastChange      Str `json:"last_change"`
	DayOpen         Str `json:"day_open"`
	Last            Str `json:"last"`
	DayChange       Str `json:"day_change"` // доля, 0.05 = 5%
	DayAvgPrice     Str `json:"day_avg_price"`
	DayVolumeMarket Str `json:"day_volume_market"`
	DayVolumeBase   Str `json:"day_volume_base"`
	DayHigh         Str `json:"day_high"`
	DayLow          Str `json:"day_low"`
	Bid             Str `json:"bid"`
	Ask             Str `json:"ask"`
}

type qtradeTrade struct {
	ID           Str `json:"id"`
	CreatedAtTs  Str `json:"created_at_ts"` // µs
	CreatedAt    Str `json:"created_at"`
	Side         Str `json:"side"`
	MarketString Str `json:"market_string"`
	BaseVolume   Str `json:"base_volume"`
	BaseAmount   Str `json:"base_amount"`
	Price        Str `json:"price"`
	MarketAmount Str `json:"market_amount"`
	Amount       Str `json:"amount"`
	BaseFee      Str `json:"base_fee"`
	Taker        Str `json:"taker"`
	OrderID      Str `json:"order_id"`
}

type qtradeSlice struct {
	Time         Str `json:"time"`
	Open         Str `json:"open"`
	High         Str `json:"high"`
	Low          Str `json:"low"`
	Close        Str `json:"close"`
	MarketVolume Str `json:"market_volume"`
}

type qtradeBalance struct {
	Currency Str `json:"currency"`
	Balance  Str `json:"balance"`
}

type qtradeOrder struct {
	ID                    Str `json:"id"`
	CreatedAt             Str `json:"created_at"`
	OrderType             Str `json:"order_type"` // buy_limit, sell_limit
	Price                 Str `json:"price"`
	MarketAmount          Str `json:"market_amount"`
	MarketAmountRemaining Str `json:"market_amount_remaining"`
	Open                  Str `json:"open"`
	CloseReason           Str `json:"close_reason"`
	MarketString          Str `json:"market_string"`
}

type qtradeTransaction struct {
	ID              Str  `json:"id"`
	CreatedAt       Str  `json:"created_at"`
	Address         Str  `json:"address"`
	Amount          Str  `json:"amount"`
	Currency        Str  `json:"currency"`
	Status          Str  `json:"status"`
	Code            Str  `json:"code"`
	CancelRequested *Str `json:"cancel_requested"`
	NetworkData     struct {
		TxID       Str `json:"txid"`
		UnsignedTx struct {
			From Str `json:"from"`
		} `json:"unsigned_tx"`
	} `json:"network_data"`
}

var qtradeTransactionStatuses = map[string]market.TransactionStatus{
	"initiated":    market.TransactionStatusPending,
	"needs_create": market.TransactionStatusPending,
	"credited":     market.TransactionStatusOK,
	"confirmed":    market.TransactionStatusOK,
}

// QtradeTransactionStatus - статус ввода/вывода; неизвестный возвращается как есть
func QtradeTransactionStatus(status string) market.TransactionStatus {
	if s, ok := qtradeTransactionStatuses[status]; ok {
		return s
	}
	return market.TransactionStatus(status)
}

// SplitAddressTag делит "address:tag"; без двоеточия тег пустой
func SplitAddressTag(address string) (string, string) {
	parts := strings.Split(address, ":")
	if len(parts) > 1 {
		return parts[0], parts[1]
	}
	return address, ""
}

// boolOr - значение флага или def, если поле отсутствует
func boolOr(s Str, def bool) bool {
	if s == "" {
		return def
	}
	return s.Bool()
}

// Markets разбирает data.markets
func (p *QtradeParser) Markets(items gjson.Result) ([]market.Market, error) {
	var out []market.Market
	for _, item := range items.Array() {
		var raw qtradeMarket
		if err := Decode(item, &raw); err != nil {
			return nil, errors.Wrap(err, "qtrade market")
		}
		if err := Require("market_string", raw.MarketString, "market_currency", raw.MarketCurrency, "base_currency", raw.BaseCurrency); err != nil {
			return nil, err
		}
		baseID := string(raw.MarketCurrency)
		quoteID := string(raw.BaseCurrency)
		base := p.resolver.CurrencyCode(baseID)
		quote := p.resolver.CurrencyCode(quoteID)
		out = append(out, market.Market{
			ID:        string(raw.MarketString),
			NumericID: string(raw.ID),
			Symbol:    market.SymbolSpec{Base: base, Quote: quote}.String(),
			Base:      base,
			Quote:     quote,
			BaseID:    baseID,
			QuoteID:   quoteID,
			Type:      market.MarketTypeSpot,
			Spot:      true,
			Active:    raw.CanTrade.Bool() && raw.CanView.Bool(),
			Taker:     raw.TakerFee.Num(),
			Maker:     raw.MakerFee.Num(),
			Precision: market.Precision{
				Amount: precise.PrecisionFromDigits(string(raw.MarketPrecision)),
				Price:  precise.PrecisionFromDigits(string(raw.BasePrecision)),
			},
			Limits: market.Limits{
				Amount: market.MinMax{Min: raw.MinimumSellValue.Num()},
				Cost:   market.MinMax{Min: raw.MinimumBuyValue.Num()},
			},
			Info: rawJSON(item),
		})
	}
	return out, nil
}

// Currencies разбирает data.currencies
func (p *QtradeParser) Currencies(items gjson.Result) ([]market.Currency, error) {
	var out []market.Currency
	for _, item := range items.Array() {
		var raw qtradeCurrency
		if err := Decode(item, &raw); err != nil {
			return nil, errors.Wrap(err, "qtrade currency")
		}
		if err := Require("code", raw.Code); err != nil {
			return nil, err
		}
		deposit := !boolOr(raw.DepositDisabled, false)
		withdraw := boolOr(raw.CanWithdraw, true) && !boolOr(raw.WithdrawDisabled, false)
		out = append(out, market.Currency{
			ID:        string(raw.Code),
			Code:      p.resolver.CurrencyCode(string(raw.Code)),
			Name:      string(raw.LongName),
			Type:      string(raw.Type),
			Precision: precise.PrecisionFromDigits(string(raw.Precision)),
			Active:    deposit && withdraw && raw.Status == "ok",
			Deposit:   deposit,
			Withdraw:  withdraw,
			Fee:       raw.Config.WithdrawFee.Num(),
			Limits: market.CurrencyLimits{
				Amount: market.MinMax{Min: raw.MinimumOrder.Num()},
			},
			Info: rawJSON(item),
		})
	}
	return out, nil
}

// OHLCV разбирает data.slices
func (p *QtradeParser) OHLCV(items gjson.Result) ([]market.OHLCV, error) {
	var raw []qtradeSlice
	if err := Decode(items, &raw); err != nil {
		return nil, errors.Wrap(err, "qtrade slices")
	}
	out := make([]market.OHLCV, 0, len(raw))
	for _, s := range raw {
		out = append(out, market.OHLCV{
			Timestamp: FromISO8601(s.Time),
			Open:      s.Open.Num(),
			High:      s.High.Num(),
			Low:       s.Low.Num(),
			Close:     s.Close.Num(),
			Volume:    s.MarketVolume.Num(),
		})
	}
	return out, nil
}

// OrderBook разбирает data: {"buy": {price: amount}, "sell": {...}, "last_change": µs}
func (p *QtradeParser) OrderBook(data gjson.Result, symbol string) (market.OrderBook, error) {
	if !data.IsObject() {
		return market.OrderBook{}, errors.Wrap(ErrMissingField, "qtrade orderbook data")
	}
	ob := market.OrderBook{
		Symbol:    symbol,
		Timestamp: FromMicros(Str(data.Get("last_change").String())),
	}
	levels := func(side gjson.Result) []market.PriceLevel {
		var out []market.PriceLevel
		side.ForEach(func(price, amount gjson.Result) bool {
			out = append(out, market.PriceLevel{
				Price:  precise.Normalize(price.String()),
				Amount: precise.Normalize(amount.String()),
			})
			return true
		})
		return out
	}
	ob.Bids = levels(data.Get("buy"))
	ob.Asks = levels(data.Get("sell"))
	ob.SortBook()
	return ob, nil
}

// Ticker: percentage = day_change * 100, change = day_change * day_open
func (p *QtradeParser) Ticker(item gjson.Result, m *market.Market) (market.Ticker, error) {
	var raw qtradeTicker
	if err := Decode(item, &raw); err != nil {
		return market.Ticker{}, errors.Wrap(err, "qtrade ticker")
	}
	open := raw.DayOpen.Num()
	dayChange := raw.DayChange.Num()
	t := market.Ticker{
		Symbol:      market.SafeSymbol(p.resolver, string(raw.IDHr), m, "_"),
		Timestamp:   FromMicros(raw.LastChange),
		High:        raw.DayHigh.Num(),
		Low:         raw.DayLow.Num(),
		Bid:         raw.Bid.Num(),
		Ask:         raw.Ask.Num(),
		Open:        open,
		Last:        raw.Last.Num(),
		Change:      precise.Mul(dayChange, open),
		Percentage:  precise.Mul(dayChange, "100"),
		Average:     raw.DayAvgPrice.Num(),
		BaseVolume:  raw.DayVolumeMarket.Num(),
		QuoteVolume: raw.DayVolumeBase.Num(),
		Info:        rawJSON(item),
	}
	t.Complete()
	return t, nil
}

// Tickers разбирает data.markets из tickers
func (p *QtradeParser) Tickers(items gjson.Result) ([]market.Ticker, error) {
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

// Trade - публичная сделка или своя (trades)
func (p *QtradeParser) Trade(item gjson.Result, m *market.Market) (market.Trade, error) {
	var raw qtradeTrade
	if err := Decode(item, &raw); err != nil {
		return market.Trade{}, errors.Wrap(err, "qtrade trade")
	}
	ts := FromMicros(raw.CreatedAtTs)
	if raw.CreatedAtTs == "" {
		ts = FromISO8601(raw.CreatedAt)
	}
	m = market.SafeMarket(p.resolver, string(raw.MarketString), m)
	cost := raw.BaseVolume
	if cost == "" {
		cost = raw.BaseAmount
	}
	amount := raw.MarketAmount
	if amount == "" {
		amount = raw.Amount
	}
	takerOrMaker := "taker"
	if !boolOr(raw.Taker, true) {
		takerOrMaker = "maker"
	}
	t := market.Trade{
		ID:           string(raw.ID),
		Order:        string(raw.OrderID),
		Timestamp:    ts,
		Side:         market.Side(raw.Side),
		TakerOrMaker: takerOrMaker,
		Price:        raw.Price.Num(),
		Amount:       amount.Num(),
		Cost:         cost.Num(),
		Info:         rawJSON(item),
	}
	if m != nil {
		t.Symbol = m.Symbol
	} else {
		t.Symbol = market.SafeSymbol(p.resolver, string(raw.MarketString), nil, "_")
	}
	if raw.BaseFee != "" {
		t.Fee = &market.Fee{Cost: raw.BaseFee.Num()}
		if m != nil {
			t.Fee.Currency = m.Quote
		}
	}
	t.Complete()
	return t, nil
}

// Trades - список сделок
func (p *QtradeParser) Trades(items gjson.Result, m *market.Market) ([]market.Trade, error) {
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

// Balance: data.balances - свободные средства, data.order_balances - в ордерах
func (p *QtradeParser) Balance(body []byte) (*market.Balances, error) {
	data, err := Unwrap(body, "data")
	if err != nil {
		return nil, err
	}
	var free, used []qtradeBalance
	if err := Decode(data.Get("balances"), &free); err != nil {
		return nil, errors.Wrap(err, "qtrade balances")
	}
	if err := Decode(data.Get("order_balances"), &used); err != nil {
		return nil, errors.Wrap(err, "qtrade order balances")
	}
	b := market.NewBalances()
	b.Info = json.RawMessage(body)
	for _, bal := range free {
		code := p.resolver.CurrencyCode(string(bal.Currency))
		b.Currencies[code] = market.Balance{Free: bal.Balance.Num(), Used: "0"}
	}
	for _, bal := range used {
		code := p.resolver.CurrencyCode(string(bal.Currency))
		acc := b.Currencies[code]
		acc.Used = bal.Balance.Num()
		b.Currencies[code] = acc
	}
	b.Complete()
	return b, nil
}

// Order: тип и сторона из order_type ("buy_limit"), статус из open и close_reason
func (p *QtradeParser) Order(item gjson.Result, m *market.Market) (market.Order, error) {
	var raw qtradeOrder
	if err := Decode(item, &raw); err != nil {
		return market.Order{}, errors.Wrap(err, "qtrade order")
	}
	var side market.Side
	var orderType string
	if raw.OrderType != "" {
		parts := strings.SplitN(string(raw.OrderType), "_", 2)
		side = market.Side(parts[0])
		if len(parts) > 1 {
			orderType = parts[1]
		}
	}
	status := market.OrderStatusClosed
	switch {
	case raw.Open.Bool():
		status = market.OrderStatusOpen
	case raw.CloseReason == "canceled":
		status = market.OrderStatusCanceled
	}
	o := market.Order{
		ID:        string(raw.ID),
		Timestamp: FromISO8601(raw.CreatedAt),
		Symbol:    market.SafeSymbol(p.resolver, string(raw.MarketString), m, "_"),
		Type:      orderType,
		Side:      side,
		Price:     raw.Price.Num(),
		Amount:    raw.MarketAmount.Num(),
		Remaining: raw.MarketAmountRemaining.Num(),
		Status:    status,
		Info:      rawJSON(item),
	}
	trades, err := p.Trades(item.Get("trades"), market.SafeMarket(p.resolver, string(raw.MarketString), m))
	if err != nil {
		return o, err
	}
	o.Trades = trades
	o.Complete()
	return o, nil
}

// Orders - список ордеров
func (p *QtradeParser) Orders(items gjson.Result, m *market.Market) ([]market.Order, error) {
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

// Transaction: наличие cancel_requested отличает вывод от депозита;
// cancel_requested=true даёт canceled, иначе статус, а при его отсутствии code.
func (p *QtradeParser) Transaction(item gjson.Result) (market.Transaction, error) {
	var raw qtradeTransaction
	if err := Decode(item, &raw); err != nil {
		return market.Transaction{}, errors.Wrap(err, "qtrade transaction")
	}
	address, tag := SplitAddressTag(string(raw.Address))
	kind := market.TransactionDeposit
	if raw.CancelRequested != nil {
		kind = market.TransactionWithdrawal
	}
	var status market.TransactionStatus
	switch {
	case raw.CancelRequested != nil && raw.CancelRequested.Bool():
		status = market.TransactionStatusCanceled
	case raw.Status != "":
		status = QtradeTransactionStatus(string(raw.Status))
	default:
		status = QtradeTransactionStatus(string(raw.Code))
	}
	return market.Transaction{
		ID:          string(raw.ID),
		TxID:        string(raw.NetworkData.TxID),
		Timestamp:   FromISO8601(raw.CreatedAt),
		AddressFrom: string(raw.NetworkData.UnsignedTx.From),
		Address:     address,
		AddressTo:   address,
		Tag:         tag,
		TagTo:       tag,
		Type:        kind,
		Amount:      raw.Amount.Num(),
		Currency:    p.resolver.CurrencyCode(string(raw.Currency)),
		Status:      status,
		Info:        rawJSON(item),
	}, nil
}

// Transactions - список вводов или выводов
func (p *QtradeParser) Transactions(items gjson.Result) ([]market.Transaction, error) {
	var out []market.Transaction
	for _, item := range items.Array() {
		tx, err := p.Transaction(item)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// DepositAddress: адрес с тегом через двоеточие
func (p *QtradeParser) DepositAddress(data gjson.Result, code string) (market.DepositAddress, error) {
	full := data.Get("address").String()
	if full == "" {
		return market.DepositAddress{}, errors.Wrap(ErrMissingField, "address")
	}
	address, tag := SplitAddressTag(full)
	return market.DepositAddress{Currency: code, Address: address, Tag: tag, Info: rawJSON(data)}, nil
}

// TradingFee - комиссии из data.market
func (p *QtradeParser) TradingFee(item gjson.Result, symbol string) market.TradingFee {
	return market.TradingFee{
		Symbol:     symbol,
		Maker:      precise.Normalize(item.Get("maker_fee").String()),
		Taker:      precise.Normalize(item.Get("taker_fee").String()),
		Percentage: true,
		TierBased:  true,
		Info:       rawJSON(item),
	}
}
