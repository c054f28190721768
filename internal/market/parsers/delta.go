package parsers

import (
	"encoding/json"
	"strings"

	"ct-exchange/internal/market"
	"ct-exchange/internal/precise"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// DeltaParser - разбор ответов Delta Exchange v2 (envelope {"success", "result"})
type DeltaParser struct {
	resolver market.Resolver
}

func NewDeltaParser(r market.Resolver) *DeltaParser {
	return &DeltaParser{resolver: r}
}

type deltaAssetRef struct {
	Symbol Str `json:"symbol"`
}

type deltaProduct struct {
	ID                  Str           `json:"id"`
	Symbol              Str           `json:"symbol"`
	ContractType        Str           `json:"contract_type"`
	State               Str           `json:"state"`
	UnderlyingAsset     deltaAssetRef `json:"underlying_asset"`
	QuotingAsset        deltaAssetRef `json:"quoting_asset"`
	SettlingAsset       deltaAssetRef `json:"settling_asset"`
	StrikePrice         Str           `json:"strike_price"`
	SettlementTime      Str           `json:"settlement_time"`
	ContractValue       Str           `json:"contract_value"`
	TickSize            Str           `json:"tick_size"`
	PositionSizeLimit   Str           `json:"position_size_limit"`
	MinSize             Str           `json:"min_size"`
	TakerCommissionRate Str           `json:"taker_commission_rate"`
	MakerCommissionRate Str           `json:"maker_commission_rate"`
	ProductSpecs        struct {
		UnderlyingPrecision Str `json:"underlying_precision"`
	} `json:"product_specs"`
}

type deltaAsset struct {
	ID                  Str `json:"id"`
	Symbol              Str `json:"symbol"`
	Name                Str `json:"name"`
	Precision           Str `json:"precision"`
	DepositStatus       Str `json:"deposit_status"`
	WithdrawalStatus    Str `json:"withdrawal_status"`
	BaseWithdrawalFee   Str `json:"base_withdrawal_fee"`
	MinWithdrawalAmount Str `json:"min_withdrawal_amount"`
}

type deltaTicker struct {
	Symbol    Str `json:"symbol"`
	Timestamp Str `json:"timestamp"` // µs
	Open      Str `json:"open"`
	High      Str `json:"high"`
	Low       Str `json:"low"`
	Close     Str `json:"close"`
	Volume    Str `json:"volume"`
	Turnover  Str `json:"turnover"`
}

type deltaLevel struct {
	Price Str `json:"price"`
	Size  Str `json:"size"`
}

type deltaBook struct {
	Buy  []deltaLevel `json:"buy"`
	Sell []deltaLevel `json:"sell"`
}

type deltaProductRef struct {
	Symbol        Str           `json:"symbol"`
	SettlingAsset deltaAssetRef `json:"settling_asset"`
}

type deltaTrade struct {
	ID         Str             `json:"id"`
	OrderID    Str             `json:"order_id"`
	CreatedAt  Str             `json:"created_at"`
	Timestamp  Str             `json:"timestamp"` // µs
	Price      Str             `json:"price"`
	Size       Str             `json:"size"`
	Side       Str             `json:"side"`
	SellerRole Str             `json:"seller_role"`
	Role       Str             `json:"role"`
	Commission Str             `json:"commission"`
	Product    deltaProductRef `json:"product"`
	MetaData   struct {
		OrderType Str `json:"order_type"`
	} `json:"meta_data"`
}

type deltaCandle struct {
	Time   Str `json:"time"` // секунды
	Open   Str `json:"open"`
	High   Str `json:"high"`
	Low    Str `json:"low"`
	Close  Str `json:"close"`
	Volume Str `json:"volume"`
}

type deltaBalance struct {
	AssetID          Str `json:"asset_id"`
	Balance          Str `json:"balance"`
	AvailableBalance Str `json:"available_balance"`
}

type deltaOrder struct {
	ID               Str `json:"id"`
	ClientOrderID    Str `json:"client_order_id"`
	CreatedAt        Str `json:"created_at"`
	ProductID        Str `json:"product_id"`
	State            Str `json:"state"`
	Side             Str `json:"side"`
	OrderType        Str `json:"order_type"`
	LimitPrice       Str `json:"limit_price"`
	Size             Str `json:"size"`
	UnfilledSize     Str `json:"unfilled_size"`
	AverageFillPrice Str `json:"average_fill_price"`
	PaidCommission   Str `json:"paid_commission"`
}

type deltaPosition struct {
	ProductID        Str `json:"product_id"`
	ProductSymbol    Str `json:"product_symbol"`
	Size             Str `json:"size"`
	EntryPrice       Str `json:"entry_price"`
	MarkPrice        Str `json:"mark_price"`
	LiquidationPrice Str `json:"liquidation_price"`
	Margin           Str `json:"margin"`
	UnrealizedPnl    Str `json:"unrealized_pnl"`
}

type deltaLedgerItem struct {
	UUID            Str `json:"uuid"`
	TransactionType Str `json:"transaction_type"`
	AssetID         Str `json:"asset_id"`
	Amount          Str `json:"amount"`
	Balance         Str `json:"balance"`
	CreatedAt       Str `json:"created_at"`
	MetaData        struct {
		TransactionID Str `json:"transaction_id"`
	} `json:"meta_data"`
}

var deltaOrderStatuses = map[string]market.OrderStatus{
	"open":      market.OrderStatusOpen,
	"pending":   market.OrderStatusOpen,
	"closed":    market.OrderStatusClosed,
	"cancelled": market.OrderStatusCanceled,
}

var deltaLedgerTypes = map[string]string{
	"pnl":               "pnl",
	"deposit":           "transaction",
	"withdrawal":        "transaction",
	"commission":        "fee",
	"conversion":        "trade",
	"referral_bonus":    "referral",
	"commission_rebate": "rebate",
}

var deltaLedgerDirections = map[string]string{
	"deposit":                   "in",
	"commission_rebate":         "in",
	"referral_bonus":            "in",
	"pnl":                       "in",
	"withdrawal_cancellation":   "in",
	"promo_credit":              "in",
	"withdrawal":                "out",
	"commission":                "out",
	"conversion":                "out",
	"perpetual_futures_funding": "out",
}

// DeltaOrderStatus - state ордера; неизвестное значение возвращается как есть
func DeltaOrderStatus(state string) market.OrderStatus {
	if s, ok := deltaOrderStatuses[state]; ok {
		return s
	}
	return market.OrderStatus(state)
}

// Markets разбирает products
func (p *DeltaParser) Markets(items gjson.Result) ([]market.Market, error) {
	var out []market.Market
	for _, item := range items.Array() {
		var raw deltaProduct
		if err := Decode(item, &raw); err != nil {
			return nil, errors.Wrap(err, "delta product")
		}
		if err := Require("symbol", raw.Symbol, "contract_type", raw.ContractType); err != nil {
			return nil, err
		}
		m, err := p.market(raw)
		if err != nil {
			return nil, err
		}
		m.Info = rawJSON(item)
		out = append(out, m)
	}
	return out, nil
}

func (p *DeltaParser) market(raw deltaProduct) (market.Market, error) {
	contractType := string(raw.ContractType)
	baseID := string(raw.UnderlyingAsset.Symbol)
	quoteID := string(raw.QuotingAsset.Symbol)
	settleID := string(raw.SettlingAsset.Symbol)
	base := p.resolver.CurrencyCode(baseID)
	quote := p.resolver.CurrencyCode(quoteID)
	settle := p.resolver.CurrencyCode(settleID)

	m := market.Market{
		ID:        string(raw.Symbol),
		NumericID: string(raw.ID),
		Base:      base,
		Quote:     quote,
		BaseID:    baseID,
		QuoteID:   quoteID,
		Active:    raw.State == "live",
		Taker:     raw.TakerCommissionRate.Num(),
		Maker:     raw.MakerCommissionRate.Num(),
		Precision: market.Precision{
			Amount: "1",
			Price:  raw.TickSize.Num(),
		},
		Limits: market.Limits{
			Amount: market.MinMax{Min: "1", Max: raw.PositionSizeLimit.Num()},
			Cost:   market.MinMax{Min: raw.MinSize.Num()},
		},
	}
	spec := market.SymbolSpec{Base: base, Quote: quote}

	switch contractType {
	case "spot":
		m.Type = market.MarketTypeSpot
		m.Spot = true
		m.Precision.Amount = precise.PrecisionFromDigits(string(raw.ProductSpecs.UnderlyingPrecision))
	case "perpetual_futures":
		m.Type = market.MarketTypeSwap
		m.Swap = true
	case "futures":
		m.Type = market.MarketTypeFuture
		m.Future = true
	case "call_options", "put_options", "move_options":
		m.Type = market.MarketTypeOption
		m.Option = true
		m.OptionType = strings.TrimSuffix(contractType, "_options")
		m.Strike = raw.StrikePrice.Num()
	default:
		// interest_rate_swaps, spreads и др.: символ совпадает с id биржи
		m.Type = market.MarketType(contractType)
	}

	if !m.Spot {
		linear := settle == base
		inverse := !linear
		m.Contract = true
		m.Linear = &linear
		m.Inverse = &inverse
		m.Settle = settle
		m.SettleID = settleID
		m.ContractSize = raw.ContractValue.Num()
		spec.Settle = settle
	}
	if m.Future || m.Option {
		m.Expiry = FromISO8601(raw.SettlementTime)
		if m.Expiry.IsZero() {
			return m, errors.Wrapf(ErrMissingField, "settlement_time for %s", raw.Symbol)
		}
		spec.Expiry = m.Expiry
	}
	if m.Option {
		spec.Strike = m.Strike
		spec.OptionType = m.OptionType
	}
	m.Symbol = spec.String()
	if !m.Spot && !m.Swap && !m.Future && !m.Option {
		m.Symbol = m.ID
	}
	return m, nil
}

// Currencies разбирает assets
func (p *DeltaParser) Currencies(items gjson.Result) ([]market.Currency, error) {
	var out []market.Currency
	for _, item := range items.Array() {
		var raw deltaAsset
		if err := Decode(item, &raw); err != nil {
			return nil, errors.Wrap(err, "delta asset")
		}
		if err := Require("symbol", raw.Symbol); err != nil {
			return nil, err
		}
		deposit := raw.DepositStatus == "enabled"
		withdraw := raw.WithdrawalStatus == "enabled"
		out = append(out, market.Currency{
			ID:        string(raw.Symbol),
			NumericID: string(raw.ID),
			Code:      p.resolver.CurrencyCode(string(raw.Symbol)),
			Name:      string(raw.Name),
			Precision: precise.PrecisionFromDigits(string(raw.Precision)),
			Active:    deposit && withdraw,
			Deposit:   deposit,
			Withdraw:  withdraw,
			Fee:       raw.BaseWithdrawalFee.Num(),
			Limits: market.CurrencyLimits{
				Withdraw: market.MinMax{Min: raw.MinWithdrawalAmount.Num()},
			},
			Info: rawJSON(item),
		})
	}
	return out, nil
}

// Ticker разбирает tickers / tickers/{symbol}
func (p *DeltaParser) Ticker(item gjson.Result, m *market.Market) (market.Ticker, error) {
	var raw deltaTicker
	if err := Decode(item, &raw); err != nil {
		return market.Ticker{}, errors.Wrap(err, "delta ticker")
	}
	t := market.Ticker{
		Symbol:      market.SafeSymbol(p.resolver, string(raw.Symbol), m, ""),
		Timestamp:   FromMicros(raw.Timestamp),
		High:        raw.High.Num(),
		Low:         raw.Low.Num(),
		Open:        raw.Open.Num(),
		Last:        raw.Close.Num(),
		BaseVolume:  raw.Volume.Num(),
		QuoteVolume: raw.Turnover.Num(),
		Info:        rawJSON(item),
	}
	t.Complete()
	return t, nil
}

// Tickers - все тикеры
func (p *DeltaParser) Tickers(items gjson.Result) ([]market.Ticker, error) {
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

// OrderBook разбирает l2orderbook: buy/sell [{price, size}]
func (p *DeltaParser) OrderBook(item gjson.Result, symbol string) (market.OrderBook, error) {
	var raw deltaBook
	if err := Decode(item, &raw); err != nil {
		return market.OrderBook{}, errors.Wrap(err, "delta orderbook")
	}
	ob := market.OrderBook{Symbol: symbol}
	for _, l := range raw.Buy {
		ob.Bids = append(ob.Bids, market.PriceLevel{Price: l.Price.Num(), Amount: l.Size.Num()})
	}
	for _, l := range raw.Sell {
		ob.Asks = append(ob.Asks, market.PriceLevel{Price: l.Price.Num(), Amount: l.Size.Num()})
	}
	ob.SortBook()
	return ob, nil
}

// Trade - публичная сделка или fill
func (p *DeltaParser) Trade(item gjson.Result, m *market.Market) (market.Trade, error) {
	var raw deltaTrade
	if err := Decode(item, &raw); err != nil {
		return market.Trade{}, errors.Wrap(err, "delta trade")
	}
	ts := FromISO8601(raw.CreatedAt)
	if raw.Timestamp != "" {
		ts = FromMicros(raw.Timestamp)
	}
	side := market.Side(raw.Side)
	if side == "" {
		switch raw.SellerRole {
		case "taker":
			side = market.SideSell
		case "maker":
			side = market.SideBuy
		}
	}
	t := market.Trade{
		ID:           string(raw.ID),
		Order:        string(raw.OrderID),
		Timestamp:    ts,
		Symbol:       market.SafeSymbol(p.resolver, string(raw.Product.Symbol), m, ""),
		Type:         strings.TrimSuffix(string(raw.MetaData.OrderType), "_order"),
		Side:         side,
		TakerOrMaker: string(raw.Role),
		Price:        raw.Price.Num(),
		Amount:       raw.Size.Num(),
		Info:         rawJSON(item),
	}
	if raw.Commission != "" {
		t.Fee = &market.Fee{
			Cost:     raw.Commission.Num(),
			Currency: p.resolver.CurrencyCode(string(raw.Product.SettlingAsset.Symbol)),
		}
	}
	t.Complete()
	return t, nil
}

// Trades - список сделок
func (p *DeltaParser) Trades(items gjson.Result, m *market.Market) ([]market.Trade, error) {
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

// OHLCV разбирает history/candles
func (p *DeltaParser) OHLCV(items gjson.Result) ([]market.OHLCV, error) {
	var raw []deltaCandle
	if err := Decode(items, &raw); err != nil {
		return nil, errors.Wrap(err, "delta candles")
	}
	out := make([]market.OHLCV, 0, len(raw))
	for _, c := range raw {
		out = append(out, market.OHLCV{
			Timestamp: FromSeconds(c.Time),
			Open:      c.Open.Num(),
			High:      c.High.Num(),
			Low:       c.Low.Num(),
			Close:     c.Close.Num(),
			Volume:    c.Volume.Num(),
		})
	}
	return out, nil
}

// Balance разбирает wallet/balances; валюта ищется по числовому asset_id
func (p *DeltaParser) Balance(body []byte) (*market.Balances, error) {
	list, err := Unwrap(body, "result")
	if err != nil {
		return nil, err
	}
	b := market.NewBalances()
	b.Info = json.RawMessage(body)
	for _, item := range list.Array() {
		var raw deltaBalance
		if err := Decode(item, &raw); err != nil {
			return nil, errors.Wrap(err, "delta balance")
		}
		code := string(raw.AssetID)
		if c, ok := p.resolver.CurrencyByNumericID(code); ok {
			code = c.Code
		}
		b.Currencies[code] = market.Balance{Free: raw.AvailableBalance.Num(), Total: raw.Balance.Num()}
	}
	b.Complete()
	return b, nil
}

// Order разбирает ордер; рынок определяется по product_id
func (p *DeltaParser) Order(item gjson.Result, m *market.Market) (market.Order, error) {
	var raw deltaOrder
	if err := Decode(item, &raw); err != nil {
		return market.Order{}, errors.Wrap(err, "delta order")
	}
	if found, ok := p.resolver.MarketByNumericID(string(raw.ProductID)); ok {
		m = found
	}
	symbol := string(raw.ProductID)
	if m != nil {
		symbol = m.Symbol
	}
	o := market.Order{
		ID:            string(raw.ID),
		ClientOrderID: string(raw.ClientOrderID),
		Timestamp:     FromISO8601(raw.CreatedAt),
		Symbol:        symbol,
		Type:          strings.TrimSuffix(string(raw.OrderType), "_order"),
		Side:          market.Side(raw.Side),
		Price:         raw.LimitPrice.Num(),
		Amount:        raw.Size.Num(),
		Remaining:     raw.UnfilledSize.Num(),
		Average:       raw.AverageFillPrice.Num(),
		Status:        DeltaOrderStatus(string(raw.State)),
		Info:          rawJSON(item),
	}
	if raw.PaidCommission != "" {
		fee := &market.Fee{Cost: raw.PaidCommission.Num()}
		if m != nil {
			fee.Currency = m.Settle
		}
		o.Fee = fee
	}
	o.Complete()
	return o, nil
}

// Orders - список ордеров
func (p *DeltaParser) Orders(items gjson.Result, m *market.Market) ([]market.Order, error) {
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

// Positions разбирает positions/margined
func (p *DeltaParser) Positions(items gjson.Result) ([]market.Position, error) {
	var out []market.Position
	for _, item := range items.Array() {
		var raw deltaPosition
		if err := Decode(item, &raw); err != nil {
			return nil, errors.Wrap(err, "delta position")
		}
		symbol := string(raw.ProductSymbol)
		if m, ok := p.resolver.MarketByNumericID(string(raw.ProductID)); ok {
			symbol = m.Symbol
		}
		side := "long"
		size := raw.Size.Num()
		if precise.Cmp(size, "0") < 0 {
			side = "short"
			size = precise.Neg(size)
		}
		out = append(out, market.Position{
			Symbol:           symbol,
			Side:             side,
			Contracts:        size,
			EntryPrice:       raw.EntryPrice.Num(),
			MarkPrice:        raw.MarkPrice.Num(),
			LiquidationPrice: raw.LiquidationPrice.Num(),
			Margin:           raw.Margin.Num(),
			UnrealizedPnl:    raw.UnrealizedPnl.Num(),
			Info:             rawJSON(item),
		})
	}
	return out, nil
}

// LedgerEntry разбирает запись wallet/transactions. before = max(0, after - amount).
func (p *DeltaParser) LedgerEntry(item gjson.Result, currency *market.Currency) (market.LedgerEntry, error) {
	var raw deltaLedgerItem
	if err := Decode(item, &raw); err != nil {
		return market.LedgerEntry{}, errors.Wrap(err, "delta ledger")
	}
	if c, ok := p.resolver.CurrencyByNumericID(string(raw.AssetID)); ok {
		currency = c
	}
	code := ""
	if currency != nil {
		code = currency.Code
	}
	kind := string(raw.TransactionType)
	entryType := kind
	if t, ok := deltaLedgerTypes[kind]; ok {
		entryType = t
	}
	amount := raw.Amount.Num()
	after := raw.Balance.Num()
	before := ""
	if after != "" && amount != "" {
		before = precise.Max("0", precise.Sub(after, amount))
	}
	return market.LedgerEntry{
		ID:          string(raw.UUID),
		Direction:   deltaLedgerDirections[kind],
		ReferenceID: string(raw.MetaData.TransactionID),
		Type:        entryType,
		Currency:    code,
		Amount:      amount,
		Before:      before,
		After:       after,
		Status:      "ok",
		Timestamp:   FromISO8601(raw.CreatedAt),
		Info:        rawJSON(item),
	}, nil
}

// Ledger - список записей журнала
func (p *DeltaParser) Ledger(items gjson.Result, currency *market.Currency) ([]market.LedgerEntry, error) {
	var out []market.LedgerEntry
	for _, item := range items.Array() {
		e, err := p.LedgerEntry(item, currency)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
