package parsers

import (
	"encoding/json"
	"strings"
	"time"

	"ct-exchange/internal/market"
	"ct-exchange/internal/precise"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// EqonexParser - разбор ответов EQONEX. Цены и объёмы приходят целыми числами
// со шкалой: либо отдельным полем *_scale, либо шагом цены рынка.
type EqonexParser struct {
	resolver market.Resolver
}

func NewEqonexParser(r market.Resolver) *EqonexParser {
	return &EqonexParser{resolver: r}
}

// eqonexTimeLayout - формат timeStamp ордеров и сделок: 20211231-08:00:00.123
const eqonexTimeLayout = "20060102-15:04:05.999999999"

type eqonexPair struct {
	InstrumentID       Str `json:"instrumentId"`
	Symbol             Str `json:"symbol"`
	Currency           Str `json:"currency"`
	ContAmtCurr        Str `json:"contAmtCurr"`
	SettlCurrency      Str `json:"settlCurrency"`
	AssetType          Str `json:"assetType"`
	SecurityStatus     Str `json:"securityStatus"`
	PriceScale         Str `json:"price_scale"`
	QuantityScale      Str `json:"quantity_scale"`
	MinTradeVol        Str `json:"minTradeVol"`
	ContractMultiplier Str `json:"contractMultiplier"`
	ContractExpireTime Str `json:"contractExpireTime"`
}

type eqonexPosition struct {
	AssetType         Str `json:"assetType"`
	Symbol            Str `json:"symbol"`
	Quantity          Str `json:"quantity"`
	AvailableQuantity Str `json:"availableQuantity"`
	QuantityScale     Str `json:"quantity_scale"`
}

type eqonexOrder struct {
	ID              Str `json:"id"`
	OrderID         Str `json:"orderId"`
	OrigOrderID     Str `json:"origOrderId"`
	ClOrdID         Str `json:"clOrdId"`
	OrdType         Str `json:"ordType"`
	Side            Str `json:"side"`
	OrdStatus       Str `json:"ordStatus"`
	InstrumentID    Str `json:"instrumentId"`
	TimeStamp       Str `json:"timeStamp"`
	Price           Str `json:"price"`
	PriceScale      Str `json:"price_scale"`
	Quantity        Str `json:"quantity"`
	QuantityScale   Str `json:"quantity_scale"`
	CumQty          Str `json:"cumQty"`
	CumQtyScale     Str `json:"cumQty_scale"`
	LeavesQty       Str `json:"leavesQty"`
	LeavesQtyScale  Str `json:"leavesQty_scale"`
	FeeTotal        Str `json:"feeTotal"`
	FeeScale        Str `json:"fee_scale"`
	FeeInstrumentID Str `json:"feeInstrumentId"`
	TimeInForce     Str `json:"timeInForce"`
	StopPx          Str `json:"stopPx"`
	StopPxScale     Str `json:"stopPx_scale"`
}

type eqonexUserTrade struct {
	ExecID       Str `json:"execId"`
	Time         Str `json:"time"`
	Symbol       Str `json:"symbol"`
	OrderID      Str `json:"orderId"`
	Side         Str `json:"side"`
	OrdType      Str `json:"ordType"`
	LastPx       Str `json:"lastPx"`
	Qty          Str `json:"qty"`
	Commission   Str `json:"commission"`
	CommCurrency Str `json:"commCurrency"`
}

type eqonexTransaction struct {
	ID              Str `json:"id"`
	TransactionID   Str `json:"transactionId"`
	TransactionUUID Str `json:"transactionUuid"`
	Timestamp       Str `json:"timestamp"`
	Address         Str `json:"address"`
	Type            Str `json:"type"`
	BalanceChange   Str `json:"balance_change"`
	Quantity        Str `json:"quantity"`
	QuantityScale   Str `json:"quantity_scale"`
	Symbol          Str `json:"symbol"`
	Status          Str `json:"status"`
}

type eqonexFeeTier struct {
	Volume Str `json:"volume"`
	Maker  Str `json:"maker"`
	Taker  Str `json:"taker"`
}

var eqonexOrderStatuses = map[string]market.OrderStatus{
	"0": market.OrderStatusOpen,     // new
	"1": market.OrderStatusOpen,     // partially filled
	"2": market.OrderStatusClosed,   // filled
	"3": market.OrderStatusOpen,     // done for day
	"4": market.OrderStatusCanceled, // canceled
	"5": market.OrderStatusCanceled, // replaced
	"6": market.OrderStatusCanceling,
	"7": market.OrderStatusCanceled, // stopped
	"8": market.OrderStatusRejected,
	"9": market.OrderStatusCanceled, // suspended
	"A": market.OrderStatusOpen,     // pending new
	"B": market.OrderStatusOpen,     // calculated
	"C": market.OrderStatusExpired,
	"D": market.OrderStatusOpen, // accepted for bidding
	"E": market.OrderStatusCanceling,
	"F": market.OrderStatusOpen,
}

var eqonexOrderTypes = map[string]string{
	"1": "market",
	"2": "limit",
	"3": "stop",
	"4": "stop limit",
}

var eqonexSides = map[string]market.Side{
	"1": market.SideBuy,
	"2": market.SideSell,
}

var eqonexTimeInForce = map[string]string{
	"1": "GTC",
	"3": "IOC",
	"4": "FOK",
	"5": "GTX",
	"6": "GTD",
}

var eqonexTransactionStatuses = map[string]market.TransactionStatus{
	"0": market.TransactionStatusPending,
	"1": market.TransactionStatusOK,
}

// EqonexOrderStatus - ordStatus; неизвестный код возвращается как есть
func EqonexOrderStatus(code string) market.OrderStatus {
	if s, ok := eqonexOrderStatuses[code]; ok {
		return s
	}
	return market.OrderStatus(code)
}

// EqonexOrderType - ordType: 1 market, 2 limit, 3 stop, 4 stop limit
func EqonexOrderType(code string) string {
	if t, ok := eqonexOrderTypes[code]; ok {
		return t
	}
	return code
}

// EqonexTime разбирает "YYYYMMDD-HH:MM:SS.mmm"; ошибка даёт нулевое время
func EqonexTime(s Str) time.Time {
	if len(s) < 10 || strings.IndexByte(string(s), '-') != 8 {
		return time.Time{}
	}
	t, err := time.Parse(eqonexTimeLayout, string(s))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// fromScale - значение со шкалой из соседнего поля; без значения ""
func fromScale(v, scale Str) string {
	if v == "" {
		return ""
	}
	return precise.FromScaled(string(v), int32(scale.Int()))
}

// Markets разбирает getInstrumentPairs (verbose)
func (p *EqonexParser) Markets(items gjson.Result) ([]market.Market, error) {
	var out []market.Market
	for _, item := range items.Array() {
		var raw eqonexPair
		if err := Decode(item, &raw); err != nil {
			return nil, errors.Wrap(err, "eqonex instrument pair")
		}
		if err := Require("instrumentId", raw.InstrumentID, "currency", raw.Currency); err != nil {
			return nil, err
		}
		assetType := string(raw.AssetType)
		spot := assetType == "PAIR"
		swap := assetType == "PERPETUAL_SWAP"
		future := assetType == "DATED_FUTURE"
		contract := swap || future

		baseID := string(raw.Currency)
		quoteID := string(raw.ContAmtCurr)
		base := p.resolver.CurrencyCode(baseID)
		quote := p.resolver.CurrencyCode(quoteID)
		spec := market.SymbolSpec{Base: base, Quote: quote}

		m := market.Market{
			ID:          string(raw.InstrumentID),
			UppercaseID: string(raw.Symbol),
			Base:        base,
			Quote:       quote,
			BaseID:      baseID,
			QuoteID:     quoteID,
			Type:        market.MarketTypeSpot,
			Spot:        spot,
			Swap:        swap,
			Future:      future,
			Contract:    contract,
			Active:      raw.SecurityStatus.Int() == 1,
			Precision: market.Precision{
				Amount: precise.PrecisionFromDigits(string(raw.QuantityScale)),
				Price:  precise.PrecisionFromDigits(string(raw.PriceScale)),
			},
			Limits: market.Limits{
				Amount: market.MinMax{Min: raw.MinTradeVol.Num()},
			},
			Info: rawJSON(item),
		}
		if contract {
			settleID := string(raw.SettlCurrency)
			settle := p.resolver.CurrencyCode(settleID)
			linear := quote == settle
			inverse := !linear
			m.Settle = settle
			m.SettleID = settleID
			m.Linear = &linear
			m.Inverse = &inverse
			m.ContractSize = raw.ContractMultiplier.Num()
			spec.Settle = settle
			m.Type = market.MarketTypeSwap
			if future {
				m.Type = market.MarketTypeFuture
				m.Expiry = FromMillis(raw.ContractExpireTime)
				spec.Expiry = m.Expiry
			}
		}
		m.Symbol = spec.String()
		out = append(out, m)
	}
	return out, nil
}

// Currencies разбирает getInstruments: [id, symbol, ?, precision, status, fee, name]
func (p *EqonexParser) Currencies(items gjson.Result) ([]market.Currency, error) {
	var out []market.Currency
	for _, item := range items.Array() {
		var row []json.RawMessage
		if err := Decode(item, &row); err != nil {
			return nil, errors.Wrap(err, "eqonex instrument")
		}
		if len(row) < 7 {
			return nil, errors.Wrapf(ErrMissingField, "eqonex instrument has %d fields", len(row))
		}
		var f [7]Str
		for i := range f {
			if err := json.Unmarshal(row[i], &f[i]); err != nil {
				return nil, errors.Wrapf(err, "eqonex instrument field %d", i)
			}
		}
		out = append(out, market.Currency{
			ID:        string(f[0]),
			NumericID: string(f[0]),
			Code:      p.resolver.CurrencyCode(string(f[1])),
			Name:      string(f[6]),
			Precision: precise.PrecisionFromDigits(string(f[3])),
			Active:    f[4].Int() == 1,
			Fee:       f[5].Num(),
			Info:      rawJSON(item),
		})
	}
	return out, nil
}

// OHLCV разбирает getChart: [ts, open, high, low, close, volume], шкала - шаги рынка
func (p *EqonexParser) OHLCV(items gjson.Result, m *market.Market) ([]market.OHLCV, error) {
	var rows [][]Str
	if err := Decode(items, &rows); err != nil {
		return nil, errors.Wrap(err, "eqonex chart")
	}
	out := make([]market.OHLCV, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			return nil, errors.Wrapf(ErrMissingField, "eqonex candle has %d fields", len(r))
		}
		out = append(out, market.OHLCV{
			Timestamp: FromMillis(r[0]),
			Open:      precise.FromScaledTick(string(r[1]), m.Precision.Price),
			High:      precise.FromScaledTick(string(r[2]), m.Precision.Price),
			Low:       precise.FromScaledTick(string(r[3]), m.Precision.Price),
			Close:     precise.FromScaledTick(string(r[4]), m.Precision.Price),
			Volume:    precise.FromScaledTick(string(r[5]), m.Precision.Amount),
		})
	}
	return out, nil
}

// OrderBook разбирает getOrderBook: bids/asks [[price, qty, ...]]
func (p *EqonexParser) OrderBook(body []byte, m *market.Market) (market.OrderBook, error) {
	var raw struct {
		Bids [][]Str `json:"bids"`
		Asks [][]Str `json:"asks"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return market.OrderBook{}, errors.Wrap(err, "eqonex orderbook")
	}
	ob := market.OrderBook{Symbol: m.Symbol}
	levels := func(rows [][]Str) ([]market.PriceLevel, error) {
		out := make([]market.PriceLevel, 0, len(rows))
		for _, r := range rows {
			if len(r) < 2 {
				return nil, errors.Wrap(ErrMissingField, "eqonex book level")
			}
			out = append(out, market.PriceLevel{
				Price:  precise.FromScaledTick(string(r[0]), m.Precision.Price),
				Amount: precise.FromScaledTick(string(r[1]), m.Precision.Amount),
			})
		}
		return out, nil
	}
	var err error
	if ob.Bids, err = levels(raw.Bids); err != nil {
		return ob, err
	}
	if ob.Asks, err = levels(raw.Asks); err != nil {
		return ob, err
	}
	ob.SortBook()
	return ob, nil
}

// Trade разбирает сделку: массив getTradeHistory или объект userTrades
func (p *EqonexParser) Trade(item gjson.Result, m *market.Market) (market.Trade, error) {
	if item.IsArray() {
		return p.publicTrade(item, m)
	}
	var raw eqonexUserTrade
	if err := Decode(item, &raw); err != nil {
		return market.Trade{}, errors.Wrap(err, "eqonex user trade")
	}
	m = market.SafeMarket(p.resolver, string(raw.Symbol), m)
	t := market.Trade{
		ID:        string(raw.ExecID),
		Order:     string(raw.OrderID),
		Timestamp: FromMillis(raw.Time),
		Type:      EqonexOrderType(string(raw.OrdType)),
		Side:      market.Side(strings.ToLower(string(raw.Side))),
		Price:     raw.LastPx.Num(),
		Amount:    raw.Qty.Num(),
		Info:      rawJSON(item),
	}
	if m != nil {
		t.Symbol = m.Symbol
	}
	if raw.Commission != "" {
		t.Fee = &market.Fee{
			Cost:     precise.Neg(raw.Commission.Num()),
			Currency: p.resolver.CurrencyCode(string(raw.CommCurrency)),
		}
	}
	t.Complete()
	return t, nil
}

// publicTrade: [price, qty, timeStamp, seq, takerSide]
func (p *EqonexParser) publicTrade(item gjson.Result, m *market.Market) (market.Trade, error) {
	if m == nil {
		return market.Trade{}, errors.New("eqonex: public trade requires a market")
	}
	var r []Str
	if err := Decode(item, &r); err != nil {
		return market.Trade{}, errors.Wrap(err, "eqonex trade")
	}
	if len(r) < 5 {
		return market.Trade{}, errors.Wrapf(ErrMissingField, "eqonex trade has %d fields", len(r))
	}
	t := market.Trade{
		ID:        string(r[3]),
		Timestamp: EqonexTime(r[2]),
		Symbol:    m.Symbol,
		Side:      eqonexSides[string(r[4])],
		Price:     precise.FromScaledTick(string(r[0]), m.Precision.Price),
		Amount:    precise.FromScaledTick(string(r[1]), m.Precision.Amount),
		Info:      rawJSON(item),
	}
	t.Complete()
	return t, nil
}

// Trades - список сделок
func (p *EqonexParser) Trades(items gjson.Result, m *market.Market) ([]market.Trade, error) {
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

// Balance разбирает getPositions; учитываются только позиции assetType ASSET
func (p *EqonexParser) Balance(body []byte) (*market.Balances, error) {
	var raw struct {
		Positions []eqonexPosition `json:"positions"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "eqonex positions")
	}
	b := market.NewBalances()
	b.Info = json.RawMessage(body)
	for _, pos := range raw.Positions {
		if pos.AssetType != "ASSET" {
			continue
		}
		code := p.resolver.CurrencyCode(string(pos.Symbol))
		b.Currencies[code] = market.Balance{
			Free:  fromScale(pos.AvailableQuantity, pos.QuantityScale),
			Total: fromScale(pos.Quantity, pos.QuantityScale),
		}
	}
	b.Complete()
	return b, nil
}

// Order разбирает ответ order/cancelOrder/getOrderStatus или элемент getOrders
func (p *EqonexParser) Order(item gjson.Result, m *market.Market) (market.Order, error) {
	var raw eqonexOrder
	if err := Decode(item, &raw); err != nil {
		return market.Order{}, errors.Wrap(err, "eqonex order")
	}
	id := raw.OrigOrderID
	if id == "" {
		id = raw.OrderID
	}
	if id == "" {
		id = raw.ID
	}
	side, ok := eqonexSides[string(raw.Side)]
	if !ok {
		side = market.Side(raw.Side)
	}
	tif := string(raw.TimeInForce)
	if mapped, ok := eqonexTimeInForce[tif]; ok {
		tif = mapped
	}
	if tif == "0" {
		tif = ""
	}
	o := market.Order{
		ID:            string(id),
		ClientOrderID: string(raw.ClOrdID),
		Timestamp:     EqonexTime(raw.TimeStamp),
		Symbol:        market.SafeSymbol(p.resolver, string(raw.InstrumentID), m, ""),
		Type:          EqonexOrderType(string(raw.OrdType)),
		TimeInForce:   tif,
		Side:          side,
		Price:         fromScale(raw.Price, raw.PriceScale),
		StopPrice:     fromScale(raw.StopPx, raw.StopPxScale),
		Amount:        fromScale(raw.Quantity, raw.QuantityScale),
		Filled:        fromScale(raw.CumQty, raw.CumQtyScale),
		Remaining:     fromScale(raw.LeavesQty, raw.LeavesQtyScale),
		Status:        EqonexOrderStatus(string(raw.OrdStatus)),
		Info:          rawJSON(item),
	}
	if raw.FeeTotal != "" {
		o.Fee = &market.Fee{
			Cost:     precise.Neg(fromScale(raw.FeeTotal, raw.FeeScale)),
			Currency: p.resolver.CurrencyCode(string(raw.FeeInstrumentID)),
		}
	}
	o.Complete()
	return o, nil
}

// Orders - список ордеров
func (p *EqonexParser) Orders(items gjson.Result, m *market.Market) ([]market.Order, error) {
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

// Transaction разбирает запись getDepositHistory/getWithdrawRequests или ответ sendWithdrawRequest.
// kind задаёт тип, если биржа его не прислала.
func (p *EqonexParser) Transaction(item gjson.Result, kind market.TransactionType, currency *market.Currency) (market.Transaction, error) {
	var raw eqonexTransaction
	if err := Decode(item, &raw); err != nil {
		return market.Transaction{}, errors.Wrap(err, "eqonex transaction")
	}
	id := raw.ID
	if id == "" {
		id = raw.TransactionID
	}
	address := string(raw.Address)
	if address == "null" {
		address = ""
	}
	amount := raw.BalanceChange.Num()
	if amount == "" {
		amount = fromScale(raw.Quantity, raw.QuantityScale)
	}
	code := p.resolver.CurrencyCode(string(raw.Symbol))
	if code == "" && currency != nil {
		code = currency.Code
	}
	txType := market.TransactionType(raw.Type)
	if kind != "" {
		txType = kind
	}
	status := market.TransactionStatus(raw.Status)
	if s, ok := eqonexTransactionStatuses[string(raw.Status)]; ok {
		status = s
	}
	return market.Transaction{
		ID:        string(id),
		TxID:      string(raw.TransactionUUID),
		Timestamp: FromMillis(raw.Timestamp),
		Address:   address,
		Type:      txType,
		Amount:    amount,
		Currency:  code,
		Status:    status,
		Info:      rawJSON(item),
	}, nil
}

// Transactions - список вводов или выводов
func (p *EqonexParser) Transactions(items gjson.Result, kind market.TransactionType, currency *market.Currency) ([]market.Transaction, error) {
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

// DepositAddress - первый адрес из getDepositAddresses; тега у EQONEX нет
func (p *EqonexParser) DepositAddress(item gjson.Result, currency *market.Currency) (market.DepositAddress, error) {
	address := item.Get("address").String()
	if address == "" {
		return market.DepositAddress{}, errors.Wrap(ErrMissingField, "address")
	}
	code := p.resolver.CurrencyCode(item.Get("symbol").String())
	if code == "" && currency != nil {
		code = currency.Code
	}
	return market.DepositAddress{Currency: code, Address: address, Info: rawJSON(item)}, nil
}

// TradingFees строит комиссии по рынкам из getExchangeInfo: spotFees для спота,
// futuresFees для контрактов. Базовые ставки - первая ступень.
func (p *EqonexParser) TradingFees(body []byte, markets []market.Market) (map[string]market.TradingFee, error) {
	var raw struct {
		SpotFees    []eqonexFeeTier `json:"spotFees"`
		FuturesFees []eqonexFeeTier `json:"futuresFees"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "eqonex exchange info")
	}
	build := func(symbol string, tiers []eqonexFeeTier, withVolume bool) market.TradingFee {
		fee := market.TradingFee{Symbol: symbol, Percentage: true, TierBased: true, Info: json.RawMessage(body)}
		for i, t := range tiers {
			if i == 0 {
				fee.Maker = t.Maker.Num()
				fee.Taker = t.Taker.Num()
			}
			volume := ""
			if withVolume {
				volume = t.Volume.Num()
			}
			fee.MakerTiers = append(fee.MakerTiers, market.FeeTier{Volume: volume, Rate: t.Maker.Num()})
			fee.TakerTiers = append(fee.TakerTiers, market.FeeTier{Volume: volume, Rate: t.Taker.Num()})
		}
		return fee
	}
	out := make(map[string]market.TradingFee, len(markets))
	for _, m := range markets {
		switch {
		case m.Spot:
			out[m.Symbol] = build(m.Symbol, raw.SpotFees, true)
		case m.Contract:
			out[m.Symbol] = build(m.Symbol, raw.FuturesFees, false)
		}
	}
	return out, nil
}
