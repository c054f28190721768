package market

import (
	"encoding/json"
	"time"
)

// Все числовые поля - десятичные строки (см. internal/precise); "" - значение отсутствует.

// MarketType - тип рынка
type MarketType string

const (
	MarketTypeSpot   MarketType = "spot"
	MarketTypeSwap   MarketType = "swap"
	MarketTypeFuture MarketType = "future"
	MarketTypeOption MarketType = "option"
)

// Side - сторона ордера или сделки
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus - статус ордера. Неизвестные коды биржи передаются как есть.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusClosed    OrderStatus = "closed"
	OrderStatusCanceled  OrderStatus = "canceled"
	OrderStatusCanceling OrderStatus = "canceling"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusExpired   OrderStatus = "expired"
)

// TransactionStatus - статус ввода/вывода. Неизвестные коды передаются как есть.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusOK       TransactionStatus = "ok"
	TransactionStatusCanceled TransactionStatus = "canceled"
	TransactionStatusFailed   TransactionStatus = "failed"
)

// TransactionType - deposit или withdrawal
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// MinMax - пара ограничений
type MinMax struct {
	Min string `json:"min,omitempty"`
	Max string `json:"max,omitempty"`
}

// Precision - шаги цены и объёма ("0.01"), а не число знаков
type Precision struct {
	Amount string `json:"amount,omitempty"`
	Price  string `json:"price,omitempty"`
}

// Limits - ограничения рынка
type Limits struct {
	Amount   MinMax `json:"amount"`
	Price    MinMax `json:"price"`
	Cost     MinMax `json:"cost"`
	Leverage MinMax `json:"leverage"`
}

// Market - торговый инструмент биржи
type Market struct {
	ID             string          `json:"id"`
	NumericID      string          `json:"numeric_id,omitempty"`
	UppercaseID    string          `json:"uppercase_id,omitempty"`
	Symbol         string          `json:"symbol"` // BTC/USDT, BTC/USD:BTC-211231, ...
	Base           string          `json:"base"`
	Quote          string          `json:"quote"`
	Settle         string          `json:"settle,omitempty"`
	BaseID         string          `json:"base_id"`
	QuoteID        string          `json:"quote_id"`
	SettleID       string          `json:"settle_id,omitempty"`
	Type           MarketType      `json:"type"`
	Spot           bool            `json:"spot"`
	Margin         bool            `json:"margin"`
	Swap           bool            `json:"swap"`
	Future         bool            `json:"future"`
	Option         bool            `json:"option"`
	Contract       bool            `json:"contract"`
	Linear         *bool           `json:"linear,omitempty"`
	Inverse        *bool           `json:"inverse,omitempty"`
	Active         bool            `json:"active"`
	Taker          string          `json:"taker,omitempty"`
	Maker          string          `json:"maker,omitempty"`
	ContractSize   string          `json:"contract_size,omitempty"`
	Expiry         time.Time       `json:"expiry,omitempty"`
	Strike         string          `json:"strike,omitempty"`
	OptionType     string          `json:"option_type,omitempty"` // call, put, move
	Precision      Precision       `json:"precision"`
	Limits         Limits          `json:"limits"`
	Info           json.RawMessage `json:"info,omitempty"`
}

// CurrencyLimits - ограничения валюты
type CurrencyLimits struct {
	Amount   MinMax `json:"amount"`
	Withdraw MinMax `json:"withdraw"`
}

// Currency - валюта биржи
type Currency struct {
	ID        string          `json:"id"`
	NumericID string          `json:"numeric_id,omitempty"`
	Code      string          `json:"code"`
	Name      string          `json:"name,omitempty"`
	Type      string          `json:"type,omitempty"`
	Precision string          `json:"precision,omitempty"`
	Active    bool            `json:"active"`
	Deposit   bool            `json:"deposit"`
	Withdraw  bool            `json:"withdraw"`
	Fee       string          `json:"fee,omitempty"`
	Limits    CurrencyLimits  `json:"limits"`
	Info      json.RawMessage `json:"info,omitempty"`
}

// Ticker - снимок 24h статистики
type Ticker struct {
	Symbol        string          `json:"symbol"`
	Timestamp     time.Time       `json:"timestamp"`
	High          string          `json:"high,omitempty"`
	Low           string          `json:"low,omitempty"`
	Bid           string          `json:"bid,omitempty"`
	BidVolume     string          `json:"bid_volume,omitempty"`
	Ask           string          `json:"ask,omitempty"`
	AskVolume     string          `json:"ask_volume,omitempty"`
	Vwap          string          `json:"vwap,omitempty"`
	Open          string          `json:"open,omitempty"`
	Close         string          `json:"close,omitempty"`
	Last          string          `json:"last,omitempty"`
	PreviousClose string          `json:"previous_close,omitempty"`
	Change        string          `json:"change,omitempty"`
	Percentage    string          `json:"percentage,omitempty"`
	Average       string          `json:"average,omitempty"`
	BaseVolume    string          `json:"base_volume,omitempty"`
	QuoteVolume   string          `json:"quote_volume,omitempty"`
	Info          json.RawMessage `json:"info,omitempty"`
}

// PriceLevel - уровень цены в стакане
type PriceLevel struct {
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

// OrderBook - стакан. Bids по убыванию цены, Asks по возрастанию.
type OrderBook struct {
	Symbol    string       `json:"symbol"`
	Timestamp time.Time    `json:"timestamp"`
	Nonce     int64        `json:"nonce,omitempty"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
}

// Fee - комиссия
type Fee struct {
	Currency string `json:"currency,omitempty"`
	Cost     string `json:"cost"`
	Rate     string `json:"rate,omitempty"`
}

// Trade - сделка (публичная или своя)
type Trade struct {
	ID           string          `json:"id"`
	Order        string          `json:"order,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Symbol       string          `json:"symbol"`
	Type         string          `json:"type,omitempty"`
	Side         Side            `json:"side,omitempty"`
	TakerOrMaker string          `json:"taker_or_maker,omitempty"`
	Price        string          `json:"price"`
	Amount       string          `json:"amount"`
	Cost         string          `json:"cost,omitempty"`
	Fee          *Fee            `json:"fee,omitempty"`
	Info         json.RawMessage `json:"info,omitempty"`
}

// OHLCV - свеча
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      string    `json:"open"`
	High      string    `json:"high"`
	Low       string    `json:"low"`
	Close     string    `json:"close"`
	Volume    string    `json:"volume"`
}

// Order - ордер
type Order struct {
	ID                 string          `json:"id"`
	ClientOrderID      string          `json:"client_order_id,omitempty"`
	Timestamp          time.Time       `json:"timestamp"`
	LastTradeTimestamp time.Time       `json:"last_trade_timestamp,omitempty"`
	Symbol             string          `json:"symbol"`
	Type               string          `json:"type,omitempty"`
	TimeInForce        string          `json:"time_in_force,omitempty"`
	PostOnly           *bool           `json:"post_only,omitempty"`
	Side               Side            `json:"side,omitempty"`
	Price              string          `json:"price,omitempty"`
	StopPrice          string          `json:"stop_price,omitempty"`
	Amount             string          `json:"amount,omitempty"`
	Filled             string          `json:"filled,omitempty"`
	Remaining          string          `json:"remaining,omitempty"`
	Cost               string          `json:"cost,omitempty"`
	Average            string          `json:"average,omitempty"`
	Status             OrderStatus     `json:"status,omitempty"`
	Fee                *Fee            `json:"fee,omitempty"`
	Trades             []Trade         `json:"trades,omitempty"`
	Info               json.RawMessage `json:"info,omitempty"`
}

// Balance - баланс одной валюты
type Balance struct {
	Free  string `json:"free"`
	Used  string `json:"used"`
	Total string `json:"total"`
}

// Balances - балансы счёта по кодам валют
type Balances struct {
	Timestamp  time.Time          `json:"timestamp,omitempty"`
	Currencies map[string]Balance `json:"currencies"`
	Info       json.RawMessage    `json:"info,omitempty"`
}

// Transaction - ввод или вывод средств
type Transaction struct {
	ID          string            `json:"id"`
	TxID        string            `json:"txid,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Network     string            `json:"network,omitempty"`
	Address     string            `json:"address,omitempty"`
	AddressFrom string            `json:"address_from,omitempty"`
	AddressTo   string            `json:"address_to,omitempty"`
	Tag         string            `json:"tag,omitempty"`
	TagFrom     string            `json:"tag_from,omitempty"`
	TagTo       string            `json:"tag_to,omitempty"`
	Type        TransactionType   `json:"type,omitempty"`
	Amount      string            `json:"amount,omitempty"`
	Currency    string            `json:"currency"`
	Status      TransactionStatus `json:"status,omitempty"`
	Updated     time.Time         `json:"updated,omitempty"`
	Fee         *Fee              `json:"fee,omitempty"`
	Info        json.RawMessage   `json:"info,omitempty"`
}

// DepositAddress - адрес для пополнения
type DepositAddress struct {
	Currency string          `json:"currency"`
	Address  string          `json:"address"`
	Tag      string          `json:"tag,omitempty"`
	Network  string          `json:"network,omitempty"`
	Info     json.RawMessage `json:"info,omitempty"`
}

// Position - позиция по деривативу
type Position struct {
	Symbol           string          `json:"symbol"`
	Side             string          `json:"side,omitempty"` // long, short
	Contracts        string          `json:"contracts"`
	EntryPrice       string          `json:"entry_price,omitempty"`
	MarkPrice        string          `json:"mark_price,omitempty"`
	LiquidationPrice string          `json:"liquidation_price,omitempty"`
	Margin           string          `json:"margin,omitempty"`
	UnrealizedPnl    string          `json:"unrealized_pnl,omitempty"`
	Timestamp        time.Time       `json:"timestamp,omitempty"`
	Info             json.RawMessage `json:"info,omitempty"`
}

// LedgerEntry - запись журнала движения средств
type LedgerEntry struct {
	ID               string          `json:"id"`
	Direction        string          `json:"direction"` // in, out
	Account          string          `json:"account,omitempty"`
	ReferenceID      string          `json:"reference_id,omitempty"`
	ReferenceAccount string          `json:"reference_account,omitempty"`
	Type             string          `json:"type"`
	Currency         string          `json:"currency"`
	Amount           string          `json:"amount"`
	Before           string          `json:"before,omitempty"`
	After            string          `json:"after,omitempty"`
	Status           string          `json:"status,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
	Fee              *Fee            `json:"fee,omitempty"`
	Info             json.RawMessage `json:"info,omitempty"`
}

// FeeTier - ступень тарифа: объём и ставка
type FeeTier struct {
	Volume string `json:"volume"`
	Rate   string `json:"rate"`
}

// TradingFee - торговая комиссия рынка
type TradingFee struct {
	Symbol     string          `json:"symbol"`
	Maker      string          `json:"maker"`
	Taker      string          `json:"taker"`
	Percentage bool            `json:"percentage"`
	TierBased  bool            `json:"tier_based"`
	MakerTiers []FeeTier       `json:"maker_tiers,omitempty"`
	TakerTiers []FeeTier       `json:"taker_tiers,omitempty"`
	Info       json.RawMessage `json:"info,omitempty"`
}

// TransactionFee - комиссия на вывод валюты
type TransactionFee struct {
	Currency string          `json:"currency"`
	Withdraw string          `json:"withdraw"`
	Info     json.RawMessage `json:"info,omitempty"`
}

// ExchangeStatus - состояние биржи
type ExchangeStatus struct {
	Status  string    `json:"status"` // ok, maintenance
	Updated time.Time `json:"updated,omitempty"`
	ETA     time.Time `json:"eta,omitempty"`
	URL     string    `json:"url,omitempty"`
}
