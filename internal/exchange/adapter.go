package exchange

import (
	"context"
	"time"

	"ct-exchange/internal/market"
)

// Adapter - интерфейс для адаптеров бирж
// Реализуется для каждой биржи; операции, которых у биржи нет,
// возвращают ошибку вида NotSupported
type Adapter interface {
	ID() string
	Describe() Config
	Has(op string) bool
	LoadMarkets(ctx context.Context, reload bool) (*market.MarketSet, error)

	FetchMarkets(ctx context.Context, params Params) ([]market.Market, error)
	FetchCurrencies(ctx context.Context, params Params) ([]market.Currency, error)
	FetchTime(ctx context.Context) (time.Time, error)
	FetchStatus(ctx context.Context) (market.ExchangeStatus, error)

	FetchTicker(ctx context.Context, symbol string, params Params) (market.Ticker, error)
	FetchTickers(ctx context.Context, symbols []string, params Params) (map[string]market.Ticker, error)
	FetchOrderBook(ctx context.Context, symbol string, limit int, params Params) (market.OrderBook, error)
	FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error)
	FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int, params Params) ([]market.OHLCV, error)

	FetchBalance(ctx context.Context, params Params) (*market.Balances, error)
	CreateOrder(ctx context.Context, symbol, orderType string, side market.Side, amount, price string, params Params) (market.Order, error)
	EditOrder(ctx context.Context, id, symbol, orderType string, side market.Side, amount, price string, params Params) (market.Order, error)
	CancelOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error)
	CancelAllOrders(ctx context.Context, symbol string, params Params) ([]market.Order, error)
	FetchOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error)
	FetchOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error)
	FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error)
	FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error)
	FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error)

	FetchDepositAddress(ctx context.Context, code string, params Params) (market.DepositAddress, error)
	FetchDeposits(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.Transaction, error)
	FetchWithdrawals(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.Transaction, error)
	Withdraw(ctx context.Context, code, amount, address, tag string, params Params) (market.Transaction, error)

	FetchPositions(ctx context.Context, symbols []string, params Params) ([]market.Position, error)
	FetchLedger(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.LedgerEntry, error)
	FetchTradingFees(ctx context.Context, params Params) (map[string]market.TradingFee, error)
	FetchTransactionFees(ctx context.Context, codes []string, params Params) (map[string]market.TransactionFee, error)
}

// Реализации по умолчанию для операций, которых у биржи нет

func (b *Base) FetchMarkets(ctx context.Context, params Params) ([]market.Market, error) {
	return nil, b.NotSupported("fetchMarkets")
}

func (b *Base) FetchCurrencies(ctx context.Context, params Params) ([]market.Currency, error) {
	return nil, b.NotSupported("fetchCurrencies")
}

func (b *Base) FetchTime(ctx context.Context) (time.Time, error) {
	return time.Time{}, b.NotSupported("fetchTime")
}

func (b *Base) FetchStatus(ctx context.Context) (market.ExchangeStatus, error) {
	return market.ExchangeStatus{}, b.NotSupported("fetchStatus")
}

func (b *Base) FetchTicker(ctx context.Context, symbol string, params Params) (market.Ticker, error) {
	return market.Ticker{}, b.NotSupported("fetchTicker")
}

func (b *Base) FetchTickers(ctx context.Context, symbols []string, params Params) (map[string]market.Ticker, error) {
	return nil, b.NotSupported("fetchTickers")
}

func (b *Base) FetchOrderBook(ctx context.Context, symbol string, limit int, params Params) (market.OrderBook, error) {
	return market.OrderBook{}, b.NotSupported("fetchOrderBook")
}

func (b *Base) FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error) {
	return nil, b.NotSupported("fetchTrades")
}

func (b *Base) FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int, params Params) ([]market.OHLCV, error) {
	return nil, b.NotSupported("fetchOHLCV")
}

func (b *Base) FetchBalance(ctx context.Context, params Params) (*market.Balances, error) {
	return nil, b.NotSupported("fetchBalance")
}

func (b *Base) CreateOrder(ctx context.Context, symbol, orderType string, side market.Side, amount, price string, params Params) (market.Order, error) {
	return market.Order{}, b.NotSupported("createOrder")
}

func (b *Base) EditOrder(ctx context.Context, id, symbol, orderType string, side market.Side, amount, price string, params Params) (market.Order, error) {
	return market.Order{}, b.NotSupported("editOrder")
}

func (b *Base) CancelOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error) {
	return market.Order{}, b.NotSupported("cancelOrder")
}

func (b *Base) CancelAllOrders(ctx context.Context, symbol string, params Params) ([]market.Order, error) {
	return nil, b.NotSupported("cancelAllOrders")
}

func (b *Base) FetchOrder(ctx context.Context, id, symbol string, params Params) (market.Order, error) {
	return market.Order{}, b.NotSupported("fetchOrder")
}

func (b *Base) FetchOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	return nil, b.NotSupported("fetchOrders")
}

func (b *Base) FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	return nil, b.NotSupported("fetchOpenOrders")
}

func (b *Base) FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Order, error) {
	return nil, b.NotSupported("fetchClosedOrders")
}

func (b *Base) FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]market.Trade, error) {
	return nil, b.NotSupported("fetchMyTrades")
}

func (b *Base) FetchDepositAddress(ctx context.Context, code string, params Params) (market.DepositAddress, error) {
	return market.DepositAddress{}, b.NotSupported("fetchDepositAddress")
}

func (b *Base) FetchDeposits(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
	return nil, b.NotSupported("fetchDeposits")
}

func (b *Base) FetchWithdrawals(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.Transaction, error) {
	return nil, b.NotSupported("fetchWithdrawals")
}

func (b *Base) Withdraw(ctx context.Context, code, amount, address, tag string, params Params) (market.Transaction, error) {
	return market.Transaction{}, b.NotSupported("withdraw")
}

func (b *Base) FetchPositions(ctx context.Context, symbols []string, params Params) ([]market.Position, error) {
	return nil, b.NotSupported("fetchPositions")
}

func (b *Base) FetchLedger(ctx context.Context, code string, since time.Time, limit int, params Params) ([]market.LedgerEntry, error) {
	return nil, b.NotSupported("fetchLedger")
}

func (b *Base) FetchTradingFees(ctx context.Context, params Params) (map[string]market.TradingFee, error) {
	return nil, b.NotSupported("fetchTradingFees")
}

func (b *Base) FetchTransactionFees(ctx context.Context, codes []string, params Params) (map[string]market.TransactionFee, error) {
	return nil, b.NotSupported("fetchTransactionFees")
}

// ConfigTradingFees строит комиссии всех рынков из тарифов описания биржи
func (b *Base) ConfigTradingFees(ctx context.Context) (map[string]market.TradingFee, error) {
	set, err := b.LoadMarkets(ctx, false)
	if err != nil {
		return nil, err
	}
	fees := b.cfg.Fees
	out := make(map[string]market.TradingFee)
	for _, symbol := range set.Symbols() {
		out[symbol] = market.TradingFee{
			Symbol:     symbol,
			Maker:      fees.Maker,
			Taker:      fees.Taker,
			Percentage: fees.Percentage,
			TierBased:  fees.TierBased,
			MakerTiers: fees.MakerTiers,
			TakerTiers: fees.TakerTiers,
		}
	}
	return out, nil
}

// IndexTickers собирает тикеры по символам, оставляя только запрошенные
func IndexTickers(tickers []market.Ticker, symbols map[string]bool) map[string]market.Ticker {
	out := make(map[string]market.Ticker, len(tickers))
	for _, t := range tickers {
		if symbols != nil && !symbols[t.Symbol] {
			continue
		}
		out[t.Symbol] = t
	}
	return out
}
