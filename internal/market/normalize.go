package market

import (
	"sort"
	"time"

	"ct-exchange/internal/precise"
)

// SortBook сортирует стакан: bids по убыванию, asks по возрастанию цены
func (ob *OrderBook) SortBook() {
	sort.SliceStable(ob.Bids, func(i, j int) bool { return precise.Cmp(ob.Bids[i].Price, ob.Bids[j].Price) > 0 })
	sort.SliceStable(ob.Asks, func(i, j int) bool { return precise.Cmp(ob.Asks[i].Price, ob.Asks[j].Price) < 0 })
}

// Truncate оставляет не более limit уровней с каждой стороны (limit <= 0 - без ограничения)
func (ob *OrderBook) Truncate(limit int) {
	if limit <= 0 {
		return
	}
	if len(ob.Bids) > limit {
		ob.Bids = ob.Bids[:limit]
	}
	if len(ob.Asks) > limit {
		ob.Asks = ob.Asks[:limit]
	}
}

// Complete дозаполняет ticker производными полями
func (t *Ticker) Complete() {
	if t.Close == "" {
		t.Close = t.Last
	}
	if t.Last == "" {
		t.Last = t.Close
	}
	if t.Open != "" && t.Last != "" {
		if t.Change == "" {
			t.Change = precise.Sub(t.Last, t.Open)
		}
		if t.Average == "" {
			t.Average = precise.Div(precise.Add(t.Last, t.Open), "2")
		}
		if t.Percentage == "" && !precise.IsZero(t.Open) {
			t.Percentage = precise.Mul(precise.Div(t.Change, t.Open), "100")
		}
	}
	if t.Vwap == "" && t.BaseVolume != "" && t.QuoteVolume != "" && !precise.IsZero(t.BaseVolume) {
		t.Vwap = precise.Div(t.QuoteVolume, t.BaseVolume)
	}
}

// Complete дозаполняет ордер: filled/remaining/cost/average выводятся друг из друга
func (o *Order) Complete() {
	if o.Filled == "" && o.Amount != "" && o.Remaining != "" {
		o.Filled = precise.Max(precise.Sub(o.Amount, o.Remaining), "0")
	}
	if o.Remaining == "" && o.Amount != "" && o.Filled != "" {
		o.Remaining = precise.Max(precise.Sub(o.Amount, o.Filled), "0")
	}
	if o.Amount == "" && o.Filled != "" && o.Remaining != "" {
		o.Amount = precise.Add(o.Filled, o.Remaining)
	}
	if o.Average == "" && o.Cost != "" && o.Filled != "" && !precise.IsZero(o.Filled) {
		o.Average = precise.Div(o.Cost, o.Filled)
	}
	if o.Cost == "" && o.Filled != "" {
		switch {
		case o.Average != "":
			o.Cost = precise.Mul(o.Average, o.Filled)
		case o.Price != "" && o.Type == "limit":
			o.Cost = precise.Mul(o.Price, o.Filled)
		}
	}
	if o.Status == "" && o.Remaining != "" && precise.IsZero(o.Remaining) && o.Filled != "" && !precise.IsZero(o.Filled) {
		o.Status = OrderStatusClosed
	}
}

// Complete дозаполняет сделку стоимостью
func (t *Trade) Complete() {
	if t.Cost == "" && t.Price != "" && t.Amount != "" {
		t.Cost = precise.Mul(t.Price, t.Amount)
	}
}

// NewBalances создаёт пустой набор балансов
func NewBalances() *Balances {
	return &Balances{Currencies: make(map[string]Balance)}
}

// Complete выводит недостающее из free/used/total
func (b *Balances) Complete() {
	for code, bal := range b.Currencies {
		switch {
		case bal.Total == "" && bal.Free != "" && bal.Used != "":
			bal.Total = precise.Add(bal.Free, bal.Used)
		case bal.Used == "" && bal.Total != "" && bal.Free != "":
			bal.Used = precise.Sub(bal.Total, bal.Free)
		case bal.Free == "" && bal.Total != "" && bal.Used != "":
			bal.Free = precise.Sub(bal.Total, bal.Used)
		}
		b.Currencies[code] = bal
	}
}

func filterByTime[T any](items []T, ts func(T) time.Time, since time.Time, limit int) []T {
	sort.SliceStable(items, func(i, j int) bool { return ts(items[i]).Before(ts(items[j])) })
	out := items[:0]
	for _, it := range items {
		if !since.IsZero() && ts(it).Before(since) {
			continue
		}
		out = append(out, it)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// FilterTrades отбирает сделки не раньше since и оставляет limit последних
func FilterTrades(trades []Trade, since time.Time, limit int) []Trade {
	return filterByTime(trades, func(t Trade) time.Time { return t.Timestamp }, since, limit)
}

// FilterOrders - то же для ордеров
func FilterOrders(orders []Order, since time.Time, limit int) []Order {
	return filterByTime(orders, func(o Order) time.Time { return o.Timestamp }, since, limit)
}

// FilterOHLCV - то же для свечей
func FilterOHLCV(candles []OHLCV, since time.Time, limit int) []OHLCV {
	return filterByTime(candles, func(c OHLCV) time.Time { return c.Timestamp }, since, limit)
}

// FilterTransactions - то же для вводов/выводов; code != "" оставляет одну валюту
func FilterTransactions(txs []Transaction, code string, since time.Time, limit int) []Transaction {
	if code != "" {
		kept := txs[:0]
		for _, t := range txs {
			if t.Currency == code {
				kept = append(kept, t)
			}
		}
		txs = kept
	}
	return filterByTime(txs, func(t Transaction) time.Time { return t.Timestamp }, since, limit)
}

// FilterLedger - то же для журнала
func FilterLedger(entries []LedgerEntry, since time.Time, limit int) []LedgerEntry {
	return filterByTime(entries, func(e LedgerEntry) time.Time { return e.Timestamp }, since, limit)
}
