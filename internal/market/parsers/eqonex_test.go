package parsers

import (
	"testing"
	"time"

	"ct-exchange/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newEqonexParser() (*EqonexParser, *market.Market) {
	set := market.NewMarketSet(nil)
	set.Load(
		[]market.Market{{
			ID: "52", UppercaseID: "BTC/USDC", Symbol: "BTC/USDC", Base: "BTC", Quote: "USDC", Spot: true,
			Precision: market.Precision{Price: "0.01", Amount: "0.000001"},
		}},
		[]market.Currency{{ID: "3", NumericID: "3", Code: "BTC"}, {ID: "1", NumericID: "1", Code: "USDC"}},
	)
	m, _ := set.Market("BTC/USDC")
	return NewEqonexParser(set), m
}

func TestEqonexTime(t *testing.T) {
	ts := EqonexTime("20211231-08:00:00.123")
	assert.Equal(t, time.Date(2021, 12, 31, 8, 0, 0, 123_000_000, time.UTC).UnixMilli(), ts.UnixMilli())
	assert.True(t, EqonexTime("2021-12-31").IsZero())
	assert.True(t, EqonexTime("").IsZero())
}

func TestEqonexOrderDecodesScaledFields(t *testing.T) {
	p, _ := newEqonexParser()
	item := gjson.Parse(`{"orderId":123,"clOrdId":"c1","ordType":2,"side":1,"ordStatus":"1","instrumentId":52,
		"timeStamp":"20211231-08:00:00.123","price":184204,"price_scale":2,"quantity":150000,"quantity_scale":6,
		"cumQty":50000,"cumQty_scale":6,"leavesQty":100000,"leavesQty_scale":6,
		"feeTotal":-184,"fee_scale":4,"feeInstrumentId":1,"timeInForce":"0"}`)

	o, err := p.Order(item, nil)
	require.NoError(t, err)
	assert.Equal(t, "123", o.ID)
	assert.Equal(t, "c1", o.ClientOrderID)
	assert.Equal(t, "BTC/USDC", o.Symbol)
	assert.Equal(t, "limit", o.Type)
	assert.Equal(t, market.SideBuy, o.Side)
	assert.Equal(t, market.OrderStatusOpen, o.Status)
	assert.Equal(t, "1842.04", o.Price)
	assert.Equal(t, "0.15", o.Amount)
	assert.Equal(t, "0.05", o.Filled)
	assert.Equal(t, "0.1", o.Remaining)
	assert.Equal(t, "", o.TimeInForce)
	require.NotNil(t, o.Fee)
	assert.Equal(t, "0.0184", o.Fee.Cost)
	assert.Equal(t, "USDC", o.Fee.Currency)
}

func TestEqonexOrderStatusPassthrough(t *testing.T) {
	assert.Equal(t, market.OrderStatusExpired, EqonexOrderStatus("C"))
	assert.Equal(t, market.OrderStatusCanceling, EqonexOrderStatus("E"))
	assert.Equal(t, market.OrderStatus("Z"), EqonexOrderStatus("Z"))
	assert.Equal(t, "stop limit", EqonexOrderType("4"))
	assert.Equal(t, "7", EqonexOrderType("7"))
}

func TestEqonexPublicTradeUsesMarketScale(t *testing.T) {
	p, m := newEqonexParser()
	trades, err := p.Trades(gjson.Parse(`[["184204","150000","20211231-08:00:00.123",5,2]]`), m)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "5", trades[0].ID)
	assert.Equal(t, "1842.04", trades[0].Price)
	assert.Equal(t, "0.15", trades[0].Amount)
	assert.Equal(t, market.SideSell, trades[0].Side)
	assert.Equal(t, "276.306", trades[0].Cost)
}

func TestEqonexUserTrade(t *testing.T) {
	p, _ := newEqonexParser()
	item := gjson.Parse(`{"execId":"e1","time":1640937600000,"symbol":"52","orderId":"9","side":"Buy","ordType":"2",
		"lastPx":"1842.04","qty":"0.1","commission":"-0.5","commCurrency":"1"}`)

	tr, err := p.Trade(item, nil)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDC", tr.Symbol)
	assert.Equal(t, market.SideBuy, tr.Side)
	assert.Equal(t, "limit", tr.Type)
	assert.Equal(t, "0.5", tr.Fee.Cost)
	assert.Equal(t, "USDC", tr.Fee.Currency)
}

func TestEqonexOrderBook(t *testing.T) {
	p, m := newEqonexParser()
	body := []byte(`{"bids":[[184000,100000,0],[184204,200000,0]],"asks":[[184500,300000,0],[184300,100000,0]]}`)

	ob, err := p.OrderBook(body, m)
	require.NoError(t, err)
	assert.Equal(t, market.PriceLevel{Price: "1842.04", Amount: "0.2"}, ob.Bids[0])
	assert.Equal(t, market.PriceLevel{Price: "1843", Amount: "0.1"}, ob.Asks[0])
}

func TestEqonexBalanceOnlyAssets(t *testing.T) {
	p, _ := newEqonexParser()
	body := []byte(`{"positions":[
		{"assetType":"ASSET","symbol":"BTC","quantity":150000,"availableQuantity":100000,"quantity_scale":6},
		{"assetType":"PAIR","symbol":"BTC/USDC","quantity":1,"availableQuantity":1,"quantity_scale":0}
	]}`)

	b, err := p.Balance(body)
	require.NoError(t, err)
	require.Len(t, b.Currencies, 1)
	assert.Equal(t, market.Balance{Free: "0.1", Used: "0.05", Total: "0.15"}, b.Currencies["BTC"])
}

func TestEqonexTransaction(t *testing.T) {
	p, _ := newEqonexParser()
	item := gjson.Parse(`{"id":1,"transactionUuid":"u-1","timestamp":1640937600000,"address":"null",
		"quantity":"150000","quantity_scale":6,"symbol":"BTC","status":"1"}`)

	tx, err := p.Transaction(item, market.TransactionDeposit, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", tx.ID)
	assert.Equal(t, "u-1", tx.TxID)
	assert.Equal(t, "", tx.Address)
	assert.Equal(t, "0.15", tx.Amount)
	assert.Equal(t, market.TransactionStatusOK, tx.Status)
	assert.Equal(t, market.TransactionDeposit, tx.Type)
}

func TestEqonexTradingFees(t *testing.T) {
	p, m := newEqonexParser()
	body := []byte(`{"spotFees":[{"volume":0,"maker":"0.0009","taker":"0.0012"},{"volume":1000000,"maker":"0.0008","taker":"0.001"}],"futuresFees":[]}`)

	fees, err := p.TradingFees(body, []market.Market{*m})
	require.NoError(t, err)
	fee := fees["BTC/USDC"]
	assert.Equal(t, "0.0009", fee.Maker)
	assert.Equal(t, "0.0012", fee.Taker)
	require.Len(t, fee.TakerTiers, 2)
	assert.Equal(t, market.FeeTier{Volume: "1000000", Rate: "0.001"}, fee.TakerTiers[1])
}
