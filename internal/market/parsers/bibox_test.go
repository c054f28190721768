package parsers

import (
	"testing"

	"ct-exchange/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newBiboxParser() *BiboxParser {
	return NewBiboxParser(market.NewMarketSet(map[string]string{"BOX": "DefiBox"}))
}

func TestBiboxTicker(t *testing.T) {
	p := newBiboxParser()
	item := gjson.Parse(`{"coin_symbol":"BTC","currency_symbol":"USDT","last":"100","buy":"99","sell":"101","high":"110","low":"90","vol":"5","percent":"1.25%"}`)

	tk, err := p.Ticker(item, nil)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", tk.Symbol)
	assert.Equal(t, "100", tk.Last)
	assert.Equal(t, "100", tk.Close)
	assert.Equal(t, "99", tk.Bid)
	assert.Equal(t, "101", tk.Ask)
	assert.Equal(t, "5", tk.BaseVolume)
	assert.Equal(t, "1.25", tk.Percentage)
	assert.True(t, tk.Timestamp.IsZero())
}

func TestBiboxMarkets(t *testing.T) {
	p := newBiboxParser()
	pairs := gjson.Parse(`[
		{"id":1,"pair":"BIX_BTC","area_id":1,"decimal":8,"amount_scale":4},
		{"id":2,"pair":"BOX_USDT","area_id":2,"decimal":4,"amount_scale":2},
		{"id":3,"pair":"DEAD_USDT","area_id":16,"decimal":4,"amount_scale":2}
	]`)
	minCosts := p.MinCosts(gjson.Parse(`{"BTC":0.0002,"USDT":1}`))

	markets, err := p.Markets(pairs, minCosts)
	require.NoError(t, err)
	require.Len(t, markets, 2)

	assert.Equal(t, "BIX/BTC", markets[0].Symbol)
	assert.Equal(t, "1", markets[0].NumericID)
	assert.Equal(t, "0.0001", markets[0].Precision.Amount)
	assert.Equal(t, "0.00000001", markets[0].Precision.Price)
	assert.Equal(t, "0.0002", markets[0].Limits.Cost.Min)

	assert.Equal(t, "DefiBox/USDT", markets[1].Symbol)
	assert.Equal(t, "BOX", markets[1].BaseID)
	assert.Equal(t, "1", markets[1].Limits.Cost.Min)
}

func TestBiboxMarketsRejectsMissingPair(t *testing.T) {
	_, err := newBiboxParser().Markets(gjson.Parse(`[{"id":1,"area_id":1}]`), nil)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestBiboxOrderStatusPassthrough(t *testing.T) {
	assert.Equal(t, market.OrderStatusOpen, BiboxOrderStatus("2"))
	assert.Equal(t, market.OrderStatusClosed, BiboxOrderStatus("3"))
	assert.Equal(t, market.OrderStatusCanceled, BiboxOrderStatus("5"))
	assert.Equal(t, market.OrderStatus("9"), BiboxOrderStatus("9"))

	assert.Equal(t, market.TransactionStatusOK, BiboxTransactionStatus("2", market.TransactionDeposit))
	assert.Equal(t, market.TransactionStatusOK, BiboxTransactionStatus("3", market.TransactionWithdrawal))
	assert.Equal(t, market.TransactionStatus("2"), BiboxTransactionStatus("2", market.TransactionWithdrawal))
}

func TestBiboxOrder(t *testing.T) {
	p := newBiboxParser()
	item := gjson.Parse(`{"id":"1234","coin_symbol":"BIX","currency_symbol":"BTC","order_type":2,"order_side":1,
		"createdAt":1512756997000,"price":"0.00009","deal_price":"0.00008","deal_amount":"10","amount":"40","deal_money":"0.0008","status":2,"fee":"0.01"}`)

	o, err := p.Order(item, nil)
	require.NoError(t, err)
	assert.Equal(t, "1234", o.ID)
	assert.Equal(t, "BIX/BTC", o.Symbol)
	assert.Equal(t, "limit", o.Type)
	assert.Equal(t, market.SideBuy, o.Side)
	assert.Equal(t, market.OrderStatusOpen, o.Status)
	assert.Equal(t, "10", o.Filled)
	assert.Equal(t, "30", o.Remaining)
	assert.Equal(t, "0.0008", o.Cost)
	assert.Equal(t, "0.00008", o.Average)
	assert.Equal(t, int64(1512756997000), o.Timestamp.UnixMilli())
	require.NotNil(t, o.Fee)
	assert.Equal(t, "0.01", o.Fee.Cost)
}

func TestBiboxTradeNegatesFee(t *testing.T) {
	p := newBiboxParser()
	item := gjson.Parse(`{"id":"77","pair":"BIX_BTC","time":1512756997000,"side":2,"price":"0.0001","amount":"3","fee":"-0.003","fee_symbol":"BIX"}`)

	tr, err := p.Trade(item, nil)
	require.NoError(t, err)
	assert.Equal(t, market.SideSell, tr.Side)
	assert.Equal(t, "BIX/BTC", tr.Symbol)
	assert.Equal(t, "0.0003", tr.Cost)
	require.NotNil(t, tr.Fee)
	assert.Equal(t, "0.003", tr.Fee.Cost)
	assert.Equal(t, "BIX", tr.Fee.Currency)
}

func TestBiboxOrderBookSorted(t *testing.T) {
	p := newBiboxParser()
	item := gjson.Parse(`{"pair":"BIX_BTC","update_time":1512756997000,
		"bids":[{"price":"1","volume":"2"},{"price":"3","volume":"1"}],
		"asks":[{"price":"5","volume":"1"},{"price":"4","volume":"1"}]}`)

	ob, err := p.OrderBook(item, nil)
	require.NoError(t, err)
	assert.Equal(t, "BIX/BTC", ob.Symbol)
	assert.Equal(t, "3", ob.Bids[0].Price)
	assert.Equal(t, "4", ob.Asks[0].Price)
}

func TestBiboxBalance(t *testing.T) {
	p := newBiboxParser()
	body := []byte(`{"result":[{"result":{"assets_list":[{"coin_symbol":"BTC","balance":"1.5","freeze":"0.5"},{"coin_symbol":"BOX","balance":"10","freeze":"0"}]},"cmd":"transfer/assets"}]}`)

	b, err := p.Balance(body)
	require.NoError(t, err)
	assert.Equal(t, market.Balance{Free: "1.5", Used: "0.5", Total: "2"}, b.Currencies["BTC"])
	assert.Equal(t, "10", b.Currencies["DefiBox"].Total)

	_, err = p.Balance([]byte(`{"result":[]}`))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestBiboxTransactions(t *testing.T) {
	p := newBiboxParser()
	deposit := gjson.Parse(`{"id":1,"to_address":"addr","coin_symbol":"ETH","createdAt":1512756997000,"addr_remark":"memo","status":2,"amount":"1.2","fee":"0.01"}`)

	tx, err := p.Transaction(deposit, market.TransactionDeposit, nil)
	require.NoError(t, err)
	assert.Equal(t, market.TransactionStatusOK, tx.Status)
	assert.Equal(t, "", tx.Tag)
	assert.Equal(t, "0", tx.Fee.Cost)
	assert.Equal(t, "ETH", tx.Currency)

	withdrawal := gjson.Parse(`{"id":2,"to_address":"addr","coin_symbol":"ETH","addr_remark":"memo","status":0,"amount":"1","fee":"0.01"}`)
	tx, err = p.Transaction(withdrawal, market.TransactionWithdrawal, nil)
	require.NoError(t, err)
	assert.Equal(t, market.TransactionStatusPending, tx.Status)
	assert.Equal(t, "memo", tx.Tag)
	assert.Equal(t, "0.01", tx.Fee.Cost)
}

func TestBiboxDepositAddress(t *testing.T) {
	p := newBiboxParser()

	plain := p.DepositAddress(gjson.Parse(`"0xabc"`), "ETH", nil)
	assert.Equal(t, "0xabc", plain.Address)
	assert.Equal(t, "", plain.Tag)

	withMemo := p.DepositAddress(gjson.Parse(`"{\"account\":\"eosacc\",\"memo\":\"123\"}"`), "EOS", nil)
	assert.Equal(t, "eosacc", withMemo.Address)
	assert.Equal(t, "123", withMemo.Tag)
}

func TestBiboxOHLCV(t *testing.T) {
	rows := gjson.Parse(`[[1655000000000,"1","2","0.5","1.5","100"]]`)
	candles, err := newBiboxParser().OHLCV(rows)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, "1.5", candles[0].Close)
	assert.Equal(t, int64(1655000000000), candles[0].Timestamp.UnixMilli())
}
