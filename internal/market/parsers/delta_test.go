package parsers

import (
	"testing"

	"ct-exchange/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newDeltaParser() (*DeltaParser, *market.MarketSet) {
	set := market.NewMarketSet(nil)
	set.Load(
		[]market.Market{{ID: "BTCUSD", NumericID: "139", Symbol: "BTC/USD:BTC", Base: "BTC", Quote: "USD", Settle: "BTC"}},
		[]market.Currency{{ID: "USDT", NumericID: "5", Code: "USDT"}, {ID: "BTC", NumericID: "2", Code: "BTC"}},
	)
	return NewDeltaParser(set), set
}

func TestDeltaMarkets(t *testing.T) {
	p, _ := newDeltaParser()
	products := gjson.Parse(`[
		{"id":1,"symbol":"BTC_USDT","contract_type":"spot","state":"live","tick_size":"0.5",
		 "underlying_asset":{"symbol":"BTC"},"quoting_asset":{"symbol":"USDT"},"settling_asset":{"symbol":"USDT"},
		 "product_specs":{"underlying_precision":4}},
		{"id":139,"symbol":"BTCUSD","contract_type":"perpetual_futures","state":"live","tick_size":"0.5","contract_value":"1",
		 "underlying_asset":{"symbol":"BTC"},"quoting_asset":{"symbol":"USD"},"settling_asset":{"symbol":"BTC"}},
		{"id":300,"symbol":"C-BTC-50000-311221","contract_type":"call_options","state":"expired","tick_size":"0.1",
		 "strike_price":"50000","settlement_time":"2021-12-31T08:00:00Z",
		 "underlying_asset":{"symbol":"BTC"},"quoting_asset":{"symbol":"USDT"},"settling_asset":{"symbol":"USDT"}}
	]`)

	markets, err := p.Markets(products)
	require.NoError(t, err)
	require.Len(t, markets, 3)

	spot := markets[0]
	assert.Equal(t, "BTC/USDT", spot.Symbol)
	assert.True(t, spot.Spot)
	assert.False(t, spot.Contract)
	assert.Nil(t, spot.Linear)
	assert.Equal(t, "0.0001", spot.Precision.Amount)
	assert.Equal(t, "0.5", spot.Precision.Price)

	swap := markets[1]
	assert.Equal(t, "BTC/USD:BTC", swap.Symbol)
	assert.Equal(t, market.MarketTypeSwap, swap.Type)
	assert.Equal(t, "139", swap.NumericID)
	assert.Equal(t, "1", swap.Precision.Amount)

	option := markets[2]
	assert.Equal(t, "BTC/USDT:USDT-211231:50000:C", option.Symbol)
	assert.Equal(t, market.MarketTypeOption, option.Type)
	assert.Equal(t, "call", option.OptionType)
	assert.False(t, option.Active)
}

func TestDeltaMarketsKeepsOtherContractTypes(t *testing.T) {
	p, _ := newDeltaParser()
	markets, err := p.Markets(gjson.Parse(`[
		{"id":139,"symbol":"BTCUSD","contract_type":"perpetual_futures","state":"live","tick_size":"0.5","contract_value":"1",
		 "underlying_asset":{"symbol":"BTC"},"quoting_asset":{"symbol":"USD"},"settling_asset":{"symbol":"BTC"}},
		{"id":501,"symbol":"IRS-BTC","contract_type":"interest_rate_swaps","state":"live","tick_size":"0.01",
		 "underlying_asset":{"symbol":"BTC"},"quoting_asset":{"symbol":"USDT"},"settling_asset":{"symbol":"USDT"}}
	]`))
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "BTC/USD:BTC", markets[0].Symbol)

	irs := markets[1]
	assert.Equal(t, "IRS-BTC", irs.Symbol)
	assert.Equal(t, market.MarketType("interest_rate_swaps"), irs.Type)
	assert.True(t, irs.Contract)
	assert.False(t, irs.Swap)
	assert.Equal(t, "USDT", irs.Settle)
	assert.Equal(t, "501", irs.NumericID)
}

func TestDeltaOrderResolvesNumericProduct(t *testing.T) {
	p, _ := newDeltaParser()
	item := gjson.Parse(`{"id":42,"client_order_id":"abc","product_id":139,"state":"cancelled","side":"buy",
		"order_type":"limit_order","limit_price":"100","size":10,"unfilled_size":4,"paid_commission":"0.001",
		"created_at":"2021-05-01T10:00:00Z"}`)

	o, err := p.Order(item, nil)
	require.NoError(t, err)
	assert.Equal(t, "42", o.ID)
	assert.Equal(t, "abc", o.ClientOrderID)
	assert.Equal(t, "BTC/USD:BTC", o.Symbol)
	assert.Equal(t, "limit", o.Type)
	assert.Equal(t, market.OrderStatusCanceled, o.Status)
	assert.Equal(t, "6", o.Filled)
	require.NotNil(t, o.Fee)
	assert.Equal(t, "BTC", o.Fee.Currency)

	assert.Equal(t, market.OrderStatus("untriggered"), DeltaOrderStatus("untriggered"))
}

func TestDeltaTradeSideFromSellerRole(t *testing.T) {
	p, _ := newDeltaParser()
	item := gjson.Parse(`{"id":"7","price":"100","size":"2","seller_role":"maker","timestamp":1600000000000000,
		"product":{"symbol":"BTCUSD","settling_asset":{"symbol":"BTC"}},"commission":"0.0001","role":"taker",
		"meta_data":{"order_type":"market_order"}}`)

	tr, err := p.Trade(item, nil)
	require.NoError(t, err)
	assert.Equal(t, market.SideBuy, tr.Side)
	assert.Equal(t, "BTC/USD:BTC", tr.Symbol)
	assert.Equal(t, "market", tr.Type)
	assert.Equal(t, "taker", tr.TakerOrMaker)
	assert.Equal(t, int64(1600000000000), tr.Timestamp.UnixMilli())
	assert.Equal(t, "BTC", tr.Fee.Currency)
}

func TestDeltaOrderBook(t *testing.T) {
	p, _ := newDeltaParser()
	item := gjson.Parse(`{"buy":[{"price":"99","size":1},{"price":"100","size":2}],"sell":[{"price":"102","size":3},{"price":"101","size":4}]}`)

	ob, err := p.OrderBook(item, "BTC/USD:BTC")
	require.NoError(t, err)
	assert.Equal(t, []market.PriceLevel{{Price: "100", Amount: "2"}, {Price: "99", Amount: "1"}}, ob.Bids)
	assert.Equal(t, []market.PriceLevel{{Price: "101", Amount: "4"}, {Price: "102", Amount: "3"}}, ob.Asks)
}

func TestDeltaBalanceByAssetID(t *testing.T) {
	p, _ := newDeltaParser()
	body := []byte(`{"success":true,"result":[{"asset_id":5,"balance":"10","available_balance":"7"},{"asset_id":99,"balance":"1","available_balance":"1"}]}`)

	b, err := p.Balance(body)
	require.NoError(t, err)
	assert.Equal(t, market.Balance{Free: "7", Used: "3", Total: "10"}, b.Currencies["USDT"])
	assert.Contains(t, b.Currencies, "99")
}

func TestDeltaLedgerEntry(t *testing.T) {
	p, _ := newDeltaParser()
	item := gjson.Parse(`{"uuid":"u1","transaction_type":"withdrawal","asset_id":5,"amount":"3","balance":"1",
		"created_at":"2021-05-01T10:00:00Z","meta_data":{"transaction_id":"t1"}}`)

	e, err := p.LedgerEntry(item, nil)
	require.NoError(t, err)
	assert.Equal(t, "out", e.Direction)
	assert.Equal(t, "transaction", e.Type)
	assert.Equal(t, "USDT", e.Currency)
	assert.Equal(t, "0", e.Before)
	assert.Equal(t, "t1", e.ReferenceID)
}

func TestDeltaPositions(t *testing.T) {
	p, _ := newDeltaParser()
	positions, err := p.Positions(gjson.Parse(`[{"product_id":139,"size":-5,"entry_price":"100"}]`))
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "BTC/USD:BTC", positions[0].Symbol)
	assert.Equal(t, "short", positions[0].Side)
	assert.Equal(t, "5", positions[0].Contracts)
}
