package exchange

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1600000000000)

func fixedOptions() Options {
	return Options{Clock: func() time.Time { return fixedNow }}
}

var testCreds = Credentials{APIKey: "key", Secret: "secret", UID: "42"}

func TestHashHelpers(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("message"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), HmacHex(SHA256, "secret", "message"))

	sum := sha256.Sum256([]byte("message"))
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), HashBase64(SHA256, "message"))
}

func TestBiboxSignV1Private(t *testing.T) {
	a := NewBiboxAdapter(testCreds, fixedOptions())
	req, err := a.sign(biboxTransfer, Params{"cmd": "transfer/assets", "body": Params{"select": 1}})
	require.NoError(t, err)

	cmds := `[{"body":{"select":1},"cmd":"transfer/assets"}]`
	mac := hmac.New(md5.New, []byte("secret"))
	mac.Write([]byte(cmds))
	sign := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://api.bibox.com/v1/transfer", req.URL)
	assert.Equal(t, "application/json", req.Headers["content-type"])
	assert.JSONEq(t, `{"apikey":"key","cmds":`+quote(cmds)+`,"sign":"`+sign+`"}`, req.Body)
}

func TestBiboxSignV1PublicGet(t *testing.T) {
	a := NewBiboxAdapter(Credentials{}, fixedOptions())
	req, err := a.sign(biboxMdata, Params{"cmd": "ticker", "pair": "BTC_USDT"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.bibox.com/v1/mdata?cmd=ticker&pair=BTC_USDT", req.URL)
	assert.Empty(t, req.Body)
}

func TestBiboxSignV31Private(t *testing.T) {
	a := NewBiboxAdapter(testCreds, fixedOptions())
	ep := Endpoint{API: "v3.1Private", Method: http.MethodPost, Path: "orderpending/trade"}
	req, err := a.sign(ep, Params{"pair": "BTC_USDT", "amount": "1"})
	require.NoError(t, err)

	payload := `{"amount":"1","pair":"BTC_USDT"}`
	mac := hmac.New(md5.New, []byte("secret"))
	mac.Write([]byte("1600000000000" + payload))

	assert.Equal(t, "https://api.bibox.com/v3.1/orderpending/trade", req.URL)
	assert.Equal(t, "key", req.Headers["bibox-api-key"])
	assert.Equal(t, "1600000000000", req.Headers["bibox-timestamp"])
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Headers["bibox-api-sign"])
	assert.Equal(t, payload, req.Body)
}

func TestBiboxSignV4PrivateGet(t *testing.T) {
	a := NewBiboxAdapter(testCreds, fixedOptions())
	ep := Endpoint{API: "v4Private", Method: http.MethodGet, Path: "userdata/accounts"}
	req, err := a.sign(ep, Params{"asset": "BTC"})
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("asset=BTC"))

	assert.Equal(t, "https://api.bibox.com/api/v4/userdata/accounts?asset=BTC", req.URL)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Headers["Bibox-Api-Sign"])
	assert.Empty(t, req.Body)
}

func TestBiboxSignV4PrivatePost(t *testing.T) {
	a := NewBiboxAdapter(testCreds, fixedOptions())
	ep := Endpoint{API: "v4Private", Method: http.MethodPost, Path: "userdata/order"}

	req, err := a.sign(ep, Params{"symbol": "BTC_USDT"})
	require.NoError(t, err)
	assert.Equal(t, `{"symbol":"BTC_USDT"}`, req.Body)
	assert.Equal(t, HmacHex(SHA256, "secret", req.Body), req.Headers["Bibox-Api-Sign"])

	req, err = a.sign(ep, Params{})
	require.NoError(t, err)
	assert.Empty(t, req.Body)
	assert.Equal(t, HmacHex(SHA256, "secret", ""), req.Headers["Bibox-Api-Sign"])
}

func TestBiboxSignRequiresCredentials(t *testing.T) {
	a := NewBiboxAdapter(Credentials{APIKey: "key"}, fixedOptions())
	_, err := a.sign(biboxTransfer, Params{"cmd": "transfer/assets"})
	assert.ErrorIs(t, err, AuthenticationError)
}

func TestDeltaSignPrivate(t *testing.T) {
	a := NewDeltaAdapter(testCreds, fixedOptions())

	req, err := a.sign(deltaBalances, Params{"asset_id": 2})
	require.NoError(t, err)
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("GET1600000000/v2/wallet/balances?asset_id=2"))
	assert.Equal(t, "https://api.delta.exchange/v2/wallet/balances?asset_id=2", req.URL)
	assert.Equal(t, "1600000000", req.Headers["timestamp"])
	assert.Equal(t, "key", req.Headers["api-key"])
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Headers["signature"])

	req, err = a.sign(deltaCreateOrder, Params{"product_id": int64(27), "size": "1"})
	require.NoError(t, err)
	body := `{"product_id":27,"size":"1"}`
	mac = hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("POST1600000000/v2/orders" + body))
	assert.Equal(t, "https://api.delta.exchange/v2/orders", req.URL)
	assert.Equal(t, body, req.Body)
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Headers["signature"])
}

func TestDeltaSignPublicAndSandbox(t *testing.T) {
	opts := fixedOptions()
	opts.Sandbox = true
	a := NewDeltaAdapter(Credentials{}, opts)
	req, err := a.sign(deltaTicker, Params{"symbol": "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, "https://testnet-api.delta.exchange/v2/tickers/BTCUSDT", req.URL)
	assert.Empty(t, req.Headers)
}

func TestEqonexSignPrivate(t *testing.T) {
	a := NewEqonexAdapter(testCreds, fixedOptions())
	req, err := a.sign(eqonexOrderStatus, Params{"orderId": 7, "format": "json"})
	require.NoError(t, err)

	body := `{"format":"json","nonce":1600000000000,"orderId":7,"userId":"42"}`
	mac := hmac.New(sha512.New384, []byte("secret"))
	mac.Write([]byte(body))

	assert.Equal(t, "https://eqonex.com/api/getOrderStatus?format=json", req.URL)
	assert.Equal(t, body, req.Body)
	assert.Equal(t, "key", req.Headers["requestToken"])
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Headers["signature"])
}

func TestEqonexSignRequiresUID(t *testing.T) {
	a := NewEqonexAdapter(Credentials{APIKey: "key", Secret: "secret"}, fixedOptions())
	_, err := a.sign(eqonexPositions, Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uid")
}

func TestQtradeSignPrivate(t *testing.T) {
	a := NewQtradeAdapter(testCreds, fixedOptions())

	req, err := a.sign(qtradeOrders, Params{"open": true})
	require.NoError(t, err)
	sum := sha256.Sum256([]byte("GET\n/v1/user/orders?open=true\n1600000000000\n\nsecret"))
	assert.Equal(t, "https://api.qtrade.io/v1/user/orders?open=true", req.URL)
	assert.Equal(t, "HMAC-SHA256 key:"+base64.StdEncoding.EncodeToString(sum[:]), req.Headers["Authorization"])
	assert.Equal(t, "1600000000000", req.Headers["HMAC-Timestamp"])
	assert.NotContains(t, req.Headers, "Content-Type")

	req, err = a.sign(qtradeDepositAddr, Params{"currency": "LTC"})
	require.NoError(t, err)
	sum = sha256.Sum256([]byte("POST\n/v1/user/deposit_address/LTC\n1600000000000\n{}\nsecret"))
	assert.Equal(t, "https://api.qtrade.io/v1/user/deposit_address/LTC", req.URL)
	assert.Equal(t, "{}", req.Body)
	assert.Equal(t, "HMAC-SHA256 key:"+base64.StdEncoding.EncodeToString(sum[:]), req.Headers["Authorization"])
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
}

func quote(s string) string {
	out, _ := JSON(s)
	return out
}
