package exchange

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ct-exchange/internal/market"
	"ct-exchange/internal/precise"
	"ct-exchange/pkg/log"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// URLs - адреса API по разделам; Test используется в режиме sandbox
type URLs struct {
	API  map[string]string
	Test map[string]string
	WWW  string
	Doc  []string
}

// TradingFees - тарифы биржи по умолчанию
type TradingFees struct {
	Taker      string
	Maker      string
	Percentage bool
	TierBased  bool
	TakerTiers []market.FeeTier
	MakerTiers []market.FeeTier
}

// RequiredCredentials - какие ключи нужны приватному API
type RequiredCredentials struct {
	APIKey   bool
	Secret   bool
	UID      bool
	Password bool
}

// Config - неизменяемое описание биржи, собирается конструктором адаптера
type Config struct {
	ID                  string
	Name                string
	Version             string
	Countries           []string
	RateLimit           time.Duration
	URLs                URLs
	Has                 map[string]bool
	Timeframes          map[string]string
	Fees                TradingFees
	CommonCurrencies    map[string]string
	Exceptions          Exceptions
	RequiredCredentials RequiredCredentials
}

// Credentials - ключи доступа
type Credentials struct {
	APIKey   string
	Secret   string
	UID      string
	Password string
}

// Options - параметры экземпляра адаптера
type Options struct {
	Sandbox         bool
	BaseURL         string // подменяет адреса всех разделов API
	Timeout         time.Duration
	DebugLogRaw     bool
	HTTPClient      *http.Client
	MarketsTTL      time.Duration
	EnableRateLimit bool
	Clock           func() time.Time

	// GenerateClientOrderID: адаптеры с client_order_id сами заполняют его uuid
	GenerateClientOrderID bool
}

const (
	defaultTimeout    = 10 * time.Second
	defaultMarketsTTL = time.Hour
	marketsCacheKey   = "markets"
)

// Signer строит подписанный запрос; чистая функция от (endpoint, params, ключей, часов)
type Signer func(ep Endpoint, params Params) (SignedRequest, error)

// ErrorHandler разбирает ответ на ошибку биржи; nil - ошибки нет
type ErrorHandler func(resp *Response) error

// MarketLoader загружает рынки и валюты
type MarketLoader func(ctx context.Context) ([]market.Market, []market.Currency, error)

// Base - общая часть адаптеров: конфигурация, ключи, транспорт, кэш рынков
type Base struct {
	cfg    Config
	creds  Credentials
	opts   Options
	rest   *RestClient
	cache  *cache.Cache
	logger *log.Logger
	clock  func() time.Time

	signer       Signer
	errorHandler ErrorHandler
	loader       MarketLoader

	loadMu      sync.Mutex
	throttleMu  sync.Mutex
	lastRequest time.Time
}

// NewBase создаёт базу адаптера
func NewBase(cfg Config, creds Credentials, opts Options) *Base {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MarketsTTL <= 0 {
		opts.MarketsTTL = defaultMarketsTTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	debug := NewDebugLogger(cfg.ID, opts.DebugLogRaw)
	var rest *RestClient
	if opts.HTTPClient != nil {
		rest = NewRestClientWithHTTP(cfg.ID, opts.HTTPClient, debug)
	} else {
		rest = NewRestClient(cfg.ID, opts.Timeout, debug)
	}
	return &Base{
		cfg:    cfg,
		creds:  creds,
		opts:   opts,
		rest:   rest,
		cache:  cache.New(opts.MarketsTTL, 2*opts.MarketsTTL),
		logger: log.New(cfg.ID),
		clock:  clock,
	}
}

// Bind подключает функции конкретной биржи
func (b *Base) Bind(signer Signer, handler ErrorHandler, loader MarketLoader) {
	b.signer = signer
	b.errorHandler = handler
	b.loader = loader
}

func (b *Base) ID() string { return b.cfg.ID }

// Describe возвращает копию описания биржи
func (b *Base) Describe() Config { return b.cfg }

// Has - поддерживается ли операция
func (b *Base) Has(op string) bool { return b.cfg.Has[op] }

// Logger - логгер модуля биржи
func (b *Base) Logger() *log.Logger { return b.logger }

// Now - текущее время по часам адаптера
func (b *Base) Now() time.Time { return b.clock() }

// Milliseconds - текущее время в мс
func (b *Base) Milliseconds() int64 { return b.clock().UnixMilli() }

// Credentials возвращает ключи
func (b *Base) Credentials() Credentials { return b.creds }

// Options возвращает параметры экземпляра
func (b *Base) Options() Options { return b.opts }

// HasCredentials - заданы ли все обязательные ключи
func (b *Base) HasCredentials() bool {
	return b.CheckRequiredCredentials() == nil
}

// CheckRequiredCredentials проверяет наличие обязательных ключей
func (b *Base) CheckRequiredCredentials() error {
	req := b.cfg.RequiredCredentials
	var missing []string
	if req.APIKey && b.creds.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if req.Secret && b.creds.Secret == "" {
		missing = append(missing, "secret")
	}
	if req.UID && b.creds.UID == "" {
		missing = append(missing, "uid")
	}
	if req.Password && b.creds.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return NewError(AuthenticationError, b.cfg.ID, "requires %s credential", strings.Join(missing, ", "))
	}
	return nil
}

// URL - базовый адрес раздела API с учётом sandbox и переопределения
func (b *Base) URL(api string) string {
	if b.opts.BaseURL != "" {
		return strings.TrimRight(b.opts.BaseURL, "/")
	}
	if b.opts.Sandbox {
		if u, ok := b.cfg.URLs.Test[api]; ok {
			return u
		}
	}
	return b.cfg.URLs.API[api]
}

// Timeframe переводит унифицированный таймфрейм в код биржи
func (b *Base) Timeframe(tf string) (string, error) {
	if v, ok := b.cfg.Timeframes[tf]; ok {
		return v, nil
	}
	return "", NewError(BadRequest, b.cfg.ID, "timeframe %s is not supported", tf)
}

// ParseTimeframe переводит "15m", "4h", "1w", "1M" в длительность; месяц = 30 дней
func ParseTimeframe(tf string) (time.Duration, error) {
	if len(tf) < 2 {
		return 0, errors.Errorf("bad timeframe %q", tf)
	}
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, errors.Errorf("bad timeframe %q", tf)
	}
	var unit time.Duration
	switch tf[len(tf)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	case 'M':
		unit = 30 * 24 * time.Hour
	case 'y':
		unit = 365 * 24 * time.Hour
	default:
		return 0, errors.Errorf("bad timeframe unit in %q", tf)
	}
	return time.Duration(n) * unit, nil
}

// NotSupported - ошибка для операции, которой нет у биржи
func (b *Base) NotSupported(op string) error {
	return NewError(NotSupported, b.cfg.ID, "%s() is not supported yet", op)
}

// ArgumentsRequired - ошибка для обязательного аргумента
func (b *Base) ArgumentsRequired(op, arg string) error {
	return NewError(ArgumentsRequired, b.cfg.ID, "%s() requires a %s argument", op, arg)
}

// Fail - ошибка произвольного вида
func (b *Base) Fail(kind Kind, format string, args ...interface{}) error {
	return NewError(kind, b.cfg.ID, format, args...)
}

// LoadMarkets загружает рынки один раз на время жизни кэша
func (b *Base) LoadMarkets(ctx context.Context, reload bool) (*market.MarketSet, error) {
	b.loadMu.Lock()
	defer b.loadMu.Unlock()
	if !reload {
		if set, ok := b.cachedMarkets(); ok {
			return set, nil
		}
	}
	if b.loader == nil {
		return nil, b.NotSupported("loadMarkets")
	}
	markets, currencies, err := b.loader(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "%s load markets", b.cfg.ID)
	}
	set := market.NewMarketSet(b.cfg.CommonCurrencies)
	set.Load(markets, currencies)
	b.cache.SetDefault(marketsCacheKey, set)
	b.logger.Info("[%s] loaded %d markets, %d currencies", strings.ToUpper(b.cfg.ID), len(markets), len(currencies))
	return set, nil
}

func (b *Base) cachedMarkets() (*market.MarketSet, bool) {
	v, ok := b.cache.Get(marketsCacheKey)
	if !ok {
		return nil, false
	}
	set, ok := v.(*market.MarketSet)
	return set, ok
}

// SetMarkets подменяет загруженные рынки (тесты, внешний кэш)
func (b *Base) SetMarkets(markets []market.Market, currencies []market.Currency) *market.MarketSet {
	set := market.NewMarketSet(b.cfg.CommonCurrencies)
	set.Load(markets, currencies)
	b.cache.SetDefault(marketsCacheKey, set)
	return set
}

// Market находит рынок по символу; рынки должны быть загружены
func (b *Base) Market(symbol string) (*market.Market, error) {
	if set, ok := b.cachedMarkets(); ok {
		if m, ok := set.Market(symbol); ok {
			return m, nil
		}
		if m, ok := set.MarketByID(symbol); ok {
			return m, nil
		}
		return nil, NewError(BadSymbol, b.cfg.ID, "does not have market symbol %s", symbol)
	}
	return nil, NewError(ExchangeError, b.cfg.ID, "markets not loaded")
}

// AmountToPrecision отбрасывает количество до шага рынка Precision.Amount
func (b *Base) AmountToPrecision(m *market.Market, amount string) (string, error) {
	if m.Precision.Amount == "" {
		return precise.Normalize(amount), nil
	}
	out, err := precise.TruncateToTick(amount, m.Precision.Amount)
	if err != nil {
		return "", NewError(InvalidOrder, b.cfg.ID, "invalid amount %q for %s", amount, m.Symbol)
	}
	if precise.IsZero(out) {
		return "", NewError(InvalidOrder, b.cfg.ID, "amount of %s must be greater than minimum amount precision of %s", m.Symbol, m.Precision.Amount)
	}
	return out, nil
}

// PriceToPrecision округляет цену до шага рынка Precision.Price
func (b *Base) PriceToPrecision(m *market.Market, price string) (string, error) {
	if m.Precision.Price == "" {
		return precise.Normalize(price), nil
	}
	out, err := precise.RoundToTick(price, m.Precision.Price)
	if err != nil {
		return "", NewError(InvalidOrder, b.cfg.ID, "invalid price %q for %s", price, m.Symbol)
	}
	return out, nil
}

// Currency находит валюту по коду
func (b *Base) Currency(code string) (*market.Currency, error) {
	if set, ok := b.cachedMarkets(); ok {
		if c, ok := set.Currency(code); ok {
			return c, nil
		}
	}
	return nil, NewError(ExchangeError, b.cfg.ID, "does not have currency code %s", code)
}

// SafeCurrency возвращает валюту или заглушку с id = code
func (b *Base) SafeCurrency(code string) *market.Currency {
	if c, err := b.Currency(code); err == nil {
		return c
	}
	return &market.Currency{ID: code, Code: code}
}

// MarketByID реализует market.Resolver
func (b *Base) MarketByID(id string) (*market.Market, bool) {
	if set, ok := b.cachedMarkets(); ok {
		return set.MarketByID(id)
	}
	return nil, false
}

// MarketByNumericID реализует market.Resolver
func (b *Base) MarketByNumericID(id string) (*market.Market, bool) {
	if set, ok := b.cachedMarkets(); ok {
		return set.MarketByNumericID(id)
	}
	return nil, false
}

// CurrencyByNumericID реализует market.Resolver
func (b *Base) CurrencyByNumericID(id string) (*market.Currency, bool) {
	if set, ok := b.cachedMarkets(); ok {
		return set.CurrencyByNumericID(id)
	}
	return nil, false
}

// CurrencyCode реализует market.Resolver; до загрузки рынков применяется
// только таблица переименований
func (b *Base) CurrencyCode(id string) string {
	if set, ok := b.cachedMarkets(); ok {
		return set.CurrencyCode(id)
	}
	if id == "" {
		return ""
	}
	return market.CommonCurrencyCode(strings.ToUpper(id), b.cfg.CommonCurrencies)
}

// MarketSymbols проверяет символы и возвращает их как множество; nil - все
func (b *Base) MarketSymbols(symbols []string) (map[string]bool, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	out := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		m, err := b.Market(s)
		if err != nil {
			return nil, err
		}
		out[m.Symbol] = true
	}
	return out, nil
}

// Request = sign -> транспорт -> handleErrors -> проверка HTTP-статуса
func (b *Base) Request(ctx context.Context, ep Endpoint, params Params) ([]byte, error) {
	if b.signer == nil {
		return nil, b.NotSupported("request")
	}
	if params == nil {
		params = Params{}
	}
	req, err := b.signer(ep, params)
	if err != nil {
		return nil, err
	}
	if err := b.throttle(ctx); err != nil {
		return nil, err
	}
	resp, err := b.rest.Do(ctx, req)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Exchange = b.cfg.ID
		}
		return nil, err
	}
	if b.errorHandler != nil {
		if err := b.errorHandler(resp); err != nil {
			b.logger.Warn("[%s] %s: %v", strings.ToUpper(b.cfg.ID), ep, err)
			return nil, err
		}
	}
	if kind := KindForStatus(resp.Status); kind != "" {
		return nil, NewError(kind, b.cfg.ID, "%d %s", resp.Status, string(resp.Body))
	}
	return resp.Body, nil
}

// throttle выдерживает RateLimit между запросами
func (b *Base) throttle(ctx context.Context) error {
	if !b.opts.EnableRateLimit || b.cfg.RateLimit <= 0 {
		return nil
	}
	b.throttleMu.Lock()
	defer b.throttleMu.Unlock()
	wait := b.cfg.RateLimit - time.Since(b.lastRequest)
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	b.lastRequest = time.Now()
	return nil
}
