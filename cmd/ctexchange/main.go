package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ct-exchange/internal/api"
	"ct-exchange/internal/config"
	"ct-exchange/internal/db"
	"ct-exchange/internal/exchange"
	"ct-exchange/pkg/log"

	"github.com/pkg/errors"
)

const usage = `usage: ctexchange [-config path] [-exchange id] <command> [args]

commands:
  markets            list unified markets
  ticker SYMBOL      fetch ticker
  orderbook SYMBOL   fetch order book (-limit N)
  trades SYMBOL      fetch public trades (-limit N)
  balance            fetch account balance
  serve              start the read-only HTTP gateway
`

func main() {
	cfgPath := flag.String("config", "config/config.conf", "path to ini config")
	exchangeID := flag.String("exchange", "", "exchange id ("+strings.Join(exchange.Supported(), ", ")+")")
	limit := flag.Int("limit", 0, "order book depth or number of trades")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 || *exchangeID == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Минимальный logger для ошибок до парса конфига
	preLogger := log.New("preinit")

	fmt.Printf("[LOG][DEBUG] Loading config from %s\n", *cfgPath)
	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		preLogger.Fatal("failed to load config (%s): %v", *cfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		preLogger.Fatal("invalid config: %v", err)
	}

	logger := setupLogging(cfg)
	defer log.Close()
	logger.Debug("[DEBUG] Config: %+v", config.GetConfigForLogging(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var driver db.DBDriver
	if cfg.Database.Enabled {
		driver, err = connectDB(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("db connect failed: %v", err)
		}
		defer driver.Close()
	}

	exCfg := cfg.Exchange(*exchangeID)
	if driver != nil {
		exCfg, err = mergeStoredCredentials(ctx, driver, exCfg)
		if err != nil {
			logger.Fatal("load credentials for %s: %v", exCfg.ID, err)
		}
	}

	adapter, err := exchange.NewAdapter(exCfg.ID, credentials(exCfg), buildOptions(cfg, exCfg))
	if err != nil {
		logger.Fatal("%v", err)
	}
	logger.Info("Exchange %s ready (sandbox=%t)", adapter.ID(), exCfg.Sandbox)

	if err := run(ctx, adapter, cfg, driver, args, *limit); err != nil {
		logger.Error("%s failed: %v", args[0], err)
		log.Close()
		os.Exit(1)
	}
}

// setupLogging выбирает режим, файл и уровень логирования из конфига
func setupLogging(cfg *config.Config) *log.Logger {
	if cfg.Logging.Mode == "modular" {
		log.SetGlobalMode(false)
	} else {
		log.SetGlobalMode(true)
		if err := log.Init(cfg.Logging.File); err != nil {
			fmt.Printf("[LOG][ERROR] Failed to init log file: %v\n", err)
		}
	}
	if cfg.Logging.MaxSizeMB > 0 {
		log.SetMaxLogSize(int64(cfg.Logging.MaxSizeMB) * 1024 * 1024)
	}
	if lvl, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetGlobalLevel(lvl)
	} else {
		fmt.Printf("[LOG][ERROR] Invalid log level in config: %s\n", cfg.Logging.Level)
	}

	if cfg.Logging.Mode == "modular" && cfg.Logging.Dir != "" {
		logPath := cfg.Logging.Dir + "/ctexchange.log"
		l, err := log.NewWithFile("ctexchange", logPath)
		if err == nil {
			return l
		}
		fmt.Printf("[LOG][ERROR] Failed to create modular logger: %v\n", err)
	}
	return log.New("ctexchange")
}

func connectDB(ctx context.Context, cfg *config.Config, logger *log.Logger) (db.DBDriver, error) {
	dbCfg := map[string]string{
		"host":     cfg.Database.Host,
		"port":     strconv.Itoa(cfg.Database.Port),
		"user":     cfg.Database.User,
		"password": cfg.Database.Password,
		"database": cfg.Database.Database,
	}
	driver, err := db.NewDriver(cfg.Database.Type, dbCfg)
	if err != nil {
		return nil, err
	}

	const maxAttempts = 10
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = driver.Connect(ctx); lastErr == nil {
			logger.Info("DB connected (attempt %d)", attempt)
			return driver, nil
		}
		logger.Warn("[DB] Connect attempt %d/%d failed: %v", attempt, maxAttempts, lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, errors.Wrapf(lastErr, "all %d connect attempts failed", maxAttempts)
}

// mergeStoredCredentials дополняет секцию конфига ключами из таблицы EXCHANGE
func mergeStoredCredentials(ctx context.Context, driver db.DBDriver, exCfg config.ExchangeConfig) (config.ExchangeConfig, error) {
	row, err := driver.GetExchangeByName(ctx, exCfg.ID)
	if errors.Is(err, db.ErrExchangeNotFound) {
		return exCfg, nil
	}
	if err != nil {
		return exCfg, err
	}
	if !row.Active {
		return exCfg, errors.Errorf("exchange %s is disabled in the database", row.Name)
	}
	if row.HasCredentials() {
		exCfg.APIKey = row.ApiKey.String
		exCfg.Secret = row.ApiSecret.String
		exCfg.Password = row.Passphrase.String
		exCfg.UID = row.UID.String
		exCfg.Sandbox = row.Sandbox
	}
	if exCfg.BaseURL == "" && row.BaseUrl.Valid {
		exCfg.BaseURL = row.BaseUrl.String
	}
	return exCfg, nil
}

func credentials(exCfg config.ExchangeConfig) exchange.Credentials {
	return exchange.Credentials{
		APIKey:   exCfg.APIKey,
		Secret:   exCfg.Secret,
		UID:      exCfg.UID,
		Password: exCfg.Password,
	}
}

func buildOptions(cfg *config.Config, exCfg config.ExchangeConfig) exchange.Options {
	return exchange.Options{
		Sandbox:         exCfg.Sandbox,
		BaseURL:         exCfg.BaseURL,
		Timeout:         time.Duration(cfg.HTTP.TimeoutSec) * time.Second,
		DebugLogRaw:     cfg.HTTP.DebugLogRaw,
		MarketsTTL:      time.Duration(cfg.HTTP.MarketsTTLSec) * time.Second,
		EnableRateLimit: cfg.HTTP.EnableRateLimit,

		GenerateClientOrderID: exCfg.GenerateClientOrderID,
	}
}

func run(ctx context.Context, adapter exchange.Adapter, cfg *config.Config, driver db.DBDriver, args []string, limit int) error {
	symbolArg := func() (string, error) {
		if len(args) < 2 {
			return "", errors.Errorf("%s requires a SYMBOL argument", args[0])
		}
		return args[1], nil
	}

	var (
		result interface{}
		err    error
	)
	switch args[0] {
	case "markets":
		set, lerr := adapter.LoadMarkets(ctx, false)
		if lerr != nil {
			return lerr
		}
		result = set.Markets()
	case "ticker":
		symbol, serr := symbolArg()
		if serr != nil {
			return serr
		}
		result, err = adapter.FetchTicker(ctx, symbol, nil)
	case "orderbook":
		symbol, serr := symbolArg()
		if serr != nil {
			return serr
		}
		result, err = adapter.FetchOrderBook(ctx, symbol, limit, nil)
	case "trades":
		symbol, serr := symbolArg()
		if serr != nil {
			return serr
		}
		result, err = adapter.FetchTrades(ctx, symbol, time.Time{}, limit, nil)
	case "balance":
		result, err = adapter.FetchBalance(ctx, nil)
	case "serve":
		srv := api.NewServer(api.ServerConfig{Port: cfg.Server.Port}, adapter, driver)
		return srv.Start(ctx)
	default:
		return errors.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
