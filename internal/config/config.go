package config

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

const exchangeSectionPrefix = "exchange."

type Config struct {
	Server struct {
		Port int
	}
	HTTP struct {
		TimeoutSec      int
		DebugLogRaw     bool // логирование сырых запросов и ответов бирж
		EnableRateLimit bool
		MarketsTTLSec   int
	}
	Database struct {
		Enabled  bool
		Type     string
		Host     string
		Port     int
		User     string
		Password string
		Database string
	}
	Logging struct {
		Level     string
		File      string
		MaxSizeMB int
		Mode      string // global или modular
		Dir       string // директория для модульных логов
	}
	Exchanges map[string]ExchangeConfig
}

// ExchangeConfig - секция [exchange.<id>]
type ExchangeConfig struct {
	ID       string
	APIKey   string
	Secret   string
	UID      string
	Password string
	Sandbox  bool
	BaseURL  string

	GenerateClientOrderID bool // delta: uuid в client_order_id, если он не передан
}

// HasCredentials - задан ли хотя бы api_key
func (e ExchangeConfig) HasCredentials() bool {
	return e.APIKey != ""
}

// LoadConfig загружает конфиг из файла
func LoadConfig(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	return parse(file), nil
}

// LoadConfigData разбирает конфиг из памяти
func LoadConfigData(data []byte) (*Config, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return parse(file), nil
}

func parse(file *ini.File) *Config {
	cfg := &Config{Exchanges: map[string]ExchangeConfig{}}

	cfg.Server.Port = file.Section("server").Key("port").MustInt(8080)

	cfg.HTTP.TimeoutSec = file.Section("http").Key("timeout_sec").MustInt(10)
	cfg.HTTP.DebugLogRaw = file.Section("http").Key("debug_log_raw").MustBool(false)
	cfg.HTTP.EnableRateLimit = file.Section("http").Key("enable_rate_limit").MustBool(true)
	cfg.HTTP.MarketsTTLSec = file.Section("http").Key("markets_ttl_sec").MustInt(3600)

	cfg.Database.Enabled = file.Section("database").Key("enabled").MustBool(false)
	cfg.Database.Type = file.Section("database").Key("type").String()
	cfg.Database.Host = file.Section("database").Key("host").String()
	cfg.Database.Port = file.Section("database").Key("port").MustInt()
	cfg.Database.User = file.Section("database").Key("user").String()
	cfg.Database.Password = file.Section("database").Key("password").String()
	cfg.Database.Database = file.Section("database").Key("database").String()

	cfg.Logging.Level = file.Section("logging").Key("level").MustString("INFO")
	cfg.Logging.File = file.Section("logging").Key("file").MustString("")
	cfg.Logging.MaxSizeMB = file.Section("logging").Key("max_size_mb").MustInt()
	cfg.Logging.Mode = file.Section("logging").Key("mode").MustString("global")
	cfg.Logging.Dir = file.Section("logging").Key("dir").MustString("")

	for _, section := range file.Sections() {
		name := section.Name()
		if !strings.HasPrefix(name, exchangeSectionPrefix) {
			continue
		}
		id := strings.ToLower(strings.TrimPrefix(name, exchangeSectionPrefix))
		cfg.Exchanges[id] = ExchangeConfig{
			ID:       id,
			APIKey:   section.Key("api_key").String(),
			Secret:   section.Key("secret").String(),
			UID:      section.Key("uid").String(),
			Password: section.Key("password").String(),
			Sandbox:  section.Key("sandbox").MustBool(false),
			BaseURL:  section.Key("base_url").String(),

			GenerateClientOrderID: section.Key("generate_client_order_id").MustBool(false),
		}
	}
	return cfg
}

// Exchange возвращает секцию биржи; без секции - пустые ключи
func (c *Config) Exchange(id string) ExchangeConfig {
	id = strings.ToLower(strings.TrimSpace(id))
	if ex, ok := c.Exchanges[id]; ok {
		return ex
	}
	return ExchangeConfig{ID: id}
}

// ExchangeIDs - id настроенных бирж по алфавиту
func (c *Config) ExchangeIDs() []string {
	ids := make([]string, 0, len(c.Exchanges))
	for id := range c.Exchanges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetConfigForLogging returns a copy of config with masked sensitive data for logging
func GetConfigForLogging(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	cfgForLog := *cfg
	if cfgForLog.Database.Password != "" {
		cfgForLog.Database.Password = "*****"
	}
	cfgForLog.Exchanges = make(map[string]ExchangeConfig, len(cfg.Exchanges))
	for id, ex := range cfg.Exchanges {
		if ex.APIKey != "" {
			ex.APIKey = maskKey(ex.APIKey)
		}
		if ex.Secret != "" {
			ex.Secret = "*****"
		}
		if ex.Password != "" {
			ex.Password = "*****"
		}
		cfgForLog.Exchanges[id] = ex
	}
	return &cfgForLog
}

// maskKey оставляет первые 4 символа ключа
func maskKey(key string) string {
	if len(key) <= 4 {
		return "*****"
	}
	return key[:4] + "*****"
}

// Validate проверяет корректность конфига
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Database.Enabled {
		switch cfg.Database.Type {
		case "mysql", "postgresql", "postgres":
		case "":
			return errors.New("database.type is required")
		default:
			return errors.Errorf("database.type %q is not supported", cfg.Database.Type)
		}
		if cfg.Database.Host == "" {
			return errors.New("database.host is required")
		}
		if cfg.Database.Port == 0 {
			return errors.New("database.port is required")
		}
		if cfg.Database.User == "" {
			return errors.New("database.user is required")
		}
		if cfg.Database.Database == "" {
			return errors.New("database.database is required")
		}
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.Errorf("server.port %d is out of range", cfg.Server.Port)
	}
	if cfg.HTTP.TimeoutSec <= 0 {
		return errors.New("http.timeout_sec must be > 0")
	}
	if cfg.Logging.Level == "" {
		return errors.New("logging.level is required")
	}
	if cfg.Logging.Mode != "global" && cfg.Logging.Mode != "modular" {
		return errors.Errorf("logging.mode must be global or modular, got %q", cfg.Logging.Mode)
	}
	for _, id := range cfg.ExchangeIDs() {
		ex := cfg.Exchanges[id]
		if ex.Secret != "" && ex.APIKey == "" {
			return errors.Errorf("exchange.%s: secret is set without api_key", id)
		}
	}
	return nil
}
