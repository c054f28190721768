package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"ct-exchange/pkg/log"

	"github.com/pkg/errors"
)

var typesLogger = log.New("db_types")

// ErrExchangeNotFound - в таблице EXCHANGE нет биржи с таким именем
var ErrExchangeNotFound = errors.New("exchange not found")

// DBDriver общий интерфейс хранилища ключей бирж
type DBDriver interface {
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
	GetExchangeByName(ctx context.Context, name string) (*Exchange, error)
	GetActiveExchanges(ctx context.Context) ([]Exchange, error)
	GetType() string
}

// Exchange - биржа и её активный аккаунт (EXCHANGE + EXCHANGE_ACCOUNT)
type Exchange struct {
	ID         int
	Name       string
	Active     bool
	BaseUrl    sql.NullString
	ApiKey     sql.NullString
	ApiSecret  sql.NullString
	Passphrase sql.NullString
	UID        sql.NullString
	Sandbox    bool
}

// HasCredentials - есть ли у биржи аккаунт с ключом
func (e *Exchange) HasCredentials() bool {
	return e.ApiKey.Valid && e.ApiKey.String != ""
}

// rowScanner - *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanExchange читает строку запросов GetExchangeByName/GetActiveExchanges
func scanExchange(row rowScanner) (*Exchange, error) {
	var ex Exchange
	err := row.Scan(&ex.ID, &ex.Name, &ex.Active, &ex.BaseUrl, &ex.ApiKey, &ex.ApiSecret, &ex.Passphrase, &ex.UID, &ex.Sandbox)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExchangeNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan exchange")
	}
	ex.Name = strings.TrimSpace(ex.Name)
	return &ex, nil
}

// scanExchanges читает все строки; ошибочная строка пропускается с записью в лог
func scanExchanges(rows *sql.Rows) ([]Exchange, error) {
	defer rows.Close()
	var out []Exchange
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			typesLogger.Error("Error scanning exchange: %v", err)
			continue
		}
		out = append(out, *ex)
	}
	return out, errors.Wrap(rows.Err(), "iterate exchanges")
}

// NewDriver создает экземпляр драйвера в зависимости от типа
func NewDriver(dbType string, cfg map[string]string) (DBDriver, error) {
	switch dbType {
	case "mysql":
		return &MySQLDriver{
			Host:     cfg["host"],
			Port:     atoi(cfg["port"]),
			User:     cfg["user"],
			Pass:     cfg["password"],
			Database: cfg["database"],
		}, nil
	case "postgresql", "postgres":
		return &PostgresDriver{
			Host:     cfg["host"],
			Port:     atoi(cfg["port"]),
			User:     cfg["user"],
			Pass:     cfg["password"],
			Database: cfg["database"],
		}, nil
	default:
		err := errors.Errorf("unsupported database type: %s", dbType)
		typesLogger.Error("db error: %s", err.Error())
		return nil, err
	}
}

func atoi(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
