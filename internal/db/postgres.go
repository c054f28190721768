package db

import (
	"context"
	"database/sql"
	"fmt"

	sqlPostgres "ct-exchange/internal/sql/postgres"
	"ct-exchange/pkg/log"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

var pgLogger = log.New("postgres")

// PostgresDriver реализует DBDriver для PostgreSQL
type PostgresDriver struct {
	DB       *sql.DB
	Host     string
	Port     int
	User     string
	Pass     string
	Database string
}

// DSN - строка подключения lib/pq
func (p *PostgresDriver) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable connect_timeout=5",
		p.Host, p.Port, p.User, quoteDSNValue(p.Pass), p.Database)
}

// quoteDSNValue экранирует значение с пробелами или кавычками
func quoteDSNValue(v string) string {
	if v == "" {
		return "''"
	}
	needQuote := false
	out := make([]byte, 0, len(v)+2)
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch c {
		case ' ', '\t':
			needQuote = true
		case '\'', '\\':
			needQuote = true
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	if needQuote {
		return "'" + string(out) + "'"
	}
	return v
}

func (p *PostgresDriver) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", p.DSN())
	if err != nil {
		return errors.Wrap(err, "open postgres")
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	p.DB = db
	pgLogger.Debug("Connecting to %s:%d/%s", p.Host, p.Port, p.Database)
	return p.Ping(ctx)
}

func (p *PostgresDriver) Close() error {
	if p.DB != nil {
		return p.DB.Close()
	}
	return nil
}

func (p *PostgresDriver) Ping(ctx context.Context) error {
	if p.DB == nil {
		return errors.New("postgres: not connected")
	}
	return p.DB.PingContext(ctx)
}

// GetExchangeByName возвращает Exchange по имени
func (p *PostgresDriver) GetExchangeByName(ctx context.Context, name string) (*Exchange, error) {
	ex, err := scanExchange(p.DB.QueryRowContext(ctx, sqlPostgres.GetExchangeByName, name))
	if err != nil {
		return nil, errors.Wrapf(err, "exchange %s", name)
	}
	return ex, nil
}

// GetActiveExchanges возвращает активные биржи
func (p *PostgresDriver) GetActiveExchanges(ctx context.Context) ([]Exchange, error) {
	rows, err := p.DB.QueryContext(ctx, sqlPostgres.GetActiveExchanges)
	if err != nil {
		return nil, errors.Wrap(err, "query active exchanges")
	}
	return scanExchanges(rows)
}

// GetType возвращает тип базы данных
func (p *PostgresDriver) GetType() string {
	return "postgres"
}
