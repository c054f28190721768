package db

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	sqlMysql "ct-exchange/internal/sql/mysql"
	"ct-exchange/pkg/log"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

var mysqlLogger = log.New("mysql")

// MySQLDriver реализует DBDriver для MySQL
type MySQLDriver struct {
	DB       *sql.DB
	Host     string
	Port     int
	User     string
	Pass     string
	Database string
}

// DSN собирает строку подключения драйвера go-sql-driver
func (m *MySQLDriver) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = m.User
	cfg.Passwd = m.Pass
	cfg.Net = "tcp"
	cfg.Addr = m.Host + ":" + strconv.Itoa(m.Port)
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Timeout = 5 * time.Second
	return cfg.FormatDSN()
}

func (m *MySQLDriver) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", m.DSN())
	if err != nil {
		return errors.Wrap(err, "open mysql")
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	m.DB = db
	mysqlLogger.Debug("Connecting to %s:%d/%s", m.Host, m.Port, m.Database)
	return m.Ping(ctx)
}

func (m *MySQLDriver) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

func (m *MySQLDriver) Ping(ctx context.Context) error {
	if m.DB == nil {
		return errors.New("mysql: not connected")
	}
	return m.DB.PingContext(ctx)
}

// GetExchangeByName возвращает Exchange по имени
func (m *MySQLDriver) GetExchangeByName(ctx context.Context, name string) (*Exchange, error) {
	ex, err := scanExchange(m.DB.QueryRowContext(ctx, sqlMysql.GetExchangeByName, name))
	if err != nil {
		return nil, errors.Wrapf(err, "exchange %s", name)
	}
	return ex, nil
}

// GetActiveExchanges возвращает активные биржи
func (m *MySQLDriver) GetActiveExchanges(ctx context.Context) ([]Exchange, error) {
	rows, err := m.DB.QueryContext(ctx, sqlMysql.GetActiveExchanges)
	if err != nil {
		return nil, errors.Wrap(err, "query active exchanges")
	}
	return scanExchanges(rows)
}

// GetType возвращает тип базы данных
func (m *MySQLDriver) GetType() string {
	return "mysql"
}
