package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ct-exchange/internal/db"
	"ct-exchange/internal/exchange"
	"ct-exchange/internal/market"
	"ct-exchange/pkg/log"

	"github.com/pkg/errors"
)

// ServerConfig задаёт конфигурацию HTTP-сервера
type ServerConfig struct {
	Port         int
	RequestLimit int // максимум для limit в /orderbook и /trades
}

// Server - HTTP-шлюз только для чтения поверх адаптера биржи
type Server struct {
	cfg     ServerConfig
	adapter exchange.Adapter
	driver  db.DBDriver // может быть nil
	logger  *log.Logger
	started time.Time
	clock   func() time.Time
}

// NewServer создаёт новый API-сервер
func NewServer(cfg ServerConfig, adapter exchange.Adapter, driver db.DBDriver) *Server {
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = 1000
	}
	return &Server{
		cfg:     cfg,
		adapter: adapter,
		driver:  driver,
		logger:  log.New("api"),
		started: time.Now(),
		clock:   time.Now,
	}
}

// Handler возвращает маршруты сервера
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.logged(s.handleStatus))
	mux.HandleFunc("/markets", s.logged(s.handleMarkets))
	mux.HandleFunc("/ticker", s.logged(s.handleTicker))
	mux.HandleFunc("/orderbook", s.logged(s.handleOrderBook))
	mux.HandleFunc("/trades", s.logged(s.handleTrades))
	return mux
}

// Start запускает HTTP-сервер и останавливает его по отмене ctx
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("0.0.0.0:%d", s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API Server listening on %s (exchange %s)", addr, s.adapter.ID())
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		s.logger.Info("API Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logged(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("[API] %s request from %s, params: %v", r.URL.Path, r.RemoteAddr, r.URL.Query())
		if r.Method != http.MethodGet {
			s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "MethodNotAllowed", Message: r.Method + " is not allowed"})
			return
		}
		next(w, r)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("[API] JSON encode error: %v", err)
	}
}

// writeError переводит вид ошибки биржи в HTTP-статус
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := exchange.KindOf(err)
	status := StatusForKind(kind)
	if kind == "" {
		kind = exchange.ExchangeError
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn("[API] %v", err)
	}
	s.writeJSON(w, status, errorBody{Error: string(kind), Message: err.Error()})
}

// StatusForKind - HTTP-статус ответа шлюза для вида ошибки биржи
func StatusForKind(kind exchange.Kind) int {
	switch {
	case kind == "":
		return http.StatusInternalServerError
	case kind.IsA(exchange.BadSymbol), kind.IsA(exchange.BadRequest), kind.IsA(exchange.ArgumentsRequired):
		return http.StatusBadRequest
	case kind.IsA(exchange.NotSupported):
		return http.StatusNotImplemented
	case kind.IsA(exchange.AuthenticationError):
		return http.StatusUnauthorized
	case kind.IsA(exchange.DDoSProtection):
		return http.StatusTooManyRequests
	case kind.IsA(exchange.RequestTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func requireSymbol(r *http.Request) (string, error) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		return "", exchange.NewError(exchange.ArgumentsRequired, "", "symbol query parameter is required")
	}
	return symbol, nil
}

func (s *Server) limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, exchange.NewError(exchange.BadRequest, "", "limit must be a non-negative integer, got %q", raw)
	}
	if n > s.cfg.RequestLimit {
		n = s.cfg.RequestLimit
	}
	return n, nil
}

// handleStatus: статус биржи; без fetchStatus биржа считается доступной
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"exchange": s.adapter.ID(),
		"uptime":   int64(s.clock().Sub(s.started).Seconds()),
	}
	st, err := s.adapter.FetchStatus(r.Context())
	switch {
	case err == nil:
		status["exchange_status"] = st
	case errors.Is(err, exchange.NotSupported):
		status["exchange_status"] = market.ExchangeStatus{Status: "ok", Updated: s.clock().UTC()}
	default:
		s.logger.Debug("[API] fetchStatus error: %v", err)
		status["exchange_status"] = market.ExchangeStatus{Status: "error"}
		status["exchange_error"] = err.Error()
	}
	if s.driver != nil {
		if err := s.driver.Ping(r.Context()); err != nil {
			s.logger.Debug("[API] DB ping error: %v", err)
			status["db_status"] = "DISCONNECTED"
		} else {
			status["db_status"] = "CONNECTED"
		}
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	reload := r.URL.Query().Get("reload") == "true"
	set, err := s.adapter.LoadMarkets(r.Context(), reload)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, set.Markets())
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	symbol, err := requireSymbol(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ticker, err := s.adapter.FetchTicker(r.Context(), symbol, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ticker)
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol, err := requireSymbol(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, err := s.limit(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ob, err := s.adapter.FetchOrderBook(r.Context(), symbol, limit, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ob)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	symbol, err := requireSymbol(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, err := s.limit(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	trades, err := s.adapter.FetchTrades(r.Context(), symbol, time.Time{}, limit, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if trades == nil {
		trades = []market.Trade{}
	}
	s.writeJSON(w, http.StatusOK, trades)
}
