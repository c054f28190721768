package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level - уровень логирования
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel парсит строку в Level (case-insensitive)
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %s", s)
	}
}

// sink - файл с ротацией по размеру
type sink struct {
	path string
	file *os.File
}

func openSink(path string) (*sink, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &sink{path: path, file: f}, nil
}

func (s *sink) write(line string) error {
	if s.file == nil {
		return nil
	}
	if st, err := s.file.Stat(); err == nil && st.Size()+int64(len(line)) > maxLogSize {
		s.file.Close()
		rotated := fmt.Sprintf("%s.%s", s.path, time.Now().Format("20060102_150405"))
		os.Rename(s.path, rotated)
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			s.file = nil
			return err
		}
		s.file = f
	}
	_, err := s.file.WriteString(line)
	return err
}

func (s *sink) close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

var (
	mu          sync.Mutex
	global      *sink
	output      io.Writer = os.Stdout
	globalMode        = true // true - всё в один файл, false - у модуля может быть свой файл
	globalLevel       = InfoLevel
	maxLogSize  int64 = 10 * 1024 * 1024
)

// SetMaxLogSize задаёт максимальный размер файла для ротации (в байтах)
func SetMaxLogSize(size int64) {
	mu.Lock()
	defer mu.Unlock()
	if size > 0 {
		maxLogSize = size
	}
}

// SetGlobalLevel задаёт уровень для всех логгеров без собственного уровня
func SetGlobalLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	globalLevel = level
}

// SetGlobalMode переключает режим: true - общий файл, false - модульные файлы
func SetGlobalMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	globalMode = enabled
}

// SetOutput задаёт writer для режима без файла (по умолчанию stdout)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	output = w
}

// Init открывает общий лог-файл; пустой путь - писать в output
func Init(filePath string) error {
	mu.Lock()
	defer mu.Unlock()
	if err := global.close(); err != nil {
		return fmt.Errorf("failed to close previous log file: %w", err)
	}
	global = nil
	if filePath == "" {
		return nil
	}
	s, err := openSink(filePath)
	if err != nil {
		return err
	}
	global = s
	return nil
}

// Close закрывает общий лог-файл
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	err := global.close()
	global = nil
	return err
}

// Logger - логгер модуля
type Logger struct {
	module string
	own    *sink
	level  *Level
}

// New создаёт логгер модуля (общий режим)
func New(module string) *Logger {
	return &Logger{module: module}
}

// NewWithFile создаёт логгер с отдельным файлом (только в модульном режиме)
func NewWithFile(module, filePath string) (*Logger, error) {
	mu.Lock()
	defer mu.Unlock()
	if globalMode || filePath == "" {
		return &Logger{module: module}, nil
	}
	s, err := openSink(filePath)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", module, err)
	}
	return &Logger{module: module, own: s}, nil
}

// Module возвращает имя модуля
func (l *Logger) Module() string { return l.module }

// SetLevel задаёт уровень конкретного логгера
func (l *Logger) SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	l.level = &level
}

// Enabled сообщает, будет ли записано сообщение уровня level
func (l *Logger) Enabled(level Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return level >= l.effectiveLevel()
}

func (l *Logger) effectiveLevel() Level {
	if l.level != nil {
		return *l.level
	}
	return globalLevel
}

func (l *Logger) output(level Level, format string, args ...interface{}) {
	ts := time.Now().Format("2006-01-02 15:04:05.000000")
	mu.Lock()
	defer mu.Unlock()
	if level < l.effectiveLevel() {
		return
	}
	line := fmt.Sprintf("%s\t%s\t%s\t%s\n", ts, level.String(), l.module, fmt.Sprintf(format, args...))

	var err error
	switch {
	case !globalMode && l.own != nil:
		err = l.own.write(line)
	case global != nil:
		err = global.write(line)
	default:
		_, err = io.WriteString(output, line)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "log write error: %v\n", err)
	}
}

// Close закрывает собственный файл логгера
func (l *Logger) Close() error {
	mu.Lock()
	defer mu.Unlock()
	err := l.own.close()
	l.own = nil
	return err
}

func (l *Logger) Debug(format string, args ...interface{}) { l.output(DebugLevel, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.output(InfoLevel, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.output(WarnLevel, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.output(ErrorLevel, format, args...) }
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.output(FatalLevel, format, args...)
	os.Exit(1)
}
