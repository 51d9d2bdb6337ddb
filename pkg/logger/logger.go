package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Log channels. Each channel with a directory configured also writes JSON lines to <dir>/<channel>.log.
const (
	ChannelWebsite = "website"
	ChannelJobs    = "jobs"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// Options controls where a logger writes
type Options struct {
	Level   string
	Channel string
	Dir     string
}

// New creates a console-only logger using LOG_LEVEL
func New() *Logger {
	l, _ := NewWithOptions(Options{Level: os.Getenv("LOG_LEVEL")})
	return l
}

// NewWithOptions creates a logger that writes to stdout and, when Dir is set, to a per-channel JSON file.
// The returned closer releases the file handle.
func NewWithOptions(opts Options) (*Logger, io.Closer) {
	level := getLogLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var console slog.Handler
	if gin.Mode() == gin.DebugMode {
		console = slog.NewTextHandler(os.Stdout, handlerOpts)
	} else {
		console = slog.NewJSONHandler(os.Stdout, handlerOpts)
	}

	var closer io.Closer = nopCloser{}
	handler := console
	if opts.Dir != "" && opts.Channel != "" {
		if f, err := openLogFile(opts.Dir, opts.Channel); err == nil {
			fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
			handler = teeHandler{console, fileHandler}
			closer = f
		} else {
			slog.New(console).Warn("log file unavailable, logging to stdout only",
				slog.String("channel", opts.Channel), slog.String("error", err.Error()))
		}
	}

	l := slog.New(handler)
	if opts.Channel != "" {
		l = l.With(slog.String("channel", opts.Channel))
	}
	return &Logger{Logger: l}, closer
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// FilePath returns the file a channel writes to under dir
func FilePath(dir, channel string) string {
	return filepath.Join(dir, channel+".log")
}

func openLogFile(dir, channel string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(FilePath(dir, channel), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// teeHandler fans a record out to several handlers
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("request_id", requestID))}
}

// WithUserID adds user ID to logger context
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("user_id", userID))}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("error", err.Error()))}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{Logger: l.Logger.With(args...)}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	attrs := []any{
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	}
	if id := c.GetString("request_id"); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if userID := c.GetString("user_id"); userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}

	switch {
	case c.Writer.Status() >= 500:
		l.Logger.ErrorContext(c.Request.Context(), "HTTP Request", attrs...)
	case c.Writer.Status() >= 400:
		l.Logger.WarnContext(c.Request.Context(), "HTTP Request", attrs...)
	default:
		l.Logger.InfoContext(c.Request.Context(), "HTTP Request", attrs...)
	}
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Reservation lifecycle logging methods

// LogReservationCreated logs when a reservation is created
func (l *Logger) LogReservationCreated(ctx context.Context, reservationID, spaceID, userID string, amount float64) {
	l.Logger.InfoContext(ctx,
		"Reservation Created",
		slog.String("reservation_id", reservationID),
		slog.String("space_id", spaceID),
		slog.String("user_id", userID),
		slog.Float64("amount", amount),
	)
}

// LogReservationCancelled logs when a reservation is cancelled by its owner
func (l *Logger) LogReservationCancelled(ctx context.Context, reservationID, userID string) {
	l.Logger.InfoContext(ctx,
		"Reservation Cancelled",
		slog.String("reservation_id", reservationID),
		slog.String("user_id", userID),
	)
}

// LogPaymentVerified logs a verified gateway callback
func (l *Logger) LogPaymentVerified(ctx context.Context, reservationID, orderID string, replay bool) {
	l.Logger.InfoContext(ctx,
		"Payment Verified",
		slog.String("reservation_id", reservationID),
		slog.String("order_id", orderID),
		slog.Bool("replay", replay),
	)
}

// LogTicketScanned logs a gate scan outcome
func (l *Logger) LogTicketScanned(ctx context.Context, ticketNumber string, valid bool, message string) {
	l.Logger.InfoContext(ctx,
		"Ticket Scanned",
		slog.String("ticket_number", ticketNumber),
		slog.Bool("valid", valid),
		slog.String("message", message),
	)
}

// LogSweep logs the outcome of one reconciliation sweep
func (l *Logger) LogSweep(ctx context.Context, sweep string, transitioned, failed int, duration time.Duration) {
	l.Logger.InfoContext(ctx,
		"Sweep Completed",
		slog.String("sweep", sweep),
		slog.Int("transitioned", transitioned),
		slog.Int("failed", failed),
		slog.Duration("duration", duration),
	)
}

// Security logging methods

// LogAuthSuccess logs successful authentication
func (l *Logger) LogAuthSuccess(ctx context.Context, userID, method string) {
	l.Logger.InfoContext(ctx,
		"Authentication Success",
		slog.String("user_id", userID),
		slog.String("method", method),
	)
}

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Process-wide fallback for code paths that are not handed a logger.
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
