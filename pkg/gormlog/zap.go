package gormlog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"

	"github.com/socialpulse/backend/pkg/logctx"
)

// slowThreshold marks queries worth a gorm_slow warning.
const slowThreshold = 500 * time.Millisecond

// Logger adapts gorm's logger.Interface onto zap, picking up trace_id and
// user_id from the query context through logctx.
type Logger struct {
	base  *zap.SugaredLogger
	level gormlogger.LogLevel
}

func New(base *zap.SugaredLogger) *Logger {
	return &Logger{base: base, level: gormlogger.Warn}
}

func (g *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &Logger{base: g.base, level: level}
}

func (g *Logger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Info {
		logctx.FromCtx(ctx, g.base).Infow(msg, "args", data)
	}
}

func (g *Logger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Warn {
		logctx.FromCtx(ctx, g.base).Warnw(msg, "args", data)
	}
}

func (g *Logger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Error {
		logctx.FromCtx(ctx, g.base).Errorw(msg, "args", data)
	}
}

func (g *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []interface{}{
		"rows", rows,
		"elapsed_ms", elapsed.Milliseconds(),
		"caller", shortCaller(utils.FileWithLineNum()),
	}

	lg := logctx.FromCtx(ctx, g.base)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound):
		lg.Errorw("gorm_trace", append(fields, "err", err, "sql", sql)...)
	case elapsed > slowThreshold:
		lg.Warnw("gorm_slow", append(fields, "sql", sql)...)
	case g.level >= gormlogger.Info:
		lg.Infow("gorm", append(fields, "sql", sql)...)
	}
}

// shortCaller trims the absolute build path down to the repo-relative part.
func shortCaller(s string) string {
	if s == "" {
		return s
	}
	pathPart, linePart := s, ""
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		pathPart, linePart = s[:idx], s[idx:]
	}
	p := filepath.ToSlash(pathPart)
	for _, marker := range []string{"/internal/", "/pkg/", "/cmd/"} {
		if i := strings.Index(p, marker); i >= 0 {
			return p[i+1:] + linePart
		}
	}
	if parts := strings.Split(p, "/"); len(parts) >= 3 {
		return strings.Join(parts[len(parts)-3:], "/") + linePart
	}
	return strings.TrimPrefix(p, "/") + linePart
}
