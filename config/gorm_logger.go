package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormLogger routes gorm's SQL trace into logrus.
type GormLogger struct {
	log           *logrus.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(l *logrus.Logger) *GormLogger {
	level := logger.Warn
	if l.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}
	return &GormLogger{log: l, level: level, slowThreshold: 200 * time.Millisecond}
}

func (g *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *g
	c.level = level
	return &c
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Info {
		g.log.WithContext(ctx).Infof(msg, data...)
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Warn {
		g.log.WithContext(ctx).Warnf(msg, data...)
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Error {
		g.log.WithContext(ctx).Errorf(msg, data...)
	}
}

// Trace implements the logger.Interface
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	entry := g.log.WithContext(ctx).WithFields(logrus.Fields{
		"module":  "gorm",
		"sql":     sql,
		"rows":    rows,
		"elapsed": elapsed.String(),
	})

	switch {
	case err != nil && g.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		entry.Error(err.Error())
	case elapsed > g.slowThreshold && g.level >= logger.Warn:
		entry.Warn(fmt.Sprintf("slow query >= %v", g.slowThreshold))
	case g.level >= logger.Info:
		entry.Debug("query")
	}
}
