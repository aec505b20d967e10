// Copyright 2024 evolvedb.

// Package evolvetest contains useful helpers for testing evolve.
package evolvetest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// A Tester is the test interface required by this package.
type Tester interface {
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
	Name() string
}

// A gormLogger is a gorm.Logger that is used in tests. It logs everything
// to the test.
type gormLogger struct {
	t     Tester
	level logger.LogLevel
}

// NewGormLogger returns a gorm logger.Interface that can be used in a test.
// All output is logged to the test.
func NewGormLogger(t Tester, l logger.LogLevel) logger.Interface {
	return gormLogger{t: t, level: l}
}

func (l gormLogger) LogMode(_ logger.LogLevel) logger.Interface {
	return l
}

func (l gormLogger) Info(_ context.Context, format string, args ...interface{}) {
	l.logf(logger.Info, format, args...)
}

func (l gormLogger) Warn(_ context.Context, format string, args ...interface{}) {
	l.logf(logger.Warn, format, args...)
}

func (l gormLogger) Error(_ context.Context, format string, args ...interface{}) {
	l.logf(logger.Error, format, args...)
}

func (l gormLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if l.level >= level {
		l.t.Logf(format, args...)
	}
}

func (l gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, rows := fc()
	errS := "<nil>"
	if err != nil {
		errS = fmt.Sprintf("%q", err.Error())
	}
	l.Info(ctx, "sql:%q rows:%d, error:%s, duration:%0.3fms", sql, rows, errS, float64(time.Since(begin).Microseconds())/1e3)
}

var _ logger.Interface = gormLogger{}

var unsafeChars = regexp.MustCompile("[ .:;`'\"|<>~/\\?!@#$%^&*()[\\]{}=+-]")

// MemoryDB returns an in-memory SQLite database instance for tests. The
// database is private to the given test and logs to it.
func MemoryDB(t Tester) *gorm.DB {
	name := strings.ToLower(unsafeChars.ReplaceAllString(t.Name(), "_"))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(t, logger.Warn),
	})
	if err != nil {
		t.Fatalf("error opening database: %s", err)
	}
	return gdb
}
