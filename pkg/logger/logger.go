// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFile is where a copy of all log output goes if it can be created.
const LogFile = "/tmp/lpcprotect.log"

var (
	LogContainer     logContainer
	loggerInit       sync.Once
	simpleLoggerInit sync.Once
	coreInit         sync.Once
)

type logContainer struct {
	logger       *zap.Logger
	simpleLogger *zap.SugaredLogger

	core *switchCore
	file *os.File
}

// GetLogger returns the pointer to the logger and creates one if none exists
func (l *logContainer) GetLogger() *zap.Logger {
	loggerInit.Do(func() {
		l.logger = zap.New(l.getCore())
	})
	return l.logger
}

// GetSimpleLogger returns the pointer to the sugared logger and creates one
// if none exists
func (l *logContainer) GetSimpleLogger() *zap.SugaredLogger {
	simpleLoggerInit.Do(func() {
		logger := zap.New(l.getCore())
		l.simpleLogger = logger.Sugar()
	})
	return l.simpleLogger
}

// SetLogger sends the output of every logger handed out so far, and of
// those handed out later, to z instead. The returned function restores
// the previous destination.
func (l *logContainer) SetLogger(z *zap.Logger) (restore func()) {
	c := l.getCore()
	prev := c.swap(z.Core())
	return func() { c.swap(prev) }
}

// Reopen builds the console and file outputs again. Call it after mounting
// a fresh /tmp, the file opened before that is no longer reachable.
func (l *logContainer) Reopen() {
	c := l.getCore()
	core, f := getCombinedCore()
	c.swap(core)
	if l.file != nil {
		l.file.Close()
	}
	l.file = f
}

// String mirrors zap.String
func (l *logContainer) String(key string, val string) zap.Field {
	return zap.String(key, val)
}

// Sync flushes both loggers. Call it before handing over to the next boot
// stage, nothing runs after a successful kexec.
func (l *logContainer) Sync() {
	if l.logger != nil {
		l.logger.Sync()
	}
	if l.simpleLogger != nil {
		l.simpleLogger.Sync()
	}
}

func (l *logContainer) getCore() *switchCore {
	coreInit.Do(func() {
		core, f := getCombinedCore()
		l.core = &switchCore{core: core}
		l.file = f
	})
	return l.core
}

// switchCore forwards to a core that can be replaced after loggers using
// it have been handed out.
type switchCore struct {
	mu   sync.RWMutex
	core zapcore.Core
}

func (c *switchCore) current() zapcore.Core {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.core
}

func (c *switchCore) swap(core zapcore.Core) zapcore.Core {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.core
	c.core = core
	return prev
}

func (c *switchCore) Enabled(lvl zapcore.Level) bool {
	return c.current().Enabled(lvl)
}

func (c *switchCore) With(fields []zapcore.Field) zapcore.Core {
	return c.current().With(fields)
}

func (c *switchCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return c.current().Check(ent, ce)
}

func (c *switchCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.current().Write(ent, fields)
}

func (c *switchCore) Sync() error {
	return c.current().Sync()
}

func getConsoleEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getJsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.EpochTimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// getLogFile returns nil if the log file cannot be created. Early in boot
// /tmp may not be mounted yet and that must not stop anything.
func getLogFile() *os.File {
	f, err := os.OpenFile(LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	return f
}

func getConsoleCore() zapcore.Core {
	return zapcore.NewCore(getConsoleEncoder(), zapcore.Lock(os.Stderr), zapcore.InfoLevel)
}

func getCombinedCore() (zapcore.Core, *os.File) {
	f := getLogFile()
	if f == nil {
		return getConsoleCore(), nil
	}
	return zapcore.NewTee(getConsoleCore(), zapcore.NewCore(getJsonEncoder(), zapcore.AddSync(f), zapcore.InfoLevel)), f
}
