// Package logx adds level tags to the standard logger.
package logx

import (
	"fmt"
	"log"
	"sync"

	"github.com/fatih/color"
)

// Level names passed to hooks.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warning"
	LevelError = "error"
)

var tags = map[string]*color.Color{
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

var (
	mu     sync.RWMutex
	debug  bool
	logger = log.Default()
	hook   func(level, msg string)
)

// SetDebug enables or disables Debugf output.
func SetDebug(on bool) {
	mu.Lock()
	debug = on
	mu.Unlock()
}

// SetLogger redirects output. Passing nil restores log.Default().
func SetLogger(l *log.Logger) {
	mu.Lock()
	if l == nil {
		l = log.Default()
	}
	logger = l
	mu.Unlock()
}

// SetHook registers fn to receive every emitted line; nil removes it.
// The server uses it to forward log lines to WebSocket clients.
func SetHook(fn func(level, msg string)) {
	mu.Lock()
	hook = fn
	mu.Unlock()
}

func Debugf(format string, args ...any) { emit(LevelDebug, format, args...) }
func Infof(format string, args ...any)  { emit(LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { emit(LevelWarn, format, args...) }
func Errorf(format string, args ...any) { emit(LevelError, format, args...) }

func emit(level, format string, args ...any) {
	mu.RLock()
	l, h, dbg := logger, hook, debug
	mu.RUnlock()

	if level == LevelDebug && !dbg {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.Printf("%s %s", tags[level].Sprintf("[%s]", level), msg)
	if h != nil {
		h(level, msg)
	}
}
