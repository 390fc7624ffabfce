// Package logger provides the small logging interface shared by the worker,
// the scheduler and the recovery coordinator.
package logger

import (
	"fmt"
	"log"
	"sync"
)

// Logger is implemented by every log backend used in recuerdito.
type Logger interface {
	Info(format string, args ...any)
	Warning(format string, args ...any)
	Error(format string, args ...any)
}

// Standard wraps a stdlib *log.Logger and tags each line with a level and a
// component prefix such as "[worker]".
type Standard struct {
	logger *log.Logger
	prefix string
}

// New returns a Standard logger writing through l.
// A nil l uses log.Default().
func New(l *log.Logger, component string) *Standard {
	if l == nil {
		l = log.Default()
	}
	prefix := ""
	if component != "" {
		prefix = "[" + component + "] "
	}
	return &Standard{logger: l, prefix: prefix}
}

// With returns a logger for another component sharing the same output.
func (s *Standard) With(component string) *Standard {
	return New(s.logger, component)
}

func (s *Standard) Info(format string, args ...any) {
	s.logger.Printf(s.prefix+"INFO "+format, args...)
}

func (s *Standard) Warning(format string, args ...any) {
	s.logger.Printf(s.prefix+"WARN "+format, args...)
}

func (s *Standard) Error(format string, args ...any) {
	s.logger.Printf(s.prefix+"ERROR "+format, args...)
}

// Nop discards all messages.
type Nop struct{}

func (Nop) Info(string, ...any)    {}
func (Nop) Warning(string, ...any) {}
func (Nop) Error(string, ...any)   {}

// Mock records formatted messages for assertions in tests.
type Mock struct {
	mu       sync.Mutex
	Infos    []string
	Warnings []string
	Errors   []string
}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Info(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Infos = append(m.Infos, fmt.Sprintf(format, args...))
}

func (m *Mock) Warning(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

func (m *Mock) Error(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, fmt.Sprintf(format, args...))
}

// ErrorCount returns the number of recorded error lines.
func (m *Mock) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Errors)
}

var (
	_ Logger = (*Standard)(nil)
	_ Logger = Nop{}
	_ Logger = (*Mock)(nil)
)
