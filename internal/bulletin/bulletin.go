// Package bulletin carries fire-and-forget operational alerts, such as a
// service that could not be enabled, from the components that notice them to
// whoever is watching.
package bulletin

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity ranks a bulletin.
type Severity string

const (
	Info    Severity = "INFO"
	Warning Severity = "WARNING"
	Error   Severity = "ERROR"
)

// CategoryControllerService is the category used for service lifecycle
// bulletins.
const CategoryControllerService = "Controller Service"

// Bulletin is a single operational alert.
type Bulletin struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// New stamps a bulletin with a fresh identifier and the current time.
func New(category string, severity Severity, message string) Bulletin {
	return Bulletin{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Category:  category,
		Severity:  severity,
		Message:   message,
	}
}

// String renders the bulletin on one line.
func (b Bulletin) String() string {
	return fmt.Sprintf("[%s] %s: %s", b.Severity, b.Category, b.Message)
}

// Sink receives bulletins. Report must not block for long and must never
// fail the caller; implementations deal with their own delivery errors.
type Sink interface {
	Report(category string, severity Severity, message string)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(string, Severity, string) {}

// multi fans a bulletin out to several sinks.
type multi []Sink

// Multi returns a Sink that reports to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) Report(category string, severity Severity, message string) {
	for _, s := range m {
		s.Report(category, severity, message)
	}
}
