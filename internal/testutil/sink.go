package testutil

import (
	"sync"

	"github.com/specialistvlad/svcgrid/internal/bulletin"
)

// RecordingSink keeps every reported bulletin for later assertions.
type RecordingSink struct {
	mu        sync.Mutex
	bulletins []bulletin.Bulletin
}

// Report implements bulletin.Sink.
func (s *RecordingSink) Report(category string, severity bulletin.Severity, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulletins = append(s.bulletins, bulletin.New(category, severity, message))
}

// Bulletins returns a copy of everything reported so far.
func (s *RecordingSink) Bulletins() []bulletin.Bulletin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bulletin.Bulletin(nil), s.bulletins...)
}

// Messages returns the message of every reported bulletin, in order.
func (s *RecordingSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.bulletins))
	for i, b := range s.bulletins {
		out[i] = b.Message
	}
	return out
}
