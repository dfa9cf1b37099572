package testutil

import (
	"context"
	"sync"

	"github.com/wneessen/go-mail"
)

// RecordingMailer captures outgoing messages instead of delivering them.
type RecordingMailer struct {
	mu   sync.Mutex
	Sent []*mail.Msg
	Err  error
}

// Send records msg, or returns Err when set.
func (m *RecordingMailer) Send(_ context.Context, msg *mail.Msg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// Last returns the most recent message, or nil.
func (m *RecordingMailer) Last() *mail.Msg {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return m.Sent[len(m.Sent)-1]
}
