package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectflow/utils"
)

type stubMailer struct {
	mu        sync.Mutex
	delivered []string
	failures  map[string][]error
	calls     map[string]int
}

func newStubMailer() *stubMailer {
	return &stubMailer{failures: map[string][]error{}, calls: map[string]int{}}
}

func (m *stubMailer) send(kind, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[address]++
	if errs := m.failures[address]; len(errs) > 0 {
		m.failures[address] = errs[1:]
		return errs[0]
	}
	m.delivered = append(m.delivered, kind+":"+address)
	return nil
}

func (m *stubMailer) SendEmailConfirmation(address, _, _ string) error {
	return m.send("confirm", address)
}

func (m *stubMailer) SendPasswordReset(address, _, _ string) error {
	return m.send("reset", address)
}

func (m *stubMailer) SendWelcome(address, _ string) error {
	return m.send("welcome", address)
}

func noWait() utils.RetryPolicy {
	return utils.RetryPolicy{Attempts: 3, Sleep: func(time.Duration) {}}
}

func runUntilDrained(t *testing.T, mw *MailWorker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go mw.Start(ctx)
	select {
	case <-mw.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("mail worker did not stop")
	}
}

func TestMailWorkerDeliversQueuedMail(t *testing.T) {
	mailer := newStubMailer()
	mw := NewMailWorker(mailer, 10, noWait())

	require.NoError(t, mw.SendEmailConfirmation("a@example.com", "A", "tok"))
	require.NoError(t, mw.SendPasswordReset("b@example.com", "B", "tok"))
	require.NoError(t, mw.SendWelcome("c@example.com", "C"))
	runUntilDrained(t, mw)

	assert.Equal(t, []string{"confirm:a@example.com", "reset:b@example.com", "welcome:c@example.com"}, mailer.delivered)
}

func TestMailWorkerRetriesTemporarySMTPFailures(t *testing.T) {
	mailer := newStubMailer()
	mailer.failures["flaky@example.com"] = []error{errors.New("421 service not available, try again later")}
	mailer.failures["bounce@example.com"] = []error{errors.New("550 mailbox unavailable")}
	mw := NewMailWorker(mailer, 10, noWait())

	require.NoError(t, mw.SendWelcome("flaky@example.com", "F"))
	require.NoError(t, mw.SendWelcome("bounce@example.com", "B"))
	runUntilDrained(t, mw)

	assert.Equal(t, 2, mailer.calls["flaky@example.com"])
	assert.Equal(t, 1, mailer.calls["bounce@example.com"])
	assert.Equal(t, []string{"welcome:flaky@example.com"}, mailer.delivered)
}

func TestMailWorkerRejectsWhenQueueIsFull(t *testing.T) {
	mw := NewMailWorker(newStubMailer(), 1, noWait())
	require.NoError(t, mw.SendWelcome("one@example.com", "One"))

	err := mw.SendWelcome("two@example.com", "Two")
	assert.ErrorIs(t, err, ErrQueueFull)
}
