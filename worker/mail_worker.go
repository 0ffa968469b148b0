package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"projectflow/services"
	"projectflow/utils"
)

var ErrQueueFull = errors.New("mail queue is full")

type mailKind string

const (
	mailConfirmation  mailKind = "email_confirmation"
	mailPasswordReset mailKind = "password_reset"
	mailWelcome       mailKind = "welcome"
)

type MailJob struct {
	Kind        mailKind
	Address     string
	DisplayName string
	Token       string
}

// MailWorker queues account emails and delivers them in the background, so
// callers never wait on SMTP. It implements services.EmailGateway.
type MailWorker struct {
	Mailer services.EmailGateway
	Retry  utils.RetryPolicy
	Logger *logrus.Entry

	queue chan MailJob
	done  chan struct{}
}

func NewMailWorker(mailer services.EmailGateway, queueSize int, retry utils.RetryPolicy) *MailWorker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &MailWorker{
		Mailer: mailer,
		Retry:  retry,
		Logger: logrus.WithField("component", "mail_worker"),
		queue:  make(chan MailJob, queueSize),
		done:   make(chan struct{}),
	}
}

func (mw *MailWorker) SendEmailConfirmation(address, displayName, token string) error {
	return mw.enqueue(MailJob{Kind: mailConfirmation, Address: address, DisplayName: displayName, Token: token})
}

func (mw *MailWorker) SendPasswordReset(address, displayName, token string) error {
	return mw.enqueue(MailJob{Kind: mailPasswordReset, Address: address, DisplayName: displayName, Token: token})
}

func (mw *MailWorker) SendWelcome(address, displayName string) error {
	return mw.enqueue(MailJob{Kind: mailWelcome, Address: address, DisplayName: displayName})
}

func (mw *MailWorker) enqueue(job MailJob) error {
	select {
	case mw.queue <- job:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s for %s", ErrQueueFull, job.Kind, job.Address)
	}
}

// Start delivers queued mail until ctx is cancelled, then flushes what is
// already queued and closes Done.
func (mw *MailWorker) Start(ctx context.Context) {
	defer close(mw.done)
	mw.Logger.Info("Mail worker started")

	for {
		select {
		case <-ctx.Done():
			mw.drain()
			mw.Logger.Info("Mail worker shutting down...")
			return
		case job := <-mw.queue:
			mw.deliver(ctx, job)
		}
	}
}

// Done is closed once Start has returned.
func (mw *MailWorker) Done() <-chan struct{} {
	return mw.done
}

func (mw *MailWorker) drain() {
	for {
		select {
		case job := <-mw.queue:
			mw.deliver(context.Background(), job)
		default:
			return
		}
	}
}

func (mw *MailWorker) deliver(ctx context.Context, job MailJob) {
	err := utils.Retry(ctx, mw.Retry, utils.ClassifySMTPFailure, func(context.Context) error {
		return mw.dispatch(job)
	})
	if err != nil {
		utils.LogError("mail_delivery", err, map[string]interface{}{
			"kind": string(job.Kind),
			"to":   job.Address,
		})
		return
	}
	mw.Logger.WithFields(logrus.Fields{"kind": job.Kind, "to": job.Address}).Debug("Mail delivered")
}

func (mw *MailWorker) dispatch(job MailJob) error {
	switch job.Kind {
	case mailConfirmation:
		return mw.Mailer.SendEmailConfirmation(job.Address, job.DisplayName, job.Token)
	case mailPasswordReset:
		return mw.Mailer.SendPasswordReset(job.Address, job.DisplayName, job.Token)
	case mailWelcome:
		return mw.Mailer.SendWelcome(job.Address, job.DisplayName)
	}
	return fmt.Errorf("unknown mail kind %q", job.Kind)
}
