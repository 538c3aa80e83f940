// AngelaMos | 2026
// mailer.go

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/carterperez-dev/templates/configurator-api/internal/config"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer stands in when SMTP is not configured. It never fails.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "mail delivery disabled, message dropped",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// ErrMailUnavailable means the breaker is open and the message was not
// attempted.
var ErrMailUnavailable = errors.New("mail delivery unavailable")

// BreakerMailer stops calling a failing relay for a cool-down period so
// request paths that send mail do not stack up on timeouts.
type BreakerMailer struct {
	next   Mailer
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger *slog.Logger
}

func NewBreakerMailer(next Mailer, logger *slog.Logger) *BreakerMailer {
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("mail circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerMailer{next: next, cb: cb, logger: logger}
}

func (m *BreakerMailer) Send(ctx context.Context, msg Message) error {
	_, err := m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.next.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("send to %s: %w", msg.To, ErrMailUnavailable)
	}
	return err
}

func (m *BreakerMailer) State() gobreaker.State {
	return m.cb.State()
}

// New returns the mailer for cfg: SMTP behind a circuit breaker when
// enabled, otherwise a LogMailer.
func New(cfg config.MailConfig, logger *slog.Logger) Mailer {
	if !cfg.Enabled {
		return NewLogMailer(logger)
	}
	return NewBreakerMailer(NewSMTPMailer(cfg), logger)
}
