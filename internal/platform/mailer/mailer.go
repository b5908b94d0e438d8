package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/events"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	"github.com/sony/gobreaker/v2"
	"github.com/yuin/goldmark"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the breaker rejects deliveries.
var ErrCircuitOpen = errors.New("mail delivery suspended after repeated failures")

// breakerCooldown is how long the breaker stays open before probing again.
const breakerCooldown = 30 * time.Second

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends mail with net/smtp using PLAIN auth when credentials are set.
type SMTPSender struct {
	addr string
	host string
	from string
	auth smtp.Auth
}

// NewSMTPSender builds a sender from cfg.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	s := &SMTPSender{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host: cfg.Host,
		from: cfg.From,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s
}

// Send implements Sender. smtp.SendMail upgrades to STARTTLS when offered.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := buildMIME(s.from, msg)
	if err != nil {
		return err
	}
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("smtp send to %s: %w", s.host, err)
	}
	return nil
}

// buildMIME encodes msg as multipart/alternative with text and HTML parts.
func buildMIME(from string, msg Message) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", msg.TextBody},
		{"text/html; charset=utf-8", msg.HTMLBody},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, fmt.Errorf("create mime part: %w", err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close mime writer: %w", err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", from)
	fmt.Fprintf(&out, "To: %s\r\n", msg.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&out, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// Mailer renders assignment notifications and sends them through a rate
// limiter and a circuit breaker.
type Mailer struct {
	sender  Sender
	md      goldmark.Markdown
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
	appURL  string
	logger  *slog.Logger
}

// New creates a Mailer that delivers through sender.
func New(sender Sender, cfg config.MailConfig, log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "mailer"))

	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	maxFailures := uint32(cfg.BreakerMaxFailures)
	if maxFailures == 0 {
		maxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "smtp",
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("mail circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return &Mailer{
		sender:  sender,
		md:      goldmark.New(),
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		breaker: breaker,
		appURL:  cfg.AppURL,
		logger:  log,
	}
}

// NotifyAssignment renders and sends the notification for p.
func (m *Mailer) NotifyAssignment(ctx context.Context, p events.AssignmentPayload) error {
	log := logger.FromContextOrDefault(ctx, m.logger)

	if p.UserEmail == "" {
		return fmt.Errorf("assignment %s has no recipient email", p.AssignmentID)
	}

	msg, err := RenderAssignment(m.md, p, m.appURL)
	if err != nil {
		return err
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail rate limiter: %w", err)
	}

	_, err = m.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, m.sender.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Warn("mail circuit open, notification skipped",
			slog.String("assignment_id", p.AssignmentID.String()))
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if err != nil {
		log.Error("failed to send assignment notification",
			slog.String("assignment_id", p.AssignmentID.String()),
			slog.String("error", err.Error()))
		return err
	}

	log.Info("assignment notification sent",
		slog.String("assignment_id", p.AssignmentID.String()),
		slog.String("priority", string(p.Priority)))
	return nil
}

// LogNotifier records notifications in the log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier is used when mail delivery is disabled.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{logger: log.With(slog.String("component", "log_notifier"))}
}

// NotifyAssignment implements the notifier contract by logging p.
func (n *LogNotifier) NotifyAssignment(ctx context.Context, p events.AssignmentPayload) error {
	logger.FromContextOrDefault(ctx, n.logger).Info("assignment notification (mail disabled)",
		slog.String("assignment_id", p.AssignmentID.String()),
		slog.String("task_title", p.TaskTitle),
		slog.String("user_email", p.UserEmail),
		slog.String("priority", string(p.Priority)))
	return nil
}
