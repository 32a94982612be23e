// Package notify mails a digest of the newest price changes.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"partwatch/internal/catalog"
	"partwatch/internal/components/assert"
	"partwatch/internal/components/telemetry"
	"partwatch/internal/history"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("partwatch/internal/notify")

const report_send = "notify.send"

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && len(c.Recipients) > 0
}

type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

func defaultSend(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

type Notifier struct {
	config SmtpConfig
	send   sendFunc
	tel    telemetry.API
}

func NewNotifier(config SmtpConfig, tel telemetry.API) Notifier {
	assert.NotNil(tel)
	return Notifier{
		config: config,
		send:   defaultSend,
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
}

// Compose builds the digest mail of one day of changes.
func (n Notifier) Compose(day history.DayChanges) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("partwatch <%s>", n.config.EmailAddress)
	mail.To = n.config.Recipients
	mail.Subject = fmt.Sprintf(
		"[partwatch] %s 가격 변동 %d건",
		day.Date.Format("2006-01-02"),
		len(day.Changes),
	)

	var body strings.Builder
	fmt.Fprintf(
		&body, "%s (vs %s)\n\n",
		day.Date.Format(catalog.CAPTURED_AT_LAYOUT),
		day.PrevDate.Format(catalog.CAPTURED_AT_LAYOUT),
	)
	for _, c := range day.Changes {
		body.WriteString(history.Format(c))
		body.WriteString("\n")
	}
	mail.Text = []byte(body.String())
	return mail
}

// Digest mails the changes the snapshot captured at capturedAt made. It does nothing
// when mail is not configured or that snapshot changed nothing, older groups of
// changes are never mailed again.
func (n Notifier) Digest(ctx context.Context, capturedAt time.Time, days []history.DayChanges) error {
	if !n.config.Enabled() || len(days) == 0 {
		return nil
	}
	if !days[0].Date.Equal(capturedAt) {
		n.tel.ReportDebug("no changes in snapshot, skip digest", capturedAt.Format(catalog.CAPTURED_AT_LAYOUT))
		return nil
	}
	_, span := tracer.Start(ctx, "Digest")
	defer span.End()

	mail := n.Compose(days[0])
	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)

	err := n.send(
		mail,
		addr,
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		n.tel.ReportBroken(report_send, err)
		return err
	}
	n.tel.ReportDebug("sent digest", len(days[0].Changes))
	return nil
}
