package notifier

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Sender   string
}

// MailNotifier mails administrator notices. It is a no-op without a host or recipients.
type MailNotifier struct {
	cfg        SMTPConfig
	recipients []string
	send       func(msgs ...*gomail.Message) error
	log        *zap.Logger
}

func NewMailNotifier(cfg SMTPConfig, recipients []string, log *zap.Logger) *MailNotifier {
	if cfg.Sender == "" {
		cfg.Sender = cfg.User
	}
	if log == nil {
		log = zap.NewNop()
	}
	n := &MailNotifier{cfg: cfg, recipients: recipients, log: log}
	if cfg.Host != "" {
		dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
		n.send = dialer.DialAndSend
	}
	return n
}

func (n *MailNotifier) enabled() bool {
	return n.send != nil && len(n.recipients) > 0
}

func (n *MailNotifier) ZoneFinalized(ctx context.Context, zone models.Zone, pendingItems []string) error {
	if !n.enabled() {
		return nil
	}
	subject := fmt.Sprintf("Zona %s finalizada por %s", zone.ID.String(), zone.OperatorEmail)

	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h3>Zona finalizada, pendiente de verificación</h3>")
	fmt.Fprintf(&b, "<p>Zona: <strong>%s</strong></p>", zone.ID.String())
	fmt.Fprintf(&b, "<p>Ubicación: %s</p>", html.EscapeString(zone.LocationDescription))
	fmt.Fprintf(&b, "<p>Operario: %s</p>", html.EscapeString(zone.OperatorEmail))
	if len(pendingItems) > 0 {
		fmt.Fprintf(&b, "<p>Ítems del alcance sin conteo (%d):</p><ul>", len(pendingItems))
		for _, id := range pendingItems {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(id))
		}
		b.WriteString("</ul>")
	}
	b.WriteString(footer)
	b.WriteString("</body></html>")

	return n.deliver(ctx, subject, b.String())
}

func (n *MailNotifier) SyncCompleted(ctx context.Context, source string, result *services.SyncResult, syncErr error) error {
	if !n.enabled() {
		return nil
	}
	status := "OK"
	if syncErr != nil {
		status = "con errores"
	}
	subject := fmt.Sprintf("Sincronización de catálogo %s: %s", status, source)

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h3>Sincronización de catálogo %s</h3>", status)
	fmt.Fprintf(&b, "<p>Archivo: <strong>%s</strong></p>", html.EscapeString(source))
	if result != nil {
		fmt.Fprintf(&b, "<p>ID: %s</p><ul>", result.SyncID)
		fmt.Fprintf(&b, "<li>Ítems actualizados: %d</li>", result.ItemsUpserted)
		fmt.Fprintf(&b, "<li>Códigos actualizados: %d</li>", result.BarcodesUpserted)
		fmt.Fprintf(&b, "<li>Ítems desactivados: %d</li>", result.ItemsDeactivated)
		fmt.Fprintf(&b, "<li>Códigos desactivados: %d</li>", result.BarcodesDeactivated)
		fmt.Fprintf(&b, "<li>Filas omitidas: %d</li>", result.Skipped)
		b.WriteString("</ul>")
	}
	var partial *services.PartialBatchFailure
	switch {
	case errors.As(syncErr, &partial):
		fmt.Fprintf(&b, "<p>Lotes fallidos (%d):</p><ul>", len(partial.Failures))
		for _, f := range partial.Failures {
			fmt.Fprintf(&b, "<li>%s #%d: %s</li>", f.Phase, f.Batch, html.EscapeString(f.Err.Error()))
		}
		b.WriteString("</ul>")
	case syncErr != nil:
		fmt.Fprintf(&b, "<p>Error: %s</p>", html.EscapeString(syncErr.Error()))
	}
	b.WriteString(footer)
	b.WriteString("</body></html>")

	return n.deliver(ctx, subject, b.String())
}

const footer = "<p>This is an auto-generated email. Please do not reply to this email or its recipients.</p>"

func (n *MailNotifier) deliver(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", n.cfg.Sender)
	msg.SetHeader("To", n.recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := n.send(msg); err != nil {
		n.log.Error("send notification", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("send notification: %w", err)
	}
	n.log.Info("notification sent", zap.String("subject", subject), zap.Strings("to", n.recipients))
	return nil
}
