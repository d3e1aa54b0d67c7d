package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"strings"

	"hostelcare/internal/config"
	"hostelcare/internal/domain/user"

	mail "github.com/go-mail/mail/v2"
)

// Sender is satisfied by *mail.Dialer.
type Sender interface {
	DialAndSend(m ...*mail.Message) error
}

type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Mailer delivers notifications by e-mail to the recipient's account address.
type Mailer struct {
	sender   Sender
	accounts AccountLookup
	from     string
}

func NewMailer(sender Sender, accounts AccountLookup, from string) *Mailer {
	return &Mailer{sender: sender, accounts: accounts, from: from}
}

// NewDialer uses mandatory STARTTLS; SkipTLSVerify is refused in prod by config.
func NewDialer(cfg config.SMTPConfig) *mail.Dialer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	return d
}

func (m *Mailer) Name() string { return "email" }

func (m *Mailer) Deliver(ctx context.Context, n *Notification) error {
	account, err := m.accounts.GetByID(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("lookup recipient: %w", err)
	}
	if strings.TrimSpace(account.Email) == "" {
		return nil
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", account.Email)
	msg.SetHeader("Subject", subject(n))
	msg.SetBody("text/html", body(account.Name, n))

	return m.sender.DialAndSend(msg)
}

func subject(n *Notification) string {
	p := n.Payload.Data()
	switch n.Type {
	case TypeComplaintCreated:
		return fmt.Sprintf("New %s complaint", p.Category)
	case TypeComplaintAssigned:
		return fmt.Sprintf("Complaint assigned to you: %s", p.Category)
	case TypeComplaintUpdated:
		return "Your complaint is in progress"
	case TypeComplaintResolved:
		return fmt.Sprintf("Complaint resolved: %s", p.Category)
	case TypeMessageReceived:
		return fmt.Sprintf("New message from %s", p.ActorName)
	case TypeStatusChangedByWarden:
		return fmt.Sprintf("Complaint status changed to %s", p.Status)
	}
	return "Complaint update"
}

func body(name string, n *Notification) string {
	p := n.Payload.Data()
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hello %s,</p>", html.EscapeString(name))
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(subject(n)))
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Complaint: %s</li>", html.EscapeString(p.ComplaintID))
	fmt.Fprintf(&b, "<li>Category: %s</li>", html.EscapeString(p.Category))
	fmt.Fprintf(&b, "<li>Priority: %s</li>", html.EscapeString(p.Priority))
	fmt.Fprintf(&b, "<li>Status: %s</li>", html.EscapeString(p.Status))
	if p.PreviousStatus != "" {
		fmt.Fprintf(&b, "<li>Previous status: %s</li>", html.EscapeString(p.PreviousStatus))
	}
	if p.ReporterName != "" {
		fmt.Fprintf(&b, "<li>Reported by: %s</li>", html.EscapeString(p.ReporterName))
	}
	if p.ResolverName != "" {
		fmt.Fprintf(&b, "<li>Resolved by: %s</li>", html.EscapeString(p.ResolverName))
	}
	b.WriteString("</ul>")
	if p.MessagePreview != "" {
		fmt.Fprintf(&b, "<blockquote>%s</blockquote>", html.EscapeString(p.MessagePreview))
	}
	return b.String()
}
