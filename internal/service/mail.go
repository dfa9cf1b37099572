package service

import (
	"context"
	"fmt"
	"strings"

	"quill/internal/config"
	"quill/internal/models"
	"quill/internal/observability"

	"github.com/wneessen/go-mail"
)

// MailSender delivers a composed message.
type MailSender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// SMTPSender delivers mail through the configured SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// MailNotifier composes the emails the application sends.
type MailNotifier struct {
	sender  MailSender
	tokens  *ResetTokenIssuer
	from    string
	baseURL string
}

func NewMailNotifier(sender MailSender, tokens *ResetTokenIssuer, from, baseURL string) *MailNotifier {
	return &MailNotifier{
		sender:  sender,
		tokens:  tokens,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ResetURL is the link embedded in the reset email for token.
func (n *MailNotifier) ResetURL(token string) string {
	return n.baseURL + "/reset_password/" + token
}

// SendResetEmail mails user a single-use password reset link. Delivery
// errors are returned as-is.
func (n *MailNotifier) SendResetEmail(ctx context.Context, user *models.User) (err error) {
	ctx, finish := observability.StartSpan(ctx, "MailNotifier", "SendResetEmail")
	defer func() {
		observability.RecordResetEmail(err)
		finish(err)
	}()

	token, err := n.tokens.Issue(user)
	if err != nil {
		return err
	}

	msg := mail.NewMsg(mail.WithEncoding(mail.NoEncoding))
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(user.Email); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("Password Reset Request")
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(`To reset your password, visit the following link:
%s

If you did not make this request then simply ignore this email and no changes will be made.
`, n.ResetURL(token)))

	return n.sender.Send(ctx, msg)
}
