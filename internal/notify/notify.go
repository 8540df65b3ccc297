// Package notify sends workspace-invite emails. Grounded on the teacher's
// common/pkg/notification/channel EmailChannel (Config.Email{SMTPHost,
// SMTPPort,Username,Password,From,UseTLS}, Init/Send shape), reimplemented
// directly over gopkg.in/gomail.v2 — the library common/go.mod already
// depends on, rather than the teacher's own net/smtp-based channel.
package notify

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/ifcserve/hub/internal/config"
)

// Config mirrors the teacher's EmailConfig field set.
type Config struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// Mailer sends the one kind of transactional email this service needs:
// workspace invitations.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg Config) *Mailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	d.SSL = cfg.UseTLS
	return &Mailer{dialer: d, from: cfg.From}
}

// NewMailerFromConfig builds a Mailer from the package-level config store.
func NewMailerFromConfig() *Mailer {
	return NewMailer(Config{
		SMTPHost: config.SMTPHost(),
		SMTPPort: config.SMTPPort(),
		From:     config.SMTPFrom(),
	})
}

// SendWorkspaceInvite emails the invite link to the invitee. The accept
// token is opaque to the caller; the link shape is the service's own
// concern (spec §6 names POST /workspaces/invites/{token}/accept).
func (m *Mailer) SendWorkspaceInvite(to, workspaceName, inviteURL string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("You've been invited to %s", workspaceName))
	msg.SetBody("text/plain", fmt.Sprintf(
		"You've been invited to join the %s workspace.\n\nAccept the invite: %s\n", workspaceName, inviteURL))
	return m.dialer.DialAndSend(msg)
}
