package services

import (
	"context"

	"github.com/avezhnov/ctfdeck/internal/logging"
	"github.com/avezhnov/ctfdeck/internal/server/models"
)

// Mailer delivers account-lifecycle messages. Implementations own the
// transport (SMTP relay, provider API); the service only hands over the
// recipient and the link to embed.
type Mailer interface {
	SendActivationEmail(ctx context.Context, user *models.User, link string) error
	SendPasswordResetEmail(ctx context.Context, user *models.User, link string) error
}

// LogMailer is the development Mailer: it writes the links to the log
// instead of sending mail. Reset links are logged without the recipient's
// address at error-adjacent levels to keep enumeration signals out of logs.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "mailer")}
}

func (m *LogMailer) SendActivationEmail(ctx context.Context, user *models.User, link string) error {
	m.logger.Info(ctx, "activation email", "username", user.Username, "link", link)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, user *models.User, link string) error {
	m.logger.Info(ctx, "password reset email", "username", user.Username, "link", link)
	return nil
}
