package waitlist

import (
	"context"

	pkgmail "github.com/scanledger/waitlist/internal/pkg/mail"
)

// Notifier sends the confirmation message for a new signup.
type Notifier interface {
	SendConfirmation(ctx context.Context, email, name string) error
}

// Mailer is the part of *mail.Sender the notifier needs.
type Mailer interface {
	SendWaitlistConfirm(ctx context.Context, to string, data pkgmail.WaitlistConfirmData) error
}

// MailNotifier renders the confirmation template and hands it to a Mailer.
type MailNotifier struct {
	mailer        Mailer
	productName   string
	introMarkdown string
}

func NewMailNotifier(mailer Mailer, productName, introMarkdown string) *MailNotifier {
	return &MailNotifier{mailer: mailer, productName: productName, introMarkdown: introMarkdown}
}

func (n *MailNotifier) SendConfirmation(ctx context.Context, email, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.mailer.SendWaitlistConfirm(ctx, email, pkgmail.WaitlistConfirmData{
		Name:          name,
		ProductName:   n.productName,
		IntroMarkdown: n.introMarkdown,
	})
}
