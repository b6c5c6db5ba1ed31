package mail

import (
	"context"
	"fmt"
	"html/template"
	"strings"
)

// DefaultWaitlistIntro is the welcome text used when no intro is configured.
// "{product}" is replaced with the product name.
const DefaultWaitlistIntro = `Thank you for joining the {product} waitlist! We're excited to have you on board.

{product} is revolutionizing expense tracking by combining powerful OCR technology with blockchain security. Here's what you can expect:

- **Smart OCR Extraction** - Automatically capture receipt data
- **Blockchain Anchoring** - Tamper-proof financial records
- **Real-time Dashboards** - Track expenses effortlessly
- **Bank-level Security** - Your data is always protected`

const waitlistConfirmTpl = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Welcome to {{.ProductName}} Waitlist</title>
</head>
<body style="margin:0;padding:0;font-family:'Inter',-apple-system,BlinkMacSystemFont,sans-serif;background-color:#f5f5f5">
  <table role="presentation" style="width:100%;border-collapse:collapse">
    <tr><td style="padding:40px 20px">
      <table role="presentation" style="max-width:600px;margin:0 auto;background-color:#fff;border-radius:16px;overflow:hidden;box-shadow:0 4px 20px rgba(0,0,0,.1)">
        <tr><td style="background:linear-gradient(135deg,hsl(222,47%,11%) 0%,hsl(222,30%,20%) 50%,hsl(200,50%,15%) 100%);padding:40px 30px;text-align:center">
          <h1 style="margin:0;color:#fff;font-size:28px;font-weight:700;font-family:'Space Grotesk',sans-serif">Welcome to {{.ProductName}}!</h1>
        </td></tr>
        <tr><td style="padding:40px 30px">
          <h2 style="margin:0 0 20px;color:hsl(222,47%,11%);font-size:24px;font-weight:700">Hi {{.Name}}! 👋</h2>
          <div style="color:hsl(215,16%,47%);font-size:16px;line-height:1.6">{{.Intro}}</div>
          <p style="margin:20px 0;color:hsl(215,16%,47%);font-size:16px;line-height:1.6">As a waitlist member, you'll be among the first to know when we launch, and you'll get exclusive early access to the platform.</p>
          <p style="margin:20px 0 0;color:hsl(215,16%,47%);font-size:16px;line-height:1.6">We'll keep you updated on our progress. Stay tuned! 🚀</p>
        </td></tr>
        <tr><td style="background-color:hsl(222,47%,11%);padding:30px;text-align:center">
          <p style="margin:0 0 10px;color:rgba(255,255,255,.6);font-size:14px">© {{year}} {{.ProductName}}. All rights reserved.</p>
          <p style="margin:0;color:rgba(255,255,255,.6);font-size:12px">You received this email because you signed up for the {{.ProductName}} waitlist.</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

// WaitlistConfirmData is the data for waitlist confirmation emails.
type WaitlistConfirmData struct {
	Name        string
	ProductName string
	// IntroMarkdown overrides DefaultWaitlistIntro.
	IntroMarkdown string
}

// RenderWaitlistConfirm returns the subject and HTML body of a confirmation mail.
func RenderWaitlistConfirm(data WaitlistConfirmData) (string, string, error) {
	product := strings.TrimSpace(data.ProductName)
	if product == "" {
		product = "ScanLedger"
	}
	intro := strings.TrimSpace(data.IntroMarkdown)
	if intro == "" {
		intro = DefaultWaitlistIntro
	}
	introHTML, err := renderMarkdown(strings.ReplaceAll(intro, "{product}", product))
	if err != nil {
		return "", "", fmt.Errorf("render intro: %w", err)
	}

	html, err := renderTemplate(waitlistConfirmTpl, struct {
		Name        string
		ProductName string
		Intro       template.HTML
	}{
		Name:        data.Name,
		ProductName: product,
		Intro:       introHTML,
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("You're on the %s Waitlist! 🎉", product), html, nil
}

// SendWaitlistConfirm renders and sends the confirmation mail to a new signup.
func (s *Sender) SendWaitlistConfirm(ctx context.Context, to string, data WaitlistConfirmData) error {
	subject, html, err := RenderWaitlistConfirm(data)
	if err != nil {
		return err
	}
	return s.Send(ctx, Message{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
}
