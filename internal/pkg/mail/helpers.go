package mail

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/scanledger/waitlist/internal/config"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// BuildMailConfig maps the application config onto a mail.Config.
func BuildMailConfig(cfg *config.AppConfig) Config {
	if cfg == nil {
		return Config{}
	}
	mc := Config{
		Enable:  cfg.Mail.Enable,
		Host:    cfg.Mail.Host,
		Port:    cfg.Mail.Port,
		User:    cfg.Mail.User,
		Pass:    cfg.Mail.Pass,
		From:    cfg.Mail.From,
		ReplyTo: cfg.Mail.ReplyTo,
	}
	if cfg.Mail.ResendKey != "" {
		mc.UseResend = true
		mc.ResendKey = cfg.Mail.ResendKey
	}
	return mc
}

// Raw HTML in operator markdown is dropped; goldmark is not run WithUnsafe.
var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithXHTML(),
	),
)

func renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(strings.TrimSpace(src)), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
