package mail

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.md
var templateFS embed.FS

// Template names understood by Renderer.
const (
	TemplateTicketCreatedSupport   = "ticket_created_support"
	TemplateTicketCreatedSubmitter = "ticket_created_submitter"
	TemplateTicketCreatedCC        = "ticket_created_cc"
	TemplateTicketStatus           = "ticket_status"
	TemplateTicketCanceled         = "ticket_canceled"
	TemplateWelcome                = "welcome"
)

const subjectPrefix = "Subject:"

const htmlLayout = `<!DOCTYPE html>
<html><body style="font-family:Arial,Helvetica,sans-serif;color:#222;max-width:640px">
%s</body></html>
`

// Rendered is a ready-to-send notification body.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer turns markdown templates into subject, plain-text and HTML parts.
// The first template line must be "Subject: ...".
type Renderer struct {
	templates *template.Template
	markdown  goldmark.Markdown
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("mail").Option("missingkey=error").ParseFS(templateFS, "templates/*.md")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Renderer{
		templates: tmpl,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}, nil
}

// Render executes the named template with params.
func (r *Renderer) Render(name string, params map[string]any) (Rendered, error) {
	var out bytes.Buffer
	if err := r.templates.ExecuteTemplate(&out, name+".md", params); err != nil {
		return Rendered{}, fmt.Errorf("render %s: %w", name, err)
	}

	first, body, _ := strings.Cut(out.String(), "\n")
	if !strings.HasPrefix(first, subjectPrefix) {
		return Rendered{}, fmt.Errorf("render %s: missing subject line", name)
	}
	subject := strings.TrimSpace(strings.TrimPrefix(first, subjectPrefix))
	body = strings.TrimSpace(body)

	var html bytes.Buffer
	if err := r.markdown.Convert([]byte(body), &html); err != nil {
		return Rendered{}, fmt.Errorf("render %s: markdown: %w", name, err)
	}

	return Rendered{
		Subject: subject,
		Text:    body + "\n",
		HTML:    fmt.Sprintf(htmlLayout, html.String()),
	}, nil
}
