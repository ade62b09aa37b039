package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var subjects = map[Template]string{
	TemplateTicketCreated:  "[{{.Number}}] New ticket: {{.Title}}",
	TemplateTicketAssigned: "[{{.Number}}] Assigned to you: {{.Title}}",
	TemplateStatusChanged:  "[{{.Number}}] Status changed to {{.NewStatus}}",
	TemplateCommentAdded:   "[{{.Number}}] New comment from {{.AuthorName}}",
	TemplatePasswordReset:  "Reset your password",
}

type templateSet struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

// Renderer turns jobs into messages using the embedded templates.
type Renderer struct {
	sets map[Template]templateSet
}

// NewRenderer parses every template up front.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{sets: make(map[Template]templateSet, len(subjects))}
	for name, subject := range subjects {
		subj, err := texttemplate.New(string(name) + ".subject").Option("missingkey=zero").Parse(subject)
		if err != nil {
			return nil, fmt.Errorf("parse subject %s: %w", name, err)
		}
		html, err := htmltemplate.ParseFS(templateFS, "templates/"+string(name)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse html %s: %w", name, err)
		}
		text, err := texttemplate.ParseFS(templateFS, "templates/"+string(name)+".txt")
		if err != nil {
			return nil, fmt.Errorf("parse text %s: %w", name, err)
		}
		r.sets[name] = templateSet{
			subject: subj,
			html:    html.Option("missingkey=zero"),
			text:    text.Option("missingkey=zero"),
		}
	}
	return r, nil
}

// Render builds the message for job.
func (r *Renderer) Render(job Job) (Message, error) {
	set, ok := r.sets[job.Template]
	if !ok {
		return Message{}, fmt.Errorf("unknown template %q", job.Template)
	}
	if len(job.To) == 0 {
		return Message{}, fmt.Errorf("job %s has no recipients", job.ID)
	}
	data := job.Data
	if data == nil {
		data = map[string]string{}
	}

	var subject, html, text bytes.Buffer
	if err := set.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject %s: %w", job.Template, err)
	}
	if err := set.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html %s: %w", job.Template, err)
	}
	if err := set.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text %s: %w", job.Template, err)
	}
	return Message{
		To:      job.To,
		Subject: subject.String(),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
