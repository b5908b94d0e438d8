package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/events"
	"github.com/yuin/goldmark"
)

// DeadlineLayout formats deadlines in notification bodies.
const DeadlineLayout = "Monday, January 2, 2006"

const defaultPriorityColor = "#6b7280"

var priorityColors = map[domain.Priority]string{
	domain.PriorityCritical: "#dc2626",
	domain.PriorityHigh:     "#ea580c",
	domain.PriorityMedium:   "#ca8a04",
	domain.PriorityLow:      "#16a34a",
}

// PriorityColor returns the badge color used for p.
func PriorityColor(p domain.Priority) string {
	if c, ok := priorityColors[p]; ok {
		return c
	}
	return defaultPriorityColor
}

// Message is a rendered email.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

var markdownBody = texttemplate.Must(texttemplate.New("body").Parse(`Hi {{.UserName}},

You have been assigned a new task by the automated task assignment system.

**Task:** {{.TaskTitle}}

{{if .Description}}**Description:** {{.Description}}

{{end}}**Priority:** {{.Priority}}

**Deadline:** {{.Deadline}}

{{if .Reason}}**Why you:** {{.Reason}}

{{end}}{{if .DashboardURL}}[Open your task dashboard]({{.DashboardURL}})

{{end}}---

This assignment was made automatically based on skill matching and workload analysis.
`))

var htmlLayout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>New Task Assignment</title></head>
<body style="font-family: sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto;">
<p><span style="background-color: {{.Color}}; color: white; padding: 2px 8px; border-radius: 4px;">{{.Priority}}</span></p>
{{.Body}}
</div>
</body>
</html>
`))

type bodyData struct {
	UserName     string
	TaskTitle    string
	Description  string
	Priority     string
	Deadline     string
	Reason       string
	DashboardURL string
}

// RenderAssignment renders the notification for p. appURL may be empty.
func RenderAssignment(md goldmark.Markdown, p events.AssignmentPayload, appURL string) (Message, error) {
	deadline := "Not specified"
	if p.Deadline != nil {
		deadline = p.Deadline.Format(DeadlineLayout)
	}

	data := bodyData{
		UserName:    p.UserName,
		TaskTitle:   p.TaskTitle,
		Description: p.TaskDescription,
		Priority:    strings.ToUpper(string(p.Priority)),
		Deadline:    deadline,
		Reason:      p.Reason,
	}
	if appURL != "" {
		data.DashboardURL = strings.TrimRight(appURL, "/") + "/dashboard/tasks"
	}

	var text bytes.Buffer
	if err := markdownBody.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render markdown body: %w", err)
	}

	var body bytes.Buffer
	if err := md.Convert(text.Bytes(), &body); err != nil {
		return Message{}, fmt.Errorf("convert markdown: %w", err)
	}

	var html bytes.Buffer
	err := htmlLayout.Execute(&html, struct {
		Color    string
		Priority string
		Body     template.HTML
	}{
		Color:    PriorityColor(p.Priority),
		Priority: data.Priority,
		// goldmark drops raw HTML unless WithUnsafe is set
		Body: template.HTML(body.String()),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render html layout: %w", err)
	}

	return Message{
		To:       p.UserEmail,
		Subject:  "New Task Assignment: " + p.TaskTitle,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}
