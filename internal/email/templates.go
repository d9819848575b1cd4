package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// Business is the contact information printed in customer messages. Empty
// channels are left out.
type Business struct {
	Name     string
	Email    string
	Phone    string
	WhatsApp string
	Website  string
}

// templateData is what every body template receives. Optional values are
// empty strings when not provided so {{if}} drops the whole line.
type templateData struct {
	Business   Business
	Reference  string
	ReceivedAt string

	Name    string
	Email   string
	Phone   string
	Event   string
	Date    string
	Message string
	Guests  string
	Budget  string
	Venue   string
}

// ─── HTML TEMPLATES ───────────────────────────────────────────────────────────

var adminTmpl = template.Must(template.New("admin").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 600px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">🎊 New {{.Event}} Inquiry</h2>
  <p style="color: #6b7280; margin-top: 0;">Received {{.ReceivedAt}}{{if .Reference}} · Ref {{.Reference}}{{end}}</p>
  <table style="width: 100%; border-collapse: collapse;">
    <tr><td style="padding: 6px 0; font-weight: 600; width: 140px;">Name</td><td>{{.Name}}</td></tr>
    <tr><td style="padding: 6px 0; font-weight: 600;">Email</td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
    <tr><td style="padding: 6px 0; font-weight: 600;">Phone</td><td><a href="tel:{{.Phone}}">{{.Phone}}</a></td></tr>
    <tr><td style="padding: 6px 0; font-weight: 600;">Event</td><td>{{.Event}}</td></tr>
    {{- if .Date}}
    <tr><td style="padding: 6px 0; font-weight: 600;">Event date</td><td>{{.Date}}</td></tr>
    {{- end}}
    {{- if .Guests}}
    <tr><td style="padding: 6px 0; font-weight: 600;">Guests</td><td>{{.Guests}}</td></tr>
    {{- end}}
    {{- if .Budget}}
    <tr><td style="padding: 6px 0; font-weight: 600;">Budget</td><td>{{.Budget}}</td></tr>
    {{- end}}
    {{- if .Venue}}
    <tr><td style="padding: 6px 0; font-weight: 600;">Venue</td><td>{{.Venue}}</td></tr>
    {{- end}}
  </table>
  <h3 style="margin-top: 24px;">Message</h3>
  <p style="white-space: pre-wrap; background: #f9fafb; padding: 12px; border-radius: 6px;">{{.Message}}</p>
  <p style="color: #9ca3af; font-size: 12px;">Reply to this email to answer {{.Name}} directly.</p>
</body>
</html>`))

var basicAdminTmpl = template.Must(template.New("basic_admin").Parse(`<h3>New Event Inquiry</h3>
<p>Name: {{.Name}}</p>
<p>Email: {{.Email}}</p>
<p>Phone: {{.Phone}}</p>
<p>Event: {{.Event}}</p>
<p>Message: {{.Message}}</p>`))

var customerTmpl = template.Must(template.New("customer").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 600px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">Thank you, {{.Name}}!</h2>
  <p>We have received your {{.Event}} inquiry. Our planning team will get back to you within 24 hours.</p>
  <div style="background: #f9fafb; padding: 16px; border-radius: 6px; margin: 24px 0;">
    <p style="margin: 4px 0;"><strong>Event type:</strong> {{.Event}}</p>
    {{- if .Date}}
    <p style="margin: 4px 0;"><strong>Event date:</strong> {{.Date}}</p>
    {{- end}}
    <p style="margin: 4px 0;"><strong>We'll call you on:</strong> {{.Phone}}</p>
  </div>
  <p>Need to reach us sooner?</p>
  <ul style="padding-left: 20px;">
    {{- with .Business.Phone}}
    <li>Call: <a href="tel:{{.}}">{{.}}</a></li>
    {{- end}}
    {{- with .Business.WhatsApp}}
    <li>WhatsApp: {{.}}</li>
    {{- end}}
    {{- with .Business.Email}}
    <li>Email: <a href="mailto:{{.}}">{{.}}</a></li>
    {{- end}}
    {{- with .Business.Website}}
    <li>Website: <a href="{{.}}">{{.}}</a></li>
    {{- end}}
  </ul>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;">
  <p style="color: #9ca3af; font-size: 12px;">{{.Business.Name}}{{if .Reference}} · Ref {{.Reference}}{{end}}</p>
</body>
</html>`))

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("email: render %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}
