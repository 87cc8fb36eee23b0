package mail

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

// Contact is a submitted contact form.
type Contact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Message   string
}

type contactView struct {
	Contact
	Name     string
	Received string
}

var contactHTML = htmltemplate.Must(htmltemplate.New("contact.html").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>New Contact Message</title>
</head>
<body style="font-family:Arial,sans-serif;background:#1a1a1a;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:15px;overflow:hidden">
  <div style="background:#ff6b1a;padding:30px 20px;text-align:center;color:#fff">
    <h1>New Contact Message</h1>
    <p>Someone has reached out through your website</p>
  </div>
  <div style="padding:40px 30px">
    <div style="background:#fff8f0;border-left:5px solid #ff8c42;padding:25px;border-radius:8px;margin-bottom:30px">
      <p><strong>Name:</strong> {{.Name}}</p>
      <p><strong>Email:</strong> {{.Email}}</p>
      <p><strong>Phone:</strong> {{.Phone}}</p>
      <p><strong>Received:</strong> {{.Received}}</p>
    </div>
    <div style="background:#f8f9fa;border-radius:10px;padding:25px">
      <h3>Message Details</h3>
      <div style="line-height:1.8;white-space:pre-wrap;border-left:4px solid #ff8c42;padding:20px">{{.Message}}</div>
    </div>
  </div>
  <div style="background:#2d2d2d;color:#fff;text-align:center;padding:25px;font-size:14px">
    <p><strong>Hot Air Balloon Adventures</strong></p>
    <p>This message was sent from your website contact form</p>
  </div>
</div>
</body>
</html>
`))

var contactText = texttemplate.Must(texttemplate.New("contact.txt").Parse(`New Contact Message

Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}
Received: {{.Received}}

Message:
{{.Message}}
`))

// ContactMessage renders c into a message addressed to mailbox. The
// sender's address goes into Reply-To so the relay's own account remains
// the envelope sender.
func ContactMessage(c Contact, mailbox string, now time.Time) (Message, error) {
	c.FirstName = oneLine(c.FirstName)
	c.LastName = oneLine(c.LastName)
	c.Email = oneLine(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Phone == "" {
		c.Phone = "Not provided"
	}
	v := contactView{
		Contact:  c,
		Name:     strings.TrimSpace(c.FirstName + " " + c.LastName),
		Received: now.Format(time.RFC1123),
	}

	var html, text strings.Builder
	if err := contactHTML.Execute(&html, v); err != nil {
		return Message{}, err
	}
	if err := contactText.Execute(&text, v); err != nil {
		return Message{}, err
	}
	return Message{
		From:    mailbox,
		To:      mailbox,
		ReplyTo: c.Email,
		Subject: "New Contact Message from " + v.Name,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// oneLine keeps header-bound values on a single line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
