package resend

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"
)

type emailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailSink mails each published export to a single recipient.
type EmailSink struct {
	From    string
	To      string
	Subject string

	emails emailSender
}

func NewEmailSink(apiKey, from, to string) *EmailSink {
	client := resend.NewClient(apiKey)
	return &EmailSink{
		From:    from,
		To:      to,
		Subject: "Activity export",
		emails:  client.Emails,
	}
}

var bodyTemplate = template.Must(template.New("email").Parse(`
<p>{{.Count}} bytes of activity data exported.</p>
<pre>{{.Text}}</pre>
`))

func (s *EmailSink) Publish(text string) error {
	var buf bytes.Buffer
	data := struct {
		Count int
		Text  string
	}{
		Count: len(text),
		Text:  text,
	}
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.From,
		To:      []string{s.To},
		Subject: s.Subject,
		Html:    buf.String(),
		Text:    text,
		Attachments: []*resend.Attachment{{
			Content:  []byte(text),
			Filename: "activity.json",
		}},
	}
	if _, err := s.emails.Send(params); err != nil {
		return fmt.Errorf("send export email: %w", err)
	}
	return nil
}
