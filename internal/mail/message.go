// Package mail renders account emails and delivers them over SMTP, either
// inline or through a Redis-backed job queue drained by a Worker.
package mail

import (
	"fmt"
	"html"
	"net/url"
	"time"
)

// Kind identifies which email a job renders to
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

// Job is a queued email. Token is the value embedded in the link.
type Job struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	Token     string    `json:"token"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a rendered email ready to send
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Templates renders jobs into messages using the configured link bases
type Templates struct {
	VerifyURL string
	ResetURL  string
}

// Render builds the message for job
func (t *Templates) Render(job *Job) (*Message, error) {
	switch job.Kind {
	case KindVerification:
		link := withToken(t.VerifyURL, job.Token)
		return &Message{
			To:      job.To,
			Subject: "Verify your email",
			HTML: fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <p>Welcome! Confirm your email address to finish creating your account.</p>
  <p><a href="%s">Verify email</a></p>
</body>
</html>`, html.EscapeString(link)),
		}, nil
	case KindPasswordReset:
		link := withToken(t.ResetURL, job.Token)
		return &Message{
			To:      job.To,
			Subject: "Reset your password",
			HTML: fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <p>We received a request to reset your password. The link is valid for one hour.</p>
  <p><a href="%s">Reset password</a></p>
  <p>If you did not ask for this, ignore this email.</p>
</body>
</html>`, html.EscapeString(link)),
		}, nil
	default:
		return nil, fmt.Errorf("unknown mail kind %q", job.Kind)
	}
}

func withToken(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
