// Package notify hands waitlist offers to the outbound notification channel.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"

	"go-gin-supper-club/internal/model"
)

//go:embed templates/*
var templateFS embed.FS

// Notifier is the notification capability invoked on promotion. It is called
// after the promotion has committed; a failure never undoes the offer.
type Notifier interface {
	NotifyOffer(ctx context.Context, notice model.OfferNotice) error
}

type offerEmailData struct {
	Name          string
	EventTitle    string
	TicketsWanted int
	ExpiresAt     string
	EntryID       string
}

type EmailNotifier struct {
	mailer Mailer
}

func NewEmailNotifier(mailer Mailer) Notifier {
	return &EmailNotifier{mailer: mailer}
}

func (n *EmailNotifier) NotifyOffer(ctx context.Context, notice model.OfferNotice) error {
	data := offerEmailData{
		Name:          notice.Contact.Name,
		EventTitle:    notice.EventTitle,
		TicketsWanted: notice.TicketsWanted,
		ExpiresAt:     notice.ExpiresAt.UTC().Format(time.RFC1123),
		EntryID:       notice.EntryID.String(),
	}

	subject, htmlBody, textBody, err := render("offer", data)
	if err != nil {
		return fmt.Errorf("failed to render offer template: %w", err)
	}
	if err := n.mailer.Send(ctx, notice.Contact.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send offer email: %w", err)
	}
	return nil
}

// render executes the named template set (subject, html and text bodies).
func render(name string, data any) (subject, htmlBody, textBody string, err error) {
	subject, err = renderFile(name+"_subject.txt", data, false)
	if err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	htmlBody, err = renderFile(name+".html", data, true)
	if err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	textBody, err = renderFile(name+".txt", data, false)
	if err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return strings.TrimSpace(subject), htmlBody, textBody, nil
}

func renderFile(name string, data any, html bool) (string, error) {
	raw, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if html {
		t, err := htmltemplate.New(name).Parse(string(raw))
		if err != nil {
			return "", err
		}
		err = t.Execute(&buf, data)
		if err != nil {
			return "", err
		}
	} else {
		t, err := template.New(name).Parse(string(raw))
		if err != nil {
			return "", err
		}
		err = t.Execute(&buf, data)
		if err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
