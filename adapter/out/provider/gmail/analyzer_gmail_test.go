package gmail

import (
	"encoding/base64"
	"testing"

	"analyzer_server/core/domain"

	gmailapi "google.golang.org/api/gmail/v1"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestParseMessageHeaders(t *testing.T) {
	msg := &gmailapi.Message{
		InternalDate: 1765000000000,
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: "Advising hours"},
				{Name: "From", Value: "advisor@example.edu"},
				{Name: "Date", Value: "Sat, 6 Dec 2025 05:46:40 +0000"},
			},
			MimeType: "text/plain",
			Body:     &gmailapi.MessagePartBody{Data: encode("come by thursday")},
		},
	}

	m := parseMessage(msg)

	if m.Subject != "Advising hours" || m.From != "advisor@example.edu" {
		t.Errorf("unexpected headers: %+v", m)
	}
	if m.Date != "2025-12-06T05:46:40Z" {
		t.Errorf("unexpected internal date: %q", m.Date)
	}
	if m.Content != "come by thursday" {
		t.Errorf("unexpected content: %q", m.Content)
	}
}

func TestParseMessagePlaceholders(t *testing.T) {
	m := parseMessage(&gmailapi.Message{})

	if m.Subject != domain.NoSubject {
		t.Errorf("expected subject placeholder, got %q", m.Subject)
	}
	if m.From != domain.UnknownSender {
		t.Errorf("expected sender placeholder, got %q", m.From)
	}
	if m.DateHeader != domain.NoDateHeader {
		t.Errorf("expected date placeholder, got %q", m.DateHeader)
	}
	if m.Content != domain.NoContent {
		t.Errorf("expected content placeholder, got %q", m.Content)
	}
}

func TestExtractBodyPrefersPlainText(t *testing.T) {
	msg := &gmailapi.Message{
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmailapi.MessagePart{
				{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: encode("<p>hello</p>")}},
				{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: encode("hello\n")}},
			},
		},
	}

	if got := extractBody(msg); got != "hello" {
		t.Errorf("expected the plain part, got %q", got)
	}
}

func TestExtractBodyStripsHTML(t *testing.T) {
	msg := &gmailapi.Message{
		Payload: &gmailapi.MessagePart{
			MimeType: "text/html",
			Body:     &gmailapi.MessagePartBody{Data: encode("<div><b>Deadline</b> is &amp; stays Friday</div>")},
		},
	}

	got := extractBody(msg)
	if got != "Deadline  is & stays Friday" {
		t.Errorf("unexpected stripped text: %q", got)
	}
}

func TestExtractBodyNestedParts(t *testing.T) {
	msg := &gmailapi.Message{
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmailapi.MessagePart{
						{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: encode("nested body")}},
					},
				},
			},
		},
	}

	if got := extractBody(msg); got != "nested body" {
		t.Errorf("expected the nested plain part, got %q", got)
	}
}

func TestExtractBodyFallsBackToSnippet(t *testing.T) {
	msg := &gmailapi.Message{Snippet: " preview text "}

	if got := extractBody(msg); got != "preview text" {
		t.Errorf("expected the snippet, got %q", got)
	}
}
