// Package gmail provides the Gmail API mail provider.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"log"
	"regexp"
	"strings"
	"time"

	"analyzer_server/core/domain"
	"analyzer_server/core/port/out"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// =============================================================================
// Factory
// =============================================================================

// Factory builds Gmail providers bound to an account's credential. All
// providers share one circuit breaker so failures on any mailbox count
// toward the same Gmail API health state.
type Factory struct {
	config *oauth2.Config
	cb     *gobreaker.CircuitBreaker
}

// NewFactory creates a new Gmail provider factory.
func NewFactory(config *oauth2.Config) *Factory {
	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &Factory{
		config: config,
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// ForToken creates a provider for the given credential.
func (f *Factory) ForToken(ctx context.Context, token *oauth2.Token) (out.MailProvider, error) {
	service, err := gmailapi.NewService(ctx, option.WithTokenSource(
		f.config.TokenSource(ctx, token),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &Provider{service: service, cb: f.cb}, nil
}

var _ out.MailProviderFactory = (*Factory)(nil)

// =============================================================================
// Provider
// =============================================================================

// Provider implements out.MailProvider for Gmail.
type Provider struct {
	service *gmailapi.Service
	cb      *gobreaker.CircuitBreaker
}

// ListLatest lists recent messages matching the query descriptor and fetches
// each one in full. Messages are fetched sequentially; a failed fetch drops
// that message only.
func (p *Provider) ListLatest(ctx context.Context, query out.ListQuery, maxResults int) ([]domain.Message, error) {
	req := p.service.Users.Messages.List("me")
	if query.Query != "" {
		req = req.Q(query.Query)
	}
	if len(query.Labels) > 0 {
		req = req.LabelIds(query.Labels...)
	}
	if maxResults > 0 {
		req = req.MaxResults(int64(maxResults))
	}

	var resp *gmailapi.ListMessagesResponse
	err := p.execute(ctx, "list messages", func() error {
		var listErr error
		resp, listErr = req.Context(ctx).Do()
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]domain.Message, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		var msg *gmailapi.Message
		err := p.execute(ctx, "get message", func() error {
			var getErr error
			msg, getErr = p.service.Users.Messages.Get("me", ref.Id).
				Format("full").
				Context(ctx).
				Do()
			return getErr
		})
		if err != nil {
			continue
		}
		messages = append(messages, parseMessage(msg))
	}

	return messages, nil
}

// execute wraps an API call with circuit breaker protection so sustained
// Gmail outages stop producing calls instead of cascading.
func (p *Provider) execute(ctx context.Context, operation string, fn func() error) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok {
				switch apiErr.Code {
				case 500, 502, 503, 429:
					// Server-side issues should trip the circuit breaker
					return nil, err
				default:
					// Client errors should NOT trip the circuit breaker
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	if nce, ok := err.(*nonCircuitError); ok {
		return nce.err
	}
	if err != nil {
		log.Printf("[GmailProvider] Circuit breaker error for %s: state=%s, err=%v",
			operation, p.cb.State().String(), err)
	}
	return err
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string { return e.err.Error() }
func (e *nonCircuitError) Unwrap() error { return e.err }

var _ out.MailProvider = (*Provider)(nil)

// =============================================================================
// Message Parsing
// =============================================================================

func parseMessage(msg *gmailapi.Message) domain.Message {
	m := domain.Message{
		Subject:    domain.NoSubject,
		From:       domain.UnknownSender,
		DateHeader: domain.NoDateHeader,
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "Subject":
				if header.Value != "" {
					m.Subject = header.Value
				}
			case "From":
				if header.Value != "" {
					m.From = header.Value
				}
			case "Date":
				if header.Value != "" {
					m.DateHeader = header.Value
				}
			}
		}
	}

	// InternalDate is the provider's delivery time in epoch milliseconds.
	if msg.InternalDate > 0 {
		m.Date = time.UnixMilli(msg.InternalDate).UTC().Format(time.RFC3339)
	}

	m.Content = extractBody(msg)
	return m
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// extractBody picks the best available text: a plain-text part, then a
// tag-stripped HTML part, then the snippet, then a placeholder.
func extractBody(msg *gmailapi.Message) string {
	if msg.Payload != nil {
		if text := findPart(msg.Payload, "text/plain"); text != "" {
			return strings.TrimSpace(text)
		}
		if rawHTML := findPart(msg.Payload, "text/html"); rawHTML != "" {
			stripped := htmlTagRe.ReplaceAllString(rawHTML, " ")
			if text := strings.TrimSpace(html.UnescapeString(stripped)); text != "" {
				return text
			}
		}
	}
	if msg.Snippet != "" {
		return strings.TrimSpace(msg.Snippet)
	}
	return domain.NoContent
}

// findPart returns the decoded body of the first part with the given MIME
// type, searching nested multipart structures depth-first.
func findPart(payload *gmailapi.MessagePart, mimeType string) string {
	if payload == nil {
		return ""
	}

	if payload.MimeType == mimeType && payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data)
		}
	}

	for _, part := range payload.Parts {
		if body := findPart(part, mimeType); body != "" {
			return body
		}
	}
	return ""
}
