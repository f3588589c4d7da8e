package domain

// Placeholder values used when a message is missing the corresponding header.
const (
	NoSubject     = "(no subject)"
	UnknownSender = "(unknown)"
	NoDateHeader  = "(no date)"
	NoContent     = "(no content)"
)

// Message is a fetched inbox message. Messages are ephemeral: they flow from
// the mail provider into the extraction engine and are never persisted.
type Message struct {
	Subject    string `json:"subject"`
	From       string `json:"from"`
	Date       string `json:"date"` // RFC3339, from the provider's internal delivery time
	DateHeader string `json:"date_header"`
	Content    string `json:"content"`
}
