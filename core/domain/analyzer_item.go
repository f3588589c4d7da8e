package domain

import "strings"

// Item kinds produced by the extraction engine. KindNull marks candidates
// the model could not classify; they are filtered out before an
// ExtractedItem is created.
const (
	KindTask  = "task"
	KindEvent = "event"
	KindNull  = "null"
)

// DefaultConfidence is assigned to items the model returned without a
// confidence score.
const DefaultConfidence = 0.9

// ExtractedItem is a structured task or event derived from a message.
type ExtractedItem struct {
	ID              string  `json:"_id" bson:"_id"`
	Kind            string  `json:"type" bson:"type"`
	Title           string  `json:"title" bson:"title"`
	Description     string  `json:"description" bson:"description"`
	Date            *string `json:"date" bson:"date"`
	Time            *string `json:"time" bson:"time"`
	Confidence      float64 `json:"confidence" bson:"confidence"`
	SourceSubject   string  `json:"source_subject" bson:"source_subject"`
	SourceFrom      string  `json:"source_from" bson:"source_from"`
	SourceEmailTs   string  `json:"source_email_ts,omitempty" bson:"source_email_ts,omitempty"`
	SourceAccount   string  `json:"_source_account" bson:"_source_account"`
	Owner           string  `json:"owner,omitempty" bson:"owner,omitempty"`
	AddedToCalendar bool    `json:"added_to_calendar" bson:"added_to_calendar"`
}

// ItemKey is the dedupe key an item is upserted under: (account, source
// timestamp) when the source timestamp exists, otherwise (account, title,
// source subject). Owner widens the key when present.
type ItemKey struct {
	SourceAccount string
	SourceEmailTs string
	Title         string
	SourceSubject string
	Owner         string
}

// DedupeKey computes the upsert key for an item.
func (it *ExtractedItem) DedupeKey() ItemKey {
	key := ItemKey{SourceAccount: it.SourceAccount, Owner: it.Owner}
	if it.SourceEmailTs != "" {
		key.SourceEmailTs = it.SourceEmailTs
		return key
	}
	key.Title = it.Title
	key.SourceSubject = it.SourceSubject
	return key
}

// opportunityMarkers identify items that stay in the result set even
// without a date.
var opportunityMarkers = []string{"internship", "application", "scholarship", "apply"}

// IsOpportunityRelated reports whether the item concerns internships,
// applications or scholarships. Dateless items are retained only when this
// holds.
func (it *ExtractedItem) IsOpportunityRelated() bool {
	text := strings.ToLower(it.Title + " " + it.Description + " " + it.SourceSubject)
	for _, marker := range opportunityMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
