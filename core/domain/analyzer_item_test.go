package domain

import "testing"

func TestDedupeKey(t *testing.T) {
	tests := []struct {
		name string
		item ExtractedItem
		want ItemKey
	}{
		{
			name: "timestamp wins",
			item: ExtractedItem{
				SourceAccount: "a@example.com",
				SourceEmailTs: "2026-08-15T00:00:00Z",
				Title:         "ignored",
				SourceSubject: "ignored too",
			},
			want: ItemKey{SourceAccount: "a@example.com", SourceEmailTs: "2026-08-15T00:00:00Z"},
		},
		{
			name: "title and subject fallback",
			item: ExtractedItem{
				SourceAccount: "a@example.com",
				Title:         "pay rent",
				SourceSubject: "Rent reminder",
			},
			want: ItemKey{SourceAccount: "a@example.com", Title: "pay rent", SourceSubject: "Rent reminder"},
		},
		{
			name: "owner widens the key",
			item: ExtractedItem{
				SourceAccount: "a@example.com",
				SourceEmailTs: "2026-08-15T00:00:00Z",
				Owner:         "owner-1",
			},
			want: ItemKey{SourceAccount: "a@example.com", SourceEmailTs: "2026-08-15T00:00:00Z", Owner: "owner-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.DedupeKey(); got != tt.want {
				t.Errorf("DedupeKey() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsOpportunityRelated(t *testing.T) {
	tests := []struct {
		name string
		item ExtractedItem
		want bool
	}{
		{"internship in title", ExtractedItem{Title: "Summer Internship deadline"}, true},
		{"scholarship in description", ExtractedItem{Description: "scholarship closes Friday"}, true},
		{"application in subject", ExtractedItem{SourceSubject: "Your Application Status"}, true},
		{"apply verb", ExtractedItem{Title: "Apply for housing"}, true},
		{"plain chore", ExtractedItem{Title: "clean the kitchen", Description: "weekly"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.IsOpportunityRelated(); got != tt.want {
				t.Errorf("IsOpportunityRelated() = %v, want %v", got, tt.want)
			}
		})
	}
}
