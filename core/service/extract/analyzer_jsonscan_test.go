package extract

import (
	"errors"
	"testing"
)

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "json fence",
			raw:      "```json\n[{\"type\":\"task\"}]\n```",
			expected: "[{\"type\":\"task\"}]",
		},
		{
			name:     "bare fence uppercase",
			raw:      "```JSON\n[]\n```",
			expected: "[]",
		},
		{
			name:     "stray backticks and crlf",
			raw:      "`[1, 2]`\r\n",
			expected: "[1, 2]",
		},
		{
			name:     "crlf inside fence",
			raw:      "```json\r\n[1, 2]\r\n```",
			expected: "[1, 2]",
		},
		{
			name:     "blank run collapse",
			raw:      "line one\n\n\n\nline two",
			expected: "line one\nline two",
		},
		{
			name:     "already clean",
			raw:      "[]",
			expected: "[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanResponse(tt.raw)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseJSONRecoversEmbeddedArray(t *testing.T) {
	raw := `Sure! Here are the extracted items:
[{"type":"task","title":"Submit report"}]
Let me know if you need anything else.`

	value, err := ParseJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := value.([]any)
	if !ok {
		t.Fatalf("expected array, got %T", value)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 element, got %d", len(list))
	}
}

func TestParseJSONBalancedNesting(t *testing.T) {
	raw := `prefix [[1, 2], [3, [4]]] suffix`

	value, err := ParseJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := value.([]any)
	if !ok {
		t.Fatalf("expected array, got %T", value)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 elements, got %d", len(list))
	}
}

func TestParseJSONNoJSON(t *testing.T) {
	if _, err := ParseJSON("nothing useful here"); !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON, got %v", err)
	}
}

func TestParseItemList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantLen int
		wantErr error
	}{
		{
			name:    "fenced array",
			raw:     "```json\n[{\"type\":\"task\",\"title\":\"a\"},{\"type\":\"event\",\"title\":\"b\"}]\n```",
			wantLen: 2,
		},
		{
			name:    "single object wrapped",
			raw:     `{"type":"task","title":"solo"}`,
			wantLen: 1,
		},
		{
			name:    "array embedded in prose",
			raw:     "Here you go: [{\"type\":\"task\",\"title\":\"x\"}] hope that helps!",
			wantLen: 1,
		},
		{
			name:    "prose sentence plus fenced array",
			raw:     "Here is the JSON:\n```json\n[{\"type\":\"task\",\"title\":\"x\"}]\n```",
			wantLen: 1,
		},
		{
			name:    "empty array",
			raw:     "[]",
			wantLen: 0,
		},
		{
			name:    "scalar",
			raw:     "42",
			wantErr: ErrNotAList,
		},
		{
			name:    "array of scalars",
			raw:     "[1, 2, 3]",
			wantErr: ErrNotAList,
		},
		{
			name:    "no json at all",
			raw:     "I could not find any tasks.",
			wantErr: ErrNoJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseItemList(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != tt.wantLen {
				t.Errorf("expected %d items, got %d", tt.wantLen, len(items))
			}
		})
	}
}
