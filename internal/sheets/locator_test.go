package sheets

import (
	"errors"
	"testing"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		rangeSpec string
		wantID    string
		wantRange string
		wantErr   error
	}{
		{
			name:   "edit url with gid",
			url:    "https://docs.google.com/spreadsheets/d/ABC123/edit#gid=0",
			wantID: "ABC123",
		},
		{
			name:   "id with dash and underscore",
			url:    "https://docs.google.com/spreadsheets/d/1a-B_c9/view",
			wantID: "1a-B_c9",
		},
		{
			name:   "no trailing path",
			url:    "https://docs.google.com/spreadsheets/d/XYZ",
			wantID: "XYZ",
		},
		{
			name:   "first match wins",
			url:    "https://x/spreadsheets/d/first/y/spreadsheets/d/second",
			wantID: "first",
		},
		{
			name:   "id stops at disallowed character",
			url:    "https://docs.google.com/spreadsheets/d/abc.def/edit",
			wantID: "abc",
		},
		{
			name:      "range is trimmed",
			url:       "https://docs.google.com/spreadsheets/d/ABC/edit",
			rangeSpec: "  Sales!A1:C10 ",
			wantID:    "ABC",
			wantRange: "Sales!A1:C10",
		},
		{
			name:    "missing spreadsheets segment",
			url:     "https://docs.google.com/document/d/ABC123/edit",
			wantErr: ErrInvalidReference,
		},
		{
			name:    "empty id",
			url:     "https://docs.google.com/spreadsheets/d//edit",
			wantErr: ErrInvalidReference,
		},
		{
			name:    "empty url",
			url:     "",
			wantErr: ErrInvalidReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseURL(tt.url, tt.rangeSpec)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseURL() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURL() unexpected error: %v", err)
			}
			if ref.SpreadsheetID != tt.wantID {
				t.Errorf("SpreadsheetID = %q, want %q", ref.SpreadsheetID, tt.wantID)
			}
			if ref.Range != tt.wantRange {
				t.Errorf("Range = %q, want %q", ref.Range, tt.wantRange)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"Sales":        "Sales",
		"Sales!A1:C10": "Sales",
		"!A1":          "",
		"":             "",
		"My Sheet!B2":  "My Sheet",
		"a!b!c":        "a",
	}
	for in, want := range tests {
		if got := Title(in); got != want {
			t.Errorf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}
