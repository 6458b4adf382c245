package blog

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2021, time.March, 25, 19, 25, 28, 0, time.UTC), "25 mar 2021"},
		{time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC), "1 fev 2020"},
		{time.Date(1999, time.December, 31, 23, 59, 0, 0, time.UTC), "31 dez 1999"},
		{time.Time{}, ""},
	}

	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Errorf("FormatDate(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPublished(t *testing.T) {
	if (PostSummary{}).Published() {
		t.Error("zero summary reported as published")
	}
	p := PostSummary{FirstPublicationDate: time.Now()}
	if !p.Published() {
		t.Error("dated summary reported as unpublished")
	}
}
