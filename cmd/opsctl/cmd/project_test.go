package cmd

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	// Unset dates scan to the zero time and must render empty, not 0001-01-01
	if got := formatDate(time.Time{}); got != "" {
		t.Errorf("formatDate(zero) = %q, want empty", got)
	}

	d := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if got := formatDate(d); got != "2026-02-01" {
		t.Errorf("formatDate = %q, want 2026-02-01", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 30); got != "short" {
		t.Errorf("truncate = %q, want unchanged", got)
	}
	if got := truncate("a very long project name indeed", 10); got != "a very l.." {
		t.Errorf("truncate = %q, want 10 chars ending ..", got)
	}
}
