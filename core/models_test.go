package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "short content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestJobIDFor(t *testing.T) {
	if JobIDFor("c1", 1) != JobIDFor("c1", 1) {
		t.Errorf("JobIDFor() is not deterministic")
	}
	if JobIDFor("c1", 1) == JobIDFor("c1", 2) {
		t.Errorf("JobIDFor() produced same ID for different generations")
	}
	if JobIDFor("c1", 1) == JobIDFor("c2", 1) {
		t.Errorf("JobIDFor() produced same ID for different contents")
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestJob_Exhausted(t *testing.T) {
	job := Job{MaxAttempts: 3}
	for attempt, want := range []bool{false, false, false, true, true} {
		job.Attempt = attempt
		if got := job.Exhausted(); got != want {
			t.Errorf("attempt %d: Exhausted() = %v, want %v", attempt, got, want)
		}
	}
}
