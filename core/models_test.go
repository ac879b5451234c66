package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "POL-1/policy.pdf/0"},
		{name: "empty string", content: ""},
		{name: "long content", content: "Dwelling Coverage: $300,000 with a $1,000 deductible applies to the insured property"},
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

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("POL-1/policy.pdf/0")
	id2 := IDFromContent("POL-1/policy.pdf/1")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusPartial, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStage(t *testing.T) {
	for _, stage := range Stages {
		t.Run(stage.String(), func(t *testing.T) {
			got, err := ParseStage(stage.String())
			if err != nil {
				t.Fatalf("ParseStage(%q) returned error: %v", stage, err)
			}
			if got != stage {
				t.Errorf("ParseStage(%q) = %v, want %v", stage, got, stage)
			}
		})
	}

	t.Run("unknown stage", func(t *testing.T) {
		if _, err := ParseStage("transcode"); err == nil {
			t.Error("ParseStage accepted an unknown stage name")
		}
	})
}

func TestTask_StageOutcome(t *testing.T) {
	task := &Task{
		Steps: []StepResult{
			{Stage: StageExtract, PolicyNumber: "POL-1", Outcome: OutcomeFailed},
			{Stage: StageExtract, PolicyNumber: "POL-1", Outcome: OutcomeOK},
			{Stage: StageEmbed, PolicyNumber: "POL-1", Outcome: OutcomeOK},
		},
	}

	outcome, ok := task.StageOutcome("POL-1", StageExtract)
	if !ok {
		t.Fatal("StageOutcome() found no attempt for POL-1/extract")
	}
	if outcome != OutcomeOK {
		t.Errorf("StageOutcome() = %v, want most recent outcome %v", outcome, OutcomeOK)
	}

	if _, ok := task.StageOutcome("POL-2", StageExtract); ok {
		t.Error("StageOutcome() reported an attempt for an unknown policy")
	}
}

func TestTask_PolicyNumbers(t *testing.T) {
	task := &Task{
		Steps: []StepResult{
			{Stage: StageExtract, PolicyNumber: "POL-2", Outcome: OutcomeOK},
			{Stage: StageExtract, PolicyNumber: "POL-1", Outcome: OutcomeOK},
			{Stage: StageEmbed, PolicyNumber: "POL-2", Outcome: OutcomeOK},
		},
	}

	got := task.PolicyNumbers()
	want := []string{"POL-2", "POL-1"}
	if len(got) != len(want) {
		t.Fatalf("PolicyNumbers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PolicyNumbers()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunk_Locator(t *testing.T) {
	chunk := &Chunk{PolicyNumber: "POL-1", SourceFilename: "policy.pdf", Ordinal: 3}
	if got, want := chunk.Locator(), "POL-1/policy.pdf/3"; got != want {
		t.Errorf("Locator() = %q, want %q", got, want)
	}
}
