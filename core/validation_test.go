package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidatePolicyNumber(t *testing.T) {
	tests := []struct {
		name         string
		policyNumber string
		wantErr      error
	}{
		{name: "valid", policyNumber: "POL-12345", wantErr: nil},
		{name: "empty", policyNumber: "", wantErr: ErrEmptyPolicyNumber},
		{name: "contains colon", policyNumber: "POL:1", wantErr: ErrMalformedPolicyNumber},
		{name: "contains space", policyNumber: "POL 1", wantErr: ErrMalformedPolicyNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePolicyNumber(tt.policyNumber)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidatePolicyNumber(%q) = %v, want nil", tt.policyNumber, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePolicyNumber(%q) = %v, want %v", tt.policyNumber, err, tt.wantErr)
			}
			if !IsInput(err) {
				t.Errorf("ValidatePolicyNumber(%q) should classify as input error", tt.policyNumber)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	valid := &Chunk{
		PolicyNumber:   "POL-1",
		SectionLabel:   "general",
		Text:           "Dwelling Coverage: $300,000",
		SourceFilename: "policy.pdf",
		Ordinal:        0,
	}

	t.Run("valid chunk", func(t *testing.T) {
		if err := ValidateChunk(valid); err != nil {
			t.Fatalf("ValidateChunk() = %v, want nil", err)
		}
	})

	t.Run("nil chunk", func(t *testing.T) {
		if !errors.Is(ValidateChunk(nil), ErrInvalidChunk) {
			t.Error("ValidateChunk(nil) should return ErrInvalidChunk")
		}
	})

	t.Run("empty text", func(t *testing.T) {
		chunk := *valid
		chunk.Text = ""
		if !errors.Is(ValidateChunk(&chunk), ErrEmptyChunkText) {
			t.Error("ValidateChunk() should reject empty text")
		}
	})

	t.Run("empty vector is allowed", func(t *testing.T) {
		chunk := *valid
		chunk.Vector = nil
		if err := ValidateChunk(&chunk); err != nil {
			t.Errorf("ValidateChunk() = %v, vector should not be validated", err)
		}
	})
}

func TestValidateTask(t *testing.T) {
	valid := &Task{
		Id:        NewTaskID(),
		Kind:      TaskKindBatchProcess,
		Status:    StatusPending,
		Progress:  0,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	t.Run("valid task", func(t *testing.T) {
		if err := ValidateTask(valid); err != nil {
			t.Fatalf("ValidateTask() = %v, want nil", err)
		}
	})

	t.Run("nil task", func(t *testing.T) {
		if !errors.Is(ValidateTask(nil), ErrInvalidTask) {
			t.Error("ValidateTask(nil) should return ErrInvalidTask")
		}
	})

	t.Run("empty id", func(t *testing.T) {
		task := *valid
		task.Id = ""
		if !errors.Is(ValidateTask(&task), ErrInvalidTask) {
			t.Error("ValidateTask() should reject empty id")
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		task := *valid
		task.Kind = 99
		if !errors.Is(ValidateTask(&task), ErrInvalidTask) {
			t.Error("ValidateTask() should reject unknown kind")
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		task := *valid
		task.Status = 0
		if !errors.Is(ValidateTask(&task), ErrInvalidStatus) {
			t.Error("ValidateTask() should reject invalid status")
		}
	})

	t.Run("progress out of range", func(t *testing.T) {
		task := *valid
		task.Progress = 101
		if !errors.Is(ValidateTask(&task), ErrInvalidTask) {
			t.Error("ValidateTask() should reject progress over 100")
		}
	})
}
