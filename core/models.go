package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// TaskID is an opaque token identifying one tracked unit of asynchronous work.
type TaskID string

// NewTaskID generates a new random task identifier.
func NewTaskID() TaskID {
	return TaskID(uuid.NewString())
}

// TaskKind identifies how a task was created.
type TaskKind int

const (
	// TaskKindBatchProcess is a full four-stage pipeline run over a document batch.
	TaskKindBatchProcess TaskKind = iota + 1
	// TaskKindSingleStep is a manual re-run of one stage for selected policies.
	TaskKindSingleStep
)

func (k TaskKind) String() string {
	switch k {
	case TaskKindBatchProcess:
		return "batch_process"
	case TaskKindSingleStep:
		return "single_step"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// TaskStatus is the lifecycle state of a task.
//
// Lifecycle: pending -> processing -> completed | partial | failed.
// Once a terminal status is reached, status and progress never change.
type TaskStatus int

const (
	StatusPending TaskStatus = iota + 1
	StatusProcessing
	StatusCompleted
	StatusFailed
	StatusPartial
)

func (s TaskStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusPartial:
		return "partial"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// Stage is one of the four ordered processing steps applied per policy number.
// The set is closed so switches over Stage stay exhaustive.
type Stage int

const (
	StageExtract Stage = iota + 1
	StageEmbed
	StageStore
	StageContextUpdate
)

// Stages lists the four stages in execution order.
var Stages = [4]Stage{StageExtract, StageEmbed, StageStore, StageContextUpdate}

func (s Stage) String() string {
	switch s {
	case StageExtract:
		return "extract"
	case StageEmbed:
		return "embed"
	case StageStore:
		return "store"
	case StageContextUpdate:
		return "context_update"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// ParseStage converts a stage name to its Stage value.
func ParseStage(name string) (Stage, error) {
	for _, s := range Stages {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStage, name)
}

// StepOutcome is the result of one (policy number, stage) attempt.
type StepOutcome int

const (
	OutcomeOK StepOutcome = iota + 1
	OutcomeFailed
	OutcomeSkipped
)

func (o StepOutcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	}
	return fmt.Sprintf("unknown(%d)", int(o))
}

// StepResult records one stage attempt for one policy number.
// Immutable once appended to a task.
type StepResult struct {
	Stage        Stage
	PolicyNumber string
	Outcome      StepOutcome
	Detail       string
	RecordedAt   time.Time
}

// Task is the top-level unit of tracked asynchronous work representing one
// submitted batch. Tasks are created on submission and mutated only by the
// pipeline orchestrator. Progress is monotonically non-decreasing and reaches
// exactly 100 if and only if the task completes.
type Task struct {
	Id        TaskID
	Kind      TaskKind
	Status    TaskStatus
	Progress  int
	Steps     []StepResult
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StageOutcome returns the most recent outcome recorded for the given
// policy number and stage, and whether any attempt was recorded at all.
func (t *Task) StageOutcome(policyNumber string, stage Stage) (StepOutcome, bool) {
	for i := len(t.Steps) - 1; i >= 0; i-- {
		step := t.Steps[i]
		if step.PolicyNumber == policyNumber && step.Stage == stage {
			return step.Outcome, true
		}
	}
	return 0, false
}

// PolicyNumbers returns the distinct policy numbers that appear in the
// task's step log, in first-seen order.
func (t *Task) PolicyNumbers() []string {
	seen := make(map[string]bool)
	var numbers []string
	for _, step := range t.Steps {
		if step.PolicyNumber == "" || seen[step.PolicyNumber] {
			continue
		}
		seen[step.PolicyNumber] = true
		numbers = append(numbers, step.PolicyNumber)
	}
	return numbers
}

// Chunk is a labeled, bounded-length span of a policy document's extracted
// text, the unit of embedding and retrieval. Chunks are keyed by
// (PolicyNumber, SourceFilename, Ordinal); re-ingesting the same document
// overwrites rather than duplicates.
type Chunk struct {
	Id             ID
	PolicyNumber   string
	SectionLabel   string
	Text           string
	Vector         []float32
	SourceFilename string
	Ordinal        int
	InsertedAt     time.Time
	UpdatedAt      time.Time
}

// Locator returns the stable "policy/file/ordinal" identity of the chunk.
func (c *Chunk) Locator() string {
	return fmt.Sprintf("%s/%s/%d", c.PolicyNumber, c.SourceFilename, c.Ordinal)
}

// Coverage is one coverage line extracted from a policy document.
type Coverage struct {
	Type       string
	Limit      string
	Deductible string
}

// PolicySummary is the structured record upserted into the policy store for
// each processed policy, including the proactive context signals computed by
// the context_update stage.
type PolicySummary struct {
	PolicyNumber     string
	InsurerName      string
	PolicyholderName string
	PropertyAddress  string
	EffectiveDate    time.Time
	ExpirationDate   time.Time
	TotalPremium     float64
	Coverages        []Coverage
	RawText          string
	SourceFilename   string

	// Proactive context fields, written by the context_update stage.
	RenewalDate  time.Time
	RoofAgeYears int // 0 = unknown
	Features     []string

	InsertedAt time.Time
	UpdatedAt  time.Time
}

// ScoredChunk is a chunk paired with its similarity score for a query vector.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}

// Answer is the result of a retrieval-augmented query against one policy.
// It is ephemeral and never persisted.
type Answer struct {
	Text       string
	Sources    []*ScoredChunk
	Confidence float32
}
