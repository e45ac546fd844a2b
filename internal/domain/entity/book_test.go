package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookRequirementIsComplete(t *testing.T) {
	full := &BookRequirement{
		Topic:             "Space",
		TargetAudience:    "kids",
		Tone:              "fun",
		KeyGoals:          []string{"learn planets"},
		PageCountEstimate: 20,
	}
	assert.True(t, full.IsComplete())

	var nilReq *BookRequirement
	assert.False(t, nilReq.IsComplete())

	blankTone := *full
	blankTone.Tone = "   "
	assert.False(t, blankTone.IsComplete())

	noGoals := *full
	noGoals.KeyGoals = nil
	assert.False(t, noGoals.IsComplete())

	noPages := *full
	noPages.PageCountEstimate = 0
	assert.False(t, noPages.IsComplete())
}

func TestNewBookDefaults(t *testing.T) {
	b := NewBook("user-1", "Planets")

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, BookStatusDraft, b.Status)
	assert.NotNil(t, b.Outline)
	assert.NotNil(t, b.Chapters)
	assert.True(t, b.IsOwnedBy("user-1"))
	assert.False(t, b.IsOwnedBy("user-2"))
	assert.Equal(t, b.CreatedAt.UnixMilli(), b.CreatedAtMillis())
}

func TestBookStatusIsValid(t *testing.T) {
	assert.True(t, BookStatusDraft.IsValid())
	assert.True(t, BookStatusCompleted.IsValid())
	assert.False(t, BookStatus("archived").IsValid())
}

func TestGenerationStatusClone(t *testing.T) {
	s := NewGenerationStatus()
	s.Logs = append(s.Logs, "one")

	cp := s.Clone()
	cp.Logs[0] = "changed"
	cp.Logs = append(cp.Logs, "two")

	assert.Equal(t, []string{"one"}, s.Logs)
	assert.Equal(t, GenerationStepIdle, cp.Step)
}

func TestGenerationStepIsActive(t *testing.T) {
	assert.False(t, GenerationStepIdle.IsActive())
	assert.True(t, GenerationStepGathering.IsActive())
	assert.True(t, GenerationStepPlanning.IsActive())
	assert.True(t, GenerationStepWritingLoop.IsActive())
	assert.False(t, GenerationStepCompleted.IsActive())
}
