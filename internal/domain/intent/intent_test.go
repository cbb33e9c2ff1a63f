package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Intent
		ok   bool
	}{
		{"Can you recommend some universities for CS?", UniversityRecommendations, true},
		{"Which universities fit my profile", UniversityRecommendations, true},
		{"where should I study?", UniversityRecommendations, true},
		{"How do I start my application?", ApplicationGuidance, true},
		{"help me write my SOP", SOPWriting, true},
		{"Review my statement of purpose", SOPWriting, true},
		{"which documents do I need", DocumentPrep, true},
		{"I need a letter of recommendation", DocumentPrep, true},
		{"what are my deadlines", TimelineTasks, true},
		{"what's next?", TimelineTasks, true},
		{"I want to lock Stanford", UniversityLocking, true},
		{"Please unlock MIT", UniversityUnlocking, true},
		{"I want to switch university", UniversityUnlocking, true},
		{"compare MIT and Stanford", Comparison, true},
		{"MIT vs. Stanford", Comparison, true},
		{"hello, how are you?", Casual, true},
		{"Hey", Casual, true},
		{"is it raining?", Casual, true},
		{"blah", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := Classify(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	// mentions both an application and documents; application rule comes first
	got, _ := Classify("documents for my application")
	assert.Equal(t, ApplicationGuidance, got)

	// a greeting with a task keyword is not casual
	got, _ = Classify("hi, what are my tasks?")
	assert.Equal(t, TimelineTasks, got)
}

func TestIntent_IsTask(t *testing.T) {
	assert.Len(t, TaskIntents, 6)
	assert.True(t, UniversityLocking.IsTask())
	assert.False(t, UniversityUnlocking.IsTask())
	assert.False(t, Comparison.IsTask())
	assert.False(t, Casual.IsTask())
}
