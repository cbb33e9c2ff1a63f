package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

func ptr[T any](v T) *T { return &v }

func TestProfile_IsComplete(t *testing.T) {
	band := Budget20KTo40K
	tests := []struct {
		name     string
		profile  *Profile
		complete bool
		missing  []string
	}{
		{
			name:     "nil profile",
			profile:  nil,
			complete: false,
			missing:  []string{"academic background", "study goals", "budget"},
		},
		{
			name: "missing academic background",
			profile: &Profile{
				StudyGoals: &StudyGoals{IntendedDegree: "masters"},
				Budget:     &band,
			},
			complete: false,
			missing:  []string{"academic background"},
		},
		{
			name: "missing budget only",
			profile: &Profile{
				AcademicBackground: &AcademicBackground{Degree: "BSc"},
				StudyGoals:         &StudyGoals{IntendedDegree: "masters"},
			},
			complete: false,
			missing:  []string{"budget"},
		},
		{
			name: "all sections present",
			profile: &Profile{
				AcademicBackground: &AcademicBackground{Degree: "BSc"},
				StudyGoals:         &StudyGoals{IntendedDegree: "masters"},
				Budget:             &band,
			},
			complete: true,
			missing:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.complete, tt.profile.IsComplete())
			assert.Equal(t, tt.missing, tt.profile.MissingSections())
		})
	}
}

func TestProfile_GPA(t *testing.T) {
	var p *Profile
	_, ok := p.GPA()
	assert.False(t, ok)

	p = &Profile{AcademicBackground: &AcademicBackground{GPA: ptr(3.6)}}
	gpa, ok := p.GPA()
	assert.True(t, ok)
	assert.Equal(t, 3.6, gpa)
}

func TestNormalizeCountries(t *testing.T) {
	got := NormalizeCountries([]string{"us", "GB", "us", "not-a-code", " de "})
	assert.Equal(t, []shared.CountryCode{"US", "GB", "DE"}, got)

	p := &Profile{PreferredCountries: got}
	assert.True(t, p.PrefersCountry("GB"))
	assert.False(t, p.PrefersCountry("CA"))
}

func TestTestStatus_Attempted(t *testing.T) {
	assert.False(t, TestNotStarted.Attempted())
	assert.True(t, TestScheduled.Attempted())
	assert.True(t, TestCompleted.Attempted())
	assert.False(t, TestStatus("").IsValid())
}
