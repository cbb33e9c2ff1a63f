package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/infrastructure/persistence/memory"
)

// errFixturesNeedMemory is returned when fixtures are loaded against Postgres,
// where users and profiles belong to the intake flow.
var errFixturesNeedMemory = errors.New("fixtures require DB_DRIVER=memory")

// fixtureUser is the fixtures file shape: a user with an optional profile.
type fixtureUser struct {
	ID                  string          `json:"id"`
	Email               string          `json:"email"`
	FullName            string          `json:"full_name"`
	OnboardingCompleted bool            `json:"onboarding_completed"`
	Profile             *fixtureProfile `json:"profile"`
}

type fixtureProfile struct {
	AcademicBackground  *profile.AcademicBackground `json:"academic_background"`
	StudyGoals          *profile.StudyGoals         `json:"study_goals"`
	Budget              *string                     `json:"budget"`
	LanguageTestStatus  string                      `json:"language_test_status"`
	LanguageTestScore   *float64                    `json:"language_test_score"`
	SecondaryTestStatus string                      `json:"secondary_test_status"`
	PreferredCountries  []string                    `json:"preferred_countries"`
}

type fixtureRecord struct {
	user    profile.User
	profile *profile.Profile
}

// parseFixtures decodes and validates users and profiles. Like the catalog,
// one bad entry fails the whole file.
func parseFixtures(r io.Reader) ([]fixtureRecord, error) {
	var entries []fixtureUser
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	seen := make(map[shared.UserID]struct{}, len(entries))
	out := make([]fixtureRecord, 0, len(entries))
	for i, e := range entries {
		id, err := shared.NewUserID(strings.TrimSpace(e.ID))
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("fixture %d: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}

		rec := fixtureRecord{user: profile.User{
			ID:                  id,
			Email:               strings.TrimSpace(e.Email),
			FullName:            strings.TrimSpace(e.FullName),
			OnboardingCompleted: e.OnboardingCompleted,
		}}
		if e.Profile != nil {
			p, err := e.Profile.toDomain(id)
			if err != nil {
				return nil, fmt.Errorf("fixture %d (%q): %w", i, id, err)
			}
			rec.profile = p
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fixtureProfile) toDomain(userID shared.UserID) (*profile.Profile, error) {
	p := &profile.Profile{
		UserID:             userID,
		AcademicBackground: f.AcademicBackground,
		StudyGoals:         f.StudyGoals,
		PreferredCountries: profile.NormalizeCountries(f.PreferredCountries),
	}
	if f.Budget != nil {
		band := profile.BudgetBand(strings.ToLower(strings.TrimSpace(*f.Budget)))
		if !band.IsValid() {
			return nil, fmt.Errorf("unknown budget %q", *f.Budget)
		}
		p.Budget = &band
	}

	lang, err := testStatus(f.LanguageTestStatus)
	if err != nil {
		return nil, fmt.Errorf("language test: %w", err)
	}
	secondary, err := testStatus(f.SecondaryTestStatus)
	if err != nil {
		return nil, fmt.Errorf("secondary test: %w", err)
	}
	p.ExamReadiness = profile.ExamReadiness{
		LanguageTestStatus:  lang,
		LanguageTestScore:   f.LanguageTestScore,
		SecondaryTestStatus: secondary,
	}
	return p, nil
}

// testStatus defaults a blank status to not started.
func testStatus(raw string) (profile.TestStatus, error) {
	s := profile.TestStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return profile.TestNotStarted, nil
	}
	if !s.IsValid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

func seedFixtures(store *memory.Store, records []fixtureRecord) {
	for _, r := range records {
		store.PutUser(r.user)
		if r.profile != nil {
			store.PutProfile(*r.profile)
		}
	}
}

func loadFixtures(a *app, path string) (int, error) {
	if a.mem == nil {
		return 0, errFixturesNeedMemory
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()

	records, err := parseFixtures(f)
	if err != nil {
		return 0, err
	}
	seedFixtures(a.mem, records)
	return len(records), nil
}
