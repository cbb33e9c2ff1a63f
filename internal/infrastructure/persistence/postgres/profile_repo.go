package postgres

import (
	"context"

	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

// ProfileRepository reads users and profiles.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// GetUser implements profile.UserRepository.
func (r *ProfileRepository) GetUser(ctx context.Context, id shared.UserID) (*profile.User, error) {
	ctx, cancel := r.conn.readContext(ctx)
	defer cancel()

	u := &profile.User{}
	err := r.conn.Pool().QueryRow(ctx, `
		SELECT id, email, full_name, onboarding_completed
		FROM users WHERE id = $1
	`, id.String()).Scan(&u.ID, &u.Email, &u.FullName, &u.OnboardingCompleted)
	if IsNoRows(err) {
		return nil, shared.ErrUserNotFound
	}
	if err != nil {
		return nil, classify("GetUser", err)
	}
	return u, nil
}

// GetProfile implements profile.Repository.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID shared.UserID) (*profile.Profile, error) {
	ctx, cancel := r.conn.readContext(ctx)
	defer cancel()

	p := &profile.Profile{UserID: userID}
	var (
		budget             *string
		languageStatus     string
		secondaryStatus    string
		preferredCountries []string
	)
	err := r.conn.Pool().QueryRow(ctx, `
		SELECT academic_background, study_goals, budget,
		       language_test_status, language_test_score, secondary_test_status,
		       preferred_countries
		FROM profiles WHERE user_id = $1
	`, userID.String()).Scan(
		&p.AcademicBackground,
		&p.StudyGoals,
		&budget,
		&languageStatus,
		&p.ExamReadiness.LanguageTestScore,
		&secondaryStatus,
		&preferredCountries,
	)
	if IsNoRows(err) {
		return nil, shared.ErrProfileNotFound
	}
	if err != nil {
		return nil, classify("GetProfile", err)
	}

	if budget != nil {
		b := profile.BudgetBand(*budget)
		p.Budget = &b
	}
	p.ExamReadiness.LanguageTestStatus = profile.TestStatus(languageStatus)
	p.ExamReadiness.SecondaryTestStatus = profile.TestStatus(secondaryStatus)
	p.PreferredCountries = profile.NormalizeCountries(preferredCountries)
	return p, nil
}

var (
	_ profile.UserRepository = (*ProfileRepository)(nil)
	_ profile.Repository     = (*ProfileRepository)(nil)
)
