package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/abroad-hub/counsellor/internal/domain/scoring"
	"github.com/abroad-hub/counsellor/internal/domain/selection"
)

// EngineConfig holds decision engine policies.
type EngineConfig struct {
	// DocumentPolicy is DOCUMENTS_ON_SHORTLIST or TASKS_ON_LOCK_ONLY.
	DocumentPolicy string `mapstructure:"document_policy"`

	// RecommendationsPerBucket caps each dream/target/safe list.
	RecommendationsPerBucket int `mapstructure:"recommendations_per_bucket"`

	// FilterByCountry limits recommendations to preferred countries.
	FilterByCountry bool `mapstructure:"filter_by_country"`

	// LockMaxAttempts bounds retries of a ledger transaction that lost a
	// serialization race.
	LockMaxAttempts int `mapstructure:"lock_max_attempts"`
}

func setEngineDefaults(v *viper.Viper) {
	v.SetDefault("engine.document_policy", string(selection.DefaultDocumentPolicy))
	v.SetDefault("engine.recommendations_per_bucket", scoring.DefaultPerBucketLimit)
	v.SetDefault("engine.filter_by_country", true)
	v.SetDefault("engine.lock_max_attempts", 3)
}

// Policy returns the parsed document policy. Validate has already rejected
// unknown values, so the error is only possible on an unvalidated config.
func (e EngineConfig) Policy() (selection.DocumentPolicy, error) {
	return selection.ParseDocumentPolicy(e.DocumentPolicy)
}

// RecommendOptions converts the engine settings into scoring options.
func (e EngineConfig) RecommendOptions() scoring.Options {
	return scoring.Options{
		PerBucketLimit:  e.RecommendationsPerBucket,
		FilterByCountry: e.FilterByCountry,
	}
}

func (e EngineConfig) validate() []string {
	var errs []string
	if _, err := e.Policy(); err != nil {
		errs = append(errs, fmt.Sprintf("ENGINE_DOCUMENT_POLICY must be %s or %s",
			selection.DocumentsOnShortlist, selection.TasksOnLockOnly))
	}
	if e.RecommendationsPerBucket < scoring.MinPerBucketLimit || e.RecommendationsPerBucket > scoring.MaxPerBucketLimit {
		errs = append(errs, fmt.Sprintf("ENGINE_RECOMMENDATIONS_PER_BUCKET must be %d-%d",
			scoring.MinPerBucketLimit, scoring.MaxPerBucketLimit))
	}
	if e.LockMaxAttempts < 1 {
		errs = append(errs, "ENGINE_LOCK_MAX_ATTEMPTS must be at least 1")
	}
	return errs
}
