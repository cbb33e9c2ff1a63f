package scoring

import (
	"sort"

	"github.com/abroad-hub/counsellor/internal/domain/profile"
	"github.com/abroad-hub/counsellor/internal/domain/university"
)

// Recommendation pairs a university with its score.
type Recommendation struct {
	University *university.University
	Result     Result
}

// Options tune the aggregate recommendation flow.
type Options struct {
	// PerBucketLimit caps each displayed bucket. Clamped to
	// [MinPerBucketLimit, MaxPerBucketLimit]; zero means DefaultPerBucketLimit.
	PerBucketLimit int

	// FilterByCountry keeps only the profile's preferred countries. The filter
	// is dropped when it would leave nothing to show.
	FilterByCountry bool
}

// Recommendations is the bucketed output of Recommend.
type Recommendations struct {
	Dream  []Recommendation
	Target []Recommendation
	Safe   []Recommendation

	// TopPick is the best non-expensive target, else the best non-expensive
	// safe choice, else nil. It is chosen before the display caps apply.
	TopPick *Recommendation

	// Scored is the number of universities scored after filtering.
	Scored int

	// CountryFilterRelaxed is set when the preferred-country filter matched
	// nothing and the whole catalog was used instead.
	CountryFilterRelaxed bool
}

// Recommend scores every university and builds the bucketed view.
func Recommend(p *profile.Profile, catalog []*university.University, opts Options) Recommendations {
	var out Recommendations

	pool := catalog
	if opts.FilterByCountry && p != nil && len(p.PreferredCountries) > 0 {
		filter := university.Filter{Countries: p.PreferredCountries}
		filtered := make([]*university.University, 0, len(catalog))
		for _, u := range catalog {
			if filter.Matches(u) {
				filtered = append(filtered, u)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		} else {
			out.CountryFilterRelaxed = true
		}
	}

	all := make([]Recommendation, 0, len(pool))
	for _, u := range pool {
		all = append(all, Recommendation{University: u, Result: Score(p, u)})
	}
	sortRecommendations(all)
	out.Scored = len(all)

	for i := range all {
		r := all[i]
		switch r.Result.Category {
		case Dream:
			out.Dream = append(out.Dream, r)
		case Target:
			out.Target = append(out.Target, r)
		case Safe:
			out.Safe = append(out.Safe, r)
		}
	}

	out.TopPick = pickTop(out.Target)
	if out.TopPick == nil {
		out.TopPick = pickTop(out.Safe)
	}

	limit := bucketLimit(opts.PerBucketLimit)
	out.Dream = capBucket(out.Dream, limit)
	out.Target = capBucket(out.Target, limit)
	out.Safe = capBucket(out.Safe, limit)
	return out
}

// sortRecommendations orders by likelihood desc, then ranking asc (unranked
// last), then name and ID so the order is total.
func sortRecommendations(rs []Recommendation) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Result.AcceptanceLikelihood != b.Result.AcceptanceLikelihood {
			return a.Result.AcceptanceLikelihood > b.Result.AcceptanceLikelihood
		}
		if ra, rb := a.University.RankingOrMax(), b.University.RankingOrMax(); ra != rb {
			return ra < rb
		}
		if a.University.Name != b.University.Name {
			return a.University.Name < b.University.Name
		}
		return a.University.ID < b.University.ID
	})
}

func pickTop(bucket []Recommendation) *Recommendation {
	for i := range bucket {
		if bucket[i].Result.CostFit != Expensive {
			r := bucket[i]
			return &r
		}
	}
	return nil
}

func bucketLimit(n int) int {
	switch {
	case n == 0:
		return DefaultPerBucketLimit
	case n < MinPerBucketLimit:
		return MinPerBucketLimit
	case n > MaxPerBucketLimit:
		return MaxPerBucketLimit
	default:
		return n
	}
}

func capBucket(rs []Recommendation, limit int) []Recommendation {
	if len(rs) > limit {
		return rs[:limit]
	}
	return rs
}
