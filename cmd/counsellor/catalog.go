package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/domain/university"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the university catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Upsert universities from a JSON array",
		Long: `Reads a JSON array of universities and upserts each one by id.
Cached catalog reads are invalidated afterwards.

  [{"id": "mit", "name": "Massachusetts Institute of Technology",
    "country": "US", "acceptance_rate": 4.5, "ranking": 1,
    "tuition": 57000, "language_requirement": 7.0}]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := importCatalog(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			a.log.Info("catalog imported", logger.Int("universities", n))
			return nil
		},
	})
	return cmd
}

// catalogEntry is the import file shape.
type catalogEntry struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Country             string   `json:"country"`
	AcceptanceRate      *float64 `json:"acceptance_rate"`
	Ranking             *int     `json:"ranking"`
	Tuition             int      `json:"tuition"`
	LanguageRequirement *float64 `json:"language_requirement"`
}

// parseCatalog decodes and validates every entry. One bad entry fails the
// whole file so a partial import never happens.
func parseCatalog(r io.Reader) ([]*university.University, error) {
	var entries []catalogEntry
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[shared.UniversityID]struct{}, len(entries))
	out := make([]*university.University, 0, len(entries))
	for i, e := range entries {
		u := &university.University{
			ID:                  shared.UniversityID(strings.TrimSpace(e.ID)),
			Name:                strings.TrimSpace(e.Name),
			Country:             shared.CountryCode(strings.ToUpper(strings.TrimSpace(e.Country))),
			AcceptanceRate:      e.AcceptanceRate,
			Ranking:             e.Ranking,
			Tuition:             e.Tuition,
			LanguageRequirement: e.LanguageRequirement,
		}
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d (%q): %w", i, e.ID, err)
		}
		if _, dup := seen[u.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, u.ID)
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}

func importCatalog(ctx context.Context, a *app, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	list, err := parseCatalog(f)
	if err != nil {
		return 0, err
	}
	for _, u := range list {
		if err := a.catalog.UpsertUniversity(ctx, u); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", u.ID, err)
		}
	}
	if err := a.invalidate(ctx); err != nil {
		a.log.Warn("failed to invalidate catalog cache", logger.Err(err))
	}
	return len(list), nil
}
