package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

func TestParseCatalog(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr string
	}{
		{
			name: "valid",
			input: `[
				{"id": "mit", "name": "MIT", "country": "us", "acceptance_rate": 4.5, "ranking": 1, "tuition": 57000},
				{"id": "tum", "name": "TUM", "country": "DE", "tuition": 0}
			]`,
			want: 2,
		},
		{name: "empty array", input: `[]`, want: 0},
		{name: "not json", input: `{`, wantErr: "decode catalog"},
		{name: "unknown field", input: `[{"id": "x", "name": "X", "country": "US", "motto": "?"}]`, wantErr: "decode catalog"},
		{name: "missing name", input: `[{"id": "x", "country": "US"}]`, wantErr: "name is required"},
		{name: "rate out of range", input: `[{"id": "x", "name": "X", "country": "US", "acceptance_rate": 140}]`, wantErr: "acceptance rate"},
		{name: "duplicate", input: `[{"id": "x", "name": "X", "country": "US"}, {"id": "x", "name": "Y", "country": "US"}]`, wantErr: "duplicate id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCatalog(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestParseCatalog_Normalizes(t *testing.T) {
	got, err := parseCatalog(strings.NewReader(`[{"id": " mit ", "name": " MIT ", "country": "us", "ranking": 1}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, shared.UniversityID("mit"), got[0].ID)
	assert.Equal(t, "MIT", got[0].Name)
	assert.Equal(t, shared.CountryCode("US"), got[0].Country)
	require.NotNil(t, got[0].Ranking)
	assert.Equal(t, 1, *got[0].Ranking)
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["catalog"])
}
