package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

func TestParseConfirmation(t *testing.T) {
	tests := []struct {
		text      string
		want      Confirmation
		ambiguous bool
	}{
		{"yes", Confirmed, false},
		{"Yes!", Confirmed, false},
		{"yes, lock it", Confirmed, false},
		{"go ahead", Confirmed, false},
		{"no", Declined, false},
		{"No, thanks", Declined, false},
		{"don't", Declined, false},
		{"maybe", Declined, true},
		{"not sure", Declined, true},
		{"yes... actually no", Declined, true},
		{"", Declined, true},
		{"lock it", Declined, true},
		{"definitely not", Declined, false},
		{"Absolutely not!", Declined, false},
		{"sure not", Declined, false},
		{"of course not", Declined, false},
		{"nope, not now", Declined, false},
		{"don't do it", Declined, false},
		{"never", Declined, false},
		{"yes not really", Declined, true},
		{"yes, don't lock it", Declined, true},
		{"ok but never mind", Declined, true},
		{"no, yes", Declined, true},
		{"not definitely", Declined, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseConfirmation(tt.text)
			if tt.ambiguous {
				assert.True(t, shared.IsAmbiguousConfirmation(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
