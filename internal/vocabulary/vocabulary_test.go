package vocabulary

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/cupid-bot/internal/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		gender models.Gender
		want   Entry
	}{
		{models.NonBinary, Entry{
			Emoji: "\U0001F64B", Name: "non-binary",
			Pronouns: Pronouns{"they", "them", "their", "themself"},
			Parent:   "parent", Child: "child", Partner: "partner",
		}},
		{models.Female, Entry{
			Emoji: "\U0001F64B\u200d\u2640\ufe0f", Name: "female",
			Pronouns: Pronouns{"she", "her", "her", "herself"},
			Parent:   "mother", Child: "daughter", Partner: "wife",
		}},
		{models.Male, Entry{
			Emoji: "\U0001F64B\u200d\u2642\ufe0f", Name: "male",
			Pronouns: Pronouns{"he", "him", "his", "himself"},
			Parent:   "father", Child: "son", Partner: "husband",
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.gender), func(t *testing.T) {
			got, err := Resolve(tt.gender)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", tt.gender, diff)
			}
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	for _, g := range []models.Gender{"", "NON_BINARY", "robot"} {
		_, err := Resolve(g)
		assert.ErrorIs(t, err, ErrUnknownGender, "gender %q", g)

		// Deterministic: the same input fails the same way.
		_, again := Resolve(g)
		assert.Equal(t, err.Error(), again.Error())
	}
}

func TestResolveOrDefaultFallsBack(t *testing.T) {
	assert.Equal(t, "partner", ResolveOrDefault("robot").Partner)
	assert.Equal(t, "wife", ResolveOrDefault(models.Female).Partner)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "\U0001F64B Non-binary", ResolveOrDefault(models.NonBinary).Title())
	assert.Equal(t, "\U0001F64B\u200d\u2642\ufe0f Male", ResolveOrDefault(models.Male).Title())
}

func TestParseGender(t *testing.T) {
	tests := map[string]models.Gender{
		"nb":         models.NonBinary,
		"Non-Binary": models.NonBinary,
		"non_binary": models.NonBinary,
		" enby ":     models.NonBinary,
		"F":          models.Female,
		"Lady":       models.Female,
		"m":          models.Male,
		"GUY":        models.Male,
	}
	for raw, want := range tests {
		got, err := ParseGender(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseGenderInvalid(t *testing.T) {
	_, err := ParseGender("cat")
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "cat", perr.Raw)
	assert.ErrorIs(t, err, ErrUnknownGender)
	assert.Equal(t, `Unknown gender "cat". Should be "non-binary", "female" or "male".`, err.Error())
}
