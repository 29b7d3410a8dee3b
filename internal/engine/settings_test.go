package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValid(t *testing.T) {
	st := DefaultSettings()
	require.NoError(t, st.Validate())
}

func TestValidateFailsClosed(t *testing.T) {
	cases := map[string]func(*Settings){
		"agariyame":               func(s *Settings) { s.Agariyame = true },
		"renhou_value":            func(s *Settings) { s.RenhouValue = RenhouBaiman },
		"tie_break_by_seat_order": func(s *Settings) { s.TieBreakBySeatOrder = false },
		"num_players":             func(s *Settings) { s.NumPlayers = 3 },
		"aka_dora":                func(s *Settings) { s.AkaDora = 4 },
		"kazoe_limit":             func(s *Settings) { s.KazoeLimit = "DOUBLE" },
		"target_score":            func(s *Settings) { s.TargetScore = 1000 },
	}
	for flag, mutate := range cases {
		st := DefaultSettings()
		mutate(&st)
		err := st.Validate()
		var unsupported *UnsupportedSettingsError
		require.ErrorAs(t, err, &unsupported, "flag %s", flag)
		assert.Equal(t, flag, unsupported.Flag)
	}
}

func TestRenhouManganAccepted(t *testing.T) {
	st := DefaultSettings()
	st.RenhouValue = RenhouMangan
	assert.NoError(t, st.Validate())
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kiriage: true\naka_dora: 0\n"), 0o600))

	st, err := LoadSettings(path)
	require.NoError(t, err)
	assert.True(t, st.Kiriage)
	assert.Zero(t, st.AkaDora)
	// Untouched keys keep their defaults.
	assert.Equal(t, 25000, st.StartScore)
	assert.True(t, st.Ippatsu)
}

func TestLoadSettingsRejectsUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agariyame: true\n"), 0o600))

	_, err := LoadSettings(path)
	var unsupported *UnsupportedSettingsError
	require.ErrorAs(t, err, &unsupported)
}
