package forecastprep

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settingsYAML = `frequency: H
group_by: [region, store]
order_by: date
target: sales
hierarchy: [region, store]
exog_vars: [temp]
`

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSettings_File(t *testing.T) {
	s, err := LoadSettings(writeSettings(t, settingsYAML))
	require.NoError(t, err)
	assert.Equal(t, Settings{
		Frequency: "H",
		GroupBy:   []string{"region", "store"},
		OrderBy:   "date",
		Target:    "sales",
		Hierarchy: []string{"region", "store"},
		ExogVars:  []string{"temp"},
	}, s)
}

func TestLoadSettings_EnvOnlyUsesDefaults(t *testing.T) {
	t.Setenv("FORECASTPREP_ORDER_BY", "ts")
	t.Setenv("FORECASTPREP_TARGET", "value")
	t.Setenv("FORECASTPREP_GROUP_BY", "a,b")

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFrequency, s.Frequency)
	assert.Equal(t, "ts", s.OrderBy)
	assert.Equal(t, "value", s.Target)
	assert.Equal(t, []string{"a", "b"}, s.GroupBy)
}

func TestLoadSettings_EnvOverridesFile(t *testing.T) {
	t.Setenv("FORECASTPREP_TARGET", "revenue")
	t.Setenv("FORECASTPREP_FREQUENCY", "MS")

	s, err := LoadSettings(writeSettings(t, settingsYAML))
	require.NoError(t, err)
	assert.Equal(t, "revenue", s.Target)
	assert.Equal(t, "MS", s.Frequency)
	assert.Equal(t, "date", s.OrderBy)
}

func TestLoadSettings_Invalid(t *testing.T) {
	_, err := LoadSettings(writeSettings(t, "order_by: date\n"))
	assert.ErrorContains(t, err, "Target")

	_, err = LoadSettings(writeSettings(t, "order_by: date\ntarget: y\nfrequency: fortnightly\n"))
	assert.True(t, errors.Is(err, ErrInvalidFrequency))

	_, err = LoadSettings(writeSettings(t, "order_by: [not, a, string]\n"))
	assert.Error(t, err)

	_, err = LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
