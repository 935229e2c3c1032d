package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/pet-keeper/internal/lifecycle"
)

func TestLoadTuning_EmbeddedMatchesDefaults(t *testing.T) {
	t.Parallel()
	got, err := LoadTuning("")
	require.NoError(t, err)
	require.Equal(t, lifecycle.DefaultTuning(), got)
}

func TestLoadTuning_OverlayKeepsUnsetFields(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decay:\n  hunger: 9\nthresholds:\n  play_min_energy: 5\n"), 0o600))

	got, err := LoadTuning(path)
	require.NoError(t, err)
	require.Equal(t, 9.0, got.Decay.Hunger)
	require.Equal(t, 5, got.Thresholds.PlayMinEnergy)
	require.Equal(t, lifecycle.DefaultTuning().Decay.Happiness, got.Decay.Happiness)
	require.Equal(t, lifecycle.DefaultTuning().Sleep, got.Sleep)
}

func TestLoadTuning_Invalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decay:\n  energy: -3\n"), 0o600))

	_, err := LoadTuning(path)
	require.ErrorContains(t, err, "decay.energy")

	_, err = LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_Flags(t *testing.T) {
	t.Parallel()
	c, err := Load([]string{"-jwt-key", "k", "-dsn", "postgres://x", "-store-timeout", "1s", "-sweep-interval", "0", "-sweep-workers", "0"})
	require.NoError(t, err)
	require.Equal(t, "k", c.JWTKey)
	require.Equal(t, "postgres://x", c.DSN)
	require.Equal(t, time.Second, c.StoreTimeout)
	require.Zero(t, c.SweepInterval)
	require.Equal(t, 1, c.SweepWorkers)
	require.Equal(t, lifecycle.DefaultTuning(), c.Tuning)
}

func TestLoad_RequiresKey(t *testing.T) {
	t.Parallel()
	_, err := Load(nil)
	require.ErrorContains(t, err, "jwt")
}
