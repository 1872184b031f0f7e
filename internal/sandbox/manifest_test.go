package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(body), 0o644))
}

func TestLoadManifestDefaultsRefreshPeriod(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "clock", "bin": "clock.wasm"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clock.wasm"), []byte{0x00, 0x61, 0x73, 0x6d}, 0o644))

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "clock", m.Name)
	assert.Equal(t, DefaultRefreshPeriod, m.RefreshPeriod)
	assert.NotZero(t, m.Digest)
}

func TestLoadManifestExplicitRefreshPeriod(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "clock", "bin": "clock.wasm", "refresh_period_ms": 250}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clock.wasm"), []byte{0x00}, 0o644))

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, m.RefreshPeriod)
}

func TestLoadManifestRejectsZeroRefreshPeriod(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "clock", "bin": "clock.wasm", "refresh_period_ms": 0}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clock.wasm"), []byte{0x00}, 0o644))

	_, err := LoadManifest(dir)
	assert.Error(t, err)
}

func TestLoadManifestRejectsPathSeparatorInBin(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "clock", "bin": "../escape.wasm"}`)

	_, err := LoadManifest(dir)
	assert.Error(t, err)
}

func TestLoadManifestMissingBinaryFails(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "clock", "bin": "missing.wasm"}`)

	_, err := LoadManifest(dir)
	assert.Error(t, err)
}

func TestDiscoverManifestsSkipsDirectoriesWithoutOne(t *testing.T) {
	root := t.TempDir()

	appDir := filepath.Join(root, "clock")
	require.NoError(t, os.Mkdir(appDir, 0o755))
	writeManifest(t, appDir, `{"name": "clock", "bin": "clock.wasm"}`)
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "clock.wasm"), []byte{0x00}, 0o644))

	require.NoError(t, os.Mkdir(filepath.Join(root, "not-an-app"), 0o755))

	manifests, err := DiscoverManifests(root)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "clock", manifests[0].Name)
}
