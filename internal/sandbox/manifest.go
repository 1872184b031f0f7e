// Package sandbox loads app manifests and runs the compiled guest
// binaries they name inside a wazero WASM runtime, bridging a fixed
// set of host capability functions to the sandboxed code.
package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultRefreshPeriod is used when a manifest omits refresh_period_ms.
const DefaultRefreshPeriod = time.Second

// manifestSchema is the on-disk JSON shape of manifest.json.
type manifestSchema struct {
	Name            string `json:"name"`
	Bin             string `json:"bin"`
	RefreshPeriodMs *int   `json:"refresh_period_ms"`
}

// Manifest is the resolved, validated form of an app's manifest.json:
// its display name, the absolute path to its compiled binary, the
// refresh period to run it at, and a content digest of that binary
// for logging.
type Manifest struct {
	Dir           string
	Name          string
	BinPath       string
	RefreshPeriod time.Duration
	Digest        uint64
}

// LoadManifest reads manifest.json out of dir, validates it, and
// hashes the named binary. The bin field must be a bare filename with
// no path separators; an explicit refresh_period_ms of zero is
// rejected rather than silently treated as "run as fast as possible".
func LoadManifest(dir string) (Manifest, error) {
	manifestPath := filepath.Join(dir, "manifest.json")
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("sandbox: reading %s: %w", manifestPath, err)
	}

	var schema manifestSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return Manifest{}, fmt.Errorf("sandbox: parsing %s: %w", manifestPath, err)
	}
	if schema.Name == "" {
		return Manifest{}, fmt.Errorf("sandbox: %s: missing name", manifestPath)
	}
	if schema.Bin == "" {
		return Manifest{}, fmt.Errorf("sandbox: %s: missing bin", manifestPath)
	}
	if strings.ContainsAny(schema.Bin, `/\`) {
		return Manifest{}, fmt.Errorf("sandbox: %s: bin %q must be a bare filename", manifestPath, schema.Bin)
	}

	refresh := DefaultRefreshPeriod
	if schema.RefreshPeriodMs != nil {
		if *schema.RefreshPeriodMs == 0 {
			return Manifest{}, fmt.Errorf("sandbox: %s: refresh_period_ms of 0 is not allowed", manifestPath)
		}
		refresh = time.Duration(*schema.RefreshPeriodMs) * time.Millisecond
	}

	binPath := filepath.Join(dir, schema.Bin)
	binBytes, err := os.ReadFile(binPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("sandbox: reading binary %s: %w", binPath, err)
	}

	return Manifest{
		Dir:           dir,
		Name:          schema.Name,
		BinPath:       binPath,
		RefreshPeriod: refresh,
		Digest:        xxhash.Sum64(binBytes),
	}, nil
}

// DiscoverManifests loads every immediate subdirectory of root that
// contains a manifest.json. Directories that fail to load are skipped
// rather than aborting the whole scan; callers that want to know why
// should call LoadManifest directly on a single directory.
func DiscoverManifests(root string) ([]Manifest, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("sandbox: listing %s: %w", root, err)
	}
	var manifests []Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
			continue
		}
		m, err := LoadManifest(dir)
		if err != nil {
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}
