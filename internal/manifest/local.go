package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"launcherd/internal/fault"
)

// metadataDir is the per-install subdirectory holding launcher-owned state.
const metadataDir = ".metadata"

// LocalPath returns where the local manifest for a title lives under its
// install path.
func LocalPath(titleID, installPath string) string {
	return filepath.Join(installPath, metadataDir, titleID+"_manifest.json")
}

// SaveLocal persists the manifest under the title's install path. The
// presence of a valid local manifest is what makes a title verifiable.
func SaveLocal(titleID, installPath string, m *Manifest) error {
	dir := filepath.Join(installPath, metadataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create metadata directory: %v", fault.ErrInternal, err)
	}

	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode local manifest: %v", fault.ErrInternal, err)
	}
	if err := os.WriteFile(LocalPath(titleID, installPath), data, 0o644); err != nil {
		return fmt.Errorf("%w: write local manifest: %v", fault.ErrInternal, err)
	}
	return nil
}

// LoadLocal reads the title's local manifest. Absence means the title is not
// installed (or a previous install never completed) and is reported as
// fault.ErrNotFound.
func LoadLocal(titleID, installPath string) (*Manifest, error) {
	data, err := os.ReadFile(LocalPath(titleID, installPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: local manifest for title %q", fault.ErrNotFound, titleID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read local manifest: %v", fault.ErrInternal, err)
	}
	return Parse(data)
}
