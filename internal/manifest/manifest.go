// Package manifest handles the documents that describe one version of a
// title: parsing the remote manifest and persisting the local copy written
// after a successful install.
package manifest

import (
	"encoding/json"
	"fmt"

	"launcherd/internal/fault"
)

// FileEntry is one file in a manifest, with its download location and
// integrity hash (hex-encoded SHA-256).
type FileEntry struct {
	Path        string `json:"path"`
	Size        uint64 `json:"size"`
	Hash        string `json:"hash"`
	DownloadURL string `json:"downloadUrl"`
}

// Manifest lists the files that constitute one version of a title.
type Manifest struct {
	ManifestVersion string      `json:"manifestVersion"`
	GameVersion     string      `json:"gameVersion"`
	Files           []FileEntry `json:"files"`
}

// Parse decodes and validates a manifest document. It fails closed: a
// document without a files list, or with entries missing a path, is rejected.
func Parse(data []byte) (*Manifest, error) {
	var raw struct {
		ManifestVersion string       `json:"manifestVersion"`
		GameVersion     string       `json:"gameVersion"`
		Files           *[]FileEntry `json:"files"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse manifest JSON: %v", fault.ErrInvalidArgument, err)
	}
	if raw.Files == nil {
		return nil, fmt.Errorf("%w: manifest missing 'files' list", fault.ErrInvalidArgument)
	}
	for i, f := range *raw.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("%w: manifest file entry %d missing 'path'", fault.ErrInvalidArgument, i)
		}
	}
	return &Manifest{
		ManifestVersion: raw.ManifestVersion,
		GameVersion:     raw.GameVersion,
		Files:           *raw.Files,
	}, nil
}
