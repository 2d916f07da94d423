package guide

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkaindl/epggen/internal/epg"
)

// iconInfo is one manifest entry.
type iconInfo struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// IconSet is a loaded per-variant icon manifest. Icon URLs resolve against
// the configured base URL.
type IconSet struct {
	baseURL string
	entries map[string]iconInfo
}

// LoadIconSet reads the channel icon manifest for a variant from dir.
// Manifest files are named channels-<variant>.json.
func LoadIconSet(dir string, v Variant, baseURL string) (*IconSet, error) {
	path := filepath.Join(dir, fmt.Sprintf("channels-%s.json", v))
	data, err := os.ReadFile(path) // #nosec G304 -- dir comes from validated config
	if err != nil {
		return nil, fmt.Errorf("read icon manifest: %w", err)
	}

	entries := make(map[string]iconInfo)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse icon manifest %s: %w", path, err)
	}

	return &IconSet{
		baseURL: strings.TrimRight(baseURL, "/"),
		entries: entries,
	}, nil
}

// Lookup returns the icon for a manifest name, or nil when absent.
func (s *IconSet) Lookup(name string) *epg.Icon {
	if s == nil {
		return nil
	}
	info, ok := s.entries[name]
	if !ok {
		return nil
	}
	return &epg.Icon{
		Src:    s.baseURL + "/images/icons/" + strings.TrimLeft(info.Path, "/"),
		Width:  info.Width,
		Height: info.Height,
	}
}
