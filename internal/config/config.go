// Package config loads and validates the generator settings and the
// channel registry.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mkaindl/epggen/internal/epg"
)

// Channel is one registry entry. The registry is operator-curated and
// immutable for the lifetime of a run.
type Channel struct {
	ID        string `yaml:"id"`        // stable identifier, used as XMLTV channel id; derived from Name when omitted
	Name      string `yaml:"name"`      // display name
	LookupKey string `yaml:"lookupKey"` // upstream schedule lookup key
	Language  string `yaml:"language,omitempty"`
	Icon      string `yaml:"icon,omitempty"` // icon manifest name, defaults to ID
}

// Settings holds everything a run needs. Loaded once per invocation.
type Settings struct {
	UpstreamBaseURL string `yaml:"upstreamBaseURL"`
	IconBaseURL     string `yaml:"iconBaseURL"`
	IconManifestDir string `yaml:"iconManifestDir"`
	OutputDir       string `yaml:"outputDir"`

	WindowHours     int `yaml:"windowHours"`     // forward guide window
	FetchTimeoutMS  int `yaml:"fetchTimeoutMS"`  // per-request deadline
	RunTimeoutMS    int `yaml:"runTimeoutMS"`    // global run deadline, 0 = none
	MaxConcurrency  int `yaml:"maxConcurrency"`  // parallel channel fetches
	FetchRetries    int `yaml:"fetchRetries"`    // retries after the first attempt
	RatePerSecond   int `yaml:"ratePerSecond"`   // outbound request rate limit
	DefaultDuration int `yaml:"defaultDuration"` // minutes, for trailing open-ended entries

	OmitEmptyChannels bool   `yaml:"omitEmptyChannels"`
	LogLevel          string `yaml:"logLevel,omitempty"`

	Channels []Channel `yaml:"channels"`
}

// Load reads settings from a YAML file, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator CLI
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	s.applyEnv()
	s.applyDefaults()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("EPGGEN_UPSTREAM_BASE_URL"); v != "" {
		s.UpstreamBaseURL = v
	}
	if v := os.Getenv("EPGGEN_ICON_BASE_URL"); v != "" {
		s.IconBaseURL = v
	}
	if v := os.Getenv("EPGGEN_OUTPUT_DIR"); v != "" {
		s.OutputDir = v
	}
	if v := os.Getenv("EPGGEN_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("EPGGEN_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxConcurrency = n
		}
	}
	if v := os.Getenv("EPGGEN_FETCH_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.FetchRetries = n
		}
	}
}

func (s *Settings) applyDefaults() {
	if s.WindowHours <= 0 {
		s.WindowHours = 48
	}
	if s.FetchTimeoutMS <= 0 {
		s.FetchTimeoutMS = 10000
	}
	if s.MaxConcurrency <= 0 {
		s.MaxConcurrency = 10
	}
	if s.FetchRetries <= 0 {
		s.FetchRetries = 3
	}
	if s.RatePerSecond <= 0 {
		s.RatePerSecond = 20
	}
	if s.DefaultDuration <= 0 {
		s.DefaultDuration = 30
	}
	if s.OutputDir == "" {
		s.OutputDir = "."
	}
	if s.IconManifestDir == "" {
		s.IconManifestDir = "images/icons"
	}

	// Registry entries may omit the id; derive a stable one from the display
	// name so players keep their EPG mapping across runs. Duplicate derived
	// ids are rejected by Validate like explicit ones.
	for i := range s.Channels {
		if s.Channels[i].ID == "" {
			s.Channels[i].ID = epg.MakeStableID(s.Channels[i].Name)
		}
	}
}

// Validate reports the first configuration problem found.
func (s *Settings) Validate() error {
	if s.UpstreamBaseURL == "" {
		return errors.New("config: upstreamBaseURL is required")
	}
	u, err := url.Parse(s.UpstreamBaseURL)
	if err != nil {
		return fmt.Errorf("config: invalid upstreamBaseURL %q: %w", s.UpstreamBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: unsupported upstreamBaseURL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("config: upstreamBaseURL %q is missing host", s.UpstreamBaseURL)
	}

	if len(s.Channels) == 0 {
		return errors.New("config: channel registry is empty")
	}
	seen := make(map[string]struct{}, len(s.Channels))
	for i, ch := range s.Channels {
		if ch.ID == "" {
			return fmt.Errorf("config: channel %d has no id", i)
		}
		if ch.Name == "" {
			return fmt.Errorf("config: channel %q has no name", ch.ID)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("config: duplicate channel id %q", ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	return nil
}

// FetchTimeout returns the per-request deadline as a duration.
func (s *Settings) FetchTimeout() time.Duration {
	return time.Duration(s.FetchTimeoutMS) * time.Millisecond
}

// RunTimeout returns the global run deadline, or zero when unbounded.
func (s *Settings) RunTimeout() time.Duration {
	return time.Duration(s.RunTimeoutMS) * time.Millisecond
}

// Window returns the forward guide window as a duration.
func (s *Settings) Window() time.Duration {
	return time.Duration(s.WindowHours) * time.Hour
}

// DefaultProgrammeDuration returns the fallback duration for open-ended
// trailing entries.
func (s *Settings) DefaultProgrammeDuration() time.Duration {
	return time.Duration(s.DefaultDuration) * time.Minute
}
