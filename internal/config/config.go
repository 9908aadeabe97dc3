// Package config loads and holds the agent's single JSON configuration
// document. The whole config is treated as an immutable value: "update" is
// an atomic pointer swap so readers never observe a torn record mid-tick.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
)

// Notification is the sub-record governing the local notifier collaborator.
type Notification struct {
	Enabled bool `json:"enabled"`
	Sound   bool `json:"sound"`
}

// Telemetry governs the agent's own self-reporting, independent of the
// productivity telemetry it captures about the user.
type Telemetry struct {
	Enabled            bool `json:"enabled"`
	CrashReports       bool `json:"crash_reports"`
	UsageAnalytics     bool `json:"usage_analytics"`
	PerformanceMetrics bool `json:"performance_metrics"`
}

// Monitor governs which monitors run and how aggressively.
type Monitor struct {
	ProcessMonitoring bool `json:"process_monitoring"`
	InputActivity     bool `json:"input_activity"`
	PrivacyMode       bool `json:"privacy_mode"`
}

// Privacy governs exclusions and PII filtering.
type Privacy struct {
	ExcludedApps          []string `json:"excluded_apps"`
	ExcludedAppPatterns   []string `json:"excluded_app_patterns"`
	ExcludedTitlePatterns []string `json:"excluded_title_patterns"`
	AutoExcludeSensitive  bool     `json:"auto_exclude_sensitive"`
	PIIFilterLevel        string   `json:"pii_filter_level"` // off | standard | strict
}

// Schedule governs active-hours gating.
type Schedule struct {
	ActiveHoursEnabled bool     `json:"active_hours_enabled"`
	ActiveStartHour    int      `json:"active_start_hour"`
	ActiveEndHour      int      `json:"active_end_hour"`
	ActiveDays         []string `json:"active_days"`
	PauseOnScreenLock  bool     `json:"pause_on_screen_lock"`
	PauseOnBatterySaver bool    `json:"pause_on_battery_saver"`
}

// Automation governs whether automation preset execution is enabled; the
// core stores the data model regardless (§6.5) but does not execute it.
type Automation struct {
	Enabled bool `json:"enabled"`
}

// Config is the full, round-trippable configuration document. Unknown
// top-level fields are preserved in Extra so parse(serialize(c)) == c holds
// even for fields this version of the agent does not recognize.
type Config struct {
	RetentionDays     int          `json:"retention_days"`
	MaxStorageMB      int          `json:"max_storage_mb"`
	WebPort           int          `json:"web_port"`
	AllowExternal     bool         `json:"allow_external"`
	CaptureEnabled    bool         `json:"capture_enabled"`
	IdleThresholdSecs int          `json:"idle_threshold_secs"`
	MetricsIntervalSecs int        `json:"metrics_interval_secs"`
	ProcessIntervalSecs int        `json:"process_interval_secs"`
	Notification      Notification `json:"notification"`
	Update            json.RawMessage `json:"update,omitempty"` // opaque to the core
	Telemetry         Telemetry    `json:"telemetry"`
	Monitor           Monitor      `json:"monitor"`
	Privacy           Privacy      `json:"privacy"`
	Schedule          Schedule     `json:"schedule"`
	Automation        Automation   `json:"automation"`
	Sandbox           json.RawMessage `json:"sandbox,omitempty"`     // opaque to the core
	AIProvider        json.RawMessage `json:"ai_provider,omitempty"` // opaque to the core

	// Extra preserves any top-level field this version does not recognize,
	// so round-tripping through Load/Save never drops data.
	Extra map[string]json.RawMessage `json:"-"`
}

// Default returns the documented default configuration (§6.3 of the core
// spec this config schema implements).
func Default() *Config {
	return &Config{
		RetentionDays:       30,
		MaxStorageMB:        500,
		WebPort:             9090,
		AllowExternal:       false,
		CaptureEnabled:      true,
		IdleThresholdSecs:   300,
		MetricsIntervalSecs: 5,
		ProcessIntervalSecs: 10,
		Notification:        Notification{Enabled: true, Sound: false},
		Telemetry:           Telemetry{Enabled: false},
		Monitor:             Monitor{ProcessMonitoring: true, InputActivity: true, PrivacyMode: false},
		Privacy:             Privacy{PIIFilterLevel: "standard"},
		Schedule:            Schedule{ActiveHoursEnabled: false},
		Automation:          Automation{Enabled: false},
	}
}

// knownFields lists the top-level JSON keys Config itself decodes, so Load
// can stash everything else into Extra.
var knownFields = map[string]bool{
	"retention_days": true, "max_storage_mb": true, "web_port": true,
	"allow_external": true, "capture_enabled": true, "idle_threshold_secs": true,
	"metrics_interval_secs": true, "process_interval_secs": true,
	"notification": true, "update": true, "telemetry": true, "monitor": true,
	"privacy": true, "schedule": true, "automation": true, "sandbox": true,
	"ai_provider": true,
}

// Parse decodes a JSON configuration document, preserving unknown fields.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse raw: %w", err)
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !knownFields[k] {
			extra[k] = v
		}
	}
	c.Extra = extra
	return c, nil
}

// Serialize encodes c back to JSON, re-attaching any preserved unknown
// fields so parse(serialize(c)) == c.
func (c *Config) Serialize() ([]byte, error) {
	type alias Config
	base, err := json.Marshal((*alias)(c))
	if err != nil {
		return nil, fmt.Errorf("config: serialize: %w", err)
	}
	if len(c.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		merged[k] = v
	}
	return json.MarshalIndent(merged, "", "  ")
}

// Load reads and parses a config file. If the file is missing or invalid,
// the caller decides the fallback (see cmd's bootstrapping logic); Load
// itself returns the error unwrapped so the caller can classify it as
// coreerrors.ErrConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Save writes c to path as indented JSON.
func Save(path string, c *Config) error {
	data, err := c.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Store holds the process-wide configuration behind an atomic pointer.
// Readers call Get() once per tick and hold that pointer for the duration
// of the tick, so a concurrent Swap never produces a torn read.
type Store struct {
	ptr atomic.Pointer[Config]
}

func NewStore(initial *Config) *Store {
	s := &Store{}
	s.ptr.Store(initial)
	return s
}

func (s *Store) Get() *Config {
	return s.ptr.Load()
}

func (s *Store) Swap(next *Config) {
	s.ptr.Store(next)
}
