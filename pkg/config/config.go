// Package config loads the single YAML document pyfinderd and pyfinderctl
// are configured from, mirroring the teacher's per-package Config structs
// (manager.Config, worker.Config) collapsed into one top-level file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sceylan/pyfinder-go/pkg/emit"
	"github.com/sceylan/pyfinder-go/pkg/log"
)

// Config is the root configuration document for the daemon and CLI.
type Config struct {
	Log      LogConfig       `yaml:"log"`
	Store    StoreConfig     `yaml:"store"`
	Schedule ScheduleConfig  `yaml:"schedule"`
	Ingress  IngressConfig   `yaml:"ingress"`
	Provider ProviderConfig  `yaml:"provider"`
	Engine   EngineConfig    `yaml:"engine"`
	Export   ExportConfig    `yaml:"export"`
	SMTP     emit.SMTPConfig `yaml:"smtp"`
}

// LogConfig mirrors pkg/log.Config, expressed in YAML-friendly types.
type LogConfig struct {
	Level      string `yaml:"level"`
	JSONOutput bool   `yaml:"json"`
	LogFile    string `yaml:"log_file"`
}

// ToLogConfig converts LogConfig into the pkg/log native type.
func (c LogConfig) ToLogConfig() log.Config {
	return log.Config{
		Level:      log.Level(c.Level),
		JSONOutput: c.JSONOutput,
		LogFile:    c.LogFile,
	}
}

// StoreConfig configures the bbolt-backed durable store.
type StoreConfig struct {
	// DataDir holds the bbolt database file, per storage.NewBoltStore.
	DataDir string `yaml:"data_dir"`
}

// ScheduleConfig tunes the scheduler's poll loop and worker pool, and
// optionally overrides RRSM's cadence (delays/drift/grace/retries).
type ScheduleConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	PoolSize     int           `yaml:"pool_size"`

	// RRSMDelaysMinutes overrides the default {0,5,15,60,180,360,1440,2880}
	// cadence when non-empty.
	RRSMDelaysMinutes []int         `yaml:"rrsm_delays_minutes"`
	RRSMDrift         time.Duration `yaml:"rrsm_drift"`
	RRSMGrace         time.Duration `yaml:"rrsm_grace"`
	RRSMMaxRetries    int           `yaml:"rrsm_max_retries"`
}

// IngressConfig configures the alert region/magnitude filter.
type IngressConfig struct {
	TargetRegions []string `yaml:"target_regions"`
	MinMagnitude  float64  `yaml:"min_magnitude"`
}

// ProviderConfig holds base URLs and HTTP timeouts for the RRSM and ESM
// web-service clients.
type ProviderConfig struct {
	RRSMBaseURL string        `yaml:"rrsm_base_url"`
	ESMBaseURL  string        `yaml:"esm_base_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// EngineConfig locates the rupture-detection engine binary and its
// per-run working-directory root, plus the trigger thresholds threaded
// into every ConfigParams.
type EngineConfig struct {
	BinaryPath        string  `yaml:"binary_path"`
	WorkingDirRoot    string  `yaml:"working_dir_root"`
	MagnitudeTrigger  float64 `yaml:"magnitude_trigger"`
	StationDistanceKM float64 `yaml:"station_distance_km"`
	LiveMode          bool    `yaml:"live_mode"`
}

// ExportConfig locates the shake-map product export root and the
// optional external shakemap command run after each successful stage.
type ExportConfig struct {
	Root            string `yaml:"root"`
	ShakeMapCommand string `yaml:"shakemap_command"`
}

// Default returns a Config with the same defaults the individual
// packages fall back to when left unconfigured (DefaultPollInterval,
// DefaultPoolSize, DefaultRRSMSchedule's cadence).
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			DataDir: "./data",
		},
		Schedule: ScheduleConfig{
			PollInterval: 10 * time.Second,
			PoolSize:     10,
		},
		Ingress: IngressConfig{
			MinMagnitude: 4.0,
		},
		Provider: ProviderConfig{
			HTTPTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			WorkingDirRoot:    "./work",
			MagnitudeTrigger:  4.5,
			StationDistanceKM: 300,
		},
		Export: ExportConfig{
			Root: "./export",
		},
	}
}

// Load reads and parses a YAML config file at path, applying Default()'s
// values for anything the file leaves zero-valued.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}
