package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	util "github.com/bietkhonhungvandi212/minidock/internal/utils"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shared by the shell and the dashboard.
//
// Example:
//
//	num_frames: 64
//	page_size_kb: 4
//	log_level: DEBUG
//	listen_addr: ":8080"
//	workload:
//	  accesses: 50
//	  delay: 100ms
type Config struct {
	NumFrames       int      `yaml:"num_frames"`
	PageSizeKB      int      `yaml:"page_size_kb"`
	DefaultMemoryKB int      `yaml:"default_memory_kb"`
	LogLevel        string   `yaml:"log_level"`
	LogFile         string   `yaml:"log_file"`
	ListenAddr      string   `yaml:"listen_addr"`
	FaultJournal    string   `yaml:"fault_journal"`
	Workload        Workload `yaml:"workload"`
}

type Workload struct {
	Accesses int           `yaml:"accesses"`
	Delay    time.Duration `yaml:"delay"`
	Seed     int64         `yaml:"seed"` // 0 seeds from the clock
}

func Default() Config {
	return Config{
		NumFrames:       util.DefaultFrames,
		PageSizeKB:      util.PageSizeKB,
		DefaultMemoryKB: 64,
		LogLevel:        "INFO",
		ListenAddr:      ":8080",
		Workload: Workload{
			Accesses: 20,
			Delay:    500 * time.Millisecond,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Options().Validate(); err != nil {
		return err
	}
	if c.DefaultMemoryKB < 0 {
		return fmt.Errorf("%w: default_memory_kb %d", util.ErrInvalidMemorySize, c.DefaultMemoryKB)
	}
	if c.Workload.Accesses < 0 || c.Workload.Delay < 0 {
		return fmt.Errorf("workload: accesses and delay must not be negative")
	}
	return nil
}

// Options converts the file settings into engine options.
func (c Config) Options() util.Options {
	return util.Options{
		NumFrames:   c.NumFrames,
		PageSizeKB:  c.PageSizeKB,
		JournalPath: c.FaultJournal,
	}
}
