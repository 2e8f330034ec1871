package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalid wraps every configuration error.
var ErrInvalid = errors.New("invalid configuration")

const (
	ModeOnce  = "once"  // one pass, then exit
	ModeCron  = "cron"  // a pass on every schedule tick
	ModePoll  = "poll"  // a pass every PollInterval
	ModeWatch = "watch" // a pass once the directory settles after a change
	ModeAuto  = "auto"  // watch when fsnotify works, poll otherwise
)

const (
	DefaultLevel      = 3
	DefaultWorkers    = 4
	MaxWorkers        = 99
	DefaultBufferSize = 1 << 20
)

type Config struct {
	Dir     string        `yaml:"dir"`
	Pack    PackConfig    `yaml:"pack"`
	Trigger TriggerConfig `yaml:"trigger"`
	Logging LoggingConfig `yaml:"logging"`
	History HistoryConfig `yaml:"history"`
}

type PackConfig struct {
	Level      int `yaml:"level"`      // 0-9
	Workers    int `yaml:"workers"`    // 1-99, <= 0 runs jobs inline
	BufferSize int `yaml:"bufferSize"` // bytes
}

type TriggerConfig struct {
	Mode           string        `yaml:"mode"`           // "once", "cron", "poll", "watch", "auto"
	Schedule       string        `yaml:"schedule"`       // cron spec, e.g. "@hourly"
	PollInterval   time.Duration `yaml:"pollInterval"`   // e.g. 1m
	DebounceWindow time.Duration `yaml:"debounceWindow"` // e.g. 30s
}

type LoggingConfig struct {
	Verbosity int `yaml:"verbosity"`
}

type HistoryConfig struct {
	Path string `yaml:"path"` // sqlite file, empty disables history
}

func DefaultConfig() Config {
	return Config{
		Dir: ".",
		Pack: PackConfig{
			Level:      DefaultLevel,
			Workers:    DefaultWorkers,
			BufferSize: DefaultBufferSize,
		},
		Trigger: TriggerConfig{
			Mode:           ModeOnce,
			Schedule:       "@hourly",
			PollInterval:   time.Minute,
			DebounceWindow: 30 * time.Second,
		},
	}
}

func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: dir must not be empty", ErrInvalid)
	}
	if c.Pack.Level < 0 || c.Pack.Level > 9 {
		return fmt.Errorf("%w: compression level %d (0-9)", ErrInvalid, c.Pack.Level)
	}
	if c.Pack.Workers > MaxWorkers {
		return fmt.Errorf("%w: worker count %d (max %d)", ErrInvalid, c.Pack.Workers, MaxWorkers)
	}
	if c.Pack.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size %d", ErrInvalid, c.Pack.BufferSize)
	}
	if c.Logging.Verbosity < 0 {
		return fmt.Errorf("%w: verbosity %d", ErrInvalid, c.Logging.Verbosity)
	}

	t := c.Trigger
	switch t.Mode {
	case ModeOnce, ModeWatch:
	case ModeCron:
		if _, err := ParseSchedule(t.Schedule); err != nil {
			return err
		}
	case ModePoll, ModeAuto:
		if t.PollInterval <= 0 {
			return fmt.Errorf("%w: poll interval %s", ErrInvalid, t.PollInterval)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, t.Mode)
	}
	if t.DebounceWindow < 0 {
		return fmt.Errorf("%w: debounce window %s", ErrInvalid, t.DebounceWindow)
	}
	return nil
}

// ParseSchedule accepts standard 5-field cron specs and descriptors such as
// "@hourly" or "@every 10m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %v", ErrInvalid, spec, err)
	}
	return s, nil
}
