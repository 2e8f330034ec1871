package config

// This file implements CLI flag parsing and help text.
// Flags override the config file only when given explicitly. Single-letter
// switches follow getopt conventions (see splitShort).

import (
	"flag"
	"fmt"
	"io"
	"strconv"
)

// Action is what main should do after parsing.
type Action int

const (
	ActionRun Action = iota
	ActionHelp
	ActionSelfTest
)

// cliFlags holds raw flag values; they are copied onto Config only for
// flags that were actually passed.
type cliFlags struct {
	configPath string
	dir        string
	history    string
	mode       string
	schedule   string
	level      int
	workers    int
	verbosity  int
	help       bool
	selfTest   bool
}

// Parse turns command-line arguments (without the program name) into a
// validated Config. Help text goes to stderr.
func Parse(args []string, stderr io.Writer) (*Config, Action, error) {
	var f cliFlags
	fs := flag.NewFlagSet("shardpack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	fs.Var(&rangeValue{p: &f.level, min: 0, max: 9, what: "compression level"}, "c", "")
	fs.BoolVar(&f.help, "h", false, "")
	fs.BoolVar(&f.selfTest, "t", false, "")
	fs.Var(&countValue{p: &f.verbosity}, "v", "")
	fs.Var(&rangeValue{p: &f.workers, min: 1, max: MaxWorkers, what: "worker count"}, "w", "")
	fs.StringVar(&f.configPath, "config", "", "")
	fs.StringVar(&f.dir, "dir", "", "")
	fs.StringVar(&f.history, "history", "", "")
	fs.StringVar(&f.mode, "mode", "", "")
	fs.StringVar(&f.schedule, "schedule", "", "")

	args, err := splitShort(fs, args, stderr)
	if err != nil {
		return nil, ActionRun, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := fs.Parse(args); err != nil {
		return nil, ActionRun, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if f.help {
		printUsage(stderr)
		return nil, ActionHelp, nil
	}
	if fs.NArg() > 0 {
		return nil, ActionRun, fmt.Errorf("%w: unexpected arguments %v", ErrInvalid, fs.Args())
	}

	cfg := DefaultConfig()
	if f.configPath != "" {
		loaded, err := Load(f.configPath)
		if err != nil {
			return nil, ActionRun, err
		}
		cfg = *loaded
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "c":
			cfg.Pack.Level = f.level
		case "w":
			cfg.Pack.Workers = f.workers
		case "v":
			cfg.Logging.Verbosity += f.verbosity
		case "dir":
			cfg.Dir = f.dir
		case "history":
			cfg.History.Path = f.history
		case "mode":
			cfg.Trigger.Mode = f.mode
		case "schedule":
			cfg.Trigger.Schedule = f.schedule
		}
	})

	if f.selfTest {
		return &cfg, ActionSelfTest, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, ActionRun, err
	}
	return &cfg, ActionRun, nil
}

// printUsage writes the help text. Column-aligned for readability.
func printUsage(w io.Writer) {
	const col1 = 20
	lines := []struct {
		flags string
		desc  string
	}{
		{"Usage: shardpack [switches]", ""},
		{"", ""},
		{"Packs every numeric subdirectory of the working directory into a single", ""},
		{"<name>.tar.xz container, a tar stream compressed with xz (LZMA2), and", ""},
		{"removes the originals. Switches may be combined: -vv, -w4.", ""},
		{"", ""},
		{"  -c n", "Compression level n, 0-9 (default 3)"},
		{"  -h", "Print this help text"},
		{"  -t", "Run self-test"},
		{"  -v", "Increase verbosity (repeatable)"},
		{"  -w n", fmt.Sprintf("Simultaneous workers, 1-%d (default %d)", MaxWorkers, DefaultWorkers)},
		{"", ""},
		{"  -config path", "YAML config file"},
		{"  -dir path", "Working directory (default .)"},
		{"  -history path", "Record passes in this sqlite file"},
		{"  -mode m", "once | cron | poll | watch | auto (default once)"},
		{"  -schedule spec", "Cron spec for -mode cron (default @hourly)"},
	}

	for _, l := range lines {
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapters.

// rangeValue is an integer flag bounded to [min, max].
type rangeValue struct {
	p        *int
	min, max int
	what     string
}

func (r *rangeValue) String() string {
	if r.p == nil {
		return ""
	}
	return strconv.Itoa(*r.p)
}

func (r *rangeValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid %s %q", r.what, s)
	}
	if n < r.min || n > r.max {
		return fmt.Errorf("invalid %s %d (%d-%d)", r.what, n, r.min, r.max)
	}
	*r.p = n
	return nil
}

// countValue is a boolean-style flag that counts its occurrences (-v -v).
type countValue struct{ p *int }

func (c *countValue) IsBoolFlag() bool { return true }

func (c *countValue) String() string {
	if c.p == nil {
		return "0"
	}
	return strconv.Itoa(*c.p)
}

func (c *countValue) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*c.p++
	}
	return nil
}
