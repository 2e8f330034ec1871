package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// splitShort rewrites getopt-style switch clusters into the one switch per
// argument form the flag package understands: "-vv" becomes "-v -v" and
// "-w4" becomes "-w 4". Multi-letter flags defined on fs ("-dir", "-config")
// pass through untouched, as does everything after "--" or the first
// non-flag argument.
//
// Unknown single-letter switches are reported on warn and dropped.
func splitShort(fs *flag.FlagSet, args []string, warn io.Writer) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" || len(arg) < 2 || arg[0] != '-' {
			return append(out, args[i:]...), nil
		}

		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if len(name) > 1 || hasValue || strings.HasPrefix(arg, "--") {
			if fl := fs.Lookup(name); fl != nil {
				out = append(out, arg)
				if !hasValue && !isBool(fl) && i+1 < len(args) {
					i++
					out = append(out, args[i])
				}
				continue
			}
			if hasValue || strings.HasPrefix(arg, "--") {
				// Let flag report it.
				out = append(out, arg)
				continue
			}
		}

		cluster := arg[1:]
		for j := 0; j < len(cluster); j++ {
			sw := string(cluster[j])
			fl := fs.Lookup(sw)
			if fl == nil {
				fmt.Fprintf(warn, "WARN: unknown switch -%s\n", sw)
				continue
			}
			if isBool(fl) {
				out = append(out, "-"+sw)
				continue
			}

			value := strings.TrimPrefix(cluster[j+1:], "=")
			if value == "" {
				if i+1 >= len(args) {
					return nil, fmt.Errorf("switch -%s requires a value", sw)
				}
				i++
				value = args[i]
			}
			out = append(out, "-"+sw, value)
			break
		}
	}
	return out, nil
}

func isBool(fl *flag.Flag) bool {
	b, ok := fl.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}
