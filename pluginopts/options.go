// Package pluginopts parses the plugin's comma-separated key=value
// install-time option string into an Options value. It is a thin
// boundary adapter, not part of the correlation core, and carries none
// of the core's invariants — spec.md treats argument parsing as an
// external concern and only this package's contract with the rest of
// the system matters.
package pluginopts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/novafacing/cannonball/corecode"
)

// DefaultSockPath is used when sock_path is not supplied.
const DefaultSockPath = "/dev/shm/cannonball.sock"

// DefaultLogLevel is used when log_level is not supplied.
const DefaultLogLevel = 3

// DefaultLogFile is used when log_file is not supplied. "-" means stderr.
const DefaultLogFile = "-"

// Options is the parsed, typed form of the plugin's install-time options.
type Options struct {
	Help bool

	LogFile  string
	LogLevel int
	SockPath string

	TracePC       bool
	TraceReads    bool
	TraceWrites   bool
	TraceSyscalls bool
	TraceInstrs   bool
	TraceBranches bool
}

// arg describes one recognized option, grounded on the layout of
// original_source/plugin/src/args.c's option table: name, usage text, and a
// setter that stamps the parsed value into an Options value. Defaults are
// not held here; Parse seeds them.
type arg struct {
	name  string
	usage string
	apply func(o *Options, raw string) error
}

var args = []arg{
	{"help", "print usage and exit", func(o *Options, raw string) error {
		v, err := parseBool(raw)
		if err != nil {
			return err
		}
		o.Help = v
		return nil
	}},
	{"log_file", "log destination ('-' for stderr)", func(o *Options, raw string) error {
		o.LogFile = raw
		return nil
	}},
	{"log_level", "log level 0-4 (0=off,1=err,2=warn,3=info,4=debug)", func(o *Options, raw string) error {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Wrapf(err, "log_level %q is not an integer", raw)
		}
		if n < 0 || n > 4 {
			return errors.Errorf("log_level %d out of range 0-4", n)
		}
		o.LogLevel = n
		return nil
	}},
	{"sock_path", "consumer endpoint path", func(o *Options, raw string) error {
		o.SockPath = raw
		return nil
	}},
	{"trace_pc", "enable PC tracing", boolSetter(func(o *Options) *bool { return &o.TracePC })},
	{"trace_reads", "enable read half of READS_WRITES", boolSetter(func(o *Options) *bool { return &o.TraceReads })},
	{"trace_writes", "enable write half of READS_WRITES", boolSetter(func(o *Options) *bool { return &o.TraceWrites })},
	{"trace_syscalls", "enable SYSCALLS", boolSetter(func(o *Options) *bool { return &o.TraceSyscalls })},
	{"trace_instrs", "enable INSTRS", boolSetter(func(o *Options) *bool { return &o.TraceInstrs })},
	{"trace_branches", "enable BRANCHES", boolSetter(func(o *Options) *bool { return &o.TraceBranches })},
}

func boolSetter(field func(*Options) *bool) func(*Options, string) error {
	return func(o *Options, raw string) error {
		v, err := parseBool(raw)
		if err != nil {
			return err
		}
		*field(o) = v
		return nil
	}
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	default:
		return false, errors.Errorf("%q is not a recognized boolean literal", raw)
	}
}

// Parse splits s on commas, then each pair on the first '=', and builds an
// Options value seeded with its defaults. An unrecognized key or a
// malformed value is corecode.ArgumentError. help=true (or the bare
// literal "help") is corecode.ArgumentHandlerExit, matching the source's
// own early-exit handler slot for this one option.
func Parse(s string) (Options, error) {
	o := Options{LogFile: DefaultLogFile, LogLevel: DefaultLogLevel, SockPath: DefaultSockPath}
	if strings.TrimSpace(s) == "" {
		return o, nil
	}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, raw, hasValue := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		raw = strings.TrimSpace(raw)
		if !hasValue {
			// bare "help" (no "=") is shorthand for "help=true"
			if key == "help" {
				raw = "true"
			} else {
				return o, errors.Wrap(corecode.ArgumentError, "option "+key+" requires a value")
			}
		}

		a, ok := lookup(key)
		if !ok {
			return o, errors.Wrap(corecode.ArgumentError, "unrecognized option "+key)
		}
		if err := a.apply(&o, raw); err != nil {
			return o, errors.Wrap(corecode.ArgumentError, err.Error())
		}
	}

	if o.Help {
		return o, corecode.ArgumentHandlerExit
	}
	return o, nil
}

func lookup(name string) (arg, bool) {
	for _, a := range args {
		if a.name == name {
			return a, true
		}
	}
	return arg{}, false
}

// Usage renders a column-aligned help listing, grounded on
// go/models/cli.go's PrintFlags column-width computation.
func Usage() string {
	wname := 0
	for _, a := range args {
		if len(a.name) > wname {
			wname = len(a.name)
		}
	}
	namefmt := "  %-" + strconv.Itoa(wname) + "s  %s\n"
	var b strings.Builder
	for _, a := range args {
		b.WriteString(fmt.Sprintf(namefmt, a.name, a.usage))
	}
	return b.String()
}
