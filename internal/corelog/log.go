// Package corelog wires the plugin's log_level/log_file config onto
// apex/log, the leveled logging library used by the rest of this corpus.
package corelog

import (
	"os"

	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
	jsonhandler "github.com/apex/log/handlers/json"
	"github.com/pkg/errors"

	"github.com/novafacing/cannonball/corecode"
)

// Level mirrors the plugin's install-time log_level option: 0=off, 1=err,
// 2=warn, 3=info, 4=debug.
type Level int

const (
	LevelOff   Level = 0
	LevelError Level = 1
	LevelWarn  Level = 2
	LevelInfo  Level = 3
	LevelDebug Level = 4
)

// apexLevel maps the plugin's 0-4 scale onto apex/log's Level type.
// LevelOff has no apex equivalent; callers must check it before logging.
func apexLevel(l Level) log.Level {
	switch l {
	case LevelError:
		return log.ErrorLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelDebug:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// Configure sets the global apex/log handler and level from the plugin's
// log_level/log_file options. path == "-" means stderr; any other value is
// opened (created if missing) as a JSON-lines log file, matching
// original_source's "-" convention for "use stderr".
func Configure(level Level, path string) error {
	if level == LevelOff {
		log.SetHandler(log.HandlerFunc(func(*log.Entry) error { return nil }))
		return nil
	}
	if path == "-" {
		log.SetHandler(clihandler.Default)
		log.SetLevel(apexLevel(level))
		return nil
	}
	if path == "" {
		return errors.Wrap(corecode.InvalidLogFilePath, "log_file path is empty")
	}
	dir := dirOf(path)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(corecode.MissingLogDirectory, dir)
		}
		return errors.Wrap(err, "failed to stat log directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(corecode.LogFileOpenFailed, err.Error())
	}
	log.SetHandler(jsonhandler.New(f))
	log.SetLevel(apexLevel(level))
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			if i == 0 {
				return "/"
			}
			return path[:i]
		}
	}
	return "."
}
