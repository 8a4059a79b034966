// Package corecode names the error kinds the tracing core can surface at
// its boundary. Wrap a Code with github.com/pkg/errors at each call site
// the way the rest of this repo wraps lower errors.
package corecode

// Code is a sentinel error kind visible at the core's boundary.
type Code string

func (c Code) Error() string { return string(c) }

const (
	Success                    Code = "success"
	Failure                    Code = "failure"
	OutOfMemory                Code = "out of memory"
	ArgumentError              Code = "argument error"
	ArgumentHandlerExit        Code = "argument handler requested exit"
	SenderInitError            Code = "sender init error"
	InvalidLogFilePath         Code = "invalid log file path"
	MissingLogDirectory        Code = "missing log directory"
	LogFileOpenFailed          Code = "log file open failed"
	SystemEmulationUnsupported Code = "system emulation unsupported"
)

// Is reports whether err is, or wraps, this Code.
func (c Code) Is(err error) bool {
	type causer interface{ Cause() error }
	for err != nil {
		if err == error(c) {
			return true
		}
		cz, ok := err.(causer)
		if !ok {
			return false
		}
		err = cz.Cause()
	}
	return false
}
