package entities

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an unusable configuration: unknown enum value,
// missing environment variable or missing input file.
type ConfigurationError struct {
	Reason string
	Err    error
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(reason string, err error) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ExternalToolFailure reports a failed privileged, network or vendor operation
type ExternalToolFailure struct {
	Step     string
	ExitCode int
	Stderr   string
	Err      error
}

// maxStderrTail bounds how much stderr is carried in the error message
const maxStderrTail = 2048

// NewExternalToolFailure creates an external tool failure, keeping only the tail of stderr
func NewExternalToolFailure(step string, exitCode int, stderr string, err error) *ExternalToolFailure {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > maxStderrTail {
		stderr = "..." + stderr[len(stderr)-maxStderrTail:]
	}
	return &ExternalToolFailure{Step: step, ExitCode: exitCode, Stderr: stderr, Err: err}
}

func (e *ExternalToolFailure) Error() string {
	msg := fmt.Sprintf("%s failed", e.Step)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += "\nStderr: " + e.Stderr
	}
	return msg
}

func (e *ExternalToolFailure) Unwrap() error { return e.Err }

// DeferredLicenseError is raised when the product log shows a license/version
// mismatch after every install step already reported success.
type DeferredLicenseError struct {
	LogPath string
	Match   string
}

func (e *DeferredLicenseError) Error() string {
	return fmt.Sprintf("license is valid but not for this Stata version or edition (found %q in %s)", e.Match, e.LogPath)
}
