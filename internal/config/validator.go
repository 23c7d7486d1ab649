package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "messenger.put_timeout_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateMessenger()...)
	errors = append(errors, c.validateProcess()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateProcesses()...)

	return errors
}

// validateMessenger validates the MessengerConfig
func (c *Config) validateMessenger() []ValidationError {
	var errors []ValidationError

	if c.Messenger.MainProcess == "" {
		errors = append(errors, ValidationError{
			Field:   "messenger.main_process",
			Value:   c.Messenger.MainProcess,
			Message: "must not be empty",
		})
	}

	positive := []struct {
		field string
		value int
	}{
		{"messenger.put_timeout_ms", c.Messenger.PutTimeoutMs},
		{"messenger.mailbox_size", c.Messenger.MailboxSize},
		{"messenger.dead_letter_size", c.Messenger.DeadLetterSize},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "must be positive",
			})
		}
	}

	return errors
}

// validateProcess validates the ProcessConfig
func (c *Config) validateProcess() []ValidationError {
	var errors []ValidationError

	if c.Process.TickIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "process.tick_interval_ms",
			Value:   c.Process.TickIntervalMs,
			Message: "must be positive",
		})
	}
	if c.Process.JanitorIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "process.janitor_interval_ms",
			Value:   c.Process.JanitorIntervalMs,
			Message: "must be positive",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateProcesses validates the process topology
func (c *Config) validateProcesses() []ValidationError {
	var errors []ValidationError

	if len(c.Processes) == 0 {
		return append(errors, ValidationError{
			Field:   "processes",
			Value:   len(c.Processes),
			Message: "must list at least the main process",
		})
	}

	names := make(map[string]bool, len(c.Processes))
	for i, p := range c.Processes {
		field := fmt.Sprintf("processes[%d]", i)
		switch {
		case p.Name == "":
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Value:   p.Name,
				Message: "must not be empty",
			})
		case names[p.Name]:
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Value:   p.Name,
				Message: "duplicate process name",
			})
		}
		names[p.Name] = true

		if p.MailboxSize < 0 {
			errors = append(errors, ValidationError{
				Field:   field + ".mailbox_size",
				Value:   p.MailboxSize,
				Message: "must be non-negative",
			})
		}
		if p.HeartbeatIntervalMs < 0 {
			errors = append(errors, ValidationError{
				Field:   field + ".heartbeat_interval_ms",
				Value:   p.HeartbeatIntervalMs,
				Message: "must be non-negative",
			})
		}
	}

	if c.Messenger.MainProcess != "" && !names[c.Messenger.MainProcess] {
		errors = append(errors, ValidationError{
			Field:   "messenger.main_process",
			Value:   c.Messenger.MainProcess,
			Message: "must name one of the configured processes",
		})
	}

	for i, p := range c.Processes {
		for j, peer := range p.Peers {
			if peer == p.Name {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("processes[%d].peers[%d]", i, j),
					Value:   peer,
					Message: "a process cannot be its own peer",
				})
			} else if !names[peer] {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("processes[%d].peers[%d]", i, j),
					Value:   peer,
					Message: "unknown process",
				})
			}
		}
	}

	return errors
}
