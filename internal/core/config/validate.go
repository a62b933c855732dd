package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
	"golang.org/x/text/language"
)

// MaxRetry bounds query.retry.
const MaxRetry = 10

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Validate checks the structure of the configuration and returns
// criterio.FieldErrors for every invalid field.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("api.base_url", c.API.BaseURL, baseURL),
		criterio.Run("api.timeout", c.API.Timeout, positive[time.Duration]),
		c.validateRateLimit(),
		c.validateQuery(),
		criterio.Run("locale", c.Locale, locale),
		criterio.Run("toast.max", c.Toast.Max, nonNegative[int]),
		criterio.Run("toast.ttl", c.Toast.TTL, nonNegative[time.Duration]),
		criterio.Run("history.limit", c.History.Limit, nonNegative[int]),
		criterio.Run("data_dir", c.DataDir, func(s string) error {
			if s == "" {
				return errors.New("data directory cannot be empty")
			}
			return nil
		}),
	)
}

// ValidateDeep performs Validate and then checks file system state: the
// config file and data directory.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

// Warnings returns non-fatal configuration issues. themes lists the toast
// themes known to the caller.
func (c *Config) Warnings(themes []string) []ValidationWarning {
	var warnings []ValidationWarning

	known := false
	for _, t := range themes {
		if t == c.Toast.Theme {
			known = true
			break
		}
	}
	if !known {
		warnings = append(warnings, ValidationWarning{
			Category: "Toast",
			Item:     c.Toast.Theme,
			Message:  fmt.Sprintf("unknown theme, using default (available: %s)", strings.Join(themes, ", ")),
		})
	}

	if c.API.Token == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "API",
			Item:     "token",
			Message:  "no api token configured, requests are sent unauthenticated",
		})
	}

	if c.Query.Retry == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Query",
			Item:     "retry",
			Message:  "retries are disabled, failed reads are reported immediately",
		})
	}

	return warnings
}

func (c *Config) validateRateLimit() error {
	var errs criterio.FieldErrorsBuilder
	if c.API.RateLimit < 0 {
		errs = errs.Append("api.rate_limit", errors.New("must not be negative"))
	}
	if c.API.RateLimit > 0 && c.API.Burst < 1 {
		errs = errs.Append("api.burst", errors.New("must be at least 1 when rate_limit is set"))
	}
	return errs.ToError()
}

func (c *Config) validateQuery() error {
	var errs criterio.FieldErrorsBuilder
	q := c.Query
	if q.Retry < 0 || q.Retry > MaxRetry {
		errs = errs.Append("query.retry", fmt.Errorf("must be between 0 and %d, got %d", MaxRetry, q.Retry))
	}
	if q.RetryDelay < 0 {
		errs = errs.Append("query.retry_delay", errors.New("must not be negative"))
	}
	if q.MaxRetryDelay != 0 && q.MaxRetryDelay < q.RetryDelay {
		errs = errs.Append("query.max_retry_delay", errors.New("must not be less than retry_delay"))
	}
	if q.StaleTime < 0 {
		errs = errs.Append("query.stale_time", errors.New("must not be negative"))
	}
	return errs.ToError()
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return errors.New("exists but is not a directory")
	}
	return nil
}

func baseURL(s string) error {
	if s == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) url, got %q", s)
	}
	return nil
}

func locale(s string) error {
	if s == "" {
		return nil
	}
	// POSIX form: de_DE.UTF-8, de_DE@euro
	tag := s
	if i := strings.IndexAny(tag, ".@"); i >= 0 {
		tag = tag[:i]
	}
	if tag == "C" || tag == "POSIX" {
		return nil
	}
	if _, err := language.Parse(strings.ReplaceAll(tag, "_", "-")); err != nil {
		return fmt.Errorf("invalid locale %q", s)
	}
	return nil
}

type number interface {
	~int | ~int64 | ~float64
}

func positive[T number](v T) error {
	if v <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

func nonNegative[T number](v T) error {
	if v < 0 {
		return errors.New("must not be negative")
	}
	return nil
}
