package config

import "fmt"

// Validate checks the merged configuration for obviously broken values.
// Modeled on the teacher's validator.go: one function per component. The
// first failing component's error is returned, wrapped with its context;
// later components are not checked.
func Validate(cfg *Config) error {
	if err := validateRetry(cfg.Retry); err != nil {
		return NewValidationError("retry", "", err)
	}
	if err := validateStore(cfg.Store); err != nil {
		return NewValidationError("store", "", err)
	}
	if err := validateJudge(cfg.Judge); err != nil {
		return NewValidationError("judge", "", err)
	}
	if err := validateRun(cfg.Run); err != nil {
		return NewValidationError("run", "", err)
	}
	return nil
}

func validateRetry(r RetryPolicy) error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be >= 1, got %d", ErrInvalidValue, r.MaxAttempts)
	}
	if r.BaseDelay <= 0 {
		return fmt.Errorf("%w: base_delay must be positive", ErrInvalidValue)
	}
	if r.MaxDelay < r.BaseDelay {
		return fmt.Errorf("%w: max_delay must be >= base_delay", ErrInvalidValue)
	}
	return nil
}

func validateStore(s StoreConfig) error {
	if s.Path == "" {
		return fmt.Errorf("%w: store.path", ErrMissingRequiredField)
	}
	return nil
}

func validateJudge(j JudgeEndpoint) error {
	if j.BaseURL == "" {
		return fmt.Errorf("%w: judge.base_url", ErrMissingRequiredField)
	}
	if j.Model == "" {
		return fmt.Errorf("%w: judge.model", ErrMissingRequiredField)
	}
	return nil
}

func validateRun(r RunDefaults) error {
	if r.Timeout <= 0 {
		return fmt.Errorf("%w: run.timeout must be positive", ErrInvalidValue)
	}
	return nil
}
