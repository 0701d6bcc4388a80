package resilience

import "time"

// RetrySettings is the configuration-file form of RetryConfig.
type RetrySettings struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitSettings is the configuration-file form of CircuitBreakerConfig.
type CircuitSettings struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	HalfOpenProbes   int `yaml:"half_open_probes" mapstructure:"half_open_probes"`
}

// RetryConfig converts s, keeping defaults for unset fields.
func (s RetrySettings) RetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	if s.MaxAttempts > 0 {
		cfg.MaxAttempts = s.MaxAttempts
	}
	if s.InitialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(s.InitialBackoffMs) * time.Millisecond
	}
	if s.MaxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(s.MaxBackoffMs) * time.Millisecond
	}
	if s.Multiplier > 0 {
		cfg.Multiplier = s.Multiplier
	}
	if s.JitterFraction > 0 {
		cfg.JitterFraction = s.JitterFraction
	}
	return cfg
}

// CircuitConfig converts s, keeping defaults for unset fields.
func (s CircuitSettings) CircuitConfig() CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if s.FailureThreshold > 0 {
		cfg.FailureThreshold = s.FailureThreshold
	}
	if s.ResetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(s.ResetTimeoutSecs) * time.Second
	}
	if s.HalfOpenProbes > 0 {
		cfg.HalfOpenProbes = s.HalfOpenProbes
	}
	return cfg
}
