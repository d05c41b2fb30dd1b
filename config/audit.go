package config

import "time"

// AuditConfig controls retention of the login audit trail.
type AuditConfig struct {
	// Retention is how long auth events are kept. Zero disables pruning.
	Retention time.Duration `env:"RETENTION"  envDefault:"2160h"`
	Interval  time.Duration `env:"INTERVAL"   envDefault:"1h"`
	BatchSize int           `env:"BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to audit configuration values.
func (a *AuditConfig) Sanitize() {
	if a.Retention < 0 {
		a.Retention = 0
	}
	if a.Interval < time.Minute {
		a.Interval = time.Minute
	}
	if a.BatchSize <= 0 {
		a.BatchSize = 1000
	}
}
