package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the command.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path names the offending flag.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Stage selects which command a Config is validated for.
type Stage string

const (
	StageSegments Stage = "segments"
	StageQuery    Stage = "query"
	StageCounts   Stage = "counts"
)

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate lints c for stage without mutating it.
func Validate(c *Config, stage Stage) []Issue {
	var issues []Issue
	errorf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, a...)})
	}
	warnf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, a...)})
	}
	required := func(path, v string) {
		if strings.TrimSpace(v) == "" {
			errorf(path, "must not be empty")
		}
	}

	switch stage {
	case StageSegments:
		required("input", c.InputPath)
		required("pairs_csv", c.PairsCSV)
		if d, err := c.Delimiter(); err != nil {
			errorf("group_delimiter", "cannot decode: %v", err)
		} else if d == "" {
			errorf("group_delimiter", "must not be empty")
		}

	case StageQuery:
		required("pairs_csv", c.PairsCSV)
		required("output_sql", c.OutputSQL)
		required("role", c.Role)
		required("organisation", c.Organisation)
		required("username", c.Username)
		if strings.TrimSpace(c.HistoryNote) == "" {
			warnf("history_note", "empty; merged encounters will carry no audit note")
		}
		if (c.ExpectedAffected < 0) != (c.ExpectedRetained < 0) {
			errorf("expected_affected", "expected_affected and expected_retained must be set together")
		}
		if c.Probe {
			if c.ExpectedAffected >= 0 {
				warnf("probe", "probed counts replace expected_affected/expected_retained")
			}
			issues = append(issues, validateDB(c)...)
		} else if c.ExpectedAffected < 0 {
			warnf("expected_affected", "counts unknown; the script will ask the reviewer to compare by hand")
		}

	case StageCounts:
		required("pairs_csv", c.PairsCSV)
		issues = append(issues, validateDB(c)...)

	default:
		errorf("stage", "unknown stage %q", stage)
	}

	issues = append(issues, validateMetrics(c)...)
	return issues
}

func validateDB(c *Config) []Issue {
	var issues []Issue
	switch c.DBDriver {
	case "postgres":
	case "mssql", "sqlite":
		if c.DSN == "" {
			issues = append(issues, Issue{SeverityError, "dsn", fmt.Sprintf("required for %s", c.DBDriver)})
		}
	default:
		issues = append(issues, Issue{SeverityError, "db_driver", fmt.Sprintf("unsupported driver %q", c.DBDriver)})
	}
	if c.ChunkSize <= 0 {
		issues = append(issues, Issue{SeverityError, "chunk_size", "must be positive"})
	}
	return issues
}

func validateMetrics(c *Config) []Issue {
	switch c.MetricsBackend {
	case "", "none":
	case "pushgateway":
		if c.PushgatewayURL == "" {
			return []Issue{{SeverityError, "pushgateway_url", "required for pushgateway backend"}}
		}
	case "datadog":
		if c.DogStatsDAddr == "" {
			return []Issue{{SeverityError, "dogstatsd_addr", "required for datadog backend"}}
		}
	default:
		return []Issue{{SeverityWarning, "metrics_backend", fmt.Sprintf("unknown backend %q; metrics disabled", c.MetricsBackend)}}
	}
	return nil
}
