package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"mergeprep/internal/domain"
)

// Job is the on-disk description of one cleanup: who runs it, against which
// organisation, and what the reviewer expects to see.
//
//	role = "wimc"
//	organisation = "Ward Implementation and Management Committee"
//	username = "admin@wimc"
//	ticket = "4525"
//
//	[expected]
//	affected = 1275
//	retained = 437
type Job struct {
	Role           string    `toml:"role"`
	Organisation   string    `toml:"organisation"`
	Username       string    `toml:"username"`
	HistoryNote    string    `toml:"history_note"`
	Ticket         string    `toml:"ticket"`
	GroupDelimiter string    `toml:"group_delimiter"`
	StrictUUID     *bool     `toml:"strict_uuid"`
	Expected       *Expected `toml:"expected"`
}

// Expected holds reviewer-supplied pre-update counts. Both keys must be
// present; a missing one is not read as zero.
type Expected struct {
	Affected *int64 `toml:"affected"`
	Retained *int64 `toml:"retained"`
}

func (e *Expected) check() error {
	if e.Affected == nil || e.Retained == nil {
		return errors.New("[expected] needs both affected and retained")
	}
	if *e.Affected < 0 || *e.Retained < 0 {
		return errors.New("[expected] counts must not be negative")
	}
	return nil
}

// LoadJob decodes a TOML job file. Unknown keys are rejected so a typo does
// not silently drop a parameter.
func LoadJob(path string) (*Job, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NotFound(path, err)
		}
		return nil, fmt.Errorf("open job file %s: %w", path, err)
	}
	defer f.Close()

	var job Job
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("decode job file %s: %w", path, err)
	}
	if job.Expected != nil {
		if err := job.Expected.check(); err != nil {
			return nil, fmt.Errorf("job file %s: %w", path, err)
		}
	}
	return &job, nil
}

// ApplyJob copies job values into c for every parameter that was neither
// passed as a flag nor set in the environment. An incomplete [expected]
// table is rejected.
func (c *Config) ApplyJob(job *Job, fs *pflag.FlagSet, getenv func(string) string) error {
	if job.Expected != nil {
		if err := job.Expected.check(); err != nil {
			return err
		}
	}
	unset := func(b binding) bool {
		return !fs.Changed(b.flag) && getenv(b.env) == ""
	}
	str := func(b binding, dst *string, v string) {
		if v != "" && unset(b) {
			*dst = v
		}
	}

	str(bindRole, &c.Role, job.Role)
	str(bindOrganisation, &c.Organisation, job.Organisation)
	str(bindUsername, &c.Username, job.Username)
	str(bindHistoryNote, &c.HistoryNote, job.HistoryNote)
	str(bindTicket, &c.Ticket, job.Ticket)
	if job.GroupDelimiter != "" {
		str(bindDelimiter, &c.GroupDelimiter, escape(job.GroupDelimiter))
	}
	if job.StrictUUID != nil && unset(bindStrictUUID) {
		c.StrictUUID = *job.StrictUUID
	}
	if job.Expected != nil {
		if unset(bindAffected) {
			c.ExpectedAffected = *job.Expected.Affected
		}
		if unset(bindRetained) {
			c.ExpectedRetained = *job.Expected.Retained
		}
	}
	return nil
}

// ApplyJobFile loads JobFile, when set, and applies it.
func (c *Config) ApplyJobFile(fs *pflag.FlagSet, getenv func(string) string) error {
	if c.JobFile == "" {
		return nil
	}
	job, err := LoadJob(c.JobFile)
	if err != nil {
		return err
	}
	return c.ApplyJob(job, fs, getenv)
}

// escape turns a decoded string back into the Go-escaped flag form.
func escape(s string) string {
	q := strconv.Quote(s)
	return strings.TrimSuffix(strings.TrimPrefix(q, `"`), `"`)
}
