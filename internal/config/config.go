// Package config centralizes process configuration. Every tunable is a
// command-line flag whose default is seeded from an environment variable,
// so `--help` lists all knobs and deployments can stay 12-factor. A TOML job
// file can supply the merge-specific script parameters underneath both.
//
// Typical usage from cobra:
//
//	cfg := config.Bind(root.PersistentFlags(), os.Getenv)
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg := config.LoadFromArgs(fs, getenv, []string{"--role=wimc"})
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"mergeprep/internal/domain"
)

// Config holds all process configuration derived from flags, environment
// variables and the optional job file. After loading it is only read.
type Config struct {
	// IO controls input, output and audit file locations.
	InputPath      string // keep/merge text file read by the segment parser
	PairsCSV       string // pair CSV written by segments, read by query/counts
	OutputSQL      string // generated script
	SkippedPath    string // skip log CSV; empty disables it
	GroupDelimiter string // Go-escaped, see Delimiter
	StrictUUID     bool   // identifiers must be UUIDs

	// Script parameters baked into the generated SQL.
	Role             string
	Organisation     string
	Username         string
	HistoryNote      string
	Ticket           string
	ExpectedAffected int64 // -1 when unknown
	ExpectedRetained int64 // -1 when unknown
	Probe            bool  // measure expected counts against the database
	JobFile          string

	// DB describes the database used by the count probe. For MSSQL and
	// SQLite a full DSN is required; Postgres can build one from parts.
	DBDriver   string // "postgres", "mssql" or "sqlite"
	DSN        string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	ChunkSize  int // ids per count query for database/sql drivers

	// Observability.
	MetricsBackend string // "none", "pushgateway" or "datadog"
	PushgatewayURL string
	DogStatsDAddr  string
	JobName        string // metrics job label
	Verbose        bool
}

// binding ties a flag to its environment variable.
type binding struct {
	flag string
	env  string
}

var (
	bindRole         = binding{"role", "MERGE_ROLE"}
	bindOrganisation = binding{"organisation", "MERGE_ORGANISATION"}
	bindUsername     = binding{"username", "MERGE_USERNAME"}
	bindHistoryNote  = binding{"history_note", "MERGE_HISTORY_NOTE"}
	bindTicket       = binding{"ticket", "MERGE_TICKET"}
	bindAffected     = binding{"expected_affected", "MERGE_EXPECTED_AFFECTED"}
	bindRetained     = binding{"expected_retained", "MERGE_EXPECTED_RETAINED"}
	bindStrictUUID   = binding{"strict_uuid", "MERGE_STRICT_UUID"}
	bindDelimiter    = binding{"group_delimiter", "MERGE_GROUP_DELIMITER"}
)

// Bind defines every flag on fs, seeding defaults from getenv, and returns
// the Config the flags write into. Values are final once fs is parsed.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit flags override the seeded defaults.
//  3. ApplyJobFile fills script parameters left at their plain defaults.
func Bind(fs *pflag.FlagSet, getenv func(string) string) *Config {
	cfg := &Config{}

	envOrDefaultFn := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOrDefaultFn := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	int64EnvOrDefaultFn := func(k string, d int64) int64 {
		if v := getenv(k); v != "" {
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOrDefaultFn := func(k string, d bool) bool {
		if v := strings.ToLower(getenv(k)); v != "" {
			return parseBool(v, d)
		}
		return d
	}

	// IO paths
	fs.StringVar(&cfg.InputPath, "input", envOrDefaultFn("MERGE_INPUT", "data.txt"), "Keep/merge text file to parse")
	fs.StringVar(&cfg.PairsCSV, "pairs_csv", envOrDefaultFn("MERGE_PAIRS_CSV", "output.csv"), "Merge pair CSV (written by segments, read by query/counts)")
	fs.StringVar(&cfg.OutputSQL, "output_sql", envOrDefaultFn("MERGE_OUTPUT_SQL", "query.sql"), "Generated SQL script path")
	fs.StringVar(&cfg.SkippedPath, "skipped_path", envOrDefaultFn("MERGE_SKIPPED_PATH", "./skipped/segments.csv"), "CSV log of skipped input lines (empty disables)")
	fs.StringVar(&cfg.GroupDelimiter, bindDelimiter.flag, envOrDefaultFn(bindDelimiter.env, `\n\n\t`), "Record group delimiter, Go escapes allowed")
	fs.BoolVar(&cfg.StrictUUID, bindStrictUUID.flag, boolEnvOrDefaultFn(bindStrictUUID.env, false), "Reject identifiers that are not UUIDs")

	// Script parameters
	fs.StringVar(&cfg.Role, bindRole.flag, getenv(bindRole.env), "Database role for SET ROLE")
	fs.StringVar(&cfg.Organisation, bindOrganisation.flag, getenv(bindOrganisation.env), "Organisation name whose encounters are merged")
	fs.StringVar(&cfg.Username, bindUsername.flag, getenv(bindUsername.env), "Username recorded as last modifier")
	fs.StringVar(&cfg.HistoryNote, bindHistoryNote.flag, envOrDefaultFn(bindHistoryNote.env, "Merge encounters as part of data cleanup"), "Note appended to manual_update_history")
	fs.StringVar(&cfg.Ticket, bindTicket.flag, getenv(bindTicket.env), "Ticket number appended to the history note")
	fs.Int64Var(&cfg.ExpectedAffected, bindAffected.flag, int64EnvOrDefaultFn(bindAffected.env, -1), "Known count of encounters to move (-1 unknown)")
	fs.Int64Var(&cfg.ExpectedRetained, bindRetained.flag, int64EnvOrDefaultFn(bindRetained.env, -1), "Known count of encounters already on keep targets (-1 unknown)")
	fs.BoolVar(&cfg.Probe, "probe", boolEnvOrDefaultFn("MERGE_PROBE", false), "Measure expected counts against the database")
	fs.StringVar(&cfg.JobFile, "job", getenv("MERGE_JOB_FILE"), "TOML job file with script parameters")

	// DB connectivity
	fs.StringVar(&cfg.DBDriver, "db_driver", envOrDefaultFn("DB_DRIVER", "postgres"), "Database driver: 'postgres', 'mssql' or 'sqlite'")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full DSN (required for mssql and sqlite)")
	fs.StringVar(&cfg.DBUser, "db_user", envOrDefaultFn("DB_USER", "user"), "DB user")
	fs.StringVar(&cfg.DBPassword, "db_password", envOrDefaultFn("DB_PASSWORD", "password"), "DB password")
	fs.StringVar(&cfg.DBHost, "db_host", envOrDefaultFn("DB_HOST", "localhost"), "DB host")
	fs.StringVar(&cfg.DBPort, "db_port", envOrDefaultFn("DB_PORT", "5432"), "DB port")
	fs.StringVar(&cfg.DBName, "db_name", envOrDefaultFn("DB_NAME", "testdb"), "DB name")
	fs.IntVar(&cfg.ChunkSize, "chunk_size", intEnvOrDefaultFn("DB_CHUNK_SIZE", 1000), "Identifiers per count query (mssql/sqlite)")

	// Observability
	fs.StringVar(&cfg.MetricsBackend, "metrics_backend", envOrDefaultFn("METRICS_BACKEND", "none"), "Metrics backend: none, pushgateway or datadog")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway_url", envOrDefaultFn("PUSHGATEWAY_URL", "http://localhost:9091"), "Pushgateway base URL")
	fs.StringVar(&cfg.DogStatsDAddr, "dogstatsd_addr", envOrDefaultFn("DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address")
	fs.StringVar(&cfg.JobName, "job_name", envOrDefaultFn("METRICS_JOB", "mergeprep"), "Metrics job label")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", boolEnvOrDefaultFn("VERBOSE", false), "Enable debug logs")

	return cfg
}

// LoadFromArgs binds flags on fs and parses args. Parse errors are returned.
func LoadFromArgs(fs *pflag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Bind(fs, getenv)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Delimiter decodes GroupDelimiter, which is written with Go escapes so it
// can travel through flags and environment variables.
func (c *Config) Delimiter() (string, error) {
	d, err := strconv.Unquote(`"` + c.GroupDelimiter + `"`)
	if err != nil {
		return "", fmt.Errorf("group delimiter %q: %w", c.GroupDelimiter, err)
	}
	return d, nil
}

// Counts returns the expected counts; Known only when both are set.
func (c *Config) Counts() domain.Counts {
	if c.ExpectedAffected < 0 || c.ExpectedRetained < 0 {
		return domain.Counts{}
	}
	return domain.Counts{Affected: c.ExpectedAffected, Retained: c.ExpectedRetained, Known: true}
}

// PostgresDSN returns DSN, or builds a postgres:// URL from the parts.
func (c *Config) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost + ":" + c.DBPort,
		Path:   "/" + c.DBName,
	}
	return u.String()
}

// parseBool accepts "1/0", "true/false", "yes/no", "on/off"; anything else
// yields d.
func parseBool(v string, d bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}
