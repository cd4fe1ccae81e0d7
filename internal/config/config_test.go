package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergeprep/internal/domain"
)

func load(t *testing.T, env map[string]string, args ...string) (*Config, *pflag.FlagSet) {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg, err := LoadFromArgs(fs, func(k string) string { return env[k] }, args)
	require.NoError(t, err)
	return cfg, fs
}

// TestLoadFromArgs_EnvDefaultsAndFlags validates the precedence model:
// environment seeds defaults, explicit flags override env.
func TestLoadFromArgs_EnvDefaultsAndFlags(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"DB_DRIVER":               "mssql",
		"DB_DSN":                  "sqlserver://u:p@h:1433?database=d",
		"MERGE_ROLE":              "from_env",
		"MERGE_EXPECTED_AFFECTED": "12",
		"MERGE_STRICT_UUID":       "yes",
		"DB_CHUNK_SIZE":           "250",
	}
	cfg, _ := load(t, env, "--role=from_flag", "-v")

	assert.Equal(t, "mssql", cfg.DBDriver)
	assert.NotEmpty(t, cfg.DSN)
	assert.Equal(t, "from_flag", cfg.Role)
	assert.Equal(t, int64(12), cfg.ExpectedAffected)
	assert.Equal(t, int64(-1), cfg.ExpectedRetained)
	assert.True(t, cfg.StrictUUID)
	assert.Equal(t, 250, cfg.ChunkSize)
	assert.True(t, cfg.Verbose)
}

// TestLoadFromArgs_Defaults ensures an empty environment yields usable
// defaults matching the historical file names.
func TestLoadFromArgs_Defaults(t *testing.T) {
	t.Parallel()

	cfg, _ := load(t, nil)

	assert.Equal(t, "data.txt", cfg.InputPath)
	assert.Equal(t, "output.csv", cfg.PairsCSV)
	assert.Equal(t, "query.sql", cfg.OutputSQL)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "none", cfg.MetricsBackend)
	assert.False(t, cfg.Counts().Known)

	d, err := cfg.Delimiter()
	require.NoError(t, err)
	assert.Equal(t, "\n\n\t", d)
}

func TestLoadFromArgs_BadFlag(t *testing.T) {
	t.Parallel()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(nopWriter{})
	_, err := LoadFromArgs(fs, func(string) string { return "" }, []string{"--no_such_flag"})
	require.Error(t, err)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestCounts(t *testing.T) {
	t.Parallel()

	cfg, _ := load(t, nil, "--expected_affected=1275", "--expected_retained=437")
	assert.Equal(t, domain.Counts{Affected: 1275, Retained: 437, Known: true}, cfg.Counts())

	half, _ := load(t, nil, "--expected_affected=3")
	assert.False(t, half.Counts().Known)
}

func TestDelimiter_Escapes(t *testing.T) {
	t.Parallel()

	cfg, _ := load(t, map[string]string{"MERGE_GROUP_DELIMITER": `\n\t\n`})
	d, err := cfg.Delimiter()
	require.NoError(t, err)
	assert.Equal(t, "\n\t\n", d)

	bad, _ := load(t, nil, `--group_delimiter=\q`)
	_, err = bad.Delimiter()
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	t.Parallel()

	cfg, _ := load(t, nil, "--db_user=u", "--db_password=p@ss", "--db_host=db", "--db_port=5433", "--db_name=avni")
	assert.Equal(t, "postgres://u:p%40ss@db:5433/avni", cfg.PostgresDSN())

	withDSN, _ := load(t, nil, "--dsn=postgres://x")
	assert.Equal(t, "postgres://x", withDSN.PostgresDSN())
}

func TestApplyJobFile_Precedence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "job.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
role = "job_role"
organisation = "Job Org"
username = "job@user"
ticket = "4525"
group_delimiter = "\n\t\n"
strict_uuid = true

[expected]
affected = 1275
retained = 437
`), 0o644))

	env := map[string]string{"MERGE_USERNAME": "env@user"}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	getenv := func(k string) string { return env[k] }
	cfg, err := LoadFromArgs(fs, getenv, []string{"--job=" + path, "--role=flag_role", "--expected_retained=1"})
	require.NoError(t, err)
	require.NoError(t, cfg.ApplyJobFile(fs, getenv))

	assert.Equal(t, "flag_role", cfg.Role, "flag beats job file")
	assert.Equal(t, "env@user", cfg.Username, "env beats job file")
	assert.Equal(t, "Job Org", cfg.Organisation)
	assert.Equal(t, "4525", cfg.Ticket)
	assert.True(t, cfg.StrictUUID)
	assert.Equal(t, int64(1275), cfg.ExpectedAffected)
	assert.Equal(t, int64(1), cfg.ExpectedRetained)

	d, err := cfg.Delimiter()
	require.NoError(t, err)
	assert.Equal(t, "\n\t\n", d)
}

func TestLoadJob_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := LoadJob(filepath.Join(dir, "missing.toml"))
	require.ErrorIs(t, err, domain.ErrInputNotFound)

	typo := filepath.Join(dir, "typo.toml")
	require.NoError(t, os.WriteFile(typo, []byte(`organization = "x"`), 0o644))
	_, err = LoadJob(typo)
	require.Error(t, err)
}

func TestApplyJobFile_NoJob(t *testing.T) {
	t.Parallel()

	cfg, fs := load(t, nil)
	require.NoError(t, cfg.ApplyJobFile(fs, func(string) string { return "" }))
}

func TestLoadJob_PartialExpectedRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"affected only", "[expected]\naffected = 1275\n"},
		{"retained only", "[expected]\nretained = 437\n"},
		{"negative", "[expected]\naffected = -1\nretained = 437\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "job.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := LoadJob(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "[expected]")

			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			getenv := func(string) string { return "" }
			cfg, err := LoadFromArgs(fs, getenv, []string{"--job=" + path})
			require.NoError(t, err)
			require.Error(t, cfg.ApplyJobFile(fs, getenv))
			assert.False(t, cfg.Counts().Known)
		})
	}
}

func TestApplyJob_PartialExpectedLeavesConfig(t *testing.T) {
	t.Parallel()

	cfg, fs := load(t, nil)
	affected := int64(1275)
	err := cfg.ApplyJob(&Job{Role: "r", Expected: &Expected{Affected: &affected}}, fs, func(string) string { return "" })
	require.Error(t, err)
	assert.Empty(t, cfg.Role)
	assert.Equal(t, int64(-1), cfg.ExpectedAffected)
}
