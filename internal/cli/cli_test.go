package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func sqliteArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--driver", "sqlite", "--dsn", filepath.Join(t.TempDir(), "numbering.db"), "--account", "acct-A"}
}

func TestValidateCommand_Golden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	var out bytes.Buffer
	for _, pattern := range []string{
		"FA-{SEQ:3}-{YY}",
		"INV-{YYYY}-{MM}-{SEQ:4}",
		"N-{SEQ:2}",
		"",
		"FA-{YY}",
		"{SEQ:1}{SEQ:2}",
		"FA-{SEQ:9}",
		"F#A@{SEQ:3}",
	} {
		got, err := run(t, "--driver", "memory", "validate", pattern)
		if err != nil {
			assert.Equal(t, ExitFailure, GetExitCode(err), pattern)
		}
		out.WriteString(got)
	}

	g.Assert(t, "validate", out.Bytes())
}

func TestValidateCommand_JSON(t *testing.T) {
	out, err := run(t, "--driver", "memory", "--format", "json", "validate", "F#{SEQ:3}")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "disallowed_characters", resp.Error.Code)
}

func TestGenerateAndPreview(t *testing.T) {
	base := sqliteArgs(t)

	out, err := run(t, append(base, "preview", "--date", "2025-01-15")...)
	require.NoError(t, err)
	assert.Equal(t, "FA-001-25 (preview)\n", out)

	out, err = run(t, append(base, "generate", "--date", "2025-01-15", "-n", "3")...)
	require.NoError(t, err)
	assert.Equal(t, "FA-001-25\nFA-002-25\nFA-003-25\n", out)

	// the file store persists between invocations
	out, err = run(t, append(base, "generate", "--date", "2025-02-01", "--pattern", "F{YY}{MM}-{SEQ:3}")...)
	require.NoError(t, err)
	assert.Equal(t, "F2502-001\n", out)

	out, err = run(t, append(base, "preview", "--date", "2025-06-30")...)
	require.NoError(t, err)
	assert.Equal(t, "FA-004-25 (preview)\n", out)

	out, err = run(t, append(base, "--format", "json", "counters")...)
	require.NoError(t, err)
	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			DocType   string `json:"documentType"`
			PeriodKey string `json:"period"`
			Value     int64  `json:"value"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "2025", resp.Data[0].PeriodKey)
	assert.Equal(t, int64(3), resp.Data[0].Value)
	assert.Equal(t, "2025-02", resp.Data[1].PeriodKey)
}

func TestGenerate_Errors(t *testing.T) {
	base := sqliteArgs(t)

	_, err := run(t, append(base, "generate", "--pattern", "FA-{YY}")...)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = run(t, append(base, "generate", "--type", "receipt")...)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, append(base, "generate", "--date", "15/01/2025")...)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, "--driver", "memory", "generate")
	assert.ErrorContains(t, err, "--account")

	_, err = run(t, "--driver", "oracle", "validate", "{SEQ:1}")
	assert.ErrorContains(t, err, "unknown driver")
}

func TestSeed(t *testing.T) {
	base := sqliteArgs(t)

	out, err := run(t, append(base, "seed", "--date", "2025-03-01", "--from-number", "FA-041-25")...)
	require.NoError(t, err)
	assert.Equal(t, "invoice 2025 counter at 41, next number FA-042-25\n", out)

	// never lowers
	out, err = run(t, append(base, "seed", "--date", "2025-03-01", "--value", "7")...)
	require.NoError(t, err)
	assert.Contains(t, out, "counter at 41")

	out, err = run(t, append(base, "generate", "--date", "2025-03-02")...)
	require.NoError(t, err)
	assert.Equal(t, "FA-042-25\n", out)

	_, err = run(t, append(base, "seed", "--from-number", "XX-1")...)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = run(t, append(base, "seed")...)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "numbering.yaml")
	cfg := "driver: sqlite\n" +
		"dsn: " + filepath.Join(dir, "numbering.db") + "\n" +
		"account: acct-Y\n" +
		"patterns:\n" +
		"  quote: \"Q-{YYYY}-{SEQ:2}\"\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	out, err := run(t, "--config", path, "generate", "--type", "quote", "--date", "2025-09-09")
	require.NoError(t, err)
	assert.Equal(t, "Q-2025-01\n", out)

	out, err = run(t, "--config", path, "generate", "--type", "quote", "--date", "2025-09-09")
	require.NoError(t, err)
	assert.Equal(t, "Q-2025-02\n", out)

	// flags override the file: another account starts its own counter
	out, err = run(t, "--config", path, "--account", "acct-Z", "generate", "--type", "quote", "--date", "2025-09-09")
	require.NoError(t, err)
	assert.Equal(t, "Q-2025-01\n", out)

	// so does the environment
	t.Setenv("NUMBERING_ACCOUNT", "acct-Z")
	out, err = run(t, "--config", path, "generate", "--type", "quote", "--date", "2025-09-09")
	require.NoError(t, err)
	assert.Equal(t, "Q-2025-02\n", out)
	t.Setenv("NUMBERING_ACCOUNT", "")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("patterns:\n  invoice: \"FA-{YY}\"\n"), 0o600))
	_, err = run(t, "--config", bad, "validate", "{SEQ:1}")
	assert.ErrorContains(t, err, "config pattern for invoice")
}

func resolveFor(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	cmd := NewRootCommand()
	require.NoError(t, cmd.ParseFlags(args))
	return resolveConfig(cmd)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"NUMBERING_CONFIG", "NUMBERING_DRIVER", "NUMBERING_DSN", "NUMBERING_ACCOUNT", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
}

func TestResolveConfig_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "numbering.yaml")
	require.NoError(t, os.WriteFile(path, []byte("driver: memory\naccount: acct-file\n"), 0o600))

	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		driver  string
		dsn     string
		account string
	}{
		{name: "defaults", driver: DriverSQLite, dsn: defaultSQLitePath},
		{name: "file over default", args: []string{"--config", path}, driver: DriverMemory, account: "acct-file"},
		{name: "flag over file", args: []string{"--config", path, "--account", "acct-flag"}, driver: DriverMemory, account: "acct-flag"},
		{
			name:    "env over file",
			env:     map[string]string{"NUMBERING_ACCOUNT": "acct-env"},
			args:    []string{"--config", path},
			driver:  DriverMemory,
			account: "acct-env",
		},
		{
			name:    "env over default",
			env:     map[string]string{"NUMBERING_DRIVER": "memory", "NUMBERING_ACCOUNT": "acct-env"},
			driver:  DriverMemory,
			account: "acct-env",
		},
		{
			name:   "flag over env",
			env:    map[string]string{"NUMBERING_DRIVER": "memory"},
			args:   []string{"--driver", "sqlite", "--dsn", "x.db"},
			driver: DriverSQLite,
			dsn:    "x.db",
		},
		{
			name:    "config path from env",
			env:     map[string]string{"NUMBERING_CONFIG": path},
			driver:  DriverMemory,
			account: "acct-file",
		},
		{
			name:   "postgres falls back to DATABASE_URL",
			env:    map[string]string{"DATABASE_URL": "postgres://localhost/docnum"},
			args:   []string{"--driver", "postgres"},
			driver: DriverPostgres,
			dsn:    "postgres://localhost/docnum",
		},
		{
			name:   "DATABASE_URL is not a sqlite path",
			env:    map[string]string{"DATABASE_URL": "postgres://localhost/docnum"},
			driver: DriverSQLite,
			dsn:    defaultSQLitePath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := resolveFor(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, cfg.Driver)
			assert.Equal(t, tt.dsn, cfg.DSN)
			assert.Equal(t, tt.account, cfg.Account)
		})
	}
}

func TestResolveConfig_Errors(t *testing.T) {
	clearEnv(t)

	_, err := resolveFor(t, "--driver", "postgres")
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, err = resolveFor(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("patterns:\n  receipt: \"R-{SEQ:2}\"\n"), 0o600))
	_, err = resolveFor(t, "--config", bad)
	assert.ErrorContains(t, err, "config patterns")
}

func TestCounters_YAML(t *testing.T) {
	base := sqliteArgs(t)

	_, err := run(t, append(base, "generate", "--date", "2025-01-15")...)
	require.NoError(t, err)

	out, err := run(t, append(base, "--format", "yaml", "counters")...)
	require.NoError(t, err)
	assert.Contains(t, out, "status: ok")
	assert.Contains(t, out, "documentType: invoice")
	assert.Contains(t, out, "period: \"2025\"")
	assert.Contains(t, out, "value: 1")
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	_, err := run(t, "--driver", "memory", "migrate")
	assert.ErrorContains(t, err, "requires --driver postgres")
}
