package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/catsurvey/internal/service"
)

func setEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "catsurvey.db"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("TRACING_ENABLED", "false")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "absent.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCommands(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")

	out, err = execute(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version 3")

	out, err = execute(t, "migrate", "status")
	require.NoError(t, err)
	assert.NotContains(t, out, "pending")
	assert.Contains(t, out, "00003_cron_task_logs.sql")

	out, err = execute(t, "migrate", "down", "--steps", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version 1")

	out, err = execute(t, "migrate", "down", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "schema removed")

	_, err = execute(t, "migrate", "down", "--steps", "0")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 0 surveys")
}

func TestEnvFileIsLoaded(t *testing.T) {
	setEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	dbPath := filepath.Join(dir, "from-env-file.db")
	require.NoError(t, writeFile(envFile, "DB_PATH="+dbPath+"\n"))
	// godotenv never overrides variables that are already set
	t.Setenv("DB_PATH", "")
	require.NoError(t, os.Unsetenv("DB_PATH"))

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", envFile, "migrate", "up"})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, dbPath)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, service.RunReport{
		RunID:   "r1",
		Created: 3,
		Categories: []service.CategoryReport{
			{CategoryID: 1, CategoryName: "Network", Created: 2, Considered: 4},
			{CategoryID: 2, Skipped: true},
			{CategoryID: 3, Created: 1, Considered: 1, Failed: 1},
		},
	})

	assert.Equal(t, "run r1\n"+
		"  Network: 2 created, 4 considered\n"+
		"  category 3: 1 created, 1 considered, 1 failed\n"+
		"total: 3 surveys\n", buf.String())

	buf.Reset()
	printReport(&buf, service.RunReport{})
	assert.Empty(t, buf.String())
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
