package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
	mirrormem "expensetracker/internal/sheets/memory"
	"expensetracker/internal/storage"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "trackerctl", cmd.Use)
	assert.Contains(t, cmd.Long, "migrations")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"migrate", "up"},
		{"migrate", "version"},
		{"user", "create"},
		{"token", "issue"},
		{"summary"},
		{"mirror", "resync"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "yaml", "migrate", "version")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	wrapped := WrapExitError(ExitFailure, "outer", core.ErrNotFound)
	assert.ErrorIs(t, wrapped, core.ErrNotFound)
	assert.Equal(t, "outer: not found", wrapped.Error())
}

// setupEnv points the commands at a fresh SQLite file.
func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tracker.db")
	t.Setenv("DATA_BACKEND", config.BackendSQLite)
	t.Setenv("SQLITE_DB_PATH", dbPath)
	t.Setenv("JWT_SECRET", "cli-test-secret-0123456789")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	return dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func executeJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := execute(t, append([]string{"--format", "json"}, args...)...)
	require.NoError(t, err, out)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data should be an object: %s", out)
	return data
}

func TestMigrateCommands(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version")

	data := executeJSON(t, "migrate", "version")
	assert.Greater(t, data["version"], 0.0)
	assert.Equal(t, false, data["dirty"])
}

func TestMigrateRequiresSQLite(t *testing.T) {
	setupEnv(t)
	t.Setenv("DATA_BACKEND", config.BackendMemory)

	_, err := execute(t, "migrate", "up")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMissingSecretIsCommandError(t *testing.T) {
	setupEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := execute(t, "user", "create", "--email", "a@example.com", "--password", "secret123")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUserTokenAndSummary(t *testing.T) {
	dbPath := setupEnv(t)

	user := executeJSON(t, "user", "create", "--name", "Alice", "--email", "Alice@Example.com", "--password", "secret123")
	owner := user["id"].(string)
	assert.Equal(t, "alice@example.com", user["email"])

	_, err := execute(t, "user", "create", "--name", "Alice", "--email", "alice@example.com", "--password", "secret123")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConflict)

	token := executeJSON(t, "token", "issue", "--email", "alice@example.com")
	assert.NotEmpty(t, token["token"])
	assert.Equal(t, owner, token["userId"])

	_, err = execute(t, "token", "issue", "--email", "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	seed(t, dbPath, owner)

	sum := executeJSON(t, "summary", "--email", "alice@example.com")
	assert.Equal(t, "5000", sum["totalIncome"])
	assert.Equal(t, "150", sum["totalExpense"])
	assert.Equal(t, "4850", sum["totalBalance"])

	month := executeJSON(t, "summary", "--email", "alice@example.com", "--year", "2024", "--month", "3")
	assert.Equal(t, 2.0, month["transactionCount"])
	assert.Equal(t, "3", month["expenseRatio"])

	_, err = execute(t, "summary", "--email", "alice@example.com", "--month", "13")
	require.Error(t, err)
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMirrorResync(t *testing.T) {
	dbPath := setupEnv(t)
	user := executeJSON(t, "user", "create", "--name", "Alice", "--email", "alice@example.com", "--password", "secret123")
	seed(t, dbPath, user["id"].(string))

	mirror := mirrormem.New()
	orig := openMirror
	openMirror = func(context.Context, *config.Config, *log.Logger) (sheets.TransactionMirror, error) {
		return mirror, nil
	}
	t.Cleanup(func() { openMirror = orig })

	data := executeJSON(t, "mirror", "resync", "--email", "alice@example.com")
	assert.Equal(t, 2.0, data["mirrored"])
	assert.Len(t, mirror.Rows(), 2)
}

func TestMirrorResyncNeedsSpreadsheet(t *testing.T) {
	setupEnv(t)
	executeJSON(t, "user", "create", "--name", "Alice", "--email", "alice@example.com", "--password", "secret123")

	_, err := execute(t, "mirror", "resync", "--email", "alice@example.com")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func seed(t *testing.T, dbPath, owner string) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(dbPath, log.Discard())
	require.NoError(t, err)
	defer repo.Close()

	now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	for _, f := range []core.Fields{
		fields("Salary", 5000, "income", "Salary", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)),
		fields("Groceries", 150, "expense", "Food & Dining", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)),
	} {
		tx, err := core.NewTransaction(core.DefaultRegistry(), owner, f, now)
		require.NoError(t, err)
		require.NoError(t, repo.Insert(context.Background(), tx))
	}
}

func fields(title string, amount int64, kind, category string, date time.Time) core.Fields {
	a := decimal.NewFromInt(amount)
	return core.Fields{Title: &title, Amount: &a, Kind: &kind, Category: &category, Date: &date}
}
