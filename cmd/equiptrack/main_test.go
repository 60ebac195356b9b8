package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const sampleCSV = "title,description,equipment_type,phase,priority\n" +
	"Overheating,Temperature too high under load,Pump,usage,high\n" +
	"Seal leak,Oil on the floor after shutdown,Pump,maintenance,medium\n" +
	"Bad row\x01,Control characters in title,Pump,usage,low\n"

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func findFlag(t *testing.T, cmd *cli.Command, name string) cli.Flag {
	t.Helper()
	for _, flag := range cmd.Flags {
		for _, n := range flag.Names() {
			if n == name {
				return flag
			}
		}
	}
	t.Fatalf("flag %q not found on %s", name, cmd.Name)
	return nil
}

// testEnv writes a config using the mock AI provider into a fresh working directory.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	config := `
storage:
  path: data/problems
index:
  path: data/index
ai:
  provider: mock
import:
  report_dir: reports
log:
  level: error
`
	path := filepath.Join(dir, "equiptrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o644))
	return path
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	app := newCLI()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"equiptrack", "--config", configPath}, args...))
	return out.String(), err
}

func TestCommandFlagDefaults(t *testing.T) {
	app := newCLI()

	t.Run("reindex defaults", func(t *testing.T) {
		cmd := findCommand(t, app, "reindex")
		assert.Equal(t, 100, findFlag(t, cmd, "batch-size").(*cli.IntFlag).Value)
		assert.Equal(t, 100, findFlag(t, cmd, "report-interval").(*cli.IntFlag).Value)
		assert.Equal(t, 3, findFlag(t, cmd, "max-retries").(*cli.IntFlag).Value)
		assert.Equal(t, time.Second, findFlag(t, cmd, "retry-delay").(*cli.DurationFlag).Value)
		assert.Zero(t, findFlag(t, cmd, "workers").(*cli.IntFlag).Value)
	})

	t.Run("history limit", func(t *testing.T) {
		cmd := findCommand(t, app, "history")
		assert.Equal(t, 20, findFlag(t, cmd, "limit").(*cli.IntFlag).Value)
	})

	t.Run("search limit", func(t *testing.T) {
		cmd := findCommand(t, app, "search")
		assert.Equal(t, 10, findFlag(t, cmd, "limit").(*cli.IntFlag).Value)
	})

	t.Run("imported-by defaults to a name", func(t *testing.T) {
		cmd := findCommand(t, app, "import")
		assert.NotEmpty(t, findFlag(t, cmd, "imported-by").(*cli.StringFlag).Value)
	})

	t.Run("config reads environment", func(t *testing.T) {
		var configFlag *cli.StringFlag
		for _, flag := range app.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "config" {
				configFlag = f
			}
		}
		require.NotNil(t, configFlag)
		assert.Equal(t, []string{"EQUIPTRACK_CONFIG"}, configFlag.EnvVars)
	})
}

func TestSetup(t *testing.T) {
	t.Run("invalid log level", func(t *testing.T) {
		path := testEnv(t)
		_, err := run(t, path, "--log-level", "verbose", "history")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("missing config file", func(t *testing.T) {
		testEnv(t)
		_, err := run(t, "does-not-exist.yaml", "history")
		assert.Error(t, err)
	})
}

func TestArgumentErrors(t *testing.T) {
	path := testEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"import without file", []string{"import"}, "FILE"},
		{"import with two files", []string{"import", "a.csv", "b.csv"}, "FILE"},
		{"validate without file", []string{"validate"}, "FILE"},
		{"search without query", []string{"search"}, "QUERY"},
		{"suggest with blank query", []string{"suggest", "  "}, "QUERY"},
		{"reindex with zero batch size", []string{"reindex", "--batch-size", "0"}, "batch-size"},
		{"reindex with negative workers", []string{"reindex", "--workers", "-1"}, "workers"},
		{"reindex with zero retries", []string{"reindex", "--max-retries", "0"}, "max-retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, path, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestImportWorkflow(t *testing.T) {
	path := testEnv(t)
	dir := filepath.Dir(path)
	csvPath := filepath.Join(dir, "incoming", "problems.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(csvPath), 0o755))
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))

	t.Run("validate", func(t *testing.T) {
		out, err := run(t, path, "validate", "incoming/problems.csv")
		require.NoError(t, err)
		assert.Contains(t, out, "header validation passed")
		assert.Contains(t, out, "equipment_type")
	})

	t.Run("import", func(t *testing.T) {
		out, err := run(t, path, "import", "--imported-by", "qa", "--save-failed", "incoming/problems.csv")
		require.NoError(t, err)
		assert.Contains(t, out, "import completed: 2 imported, 1 failed")
		assert.Contains(t, out, "row 3:")
		assert.Contains(t, out, "Failed rows written to")

		reports, err := os.ReadDir(filepath.Join(dir, "reports"))
		require.NoError(t, err)
		assert.Len(t, reports, 1)
	})

	t.Run("history", func(t *testing.T) {
		out, err := run(t, path, "history")
		require.NoError(t, err)
		assert.Contains(t, out, "problems.csv")
		assert.Contains(t, out, "completed")
	})

	t.Run("search", func(t *testing.T) {
		out, err := run(t, path, "search", "--limit", "1", "Overheating", "Temperature", "too", "high", "under", "load")
		require.NoError(t, err)
		assert.Contains(t, out, "Found 1 hits")
		assert.Contains(t, out, "'Overheating'")
		assert.Contains(t, out, "Pump/usage/high")
	})

	t.Run("suggest", func(t *testing.T) {
		out, err := run(t, path, "suggest", "pump runs hot")
		require.NoError(t, err)
		assert.NotEmpty(t, out)
	})

	t.Run("reindex", func(t *testing.T) {
		_, err := run(t, path, "reindex", "--clear", "--batch-size", "1")
		require.NoError(t, err)

		out, err := run(t, path, "search", "--limit", "5", "Seal leak Oil on the floor after shutdown")
		require.NoError(t, err)
		assert.Contains(t, out, "'Seal leak'")
	})

	t.Run("fail on error", func(t *testing.T) {
		out, err := run(t, path, "import", "--fail-on-error", "incoming/problems.csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "import failed")
		assert.Contains(t, out, "import failed")
	})

	t.Run("missing headers", func(t *testing.T) {
		bad := filepath.Join(dir, "incoming", "bad.csv")
		require.NoError(t, os.WriteFile(bad, []byte("name,notes\nPump,leaks\n"), 0o644))
		out, err := run(t, path, "validate", bad)
		require.Error(t, err)
		assert.Contains(t, out, "missing required columns")
	})
}

func TestScheduleReindex(t *testing.T) {
	t.Run("rejects invalid schedule", func(t *testing.T) {
		_, err := scheduleReindex(t.Context(), nil, "not a schedule")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid reindex schedule")
	})
}
