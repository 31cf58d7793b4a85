package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliInput = `{
	"snapshot_ref": "2025-06-30/brokerage",
	"holdings": [
		{"symbol": "XBB", "name": "iShares Core Canadian Universe Bond Index ETF", "currency": "CAD", "market_value": 10000}
	],
	"cash_balances": [
		{"account_name": "Chequing", "category": "brokerage_cash", "currency": "CAD", "amount": 500}
	]
}`

// useTestConfig points the CLI at an isolated store with external lookups off.
func useTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
[storage]
backend = "file"
path = %q

[classify]
use_market_data = false
use_semantic = false

[logging]
level = "error"
`, filepath.Join(dir, "store"))
	path := filepath.Join(dir, "recon.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))

	old := *configPath
	*configPath = path
	t.Cleanup(func() { *configPath = old })
	return dir
}

func execute(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cmd.Execute(context.Background(), fs)
}

func TestRunCmd_RequiresInput(t *testing.T) {
	assert.Equal(t, subcommands.ExitUsageError, execute(t, &runCmd{}))
}

func TestRunCmd_BadExpected(t *testing.T) {
	dir := useTestConfig(t)
	input := filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(input, []byte(cliInput), 0644))

	assert.Equal(t, subcommands.ExitUsageError, execute(t, &runCmd{}, "-input", input, "-expected", "ten"))
}

func TestRunCmd_MatchWritesSnapshot(t *testing.T) {
	dir := useTestConfig(t)
	input := filepath.Join(dir, "input.json")
	out := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(input, []byte(cliInput), 0644))

	status := execute(t, &runCmd{}, "-input", input, "-expected", "10500", "-out", out)
	assert.Equal(t, subcommands.ExitSuccess, status)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"snapshot_ref": "2025-06-30/brokerage"`)
	assert.Contains(t, string(data), `"match": true`)
}

func TestRunCmd_MismatchExitsNonZero(t *testing.T) {
	dir := useTestConfig(t)
	input := filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(input, []byte(cliInput), 0644))

	assert.Equal(t, subcommands.ExitFailure, execute(t, &runCmd{}, "-input", input, "-expected", "20000"))
}

func TestOverrideCmd_SaveAndDelete(t *testing.T) {
	useTestConfig(t)

	assert.Equal(t, subcommands.ExitSuccess,
		execute(t, &overrideCmd{}, "-symbol", "XBB", "-sector", "Fixed Income", "-region", "Canada"))
	assert.Equal(t, subcommands.ExitSuccess, execute(t, &overrideCmd{}, "-symbol", "XBB", "-delete"))
	assert.Equal(t, subcommands.ExitFailure, execute(t, &overrideCmd{}, "-symbol", "XBB", "-delete"))
}

func TestShowAndChartCmd_MissingID(t *testing.T) {
	assert.Equal(t, subcommands.ExitUsageError, execute(t, &showCmd{}))
	assert.Equal(t, subcommands.ExitUsageError, execute(t, &chartCmd{}))

	useTestConfig(t)
	assert.Equal(t, subcommands.ExitFailure, execute(t, &showCmd{}, "-id", "missing"))
}
