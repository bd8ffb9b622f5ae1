package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The commands reconfigure the global logger, so these tests run serially.

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fxforecast.yaml")
	body := fmt.Sprintf(`store:
  type: sqlite
  db_path: %s
auth:
  jwt_secret: test-secret
log:
  level: error
  no_color: true
`, filepath.Join(dir, "fx.sqlite"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func tokenFrom(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if tok, ok := strings.CutPrefix(line, "export "+EnvToken+"="); ok {
			return tok
		}
	}
	t.Fatalf("no token in output:\n%s", out)
	return ""
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "fxforecast (dev)\n", out)
}

func TestPositionSizeCmd(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "", "--config", cfg, "position-size",
		"--balance", "100000", "--risk", "0.5", "--stop", "20", "--instrument", "eurusd")
	require.NoError(t, err)
	assert.Contains(t, out, "Instrument:     EUR/USD")
	assert.Contains(t, out, "Risk amount:    $500.00")
	assert.Contains(t, out, "Lot size:       2.50 lots (250000 units)")

	out, err = run(t, "", "--config", cfg, "ps", "--balance", "10000", "--stop", "10", "--json")
	require.NoError(t, err)
	var res struct {
		RiskAmount     float64 `json:"risk_amount"`
		LotSize        float64 `json:"lot_size"`
		InstrumentName string  `json:"instrument_name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 200.0, res.RiskAmount) // default risk 2%
	assert.InDelta(t, 2.0, res.LotSize, 1e-9)
	assert.Equal(t, "Unknown", res.InstrumentName)

	out, err = run(t, "", "--config", cfg, "position-size", "--balance", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "Enter balance, risk and stop loss")
}

func TestADRExitCmd(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "", "--config", cfg, "adr-exit", "--entry", "1.0850")
	require.NoError(t, err)
	assert.Contains(t, out, "Pair: EURUSD")
	assert.Contains(t, out, "ADR(14): 75 pips")
	assert.Contains(t, out, "30% TP: 1.08725")
	assert.Contains(t, out, "50% TP: 1.08875")

	out, err = run(t, "", "--config", cfg, "adr-exit", "--pair", "USD/JPY", "--adr", "100",
		"--entry", "150", "--direction", "short", "--current", "149.8")
	require.NoError(t, err)
	assert.Contains(t, out, "30% TP: 149.7")
	assert.Contains(t, out, "Current Progress: 20 pips (20%)")
	assert.Contains(t, out, "Status: In Progress")

	out, err = run(t, "", "--config", cfg, "adr-exit", "--entry", "1.0850", "--direction", "sideways")
	require.NoError(t, err)
	assert.Contains(t, out, "! direction: Direction must be long or short")
	assert.Contains(t, out, "Enter ADR, entry price and direction")
}

func TestRiskGuardCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"green", nil, []string{"Overall: SAFE", "All Systems Green"}},
		{"daily lock", []string{"--daily", "-1.2"}, []string{"Overall: LOCKED", "Daily Loss Limit Reached"}},
		{"one trade left", []string{"--trades", "1"}, []string{"Overall: WARNING", "Only 1 more allowed"}},
		{"reset", []string{"--trades", "2", "--risk", "1", "--reset"}, []string{"Overall: SAFE"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"risk-guard"}, tt.args...)
			out, err := run(t, "", args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestInstrumentsCmd(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "", "--config", cfg, "instruments")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 11)
	assert.Contains(t, lines[0], "SYMBOL")
	assert.Contains(t, out, "GBPJPY")

	out, err = run(t, "", "--config", cfg, "instruments", "seed")
	require.NoError(t, err)
	assert.Equal(t, "Seeded 10 instruments\n", out)
}

func TestAccountsAndSavedCalculations(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "", "--config", cfg, "user", "signup", "--email", "Trader@Example.com", "--password", "secret1", "--name", "Tess")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as trader@example.com (member)")
	token := tokenFrom(t, out)

	_, err = run(t, "", "--config", cfg, "user", "signup", "--email", "trader@example.com", "--password", "secret1")
	assert.Error(t, err)

	out, err = run(t, "", "--config", cfg, "user", "signin", "--email", "trader@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenFrom(t, out))

	_, err = run(t, "", "--config", cfg, "user", "signin", "--email", "trader@example.com", "--password", "nope")
	assert.Error(t, err)

	out, err = run(t, "", "--config", cfg, "user", "profile", "--token", token, "--name", "Tess T")
	require.NoError(t, err)
	assert.Contains(t, out, "Name:    Tess T")

	_, err = run(t, "", "--config", cfg, "position-size", "--balance", "100000", "--stop", "20", "--save")
	assert.Error(t, err, "saving without a token fails")

	out, err = run(t, "", "--config", cfg, "position-size",
		"--balance", "100000", "--risk", "0.5", "--stop", "20", "--instrument", "eurusd",
		"--save", "--token", token)
	require.NoError(t, err)
	assert.Contains(t, out, `Saved "EUR/USD Position Size" as`)

	out, err = run(t, "", "--config", cfg, "calc", "list", "--token", token, "--json")
	require.NoError(t, err)
	var page struct {
		Data []struct {
			ID    string `json:"id"`
			Notes string `json:"notes"`
		} `json:"data"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "Risk: 0.5% | Stop Loss: 20 pips", page.Data[0].Notes)
	id := page.Data[0].ID

	out, err = run(t, "", "--config", cfg, "calc", "notes", id, "took the trade", "--token", token)
	require.NoError(t, err)
	assert.Contains(t, out, "Updated "+id)

	out, err = run(t, "", "--config", cfg, "calc", "list", "--token", token)
	require.NoError(t, err)
	assert.Contains(t, out, "took the trade")
	assert.Contains(t, out, "page 1 of 1 (1 saved)")

	_, err = run(t, "", "--config", cfg, "calc", "delete", id, "--token", token)
	require.NoError(t, err)
	_, err = run(t, "", "--config", cfg, "calc", "delete", id, "--token", token)
	assert.Error(t, err)
}

func TestDashboardSession(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "", "--config", cfg, "user", "signup", "--email", "a@example.com", "--password", "secret1")
	require.NoError(t, err)

	script := strings.Join([]string{
		"set balance 100000",
		"set risk 0.5",
		"set stop 20",
		"set instrument eurusd",
		"use adr-exit",
		"set entry 1.0850",
		"reset",
		"use risk-guard",
		"set daily -0.6",
		"use position-size",
		"save",
		"signin a@example.com secret1",
		"save",
		"bogus",
		"quit",
	}, "\n")

	out, err := run(t, script, "--config", cfg, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "== Position Size Calculator ==")
	assert.Contains(t, out, "== ADR Exit Helper ==")
	assert.Contains(t, out, "30% TP: 1.08725")
	assert.Contains(t, out, "error: reset applies to the risk guard")
	assert.Contains(t, out, "Daily Loss Warning")
	assert.Contains(t, out, "balance=100000 risk=0.5 stop=20 instrument=eurusd")
	assert.Contains(t, out, "error: sign in to save calculations")
	assert.Contains(t, out, "Signed in as a@example.com")
	assert.Contains(t, out, `Saved "EUR/USD Position Size" as`)
	assert.Contains(t, out, `error: unknown command "bogus"`)
}

func TestDashboardStartsOnRequestedTool(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "tools\n", "--config", cfg, "dashboard", "--tool", "risk-guard")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "== Risk Guard Monitor =="), out)
	assert.Contains(t, out, "* risk-guard")
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fx.yaml")

	out, err := run(t, "", "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = run(t, "", "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Store: sqlite (./fxforecast.db)")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("defaults:\n  risk_percent: 500\n"), 0600))
	_, err = run(t, "", "config", "validate", "-f", bad)
	assert.ErrorContains(t, err, "validation failed")

	// A broken --config does not block the config commands.
	_, err = run(t, "", "--config", bad, "config", "validate", "-f", path)
	assert.NoError(t, err)

	_, err = run(t, "", "--config", bad, "risk-guard")
	assert.ErrorContains(t, err, "risk_percent")
}
