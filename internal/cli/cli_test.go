package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerodha-allocator/internal/config"
	"zerodha-allocator/internal/drafts"
	apperrors "zerodha-allocator/internal/errors"
	"zerodha-allocator/internal/models"
)

const coreDrafts = `symbol,weight_pct,amount_inr,qty,locked,price
INFY,50,4000,10,false,100
TCS,50,6000,5,false,200
`

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default(t.TempDir())
	app := NewApp(cfg, zerolog.Nop())
	t.Cleanup(func() { app.Close() })
	return app
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(app)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeResult(t *testing.T, out string) models.AllocationResult {
	t.Helper()
	var res models.AllocationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	return res
}

func TestAllocateWeight_JSON(t *testing.T) {
	app := newTestApp(t)
	file := writeTemp(t, "core.csv", coreDrafts)

	out, err := run(t, app, "allocate", "weight", "--funds", "10,000", "--file", file, "--json")
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, models.WeightDriven, res.Mode)
	infy, ok := res.Row("NSE:INFY")
	require.True(t, ok)
	tcs, _ := res.Row("NSE:TCS")
	assert.Equal(t, int64(50), infy.PlannedQty)
	assert.Equal(t, int64(25), tcs.PlannedQty)
	assert.Equal(t, 10000.0, res.Totals.TotalCost)
}

func TestAllocate_DefaultModeAndModes(t *testing.T) {
	app := newTestApp(t)
	app.Config.Allocation.DefaultMode = string(models.QtyDriven)
	file := writeTemp(t, "core.csv", coreDrafts)

	out, err := run(t, app, "allocate", "--funds", "5000", "--file", file, "--json")
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, models.QtyDriven, res.Mode)
	assert.Equal(t, 2000.0, res.Totals.TotalCost)

	out, err = run(t, app, "allocate", "amount", "--funds", "20000", "--file", file, "--json")
	require.NoError(t, err)
	res = decodeResult(t, out)
	infy, _ := res.Row("NSE:INFY")
	tcs, _ := res.Row("NSE:TCS")
	assert.Equal(t, int64(40), infy.PlannedQty)
	assert.Equal(t, int64(30), tcs.PlannedQty)
}

func TestAllocate_PricesFileAndStrict(t *testing.T) {
	app := newTestApp(t)
	file := writeTemp(t, "core.csv", "symbol,weight_pct\nINFY,50\nTCS,50\n")

	_, err := run(t, app, "allocate", "weight", "--funds", "10000", "--file", file, "--strict", "--json")
	assert.ErrorIs(t, err, apperrors.ErrBlockingIssues)

	prices := writeTemp(t, "ltp.csv", "symbol,exchange,price\nINFY,NSE,100\nTCS,NSE,200\n")
	out, err := run(t, app, "allocate", "weight", "--funds", "10000", "--file", file, "--prices", prices, "--strict", "--json")
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.False(t, res.HasBlockingIssues())
}

func TestAllocate_TextOutput(t *testing.T) {
	app := newTestApp(t)
	file := writeTemp(t, "core.csv", coreDrafts)

	out, err := run(t, app, "allocate", "weight", "--funds", "100000", "--file", file, "--min-qty", "1", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "INFY")
	assert.Contains(t, out, "₹1,00,000.00")
	assert.Contains(t, out, "Totals (weight mode)")
	assert.NotContains(t, out, "\x1b[")
}

func TestAllocate_SaveAndPlanCommands(t *testing.T) {
	app := newTestApp(t)
	file := writeTemp(t, "core.csv", coreDrafts)

	out, err := run(t, app, "allocate", "weight", "--funds", "10000", "--file", file, "--save", "core")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved plan 'core'")

	out, err = run(t, app, "plan", "list", "--json")
	require.NoError(t, err)
	var plans []models.PlanSummary
	require.NoError(t, json.Unmarshal([]byte(out), &plans))
	require.Len(t, plans, 1)
	assert.Equal(t, "core", plans[0].Name)
	assert.Equal(t, 2, plans[0].Rows)

	out, err = run(t, app, "plan", "show", "core", "--json")
	require.NoError(t, err)
	var plan models.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, plans[0].ID, plan.ID)
	require.NotNil(t, plan.Result)
	assert.Equal(t, 10000.0, plan.Result.Totals.TotalCost)

	_, err = run(t, app, "plan", "delete", "core")
	require.NoError(t, err)
	_, err = run(t, app, "plan", "show", "core")
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)
}

func TestAllocate_SaveRefusesBlocking(t *testing.T) {
	app := newTestApp(t)
	file := writeTemp(t, "core.csv", "symbol,weight_pct\nINFY,100\n")

	_, err := run(t, app, "allocate", "weight", "--funds", "10000", "--file", file, "--save", "bad", "--json")
	assert.ErrorIs(t, err, apperrors.ErrBlockingIssues)

	out, err := run(t, app, "plan", "list", "--json")
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(out))
}

func TestNormalizeProportional(t *testing.T) {
	app := newTestApp(t)
	file := writeTemp(t, "core.csv", "symbol,weight_pct,locked\nA,20,true\nB,10,false\nC,30,false\n")
	outPath := filepath.Join(t.TempDir(), "out.csv")

	out, err := run(t, app, "normalize", "proportional", "--file", file, "--out", outPath, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "sum 100.00%")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	parsed, err := drafts.Read(f, outPath)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 3)
	assert.Equal(t, 20.0, parsed.Rows[0].WeightPct)
	assert.Equal(t, 20.0, parsed.Rows[1].WeightPct)
	assert.Equal(t, 60.0, parsed.Rows[2].WeightPct)
}

func TestNormalizeEqualizeAmountJSON(t *testing.T) {
	app := newTestApp(t)
	file := writeTemp(t, "sip.csv", "symbol,amount_inr,locked\nA,1000,true\nB,0,false\nC,0,false\n")

	out, err := run(t, app, "normalize", "equalize", "--file", file, "--field", "amount", "--target", "10000", "--json")
	require.NoError(t, err)
	var rows []models.RowDraft
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, 1000.0, rows[0].AmountInr)
	assert.Equal(t, 4500.0, rows[1].AmountInr)
	assert.Equal(t, 4500.0, rows[2].AmountInr)

	_, err = run(t, app, "normalize", "clear", "--file", file, "--field", "bogus")
	assert.Error(t, err)
}

func TestVersionAndConfig(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, Version)

	out, err = run(t, app, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, app.Config.Dir, strings.TrimSpace(out))

	_, err = run(t, app, "config", "validate")
	require.NoError(t, err)

	app.Config.Prices.Source = "yahoo"
	_, err = run(t, app, "config", "validate")
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestConfigDirFromArgs(t *testing.T) {
	assert.Equal(t, "/tmp/a", configDirFromArgs([]string{"allocate", "weight", "--funds", "100", "--config", "/tmp/a"}))
	assert.Equal(t, "/tmp/b", configDirFromArgs([]string{"--config=/tmp/b", "version"}))
	assert.Equal(t, "", configDirFromArgs([]string{"plan", "list", "--json"}))
}

func TestTableAlignsRupeeColumns(t *testing.T) {
	var buf bytes.Buffer
	output := &Output{writer: &buf}
	table := NewTable(output, "Name", "Cost").AlignRight(1)
	table.AddRow("A", "₹1,00,000.00")
	table.AddRow("LONGNAME", "₹5.00")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, displayWidth(lines[2]), displayWidth(lines[3]))
	assert.True(t, strings.HasSuffix(lines[3], " ₹5.00"))
}
