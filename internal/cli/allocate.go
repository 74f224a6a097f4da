package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"zerodha-allocator/internal/allocation"
	"zerodha-allocator/internal/drafts"
	apperrors "zerodha-allocator/internal/errors"
	"zerodha-allocator/internal/models"
	"zerodha-allocator/pkg/utils"
)

func newAllocateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Compute whole-share quantities for a drafts file",
		Long: `Compute buy quantities for every row of a drafts CSV.

  weight  rows carry a target weight of the funds
  amount  rows carry a rupee amount
  qty     rows carry a share count

Without a subcommand the configured default mode is used.`,
		Example: `  allocator allocate weight --funds 1,00,000 --file core.csv
  allocator allocate amount --funds 50000 --file sip.csv --prices ltp.csv
  allocator allocate weight --funds 200000 --file core.csv --min-qty 1 --save march`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAllocate(cmd, app, models.Mode(app.Config.Allocation.DefaultMode))
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("funds", "", "investable funds in rupees (commas and ₹ allowed)")
	flags.StringP("file", "f", "", "drafts CSV (- for stdin)")
	flags.String("prices", "", "CSV of prices keyed by id or EXCHANGE:SYMBOL")
	flags.Int64("min-qty", 0, "minimum shares per priced row (weight mode)")
	flags.Bool("require-100", false, "treat weights not summing to 100% as an error (weight mode)")
	flags.Bool("no-optimize", false, "do not spend leftover funds (weight mode)")
	flags.String("save", "", "save the plan under this name")
	flags.Bool("strict", false, "exit non-zero when blocking errors exist")
	cmd.MarkPersistentFlagRequired("funds")
	cmd.MarkPersistentFlagRequired("file")

	for _, mode := range []models.Mode{models.WeightDriven, models.AmountDriven, models.QtyDriven} {
		mode := mode
		cmd.AddCommand(&cobra.Command{
			Use:   string(mode),
			Short: fmt.Sprintf("Allocate in %s mode", mode),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAllocate(cmd, app, mode)
			},
		})
	}

	return cmd
}

func runAllocate(cmd *cobra.Command, app *App, mode models.Mode) error {
	output := NewOutput(cmd)
	ctx, cancel := app.commandContext(cmd, 30*time.Second)
	defer cancel()

	fundsRaw, _ := cmd.Flags().GetString("funds")
	path, _ := cmd.Flags().GetString("file")
	pricesPath, _ := cmd.Flags().GetString("prices")
	saveName, _ := cmd.Flags().GetString("save")
	strict, _ := cmd.Flags().GetBool("strict")

	file, err := readDrafts(cmd, app, path)
	if err != nil {
		return err
	}

	var static map[string]float64
	if pricesPath != "" {
		static, err = readPrices(pricesPath)
		if err != nil {
			return err
		}
	}

	funds, ok := allocation.SafeNumber(fundsRaw)
	if !ok {
		funds = math.NaN()
	}

	req := allocation.Request{
		Mode:    mode,
		Funds:   funds,
		Rows:    file.Rows,
		Prices:  file.Prices,
		Options: allocationOptions(cmd, app),
	}

	pl := app.Planner(static)

	if saveName != "" {
		plan, err := pl.Save(ctx, saveName, req)
		if plan != nil {
			if renderErr := renderAllocation(output, plan.Result); renderErr != nil {
				return renderErr
			}
		}
		if err != nil {
			return err
		}
		if !output.IsJSON() {
			output.Println()
			output.Success("✓ Saved plan '%s' (%s)", plan.Name, plan.ID)
		}
		return nil
	}

	res, _, err := pl.Preview(ctx, req)
	if err != nil {
		return err
	}
	if err := renderAllocation(output, res); err != nil {
		return err
	}

	if strict && res.HasBlockingIssues() {
		return fmt.Errorf("%w: %d error(s)", apperrors.ErrBlockingIssues, len(res.Errors()))
	}
	return nil
}

// allocationOptions starts from the configured defaults and applies flags
// that were set explicitly.
func allocationOptions(cmd *cobra.Command, app *App) models.AllocationOptions {
	opts := app.Config.AllocationOptions()
	flags := cmd.Flags()
	if flags.Changed("min-qty") {
		opts.MinQtyPerRow, _ = flags.GetInt64("min-qty")
	}
	if flags.Changed("require-100") {
		opts.RequireWeightsSumTo100, _ = flags.GetBool("require-100")
	}
	if flags.Changed("no-optimize") {
		noOptimize, _ := flags.GetBool("no-optimize")
		opts.OptimizeWithRemainingFunds = !noOptimize
	}
	return opts
}

func readDrafts(cmd *cobra.Command, app *App, path string) (*drafts.File, error) {
	exchange := models.ParseExchange(strings.ToUpper(app.Config.Prices.DefaultExchange))
	if path == "-" {
		return drafts.ReadWithExchange(cmd.InOrStdin(), "stdin", exchange)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening drafts: %w", err)
	}
	defer f.Close()
	return drafts.ReadWithExchange(f, path, exchange)
}

func readPrices(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening prices: %w", err)
	}
	defer f.Close()
	return drafts.ReadPrices(f, path)
}

func renderAllocation(output *Output, res *models.AllocationResult) error {
	if output.IsJSON() {
		return output.JSON(res)
	}

	table := NewTable(output, "Symbol", "Exch", "Lock", targetHeader(res.Mode), "Price", "Qty", "Cost", "Actual", "Drift").
		AlignRight(3, 4, 5, 6, 7, 8)
	for _, row := range res.Rows {
		lock := ""
		if row.Locked {
			lock = "yes"
		}
		price := output.Red("missing")
		if row.Price != nil {
			price = utils.FormatIndianCurrency(*row.Price)
		}
		actual := output.DimText("-")
		if row.ActualPct != nil {
			actual = utils.FormatPercent(*row.ActualPct)
		}
		qty := utils.FormatQuantity(row.PlannedQty)
		if row.PlannedQty == 0 {
			qty = output.Yellow(qty)
		}
		table.AddRow(
			row.Symbol,
			string(row.Exchange),
			lock,
			targetCell(res.Mode, row),
			price,
			qty,
			utils.FormatIndianCurrency(row.PlannedCost),
			actual,
			output.Drift(row.DriftPct),
		)
	}
	table.Render()
	output.Println()

	renderTotals(output, res)
	renderIssues(output, res)
	return nil
}

func targetHeader(mode models.Mode) string {
	switch mode {
	case models.AmountDriven:
		return "Amount"
	case models.QtyDriven:
		return "Input Qty"
	default:
		return "Weight"
	}
}

func targetCell(mode models.Mode, row models.RowResult) string {
	switch mode {
	case models.AmountDriven:
		return utils.FormatIndianCurrency(row.AmountInr)
	case models.QtyDriven:
		return utils.FormatQuantity(row.Qty)
	default:
		return utils.FormatPercent(row.WeightPct)
	}
}

func renderTotals(output *Output, res *models.AllocationResult) {
	t := res.Totals
	output.Bold("Totals (%s mode)", res.Mode)
	output.Printf("  Funds:        %s (%s)\n", utils.FormatIndianCurrency(t.Funds), utils.FormatCompact(t.Funds))
	output.Printf("  Total Cost:   %s\n", utils.FormatIndianCurrency(t.TotalCost))
	output.Printf("  Remaining:    %s\n", utils.FormatIndianCurrency(t.Remaining))
	if res.Mode == models.WeightDriven {
		output.Printf("  Weight Sum:   %s (locked %s)\n",
			utils.FormatPercent(t.WeightSumPct), utils.FormatPercent(t.LockedWeightSumPct))
	}
	if t.MinFundsRequired != nil {
		output.Printf("  Min Funds:    %s\n", utils.FormatIndianCurrency(*t.MinFundsRequired))
	}
	if t.AdditionalFundsRequired > 0 {
		output.Printf("  Shortfall:    %s\n", output.Red(utils.FormatIndianCurrency(t.AdditionalFundsRequired)))
	}
	if t.MaxAbsDeviationPct != nil {
		output.Printf("  Max Drift:    %s\n", utils.FormatPercent(*t.MaxAbsDeviationPct))
	}
}

func renderIssues(output *Output, res *models.AllocationResult) {
	issues := append([]models.Issue(nil), res.Issues...)
	for _, row := range res.Rows {
		for _, issue := range row.Issues {
			if !issue.IsBlocking() {
				issues = append(issues, issue)
			}
		}
	}
	if len(issues) == 0 {
		return
	}

	output.Println()
	output.Bold("Issues")
	for _, issue := range issues {
		output.Printf("  %s\n", output.Issue(issue))
	}
}

// writeOrStdout opens path for writing, or returns the command's stdout when
// path is empty or "-".
func writeOrStdout(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}
