package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"zerodha-allocator/internal/allocation"
	"zerodha-allocator/internal/drafts"
	"zerodha-allocator/internal/models"
	"zerodha-allocator/pkg/utils"
)

type normalizeFunc func([]models.RowDraft, ...allocation.NormalizeOption) []models.RowDraft

func newNormalizeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Redistribute a drafts column across unlocked rows",
		Long: `Rewrite one column of a drafts CSV. Locked rows are never changed.

  clear         zero the column on unlocked rows
  equalize      split what locked rows leave of the target evenly
  proportional  scale unlocked rows so the column sums to the target

The target defaults to 100 for weights and to 0 for amounts and quantities.`,
		Example: `  allocator normalize proportional --file core.csv --out core.csv
  allocator normalize equalize --file sip.csv --field amount --target 50000`,
	}

	flags := cmd.PersistentFlags()
	flags.StringP("file", "f", "", "drafts CSV (- for stdin)")
	flags.String("field", "weight", "column to rewrite: weight, amount or qty")
	flags.Int("decimals", -1, "rounding precision (default from config; qty always 0)")
	flags.Float64("target", 0, "total the column should sum to")
	flags.StringP("out", "o", "", "write the CSV here instead of stdout")
	cmd.MarkPersistentFlagRequired("file")

	add := func(use, short string, fn normalizeFunc) {
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runNormalize(cmd, app, fn)
			},
		})
	}
	add("clear", "Zero the column on unlocked rows", allocation.ClearUnlocked)
	add("equalize", "Split the remainder evenly across unlocked rows", allocation.EqualizeUnlocked)
	add("proportional", "Scale unlocked rows to reach the target", allocation.NormalizeUnlocked)

	return cmd
}

func runNormalize(cmd *cobra.Command, app *App, fn normalizeFunc) error {
	output := NewOutput(cmd)

	path, _ := cmd.Flags().GetString("file")
	fieldName, _ := cmd.Flags().GetString("field")
	decimals, _ := cmd.Flags().GetInt("decimals")
	outPath, _ := cmd.Flags().GetString("out")

	field, ok := allocation.ParseField(fieldName)
	if !ok {
		return fmt.Errorf("unknown field %q (must be weight, amount or qty)", fieldName)
	}
	if decimals < 0 {
		decimals = app.Config.Allocation.Decimals
	}

	opts := []allocation.NormalizeOption{
		allocation.WithField(field),
		allocation.WithDecimals(decimals),
	}
	if cmd.Flags().Changed("target") {
		target, _ := cmd.Flags().GetFloat64("target")
		opts = append(opts, allocation.WithTargetTotal(target))
	}

	file, err := readDrafts(cmd, app, path)
	if err != nil {
		return err
	}
	rows := fn(file.Rows, opts...)

	app.Logger.Debug().
		Str("field", string(field)).
		Int("rows", len(rows)).
		Int("decimals", decimals).
		Msg("Drafts normalized")

	if output.IsJSON() {
		return output.JSON(rows)
	}

	w, closeFn, err := writeOrStdout(cmd, outPath)
	if err != nil {
		return err
	}
	if err := drafts.Write(w, rows, file.Prices); err != nil {
		closeFn()
		return fmt.Errorf("writing drafts: %w", err)
	}
	if err := closeFn(); err != nil {
		return err
	}

	if outPath != "" && outPath != "-" {
		output.Success("✓ Wrote %d rows to %s (sum %s)", len(rows), outPath, columnSum(field, rows))
	}
	return nil
}

func columnSum(field allocation.Field, rows []models.RowDraft) string {
	var sum float64
	for _, r := range rows {
		switch field {
		case allocation.FieldAmountInr:
			sum += r.AmountInr
		case allocation.FieldQty:
			sum += float64(r.Qty)
		default:
			sum += r.WeightPct
		}
	}
	switch field {
	case allocation.FieldAmountInr:
		return utils.FormatIndianCurrency(sum)
	case allocation.FieldQty:
		return utils.FormatQuantity(int64(sum))
	default:
		return utils.FormatPercent(sum)
	}
}
