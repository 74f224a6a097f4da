package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"zerodha-allocator/pkg/utils"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Saved allocation plans",
		Long:  "List, show, recompute and delete plans saved with 'allocate --save'.",
	}

	cmd.AddCommand(newPlanListCmd(app))
	cmd.AddCommand(newPlanShowCmd(app))
	cmd.AddCommand(newPlanDeleteCmd(app))

	return cmd
}

func newPlanListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := app.commandContext(cmd, 10*time.Second)
			defer cancel()

			limit, _ := cmd.Flags().GetInt("limit")
			plans, err := app.Planner(nil).List(ctx, limit)
			if err != nil {
				return fmt.Errorf("listing plans: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(plans)
			}
			if len(plans) == 0 {
				output.Dim("No saved plans")
				return nil
			}

			table := NewTable(output, "Name", "Mode", "Rows", "Funds", "Cost", "Created", "ID").AlignRight(2, 3, 4)
			for _, p := range plans {
				table.AddRow(
					p.Name,
					string(p.Mode),
					fmt.Sprintf("%d", p.Rows),
					utils.FormatIndianCurrency(p.Funds),
					utils.FormatIndianCurrency(p.TotalCost),
					p.CreatedAt.Local().Format("2006-01-02 15:04"),
					output.DimText(p.ID),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "maximum plans to list (0 for all)")
	return cmd
}

func newPlanShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show a saved plan",
		Long: `Show a saved plan. With --refresh, prices are resolved again and the
allocation is recomputed with the stored funds and options. The stored plan
is not modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := app.commandContext(cmd, 30*time.Second)
			defer cancel()

			refresh, _ := cmd.Flags().GetBool("refresh")
			pl := app.Planner(nil)

			get := pl.Get
			if refresh {
				get = pl.Recompute
			}
			plan, err := get(ctx, args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(plan)
			}
			output.Bold("%s", plan.Name)
			output.Dim("%s  saved %s", plan.ID, plan.CreatedAt.Local().Format("2006-01-02 15:04"))
			if refresh {
				output.Info("Recomputed with current prices")
			}
			output.Println()
			if plan.Result == nil {
				output.Warning("Plan has no stored result; use --refresh")
				return nil
			}
			return renderAllocation(output, plan.Result)
		},
	}
	cmd.Flags().Bool("refresh", false, "re-resolve prices and recompute")
	return cmd
}

func newPlanDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a saved plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := app.commandContext(cmd, 10*time.Second)
			defer cancel()

			if err := app.Planner(nil).Delete(ctx, args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Deleted plan %s", args[0])
			return nil
		},
	}
}
