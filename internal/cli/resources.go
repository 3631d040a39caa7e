package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"drivepower/console/internal/app"
)

func newStationsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List charging stations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				a.Manager().EnsureFreshToken(ctx, a.Config().RefreshLeeway())
				st := a.Stations().Fetch(ctx)
				if st.Error != "" {
					return errors.New(st.Error)
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), st.Data)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCHARGE POINT\tNAME\tLOCATION\tSTATUS\tCONNECTORS")
				for _, s := range st.Data {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", s.ID, s.ChargePointID, s.Name, s.Location, s.Status, len(s.Connectors))
				}
				return tw.Flush()
			})
		},
	}
}

func newTransactionsCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List recent transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				a.Manager().EnsureFreshToken(ctx, a.Config().RefreshLeeway())
				st := a.Transactions(limit).Fetch(ctx)
				if st.Error != "" {
					return errors.New(st.Error)
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), st.Data)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATION\tCONNECTOR\tSTATUS\tSTARTED\tAMOUNT\tENERGY")
				for _, t := range st.Data {
					energy := "-"
					if t.Energy != nil {
						energy = fmt.Sprintf("%.2f", *t.Energy)
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%.2f\t%s\n",
						t.ID, t.StationID, t.ConnectorID, t.Status, t.StartTime.Format("2006-01-02 15:04"), t.Amount, energy)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of transactions (defaults to config)")
	return cmd
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the transaction summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				a.Manager().EnsureFreshToken(ctx, a.Config().RefreshLeeway())
				st := a.TransactionStats().Fetch(ctx)
				if st.Error != "" {
					return errors.New(st.Error)
				}
				if opts.jsonOutput {
					return printJSON(cmd.OutOrStdout(), st.Data)
				}
				if st.Data == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No statistics available")
					return nil
				}
				s := st.Data
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Transactions\t%d\n", s.TotalTransactions)
				fmt.Fprintf(tw, "Completed\t%d\n", s.CompletedTransactions)
				fmt.Fprintf(tw, "Total energy\t%.1f kWh\n", s.TotalEnergy)
				fmt.Fprintf(tw, "Total revenue\t%.2f\n", s.TotalRevenue)
				fmt.Fprintf(tw, "Average cost\t%.2f\n", s.AverageTransactionCost)
				fmt.Fprintf(tw, "Average energy\t%.1f kWh\n", s.AverageEnergy)
				fmt.Fprintf(tw, "Average duration\t%.0f\n", s.AverageDuration)
				return tw.Flush()
			})
		},
	}
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				err := a.Serve(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}
