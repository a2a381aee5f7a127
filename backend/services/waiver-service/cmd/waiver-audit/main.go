package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/app"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// errGapsFound makes the process exit non-zero without printing usage.
var errGapsFound = errors.New("signed waivers with missing snapshots found")

func main() {
	utils.InitLogger("waiver-audit")
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "waiver-audit",
		Short:         "Integrity checks for signed waivers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(snapshotsCmd())
	return root
}

func snapshotsCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List signed waivers whose customer or minors snapshot is NULL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			a, err := app.NewApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			repo := repositories.NewWaiverRepository(a.DB, cfg.DBEncryptionKey)
			gaps, err := repo.ListSnapshotGaps(ctx)
			if err != nil {
				utils.Logger.WithError(err).Error("Snapshot audit query failed")
				return err
			}
			return reportGaps(cmd.OutOrStdout(), gaps)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "query timeout")
	return cmd
}

func reportGaps(out io.Writer, gaps []*repositories.SnapshotGap) error {
	if len(gaps) == 0 {
		fmt.Fprintln(out, "OK: every signed waiver has its snapshots")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WAIVER\tCUSTOMER\tSIGNED AT\tACTIVE MINORS\tMISSING")
	for _, g := range gaps {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n",
			g.WaiverID, g.CustomerID, g.SignedAt.UTC().Format(time.RFC3339),
			g.ActiveMinors, strings.Join(g.MissingParts, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	utils.Logger.WithField("count", len(gaps)).Warn("Signed waivers missing snapshots")
	return errGapsFound
}
