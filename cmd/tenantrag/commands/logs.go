package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/tenantrag-go/internal/logging"
)

// NewLogsCmd constructs the `tenantrag logs` command, which prints recent
// conversation log entries for admin review.
func NewLogsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent conversation log entries",
		Long: `Show recent conversation log entries across all tenants, newest first.

Entries that an admin has marked as validated are prefixed with [ok];
unreviewed entries with [ ].

Examples:
  tenantrag logs
  tenantrag logs --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			db, err := openDatabase(ctx, log)
			if err != nil {
				return fmt.Errorf("logs: %w", err)
			}
			defer func() { _ = db.Close() }()

			entries, err := db.ListLogs(ctx, limit)
			if err != nil {
				return fmt.Errorf("logs: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversation logs recorded yet.")
				return nil
			}

			for _, e := range entries {
				mark := "[ ]"
				if e.Validated {
					mark = "[ok]"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s %s\n", mark, e.ID,
					e.Timestamp.Format("2006-01-02 15:04:05"), e.TenantName)
				fmt.Fprintf(cmd.OutOrStdout(), "  Q: %s\n", e.Question)
				fmt.Fprintf(cmd.OutOrStdout(), "  A: %s\n", e.Answer)
				if len(e.Citations) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  Sources: %s\n", strings.Join(e.Citations, "; "))
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of entries to show")

	return cmd
}
