package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/tenantrag-go/internal/version"
)

// NewVersionCmd constructs the `tenantrag version` command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tenantrag %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.BuildDate)
		},
	}
}
