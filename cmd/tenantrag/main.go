// Command tenantrag is the entry point for the multi-tenant document QA
// service. It provides a CLI interface (via Cobra) and an HTTP server with
// a web UI for tenant chat and admin log review.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/tenantrag-go/cmd/tenantrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
