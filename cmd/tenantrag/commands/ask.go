package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/tenantrag-go/internal/chat"
	"github.com/54b3r/tenantrag-go/internal/embedder"
	"github.com/54b3r/tenantrag-go/internal/logging"
	"github.com/54b3r/tenantrag-go/internal/provider"
	"github.com/54b3r/tenantrag-go/internal/rag"
)

// NewAskCmd constructs the `tenantrag ask` command, which answers a single
// question against a tenant's documents from the terminal.
func NewAskCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against a tenant's documents",
		Long: `Ask a question against a tenant's indexed documents.

The question is answered using only content retrieved from the tenant's
slice of the vector store. The exchange is recorded in the conversation
log like any chat request made through the HTTP API.

Examples:
  tenantrag ask --tenant tenantA "What is the refund policy?"
  tenantrag ask -t tenantB What does the onboarding checklist cover`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("ask: question is empty")
			}

			db, err := openDatabase(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = db.Close() }()

			exists, err := db.TenantExists(ctx, tenantID)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			if !exists {
				return fmt.Errorf("ask: unknown tenant %q", tenantID)
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			vectorStore, err := openVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = vectorStore.Close() }()

			retriever, err := rag.NewTenantRetriever(emb, vectorStore, retrievalTopK(), log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			svc, err := chat.NewService(retriever, chatModel, db, retrievalTopK(), log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			answer := svc.Ask(ctx, tenantID, question)

			fmt.Fprintln(cmd.OutOrStdout(), answer.Answer)
			if len(answer.Citations) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "Sources:")
				for _, c := range answer.Citations {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", c)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "Tenant ID to ask on behalf of (required)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
