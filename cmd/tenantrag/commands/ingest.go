package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/tenantrag-go/internal/embedder"
	"github.com/54b3r/tenantrag-go/internal/ingestion"
	"github.com/54b3r/tenantrag-go/internal/logging"
)

// NewIngestCmd constructs the `tenantrag ingest` command, which indexes
// local documents into a tenant's slice of the vector store without
// going through the HTTP API.
func NewIngestCmd() *cobra.Command {
	var tenantID string
	var files []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index local documents for a tenant",
		Long: `Index one or more local documents for a tenant.

Each file is loaded, split into chunks, embedded, and upserted into the
vector store tagged with the tenant's ID. Failures are reported per file;
a bad document does not stop the rest of the batch.

Examples:
  tenantrag ingest --tenant tenantA --file handbook.pdf
  tenantrag ingest --tenant tenantB --file report.docx --file notes.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			db, err := openDatabase(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = db.Close() }()

			exists, err := db.TenantExists(ctx, tenantID)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if !exists {
				return fmt.Errorf("ingest: unknown tenant %q", tenantID)
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			vectorStore, err := openVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = vectorStore.Close() }()

			pipeline, err := ingestion.NewPipeline(newSplitterFromEnv(), emb, vectorStore, db, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			results := pipeline.IngestFiles(ctx, tenantID, files)

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %v\n", res.Path, res.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK    %s: %d chunks\n", res.Path, res.Chunks)
			}
			log.Info("ingest finished",
				slog.String("tenant_id", tenantID),
				slog.Int("files", len(results)),
				slog.Int("failed", failed))

			if failed == len(results) && len(results) > 0 {
				return fmt.Errorf("ingest: all %d file(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "Tenant ID to index documents for (required)")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Document to index; repeatable (required)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
