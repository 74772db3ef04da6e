package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/tenantrag-go/internal/chat"
	"github.com/54b3r/tenantrag-go/internal/embedder"
	"github.com/54b3r/tenantrag-go/internal/ingestion"
	"github.com/54b3r/tenantrag-go/internal/logging"
	"github.com/54b3r/tenantrag-go/internal/provider"
	"github.com/54b3r/tenantrag-go/internal/rag"
	"github.com/54b3r/tenantrag-go/internal/server"
	"github.com/54b3r/tenantrag-go/internal/tracing"
	"github.com/54b3r/tenantrag-go/internal/watcher"
)

// NewServeCmd constructs the `tenantrag serve` command, which starts the
// HTTP server, the web UI, and (optionally) the upload directory watcher.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tenantrag HTTP server and web UI",
		Long: `Start the tenantrag HTTP server.

The server exposes per-tenant chat and document upload endpoints, the admin
conversation log review API, health/readiness probes, Prometheus metrics,
and a web UI.

With --watch, files copied into a tenant's upload directory are indexed
automatically without calling the upload endpoint.

Examples:
  tenantrag serve
  tenantrag serve --port 9090 --watch
  MODEL_PROVIDER=azure tenantrag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting",
				slog.String("model_provider", getEnvOrDefault("MODEL_PROVIDER", "openai")),
				slog.String("embedding_provider", embedder.Backend()))

			// Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			providerCfg := provider.ConfigFromEnv()
			chatModel, err := provider.New(ctx, providerCfg)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			db, err := openDatabase(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = db.Close() }()

			vectorStore, err := openVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = vectorStore.Close() }()

			retriever, err := rag.NewTenantRetriever(emb, vectorStore, retrievalTopK(), log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			chatSvc, err := chat.NewService(retriever, chatModel, db, retrievalTopK(), log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			pipeline, err := ingestion.NewPipeline(newSplitterFromEnv(), emb, vectorStore, db, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			uploadDir := getEnvOrDefault("UPLOAD_DIR", "uploads")

			if v := os.Getenv("WATCH_UPLOADS"); v == "1" || strings.EqualFold(v, "true") {
				watch = true
			}
			if watch {
				tenants, err := db.ListTenants(ctx)
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				ids := make([]string, len(tenants))
				for i, t := range tenants {
					ids[i] = t.ID
				}
				w, err := watcher.New(pipeline, uploadDir, ids, log)
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				go func() {
					if err := w.Run(ctx); err != nil {
						log.Error("watcher stopped", slog.String("error", err.Error()))
					}
				}()
			}

			pingers := []server.Pinger{
				server.NewQdrantPinger(vectorStore.Client()),
				server.NewStorePinger(db),
				server.NewLLMPinger(chatModel, providerCfg.HealthCheck(), string(providerCfg.Backend)),
			}

			srv, err := server.New(chatSvc, pipeline, db, &server.Config{
				Host:      getEnvOrDefault("SERVER_HOST", host),
				Port:      getEnvInt("SERVER_PORT", port),
				UploadDir: uploadDir,
				Logger:    log,
				Pingers:   pingers,
				APIKey:    os.Getenv("TENANTRAG_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Watch tenant upload directories and index dropped files")

	return cmd
}
