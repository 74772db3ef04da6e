package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/tenantrag-go/internal/provider"
)

// LLMPinger probes the chat model backend. When the provider exposes a
// zero-cost HTTP health endpoint it is used exclusively; otherwise the
// probe falls back to a minimal Generate call, which consumes tokens.
type LLMPinger struct {
	// model is the chat model used by the Generate fallback.
	model model.ToolCallingChatModel
	// healthCheck holds the zero-cost probe URL, if the backend has one.
	healthCheck provider.HealthCheckConfig
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
	// client performs the HTTP health probe.
	client *http.Client
}

// NewLLMPinger constructs an LLMPinger for the given model and backend name.
func NewLLMPinger(m model.ToolCallingChatModel, hc provider.HealthCheckConfig, name string) *LLMPinger {
	return &LLMPinger{model: m, healthCheck: hc, name: name, client: http.DefaultClient}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping probes the LLM backend for readiness.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if p.healthCheck.URL != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthCheck.URL, nil)
		if err != nil {
			return fmt.Errorf("building health request: %w", err)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health check returned %d", resp.StatusCode)
		}
		return nil
	}

	// Fallback for hosted backends without a free liveness endpoint.
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// databasePinger is the subset of the relational store the probe needs.
type databasePinger interface {
	Ping(ctx context.Context) error
}

// StorePinger probes the SQLite store backing the tenant registry and
// conversation log.
type StorePinger struct {
	db databasePinger
}

// NewStorePinger constructs a StorePinger for the given store.
func NewStorePinger(db databasePinger) *StorePinger {
	return &StorePinger{db: db}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return "sqlite" }

// Ping checks the database connection.
func (p *StorePinger) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}
