package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/lexygraph/docflow/internal/config"
	"github.com/lexygraph/docflow/internal/core/domain"
	"github.com/lexygraph/docflow/internal/core/ports"
	"github.com/lexygraph/docflow/internal/core/usecase"
	"github.com/lexygraph/docflow/internal/infrastructure/agent"
	"github.com/lexygraph/docflow/internal/infrastructure/identity/statictoken"
	"github.com/lexygraph/docflow/internal/infrastructure/probe"
	"github.com/lexygraph/docflow/internal/infrastructure/queue/nats"
	"github.com/lexygraph/docflow/internal/infrastructure/repository/postgres"
	"github.com/lexygraph/docflow/internal/infrastructure/resilience"
	"github.com/lexygraph/docflow/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Store   *postgres.DocumentRepository
	Storage *localfs.Storage
	Queue   *nats.StageQueue

	Ingestor ports.DocumentIngestor
	Reader   ports.DocumentReader
	Manager  ports.DocumentManager
	Signaler ports.PipelineSignaler
	Agents   ports.AgentRouter
	Verifier ports.IdentityVerifier

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewDocumentRepository(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath, cfg.StoragePublicBase, []byte(cfg.StorageSigningKey))
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queueExecutor := resilience.NewExecutor(resilience.Config{
		MaxRetries:     cfg.EnqueueMaxRetries,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
	})
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectPrefix, nats.Options{
		ResilienceExecutor: queueExecutor,
	})
	if err != nil {
		return nil, fmt.Errorf("init stage queue: %w", err)
	}

	routeExecutor := resilience.NewExecutor(resilience.Config{
		MaxRetries:     cfg.RouteRetryCount,
		InitialBackoff: time.Duration(cfg.RouteRetryBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.RouteRetryBackoffMs) * time.Millisecond,
		Multiplier:     1.0,
	})
	caller := agent.New(time.Duration(cfg.RouteTimeoutMs)*time.Millisecond, routeExecutor)

	verifier, err := statictoken.New(cfg.AuthTokenPairs())
	if err != nil {
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	prober := probe.New(storage)

	ingestor := usecase.NewSubmitDocumentUseCase(store, storage, queue, prober)
	reader := usecase.NewDocumentReadUseCase(store)
	manager := usecase.NewManageDocumentUseCase(store, storage,
		time.Duration(cfg.PresignTTLMinutes)*time.Minute)
	signaler := usecase.NewPipelineSignalUseCase(store)
	agents := usecase.NewRouteAgentUseCase(agentEndpoints(cfg), caller)

	return &App{
		Config: cfg,

		Store:   store,
		Storage: storage,
		Queue:   queue,

		Ingestor: ingestor,
		Reader:   reader,
		Manager:  manager,
		Signaler: signaler,
		Agents:   agents,
		Verifier: verifier,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func agentEndpoints(cfg config.Config) map[domain.AgentTarget]string {
	return map[domain.AgentTarget]string{
		domain.TargetExtractionAgent: cfg.AgentExtractionURL + "/api/v1/agents/extract",
		domain.TargetSearchAgent:     cfg.AgentSearchURL + "/api/v1/search",
		domain.TargetGenerationAgent: cfg.AgentGenerationURL + "/api/v1/agents/process",
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
