package app

import (
	"fmt"

	"github.com/dagra27407/spinalith-site-sub000/internal/clients/llm"
	"github.com/dagra27407/spinalith-site-sub000/internal/jobs/router"
	"github.com/dagra27407/spinalith-site-sub000/internal/jobs/sweeper"
	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
	"github.com/dagra27407/spinalith-site-sub000/internal/temporalx/stagerun"
	"github.com/dagra27407/spinalith-site-sub000/internal/temporalx/temporalworker"
)

type Services struct {
	Registry *assistant.Registry
	Recorder *assistant.AsyncRecorder
	Store    *assistant.Store

	Auth     services.AuthService
	Stages   services.StageService
	Requests services.RequestService
	Projects services.ProjectService

	Invoker        services.StageInvoker
	HTTPInvoker    *router.HTTPInvoker
	TemporalWorker *temporalworker.Runner
	Sweeper        *sweeper.Sweeper
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	registry, err := assistant.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		return Services{}, fmt.Errorf("load assistant registry: %w", err)
	}

	recorder := assistant.NewAsyncRecorder(log, repos.ActivityLog, cfg.RecorderQueue)

	var publisher assistant.StatusPublisher = assistant.NopPublisher{}
	if clients.StatusBus != nil {
		publisher = clients.StatusBus
	}
	store := assistant.NewStore(log, repos.ControlRecord, recorder, publisher)

	llmClient := llm.NewClient(log, llm.Config{Timeout: cfg.ProviderTimeout}, nil, recorder)
	dispatcher := assistant.NewDispatcher(assistant.DispatcherDeps{
		Log:      log,
		Mappings: repos.PhaseMapping,
		Configs:  repos.AssistantConfig,
		LLM:      llmClient,
		Creds: llm.Credentials{
			llm.ProviderOpenAI:    cfg.OpenAIAPIKey,
			llm.ProviderAzure:     cfg.AzureAPIKey,
			llm.ProviderAnthropic: cfg.AnthropicAPIKey,
		},
		Registry: registry,
		Recorder: recorder,
		LogicKey: cfg.LogicKey,
	})
	poller := assistant.NewPoller(log, dispatcher, store, cfg.Poll)
	batch := assistant.NewBatchEngine(log, store, repos.AssistantConfig, registry, recorder)
	uc := assistant.New(assistant.UsecasesDeps{
		Log:      log,
		Store:    store,
		Exec:     dispatcher,
		Poller:   poller,
		Batch:    batch,
		Recorder: recorder,
	})

	auth := services.NewAuthService(log, cfg.JWTSecretKey, cfg.ServiceTokenTTL)

	// parse-response always leaves the service over HTTP; pipeline stages go
	// through the configured router.
	httpInvoker := router.NewHTTPInvoker(log, nil, router.HTTPConfig{
		BaseURL:          cfg.StageBaseURL,
		ParseResponseURL: cfg.ParseResponseURL,
		Timeout:          cfg.RouterTimeout,
	})
	var stageInvoker services.StageInvoker = httpInvoker
	if cfg.RouterMode == RouterModeTemporal {
		inv, err := stagerun.NewInvoker(log, clients.Temporal, cfg.Temporal.TaskQueue)
		if err != nil {
			recorder.Close()
			return Services{}, fmt.Errorf("init temporal stage router: %w", err)
		}
		stageInvoker = inv
	}
	invoker := router.Split{Stages: stageInvoker, Parse: httpInvoker}

	stages := services.NewStageService(log, store, uc, invoker)
	assembler := services.NewPayloadAssembler(log, repos.Project, repos.PayloadMap, repos.AssistantConfig)
	requests := services.NewRequestService(log, repos.ControlRecord, registry, assembler, invoker)
	projects := services.NewProjectService(log, repos.Project, repos.PayloadMap)

	var worker *temporalworker.Runner
	if cfg.RouterMode == RouterModeTemporal && cfg.RunWorker {
		w, err := temporalworker.NewRunner(log, cfg.Temporal, clients.Temporal, stages, auth)
		if err != nil {
			recorder.Close()
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		worker = w
	}

	var sw *sweeper.Sweeper
	if cfg.SweeperEnabled {
		sw = sweeper.New(log, repos.ControlRecord, invoker, auth, cfg.Sweeper)
	}

	return Services{
		Registry:       registry,
		Recorder:       recorder,
		Store:          store,
		Auth:           auth,
		Stages:         stages,
		Requests:       requests,
		Projects:       projects,
		Invoker:        invoker,
		HTTPInvoker:    httpInvoker,
		TemporalWorker: worker,
		Sweeper:        sw,
	}, nil
}
