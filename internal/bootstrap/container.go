package bootstrap

import (
	"context"
	"log"

	"derm-triage-be/internal/config"
	"derm-triage-be/internal/controller"
	"derm-triage-be/internal/handler"
	"derm-triage-be/internal/pkg/logger"
	"derm-triage-be/internal/repository/contract"
	"derm-triage-be/internal/repository/implementation"
	"derm-triage-be/internal/repository/memory"
	"derm-triage-be/internal/service"
	"derm-triage-be/internal/websocket"
	"derm-triage-be/pkg/embedding"
	"derm-triage-be/pkg/llm/factory"
	"derm-triage-be/pkg/retrieval"
	"derm-triage-be/pkg/triage/escalation"
	"derm-triage-be/pkg/triage/note"
	"derm-triage-be/pkg/triage/state"
	"derm-triage-be/pkg/vectorindex"

	pktNats "derm-triage-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	TriageController controller.ITriageController

	// Nil when no database is configured; the archive routes are skipped.
	CaseController controller.ICaseController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Alerts
	AlertHandler *handler.AlertHandler
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OpenAIAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Session Storage
	sessionRepo := memory.NewSessionRepository(cfg.Triage.SessionTTL, cfg.Triage.SessionPurge)

	// 5. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/alerts.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 6. Retrieval Pipeline
	index, err := vectorindex.New(cfg.Retrieval.Dimension)
	if err != nil {
		log.Fatalf("[FATAL] Failed to create vector index: %v", err)
	}
	retrievalCache := retrieval.NewCache(cfg.Retrieval.CacheTTL, cfg.Retrieval.CachePurge)
	retriever := retrieval.NewRetriever(index, retrievalCache)

	// Persistence is optional; everything runs from memory without a DB.
	var caseRepo contract.CaseRecordRepository
	var referenceRepo contract.ReferenceCaseRepository
	if db != nil {
		caseRepo = implementation.NewCaseRecordRepository(db)
		referenceRepo = implementation.NewReferenceCaseRepository(db)
	}

	corpusService := service.NewCorpusService(index, referenceRepo, cfg.Retrieval.CorpusPath, sysLogger)
	if count, err := corpusService.Load(context.Background()); err != nil {
		log.Printf("[WARN] Failed to load reference corpus: %v", err)
	} else {
		log.Printf("[INFO] Reference corpus ready (%d records)", count)
	}

	// 7. Triage Core
	rules, err := escalation.LoadRules(cfg.Triage.RulesPath)
	if err != nil {
		log.Printf("[WARN] Failed to load escalation rules from %s: %v. Using builtin rules", cfg.Triage.RulesPath, err)
		rules = escalation.DefaultRules()
	}
	evaluator := escalation.NewEvaluator(rules)
	log.Printf("[INFO] Escalation rules loaded (version %s)", evaluator.Version())

	stageManager := state.NewManager(log.Default())
	assembler := note.NewAssembler()

	publisherService := service.NewPublisherService(pubSub, cfg.Retrieval.EmbedCaseTopic)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Retrieval.EmbedCaseTopic,
		index,
		embeddingProvider,
		referenceRepo,
	)

	// Avoid wrapping a nil pointer in a non-nil interface.
	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	triageService := service.NewTriageService(
		sessionRepo,
		stageManager,
		evaluator,
		retriever,
		assembler,
		embeddingProvider,
		llmProvider,
		caseRepo,
		eventPublisher,
		publisherService,
		sysLogger,
		cfg,
	)

	// 8. Alert Worker
	if natsSub != nil {
		alertService := service.NewAlertService(natsSub, wsHub, wsLogger)
		if err := alertService.Start(); err != nil {
			log.Printf("[WARN] Failed to start alert worker: %v", err)
		}
	}

	alertHandler := handler.NewAlertHandler(wsHub, wsLogger)

	var caseController controller.ICaseController
	if caseRepo != nil {
		caseController = controller.NewCaseController(service.NewCaseService(caseRepo, sysLogger))
	}

	return &Container{
		TriageController: controller.NewTriageController(triageService),
		CaseController:   caseController,
		ConsumerService:  consumerService,
		AlertHandler:     alertHandler,
		WebSocketHub:     wsHub,
	}
}
