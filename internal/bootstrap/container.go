package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-textassist-be/internal/config"
	"ai-textassist-be/internal/controller"
	"ai-textassist-be/internal/pkg/logger"
	"ai-textassist-be/internal/pkg/serverutils"
	"ai-textassist-be/internal/repository/unitofwork"
	"ai-textassist-be/internal/service"
	"ai-textassist-be/pkg/appstore"
	"ai-textassist-be/pkg/events"
	"ai-textassist-be/pkg/llm/factory"
	pktNats "ai-textassist-be/pkg/nats"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController         controller.IAuthController
	ActionController       controller.IActionController
	SubscriptionController controller.ISubscriptionController
	HistoryController      controller.IHistoryController
	AdminController        controller.IAdminController

	// Background services, run by main.go
	ModelSelector service.ModelSelector
	AuditService  *service.AuditService

	// Entitlements fills remaining_actions into authenticated error responses.
	Entitlements service.EntitlementService

	Logger   logger.ILogger
	Registry *prometheus.Registry

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.New(logger.Options{
		FilePath:   cfg.App.LogFilePath,
		Level:      cfg.App.LogLevel,
		Production: cfg.App.Environment == "production",
		Console:    true,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(registry)

	c := &Container{Logger: sysLogger, Registry: registry}

	// 2. Infrastructure
	// NATS
	var publisher events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		publisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.AuditService = service.NewAuditService(natsSub, metrics, logger.NewIsolatedLogger("logs/audit.log"))
		c.closers = append(c.closers, natsSub.Close)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	// AI provider
	llmProvider, err := factory.NewLLMProvider(context.Background(), factory.Options{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.ModelFree,
		OpenAIKey:     cfg.Ai.OpenAIKey,
		OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
		GeminiKey:     cfg.Ai.GeminiKey,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init LLM provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (free: %s, paid: %s)", cfg.Ai.LLMProvider, cfg.Ai.ModelFree, cfg.Ai.ModelPaid)

	// Store verification
	verifier, err := newVerifier(cfg.AppStore)
	if err != nil {
		return nil, fmt.Errorf("init App Store verifier: %w", err)
	}

	// 3. Services
	entitlementService := service.NewEntitlementService(uowFactory, cfg.Quota.Location())
	modelSelector := service.NewModelSelector(
		uowFactory,
		rdb,
		publisher,
		service.ModelDefaults{Free: cfg.Ai.ModelFree, Paid: cfg.Ai.ModelPaid},
		cfg.Ai.ModelCacheTTL,
		sysLogger,
	)
	gateway := service.NewActionGateway(uowFactory, entitlementService, modelSelector, llmProvider, publisher, metrics, sysLogger, cfg.Ai.Timeout)
	subscriptionService := service.NewSubscriptionService(uowFactory, verifier, entitlementService, publisher, metrics, sysLogger)
	authService := service.NewAuthService(uowFactory, entitlementService, publisher, sysLogger, cfg.Auth.JwtSecret, cfg.Auth.TokenExpiry)
	historyService := service.NewHistoryService(uowFactory)

	c.ModelSelector = modelSelector
	c.Entitlements = entitlementService

	// 4. Controllers
	jwtMiddleware := serverutils.NewJwtMiddleware(cfg.Auth.JwtSecret)
	c.AuthController = controller.NewAuthController(authService, jwtMiddleware)
	c.ActionController = controller.NewActionController(gateway, jwtMiddleware)
	c.SubscriptionController = controller.NewSubscriptionController(subscriptionService, jwtMiddleware)
	c.HistoryController = controller.NewHistoryController(historyService, entitlementService, jwtMiddleware)
	c.AdminController = controller.NewAdminController(modelSelector, entitlementService, jwtMiddleware)

	return c, nil
}

func newVerifier(cfg config.AppStoreConfig) (appstore.Verifier, error) {
	if cfg.VerifyMode == "trusting" {
		log.Printf("[WARN] App Store verification is in trusting mode; do not use in production")
		return appstore.NewTrustingVerifier(), nil
	}

	apiCfg := appstore.ServerAPIConfig{
		BaseURL:    appstore.ProductionBaseURL,
		IssuerID:   cfg.IssuerID,
		KeyID:      cfg.KeyID,
		BundleID:   cfg.BundleID,
		PrivateKey: []byte(strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")),
	}
	if strings.EqualFold(cfg.Environment, "sandbox") {
		apiCfg.BaseURL = appstore.SandboxBaseURL
	}
	if cfg.RootCAPath != "" {
		pool, err := appstore.LoadRootCAs(cfg.RootCAPath)
		if err != nil {
			return nil, err
		}
		apiCfg.RootCAs = pool
	}
	return appstore.NewServerAPIVerifier(apiCfg)
}

// Close releases broker and cache connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
