package bootstrap

import (
	"context"
	"log"
	"time"

	"prompt-optimiser-be/internal/config"
	"prompt-optimiser-be/internal/controller"
	"prompt-optimiser-be/internal/handler"
	"prompt-optimiser-be/internal/pkg/logger"
	"prompt-optimiser-be/internal/repository/memory"
	"prompt-optimiser-be/internal/service"
	"prompt-optimiser-be/internal/websocket"
	"prompt-optimiser-be/pkg/llm/factory"
	pktNats "prompt-optimiser-be/pkg/nats"
	"prompt-optimiser-be/pkg/optimiser/orchestrator"
	"prompt-optimiser-be/pkg/ratelimit"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const SessionTopic = "session.changed"

type Container struct {
	Logger logger.ILogger

	SessionRepository *memory.SessionRepository
	Hub               *websocket.Hub

	ConsumerService service.IConsumerService
	AuditService    service.IAuditService

	OptimiseController   controller.IOptimiseController
	SessionController    controller.ISessionController
	SessionStreamHandler *handler.SessionStreamHandler

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)

	// 3. Model provider
	var apiKey, baseURL string
	switch cfg.Ai.LLMProvider {
	case "anthropic":
		apiKey, baseURL = cfg.Keys.Anthropic, cfg.Ai.AnthropicBaseURL
	case "huggingface":
		apiKey, baseURL = cfg.Keys.HuggingFace, cfg.Ai.HuggingFaceURL
	case "ollama":
		baseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  baseURL,
		APIKey:   apiKey,
	})
	if err != nil {
		// requests fail as misconfigured instead of taking the process down
		sysLogger.Error("BOOTSTRAP", "Failed to initialize LLM provider", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "error": err.Error()})
	} else {
		sysLogger.Info("BOOTSTRAP", "Using LLM provider", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})
	}

	c := &Container{Logger: sysLogger}

	// 4. Infrastructure (optional)
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.EventsEnabled {
		if natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL); err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		} else {
			c.closers = append(c.closers, natsPub.Close)
		}
		if natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL); err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			natsSub = nil
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis, session fanout stays local: %v", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
		cancel()
	}

	// 5. Core components
	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.Capacity, cfg.RateLimit.Window)
	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(sysLogger),
		orchestrator.WithTimeout(cfg.Ai.Timeout),
		orchestrator.WithThrottle(rate.NewLimiter(rate.Limit(cfg.Ai.UpstreamRPS), cfg.Ai.UpstreamBurst)),
	}
	if natsPub != nil {
		orchOpts = append(orchOpts, orchestrator.WithPublisher(natsPub))
	}
	orch := orchestrator.New(llmProvider, limiter, orchOpts...)

	c.SessionRepository = memory.NewSessionRepository(cfg.Session.TTL)

	wsLogger := logger.NewIsolatedLogger(cfg.App.StreamLogFilePath)
	c.Hub = websocket.NewHub(rdb, wsLogger)

	// 6. Services
	publisherService := service.NewPublisherService(SessionTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, SessionTopic, c.Hub, sysLogger)
	c.AuditService = service.NewAuditService(natsSub, sysLogger)

	optimiseService := service.NewOptimiseService(orch)
	sessionService := service.NewSessionService(c.SessionRepository, orch, publisherService, cfg.Session.Debounce, sysLogger)

	// 7. Controllers
	c.OptimiseController = controller.NewOptimiseController(optimiseService)
	c.SessionController = controller.NewSessionController(sessionService)
	c.SessionStreamHandler = handler.NewSessionStreamHandler(sessionService, c.Hub, wsLogger)

	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	return c
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
