package di

import (
	"context"
	"fmt"

	"github.com/anasy333/krishisat-gateway/internal/audit"
	"github.com/anasy333/krishisat-gateway/internal/handler"
	"github.com/anasy333/krishisat-gateway/internal/login"
	"github.com/anasy333/krishisat-gateway/internal/session"
	"github.com/anasy333/krishisat-gateway/internal/upstream"
	"github.com/anasy333/krishisat-gateway/pkg/config"
	"github.com/anasy333/krishisat-gateway/pkg/database"
	"github.com/anasy333/krishisat-gateway/pkg/logger"
	"github.com/anasy333/krishisat-gateway/pkg/redis"
)

// Container holds all dependencies for the gateway
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Session
	Box   session.Box
	Store *session.Store

	// Upstream
	AuthGateway upstream.AuthGateway
	DataClient  *upstream.DataClient

	// Domain
	Flow      *login.Flow
	Publisher audit.Publisher

	// Handlers
	HealthHandler    *handler.HealthHandler
	AuthHandler      *handler.AuthHandler
	DashboardHandler *handler.DashboardHandler
	ContentHandler   *handler.ContentHandler
}

// ContainerConfig contains configuration for building the container.
// DB and Redis are only required for the matching session backend.
type ContainerConfig struct {
	Config *config.Config
	DB     *database.PostgresDB
	Redis  *redis.Client
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *ContainerConfig) (*Container, error) {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}
	conf := cfg.Config
	log := logger.Get()

	// Session box per configured backend
	var health handler.HealthChecker
	switch conf.Session.Backend {
	case config.BackendRedis:
		if c.Redis == nil {
			return nil, fmt.Errorf("session backend %q requires a redis connection", conf.Session.Backend)
		}
		box := session.NewRedisBox(c.Redis)
		c.Box, health = box, box
	case config.BackendPostgres:
		if c.DB == nil {
			return nil, fmt.Errorf("session backend %q requires a postgres connection", conf.Session.Backend)
		}
		box := session.NewPostgresBox(c.DB)
		if err := box.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure session schema: %w", err)
		}
		c.Box, health = box, box
	case config.BackendMemory:
		box := session.NewMemoryBox()
		c.Box, health = box, box
	default:
		return nil, fmt.Errorf("unknown session backend %q", conf.Session.Backend)
	}
	c.Store = session.NewStore(c.Box, conf.Session.TTL)

	// Upstream gateways
	upstreamCfg := &upstream.Config{
		BaseURL: conf.Upstream.BaseURL,
		Timeout: conf.Upstream.Timeout,
	}
	if conf.Upstream.MockAuth {
		c.AuthGateway = upstream.NewMockGateway(&upstream.MockConfig{
			JWTSecret: conf.MockAuth.JWTSecret,
			TokenTTL:  conf.MockAuth.TokenTTL,
			Issuer:    conf.MockAuth.Issuer,
			OTPTTL:    conf.MockAuth.OTPTTL,
		})
	} else {
		c.AuthGateway = upstream.NewHTTPGateway(upstreamCfg)
	}
	c.DataClient = upstream.NewDataClient(upstreamCfg)

	c.Flow = login.NewFlow(c.AuthGateway, conf.Login.AttemptTTL)

	// Audit publisher; a broker outage must not block startup
	if conf.Kafka.Enabled {
		publisher, err := audit.NewKafkaPublisher(ctx, &audit.KafkaConfig{
			Brokers:  conf.Kafka.Brokers,
			Topic:    conf.Kafka.Topic,
			ClientID: conf.Kafka.ClientID,
		})
		if err != nil {
			log.Warn(fmt.Sprintf("Audit publisher unavailable, events will be dropped: %v", err))
			c.Publisher = audit.NopPublisher{}
		} else {
			c.Publisher = publisher
		}
	} else {
		c.Publisher = audit.NopPublisher{}
	}

	// Handlers
	c.HealthHandler = handler.NewHealthHandler(conf.App.Version, health)
	c.AuthHandler = handler.NewAuthHandler(c.Flow, c.Store, c.Publisher)
	c.DashboardHandler = handler.NewDashboardHandler(c.DataClient)
	c.ContentHandler = handler.NewContentHandler()

	return c, nil
}

// Close releases the container's long-lived resources.
func (c *Container) Close() {
	if c.Publisher != nil {
		c.Publisher.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
