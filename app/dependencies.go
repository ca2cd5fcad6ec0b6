package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jntm/fundtheme/config"
	"github.com/jntm/fundtheme/internal/auth"
	"github.com/jntm/fundtheme/middleware"
	"github.com/jntm/fundtheme/repositories"
	"github.com/jntm/fundtheme/repositories/postgres"
	"github.com/jntm/fundtheme/services"
	"github.com/jntm/fundtheme/services/password"
	"github.com/jntm/fundtheme/services/principalcache"
	"github.com/jntm/fundtheme/tokens"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	memoryCacheSize       = 10000
	memoryCleanupInterval = time.Minute
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Redis  *redis.Client
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	TxManager repositories.TransactionManager

	// Auth core
	Codec          *tokens.Codec
	Hasher         *password.Hasher
	PrincipalCache principalcache.Cache
	RedisCache     *principalcache.Redis
	AccessPolicy   *auth.AccessPolicy
	AuthMiddleware *middleware.AuthMiddleware

	// Services
	AuthService *services.AuthService
	UserService *services.UserService

	stopCleanup context.CancelFunc
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesWithFactory(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithFactory wires the application over an already opened
// credential store
func NewDependenciesWithFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initCache(ctx, cfg); err != nil {
		deps.shutdownCache()
		return nil, fmt.Errorf("failed to initialize principal cache: %w", err)
	}

	if err := deps.initAuth(cfg); err != nil {
		deps.shutdownCache()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	if err := deps.bootstrapAdmin(ctx, cfg); err != nil {
		deps.shutdownCache()
		return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase prepares the credential store schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if !cfg.Database.EnsureSchema {
		return nil
	}
	if err := d.RepoFactory.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initCache selects the principal cache: Redis when configured, otherwise an
// in-process LRU. A zero TTL disables caching.
func (d *Dependencies) initCache(ctx context.Context, cfg *config.Config) error {
	ttl := cfg.Auth.PrincipalCacheTTL
	if ttl <= 0 {
		d.PrincipalCache = principalcache.Noop{}
		d.Logger.Info("principal cache disabled")
		return nil
	}

	if cfg.Redis.URL != "" {
		client, err := principalcache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		d.Redis = client
		d.RedisCache = principalcache.NewRedis(client, ttl)
		d.PrincipalCache = d.RedisCache
		d.Logger.Info("principal cache using redis", zap.Duration("ttl", ttl))
		return nil
	}

	mem := principalcache.NewMemory(memoryCacheSize, ttl)
	cleanupCtx, cancel := context.WithCancel(context.Background())
	go mem.StartCleanupWorker(cleanupCtx, memoryCleanupInterval)
	d.stopCleanup = cancel
	d.PrincipalCache = mem
	d.Logger.Info("principal cache using memory", zap.Duration("ttl", ttl))
	return nil
}

// initAuth builds the token codec, access policy, services and middleware
func (d *Dependencies) initAuth(cfg *config.Config) error {
	if cfg.JWT.UsingDevSecret {
		d.Logger.Warn("JWT_SECRET not set, using the development signing secret")
	}

	codec, err := tokens.NewCodec([]byte(cfg.JWT.Secret), tokens.WithIssuer(cfg.JWT.Issuer))
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}
	d.Codec = codec

	rules, err := loadRules(cfg.Auth)
	if err != nil {
		return err
	}
	policy, err := auth.NewAccessPolicy(rules)
	if err != nil {
		return fmt.Errorf("invalid access rules: %w", err)
	}
	d.AccessPolicy = policy

	d.Hasher = password.NewHasher(cfg.Auth.BcryptCost)

	d.AuthService = services.NewAuthService(
		d.Users,
		d.TxManager,
		codec,
		d.Hasher,
		d.PrincipalCache,
		d.Logger,
		services.AuthConfig{
			AccessTTL:    cfg.JWT.AccessTTL,
			RefreshTTL:   cfg.JWT.RefreshTTL,
			StoreTimeout: cfg.Auth.StoreTimeout,
		},
	)
	d.UserService = services.NewUserService(d.Users, d.PrincipalCache, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.AuthService.Validator(), d.AuthService, policy, d.Logger)

	d.Logger.Info("auth initialized",
		zap.Int("public_paths", len(rules.Public)),
		zap.Int("admin_paths", len(rules.Admin)),
		zap.Int("owner_patterns", len(rules.Owner)))
	return nil
}

// loadRules layers the built-in table, the rules file and env overrides
func loadRules(cfg config.AuthConfig) (auth.Rules, error) {
	rules := auth.DefaultRules()
	if cfg.RulesFile != "" {
		var err error
		rules, err = auth.LoadRulesFile(cfg.RulesFile, rules)
		if err != nil {
			return auth.Rules{}, err
		}
	}
	return rules.Override(auth.Rules{
		Public: cfg.PublicPaths,
		Admin:  cfg.AdminPaths,
	}), nil
}

// bootstrapAdmin creates the configured admin account when it is missing
func (d *Dependencies) bootstrapAdmin(ctx context.Context, cfg *config.Config) error {
	if !cfg.Bootstrap.Enabled() {
		return nil
	}
	created, err := d.AuthService.EnsureAdmin(ctx,
		cfg.Bootstrap.AdminUsername,
		cfg.Bootstrap.AdminPassword,
		cfg.Bootstrap.AdminEmail)
	if err != nil {
		return err
	}
	if !created {
		d.Logger.Info("bootstrap admin already present",
			zap.String("username", cfg.Bootstrap.AdminUsername))
	}
	return nil
}

func (d *Dependencies) shutdownCache() {
	if d.stopCleanup != nil {
		d.stopCleanup()
		d.stopCleanup = nil
	}
	if mem, ok := d.PrincipalCache.(*principalcache.Memory); ok {
		d.Logger.Info("principal cache stats",
			zap.Int("entries", mem.Len()),
			zap.Float64("hit_rate", mem.HitRate()))
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn("failed to close redis client", zap.Error(err))
		}
		d.Redis = nil
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	d.shutdownCache()

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
