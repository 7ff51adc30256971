package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rafaelcs/userhub/backend/internal/config"
	"github.com/rafaelcs/userhub/backend/internal/coordinator"
	"github.com/rafaelcs/userhub/backend/internal/graph"
	"github.com/rafaelcs/userhub/backend/internal/logging"
	"github.com/rafaelcs/userhub/backend/internal/network"
	"github.com/rafaelcs/userhub/backend/internal/server"
	"github.com/rafaelcs/userhub/backend/internal/store"
	"github.com/rafaelcs/userhub/backend/internal/store/counter"
	"github.com/rafaelcs/userhub/backend/internal/store/credential"
	"github.com/rafaelcs/userhub/backend/internal/store/graphstore"
	"github.com/rafaelcs/userhub/backend/internal/store/profile"
)

func main() {
	memoryMode := flag.Bool("memory", false, "Run against in-memory stores instead of the real backends")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	stores, err := buildStores(ctx, logger, cfg, *memoryMode)
	if err != nil {
		logger.Error("failed to connect stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close(logger)

	coord := coordinator.New(logger, stores.Credentials, stores.Profiles, stores.Graph, stores.Counters)
	coord.WithCallTimeout(cfg.Stores.CallTimeout)
	netManager := network.NewManager(stores.Graph)
	apiHandlers := server.NewAPIHandlers(logger, coord, netManager)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.StoreHealth{Probes: stores.Probes()},
		API:              apiHandlers,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// storeSet bundles the four store adapters plus the raw handles needed
// for health probes and shutdown.
type storeSet struct {
	Credentials credential.Store
	Profiles    profile.Store
	Graph       graphstore.Store
	Counters    counter.Store

	db          *sql.DB
	mongoClient *mongo.Client
	graphClient graph.Client
	redisStore  *counter.RedisStore
}

func buildStores(ctx context.Context, logger *slog.Logger, cfg config.Config, memoryMode bool) (*storeSet, error) {
	if memoryMode {
		logger.Warn("running with in-memory stores; data will not survive restarts")
		return &storeSet{
			Credentials: credential.NewMemoryStore(),
			Profiles:    profile.NewMemoryStore(),
			Graph:       graphstore.NewMemoryStore(),
			Counters:    counter.NewMemoryStore(),
		}, nil
	}

	set := &storeSet{}

	if cfg.Postgres.DSN == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	db, err := credential.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	set.db = db
	if cfg.Postgres.Migrate {
		if err := credential.RunMigrations(ctx, db); err != nil {
			set.Close(logger)
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	set.Credentials = credential.NewPostgresStore(db)

	if cfg.Mongo.URI == "" {
		set.Close(logger)
		return nil, errors.New("MONGO_URI is required")
	}
	mongoClient, err := profile.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		set.Close(logger)
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	set.mongoClient = mongoClient
	set.Profiles = profile.NewMongoStore(mongoClient.Database(cfg.Mongo.Database), cfg.Mongo.Collection)

	if cfg.Graph.URI == "" {
		set.Close(logger)
		return nil, graph.ErrMissingURI
	}
	graphClient, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		set.Close(logger)
		return nil, fmt.Errorf("connect graph: %w", err)
	}
	set.graphClient = graphClient
	set.Graph = graphstore.NewNeo4jStore(graphClient)

	redisStore, err := counter.NewRedisStore(ctx, counter.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		set.Close(logger)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	set.redisStore = redisStore
	set.Counters = redisStore

	logger.Info("connected to all stores",
		"postgres", true, "mongo", cfg.Mongo.Database, "graph", cfg.Graph.URI, "redis", cfg.Redis.Addr)
	return set, nil
}

// Probes returns a health probe per connected store. Memory-mode stores
// report as unconfigured.
func (s *storeSet) Probes() map[store.Name]server.ProbeFunc {
	probes := make(map[store.Name]server.ProbeFunc, 4)
	if s.db != nil {
		probes[store.Credential] = s.db.PingContext
	}
	if s.mongoClient != nil {
		probes[store.Profile] = func(ctx context.Context) error {
			return s.mongoClient.Ping(ctx, nil)
		}
	}
	if s.graphClient != nil {
		probes[store.Graph] = s.graphClient.VerifyConnectivity
	}
	if s.redisStore != nil {
		probes[store.Counter] = func(ctx context.Context) error {
			return s.redisStore.Client().Ping(ctx).Err()
		}
	}
	return probes
}

func (s *storeSet) Close(logger *slog.Logger) {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Warn("closing postgres failed", "error", err)
		}
	}
	if s.mongoClient != nil {
		if err := s.mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("closing mongo failed", "error", err)
		}
	}
	if s.graphClient != nil {
		if err := s.graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}
	if s.redisStore != nil {
		if err := s.redisStore.Client().Close(); err != nil {
			logger.Warn("closing redis failed", "error", err)
		}
	}
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
