package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rafaelcs/userhub/backend/internal/config"
	"github.com/rafaelcs/userhub/backend/internal/coordinator"
	"github.com/rafaelcs/userhub/backend/internal/graph"
	"github.com/rafaelcs/userhub/backend/internal/logging"
	"github.com/rafaelcs/userhub/backend/internal/network"
	"github.com/rafaelcs/userhub/backend/internal/seed"
	"github.com/rafaelcs/userhub/backend/internal/store/counter"
	"github.com/rafaelcs/userhub/backend/internal/store/credential"
	"github.com/rafaelcs/userhub/backend/internal/store/graphstore"
	"github.com/rafaelcs/userhub/backend/internal/store/profile"
)

var errMissingDataset = errors.New("dataset not found")

func main() {
	var (
		datasetDir    = flag.String("dataset-dir", "./seed-data", "Directory containing users.json and relationships.json")
		usersPath     = flag.String("users", "", "Path to users.json (overrides dataset-dir)")
		relationships = flag.String("relationships", "", "Path to relationships.json (overrides dataset-dir)")
		workers       = flag.Int("workers", 4, "Number of concurrent workers for seeding")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "seed")

	usersFile, relsFile, err := resolveDatasetPaths(*datasetDir, *usersPath, *relationships)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	coord, netManager, cleanup, err := buildPipeline(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to connect stores", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	loader := seed.NewLoader(logger, coord, netManager, *workers)

	start := time.Now()
	var summary seed.Summary

	if err := loader.LoadUsersFile(ctx, usersFile, &summary); err != nil {
		logger.Error("failed to load users dataset", "error", err, "path", usersFile)
		os.Exit(1)
	}
	if err := loader.LoadRelationshipsFile(ctx, relsFile, &summary); err != nil {
		logger.Error("failed to load relationships dataset", "error", err, "path", relsFile)
		os.Exit(1)
	}

	logger.Info("seeding complete",
		"duration", time.Since(start).String(),
		"usersCreated", summary.UsersCreated,
		"userFailures", summary.UserFailures,
		"partialWrites", summary.PartialWrites,
		"followsCreated", summary.FollowsCreated,
		"followFailures", summary.FollowFailures,
	)
}

func buildPipeline(ctx context.Context, logger *slog.Logger, cfg config.Config) (*coordinator.Coordinator, *network.Manager, func(), error) {
	if cfg.Postgres.DSN == "" {
		return nil, nil, nil, errors.New("POSTGRES_DSN is required")
	}
	if cfg.Mongo.URI == "" {
		return nil, nil, nil, errors.New("MONGO_URI is required")
	}
	if cfg.Graph.URI == "" {
		return nil, nil, nil, graph.ErrMissingURI
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := credential.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	closers = append(closers, func() { _ = db.Close() })
	if cfg.Postgres.Migrate {
		if err := credential.RunMigrations(ctx, db); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	mongoClient, err := profile.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	closers = append(closers, func() { _ = mongoClient.Disconnect(context.Background()) })

	graphClient, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("connect graph: %w", err)
	}
	closers = append(closers, func() { _ = graphClient.Close(context.Background()) })

	redisStore, err := counter.NewRedisStore(ctx, counter.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closers = append(closers, func() { _ = redisStore.Client().Close() })

	graphStore := graphstore.NewNeo4jStore(graphClient)
	coord := coordinator.New(logger,
		credential.NewPostgresStore(db),
		profile.NewMongoStore(mongoClient.Database(cfg.Mongo.Database), cfg.Mongo.Collection),
		graphStore,
		redisStore,
	)
	coord.WithCallTimeout(cfg.Stores.CallTimeout)

	logger.Info("connected to all stores", "mongo", cfg.Mongo.Database, "graph", cfg.Graph.URI, "redis", cfg.Redis.Addr)
	return coord, network.NewManager(graphStore), cleanup, nil
}

func resolveDatasetPaths(baseDir, usersPath, relationshipsPath string) (string, string, error) {
	resolve := func(explicitPath, fallbackFile string) (string, error) {
		if explicitPath != "" {
			if _, err := os.Stat(explicitPath); err != nil {
				return "", fmt.Errorf("stat %s: %w", explicitPath, err)
			}
			return explicitPath, nil
		}
		path := filepath.Join(baseDir, fallbackFile)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", errMissingDataset, path)
		}
		return path, nil
	}

	usersFile, err := resolve(usersPath, "users.json")
	if err != nil {
		return "", "", err
	}
	relsFile, err := resolve(relationshipsPath, "relationships.json")
	if err != nil {
		return "", "", err
	}
	return usersFile, relsFile, nil
}
