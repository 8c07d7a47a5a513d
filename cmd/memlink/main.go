// Package main provides the memlink entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/memlinkio/memlink/api"
	"github.com/memlinkio/memlink/pkg/config"
	"github.com/memlinkio/memlink/pkg/coordinator"
	"github.com/memlinkio/memlink/pkg/embedder"
	"github.com/memlinkio/memlink/pkg/graph"
	"github.com/memlinkio/memlink/pkg/interfaces"
	"github.com/memlinkio/memlink/pkg/logger"
	"github.com/memlinkio/memlink/pkg/memory"
	"github.com/memlinkio/memlink/pkg/metrics"
	"github.com/memlinkio/memlink/pkg/store"
	"github.com/memlinkio/memlink/pkg/taxonomy"
	"github.com/memlinkio/memlink/pkg/tools"
)

// Version information (set by build process)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (YAML or JSON)")
	logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	showVersion = flag.Bool("version", false, "Show version information")
	apiMode     = flag.Bool("api", false, "Run in API server mode")
	opName      = flag.String("op", "", "Run a single tool operation and exit")
	opArgs      = flag.String("args", "{}", "JSON arguments for -op")
	listOps     = flag.Bool("ops", false, "List tool operations and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("memlink %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("memlink failed: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	lg := logger.NewConsoleLogger(cfg.LogLevel)
	mtr := metrics.NewInMemoryMetrics()

	lg.Info("Starting memlink", map[string]interface{}{
		"version": Version,
		"store":   string(cfg.Store.Backend),
	})

	app, err := buildApp(cfg, lg, mtr)
	if err != nil {
		return err
	}
	defer app.close()

	switch {
	case *listOps:
		fmt.Println(strings.Join(app.registry.Names(), "\n"))
		return nil
	case *opName != "":
		return runOperation(ctx, app.registry)
	case *apiMode:
		server := api.NewServer(app.manager, app.knowledge, app.dual, app.graph, app.classifier, cfg, lg)
		return server.Start(ctx)
	default:
		flag.Usage()
		return nil
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		var err error
		if strings.HasSuffix(*configFile, ".json") {
			err = cfg.FromJSONFile(*configFile)
		} else {
			err = cfg.FromYAMLFile(*configFile)
		}
		if err != nil {
			return nil, err
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type app struct {
	manager    *memory.Manager
	graph      interfaces.GraphService
	knowledge  *coordinator.KnowledgeCoordinator
	dual       *coordinator.DualStorageCoordinator
	registry   *tools.Registry
	classifier *taxonomy.Classifier
	store      interfaces.RecordStore
	embedder   interfaces.Embedder
}

func buildApp(cfg *config.Config, lg interfaces.Logger, mtr interfaces.Metrics) (*app, error) {
	tax := taxonomy.Default()
	if cfg.TaxonomyPath != "" {
		loaded, err := taxonomy.LoadFromYAML(cfg.TaxonomyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load taxonomy: %w", err)
		}
		tax = loaded
	}

	recordStore, vector, emb, err := buildStore(cfg, lg)
	if err != nil {
		return nil, err
	}

	manager := memory.NewManager(recordStore, vector, tax, cfg.Classifier, cfg.Memory, lg, mtr)
	graphClient := graph.NewClient(cfg.Graph, lg)
	knowledge := coordinator.NewKnowledgeCoordinator(manager, graphClient, cfg.Router, lg, mtr)
	dual := coordinator.NewDualStorageCoordinator(manager, graphClient, lg, mtr)
	registry := tools.NewRegistry(manager, knowledge, dual, lg)

	return &app{
		manager:    manager,
		graph:      graphClient,
		knowledge:  knowledge,
		dual:       dual,
		registry:   registry,
		classifier: taxonomy.NewClassifier(tax, cfg.Classifier),
		store:      recordStore,
		embedder:   emb,
	}, nil
}

func buildStore(cfg *config.Config, lg interfaces.Logger) (interfaces.RecordStore, interfaces.VectorSearcher, interfaces.Embedder, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendSQLite:
		s, err := store.NewSQLiteStore(cfg.Store.Path, lg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil, nil, nil

	case config.StoreBackendChromem:
		emb, err := embedder.NewOpenAIEmbedder(cfg.Embedder)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		inner := store.NewMemoryStore(lg)
		s, err := store.NewChromemStore(inner, emb, cfg.Store.Path, lg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open chromem store: %w", err)
		}
		return s, s, emb, nil

	default:
		return store.NewMemoryStore(lg), nil, nil, nil
	}
}

func runOperation(ctx context.Context, registry *tools.Registry) error {
	var args tools.Args
	if err := json.Unmarshal([]byte(*opArgs), &args); err != nil {
		return fmt.Errorf("invalid -args JSON: %w", err)
	}
	out, err := registry.Call(ctx, *opName, args)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("store close: %v", err)
		}
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
}
