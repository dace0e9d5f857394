// Command waverun executes workflow definitions from the command line.
//
// Usage:
//
//	waverun run --definition workflow.yaml [--config waverun.yaml] [--input '{"k":"v"}']
//	waverun validate --definition workflow.yaml
//	waverun version
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/waverun/waverun"
	"github.com/waverun/waverun/config"
	"github.com/waverun/waverun/integrations"
	"github.com/waverun/waverun/llm"
	"github.com/waverun/waverun/rag"
	"github.com/waverun/waverun/workflow"
	"github.com/waverun/waverun/workflow/handlers"
)

// Build-time injected.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runWorkflow(os.Args[2:])
	case "validate":
		validateWorkflow(os.Args[2:])
	case "version":
		fmt.Printf("waverun %s (%s)\n", Version, GitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runWorkflow(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	definitionPath := fs.String("definition", "", "path to the workflow definition (YAML or JSON)")
	configPath := fs.String("config", "", "path to the config file")
	inputJSON := fs.String("input", "", "execution input as JSON")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	def := loadDefinition(*definitionPath)

	var input any
	if *inputJSON != "" {
		if err := json.Unmarshal([]byte(*inputJSON), &input); err != nil {
			fatal("parsing --input: %v", err)
		}
	}

	runner, cleanup := buildRunner(cfg, logger)
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.ExecuteWorkflow(ctx, def, input)
	if err != nil {
		logger.Error("workflow failed", zap.Error(err))
		if result != nil {
			printJSON(map[string]any{"error": err.Error(), "logs": result.Logs})
		}
		os.Exit(1)
	}

	printJSON(map[string]any{"output": result.Output, "logs": result.Logs})
}

func validateWorkflow(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	definitionPath := fs.String("definition", "", "path to the workflow definition (YAML or JSON)")
	fs.Parse(args)

	def := loadDefinition(*definitionPath)

	graph, err := workflow.BuildGraph(def)
	if err != nil {
		fatal("invalid definition: %v", err)
	}
	if err := graph.DetectCycle(); err != nil {
		fatal("invalid definition: %v", err)
	}
	fmt.Printf("ok: %d nodes, %d ready at start, sinks %v\n",
		graph.Len(), len(graph.ReadyNodes()), graph.SinkNodes())
}

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fatal("loading config: %v", err)
	}
	return cfg
}

func loadDefinition(path string) *workflow.Definition {
	if path == "" {
		fatal("--definition is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("reading definition: %v", err)
	}
	def, err := workflow.UnmarshalDefinition(data)
	if err != nil {
		fatal("parsing definition: %v", err)
	}
	return def
}

// buildRunner assembles the runner from config: rate-limited providers
// when limits are set, a Redis-backed retrieval index when enabled, and
// a relational query runner when a database is configured.
func buildRunner(cfg *config.Config, logger *zap.Logger) (*waverun.Runner, func()) {
	opts := []waverun.Option{
		waverun.FromConfig(cfg),
		waverun.WithLogger(logger),
	}
	cleanup := func() {}

	if estimator, err := llm.NewTokenEstimator(cfg.LLM.Encoding); err == nil {
		opts = append(opts, waverun.WithTokenEstimator(estimator))
	} else {
		logger.Warn("tokenizer unavailable, prompt sizes will be approximate", zap.Error(err))
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanup = func() { client.Close() }
		opts = append(opts, waverun.WithVectorStoreFactory(func(executionID string) rag.VectorStore {
			return rag.NewRedisVectorStore(client, cfg.Redis.Namespace+":"+executionID, logger)
		}))
	}

	if cfg.Database.Enabled {
		db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
		if err != nil {
			fatal("opening database: %v", err)
		}
		runner, err := integrations.NewGormRunner(db, logger)
		if err != nil {
			fatal("building query runner: %v", err)
		}
		opts = append(opts, waverun.WithQueryRunner(runner))
	}

	opts = append(opts, waverun.WithHTTPCaller(integrations.NewHTTPClient(0, logger)))
	opts = append(opts, waverun.WithTriggerSource(handlers.StaticTriggerSource{}))

	runner, err := waverun.New(opts...)
	if err != nil {
		fatal("building runner: %v", err)
	}
	return runner, cleanup
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	level := zapcore.InfoLevel
	_ = level.Set(cfg.Level)

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		fatal("building logger: %v", err)
	}
	return logger
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encoding output: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprint(os.Stderr, `waverun - workflow execution engine

Commands:
  run       Execute a workflow definition
  validate  Check a definition builds and is acyclic
  version   Print version information

Run 'waverun <command> -h' for command flags.
`)
}
