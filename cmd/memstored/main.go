// memstored runs one node of the conflict-aware memory store.
//
// The binary has no serving surface: version exchange belongs to the
// surrounding transport. What it does own is the conflict machinery —
// it loads the node configuration, wires the guard, the resolution
// strategies and the optional AI merge backend, and runs a one-shot
// conflict check over the keys named on the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"memstore/internal/aimerge"
	"memstore/internal/config"
	"memstore/internal/exec"
	"memstore/internal/guard"
	"memstore/internal/peers"
	"memstore/internal/resolve"
	"memstore/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the node config file")
	keysFlag := flag.String("keys", "", "comma-separated keys to run a conflict check over")
	jsonLogs := flag.Bool("json-logs", false, "emit logs as JSON")
	flag.Parse()

	if err := run(*configPath, *keysFlag, *jsonLogs); err != nil {
		slog.Error("memstored failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, keysFlag string, jsonLogs bool) error {
	// .env is optional; real environments set variables directly.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	var handler slog.Handler
	if jsonLogs {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(handler).With("node", cfg.NodeID)
	slog.SetDefault(logger)

	strategy, err := resolve.ParseChoice(cfg.Resolution.Strategy)
	if err != nil {
		return err
	}
	hint, err := aimerge.ParseHint(cfg.Resolution.Hint)
	if err != nil {
		return err
	}

	registry := peers.NewRegistry(cfg.NodeID, 0, 0)
	for _, p := range cfg.Peers {
		registry.Observe(p.ID, p.Addr)
	}

	store := storage.NewInMemoryStore(cfg.NodeID)
	g := guard.New(store)
	engine := exec.NewEngine(g, nil)

	opts := guard.Options{Strategy: strategy}
	if strategy == resolve.ChoiceAIMerge {
		opts.Merger = aimerge.NewMerger(openAIBackend(), aimerge.Config{
			Hint:       hint,
			MaxRetries: cfg.Resolution.MaxRetries,
			Timeout:    cfg.Resolution.Timeout(),
		})
	}

	logger.Info("node ready",
		"peers", registry.Len(),
		"strategy", strategy.String(),
		"hint", hint.String(),
		"enforce_conflict_check", cfg.EnforceConflictCheck)

	keys := splitKeys(keysFlag)
	if len(keys) == 0 {
		return nil
	}
	return checkKeys(engine, keys, opts)
}

// checkKeys runs one conflict-check pass per key, so a missing key is
// reported instead of aborting the whole sweep.
func checkKeys(engine *exec.Engine, keys []string, opts guard.Options) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	failures := 0
	for _, key := range keys {
		builder := engine.NewTask("check", key).WithResolution(opts)
		if err := builder.CheckConflicts(ctx); err != nil {
			if errors.Is(err, guard.ErrKeyNotFound) {
				slog.Warn("key absent on this node", "key", key)
			} else {
				slog.Error("conflict check failed", "key", key, "error", err)
				failures++
			}
			continue
		}
		result, err := builder.Execute(ctx)
		if err != nil {
			slog.Error("check task failed", "key", key, "error", err)
			failures++
			continue
		}
		slog.Info("conflict check passed", "key", key, "task", result.TaskID, "result", result.Output)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d keys failed the conflict check", failures, len(keys))
	}
	return nil
}

func openAIBackend() *aimerge.OpenAIBackend {
	return aimerge.NewOpenAIBackend(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
