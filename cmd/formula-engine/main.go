// Package main is the entry point for the formula engine server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/quartzlabs/formula-engine/pkg/api"
	"github.com/quartzlabs/formula-engine/pkg/config"
	"github.com/quartzlabs/formula-engine/pkg/engine"
	"github.com/quartzlabs/formula-engine/pkg/store"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "formula-engine",
	Short: "Mathematical formula evaluation server",
	RunE:  run,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("formula-engine version {{.Version}}\n")

	rootCmd.Flags().String("config", "", "Path to YAML config file (env CONFIG)")
	rootCmd.Flags().Int("port", 0, "HTTP server port (default 8790, env PORT)")
	rootCmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	rootCmd.Flags().Int("cache-size", 0, "Compiled formula cache capacity (env CACHE_SIZE)")
	rootCmd.Flags().Int("cache-reduction", 0, "Cache eviction batch size (env CACHE_REDUCTION)")
	rootCmd.Flags().String("formulas-file", "", "YAML formula library preloaded at startup (env FORMULAS_FILE)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Options{
		CacheMaximumSize:   cfg.CacheMaximumSize,
		CacheReductionSize: cfg.CacheReductionSize,
		CaseSensitive:      cfg.CaseSensitive,
	})
	if err != nil {
		return err
	}

	st := store.New()
	server := api.New(eng, st)

	if cfg.FormulasFile != "" {
		if err := preloadLibrary(cfg.FormulasFile, eng, st); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		log.Printf("Formula engine listening on %s", cfg.Addr())
		return server.Listen(cfg.Addr())
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			log.Printf("Received %s, shutting down...", sig)
			return server.Shutdown()
		case <-ctx.Done():
			return nil
		}
	})

	return g.Wait()
}

// resolveConfig merges the config file, environment, and flags. Flags
// win over environment, environment over file, file over defaults.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	path := os.Getenv("CONFIG")
	if v, _ := cmd.Flags().GetString("config"); v != "" {
		path = v
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if v := envInt("PORT"); v != 0 {
		cfg.Port = v
	}
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		cfg.Port = v
	}

	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Host = v
	}

	if v := envInt("CACHE_SIZE"); v != 0 {
		cfg.CacheMaximumSize = v
	}
	if v, _ := cmd.Flags().GetInt("cache-size"); v != 0 {
		cfg.CacheMaximumSize = v
	}

	if v := envInt("CACHE_REDUCTION"); v != 0 {
		cfg.CacheReductionSize = v
	}
	if v, _ := cmd.Flags().GetInt("cache-reduction"); v != 0 {
		cfg.CacheReductionSize = v
	}

	if v := os.Getenv("FORMULAS_FILE"); v != "" {
		cfg.FormulasFile = v
	}
	if v, _ := cmd.Flags().GetString("formulas-file"); v != "" {
		cfg.FormulasFile = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: ignoring invalid %s=%q", key, v)
		return 0
	}
	return n
}

// preloadLibrary registers and precompiles every formula of a library
// file so first requests hit a warm cache.
func preloadLibrary(path string, eng *engine.Engine, st *store.Store) error {
	lib, err := config.LoadLibrary(path)
	if err != nil {
		return err
	}
	for _, f := range lib {
		if _, err := eng.Build(f.Expression); err != nil {
			return fmt.Errorf("formula '%s': %w", f.Name, err)
		}
		if _, err := st.Create(f.Name, f.Expression, f.Description); err != nil {
			return err
		}
	}
	log.Printf("Preloaded %d formula(s) from %s", len(lib), path)
	return nil
}
