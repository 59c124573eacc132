// Command kvstore is the process entrypoint: it loads configuration,
// boots the configured storage engine, and either drops into an
// interactive REPL session or runs a one-shot batch codec operation.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/neekrasov/kvstore/internal/codec"
	"github.com/neekrasov/kvstore/internal/config"
	"github.com/neekrasov/kvstore/internal/model"
	"github.com/neekrasov/kvstore/internal/repl"
	"github.com/neekrasov/kvstore/internal/storage"
	"github.com/neekrasov/kvstore/internal/storage/hashengine"
	"github.com/neekrasov/kvstore/internal/storage/rbtree"
	"github.com/neekrasov/kvstore/internal/ttl"
	"github.com/neekrasov/kvstore/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "kvstore",
		Short: "An in-memory key/value store with a hash-table or red-black-tree engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yml", "path to the YAML config file")

	root.AddCommand(serveCmd(), importCmd(), exportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start an interactive REPL session against the configured engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine := buildEngine(cfg)
			defer engine.Close()

			session, err := repl.New(engine, cfg.REPL.Prompt, cfg.REPL.HistoryFile)
			if err != nil {
				return fmt.Errorf("start repl: %w", err)
			}
			defer session.Close()

			return session.Run()
		},
	}
}

func importCmd() *cobra.Command {
	var archive bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load records from a file into a fresh engine and report how many were inserted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine := buildEngine(cfg)
			defer engine.Close()

			var n int
			var errKind model.Error
			if archive {
				n, errKind = importArchive(engine, args[0])
			} else {
				n, errKind = engine.Import(args[0])
			}
			if errKind != model.Ok {
				return fmt.Errorf("import %s: %s", args[0], errKind)
			}

			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "read a zstd-compressed archive instead of the plain-text format")
	return cmd
}

func exportCmd() *cobra.Command {
	var seed string
	var archive bool

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export the engine's records to a file, optionally after seeding it from another file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine := buildEngine(cfg)
			defer engine.Close()

			if seed != "" {
				if _, errKind := engine.Import(seed); errKind != model.Ok {
					return fmt.Errorf("import seed %s: %s", seed, errKind)
				}
			}

			var n int
			var errKind model.Error
			if archive {
				n, errKind = exportArchive(engine, args[0])
			} else {
				n, errKind = engine.Export(args[0])
			}
			if errKind != model.Ok {
				return fmt.Errorf("export %s: %s", args[0], errKind)
			}

			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "optional file to import before exporting")
	cmd.Flags().BoolVar(&archive, "archive", false, "write a zstd-compressed archive instead of the plain-text format")
	return cmd
}

// importArchive and exportArchive route through codec's compressed
// archive variant directly, bypassing the engine's Import/Export (which
// only know the plain-text format), then apply/collect records the same
// way the engine methods do.
func importArchive(engine storage.Engine, path string) (int, model.Error) {
	pairs, errKind := codec.LoadArchive(path)
	if errKind != model.Ok {
		return 0, errKind
	}

	inserted := 0
	for _, p := range pairs {
		if engine.Set(p.Key, p.Record, 0) == model.Ok {
			inserted++
		}
	}
	return inserted, model.Ok
}

func exportArchive(engine storage.Engine, path string) (int, model.Error) {
	keys := engine.Keys()
	pairs := make([]codec.Pair, 0, len(keys))
	for _, k := range keys {
		rec, ok := engine.Get(k)
		if !ok {
			continue
		}
		pairs = append(pairs, codec.Pair{Key: k, Record: rec})
	}
	return codec.SaveArchive(path, pairs)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.GetConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	withDefaults(&cfg)

	logger.Init(cfg.Logging.Level, cfg.Logging.Output)
	ttl.DefaultSweepInterval = cfg.TTL.SweepInterval

	return &cfg, nil
}

// withDefaults fills in the sub-sections GetConfig leaves nil when the
// config file omits them, so a minimal or missing config still boots.
func withDefaults(cfg *config.Config) {
	if cfg.Engine == nil {
		cfg.Engine = &config.EngineConfig{Type: "hash"}
	}
	if cfg.TTL == nil || cfg.TTL.SweepInterval <= 0 {
		cfg.TTL = &config.TTLConfig{SweepInterval: time.Second}
	}
	if cfg.Logging == nil {
		cfg.Logging = &config.LoggingConfig{Level: "info"}
	}
	if cfg.REPL == nil {
		cfg.REPL = &config.REPLConfig{Prompt: "kvstore> "}
	}
}

func buildEngine(cfg *config.Config) storage.Engine {
	logger.Info("starting engine", zap.String("type", cfg.Engine.Type))

	if cfg.Engine.Type == "rbtree" {
		return rbtree.New()
	}
	return hashengine.New()
}
