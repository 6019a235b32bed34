package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kgmicrobe/kgreason/internal/config"
	"kgmicrobe/kgreason/internal/db"
)

// DefaultDBName is the file looked for when walking up from the working directory
const DefaultDBName = "kg.db"

var (
	dbPath         string
	logLevel       string
	devLog         bool
	predicatesFile string

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "kgreason",
	Short:         "Load a biological knowledge graph and answer structural queries over it",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel = logLevel
		}
		if cmd.Flags().Changed("dev-log") {
			loaded.DevLog = devLog
		}
		if cmd.Flags().Changed("predicates") {
			catalog, err := config.LoadCatalog(predicatesFile)
			if err != nil {
				return err
			}
			loaded.PredicatesFile = predicatesFile
			loaded.Catalog = catalog
		}
		if err := loaded.Validate(); err != nil {
			return err
		}

		l, err := config.NewLogger(loaded.LogLevel, loaded.DevLog)
		if err != nil {
			return err
		}
		cfg, logger = loaded, l
		logger.Debug("configuration loaded",
			zap.String("log_level", cfg.LogLevel),
			zap.String("predicates", cfg.PredicatesFile))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the kg.db database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev-log", false, "Human-readable console logs")
	rootCmd.PersistentFlags().StringVar(&predicatesFile, "predicates", "", "YAML predicate catalog")
}

// DiscoverDB finds the database path using priority: env > flag > walk-up > XDG fallback
func DiscoverDB() (string, error) {
	// 1. Environment variable
	if cfg != nil && cfg.DBPath != "" {
		if _, err := os.Stat(cfg.DBPath); err == nil {
			return cfg.DBPath, nil
		}
	}

	// 2. CLI flag
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil {
			return dbPath, nil
		}
		return "", fmt.Errorf("database not found at --db path: %s", dbPath)
	}

	// 3. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, DefaultDBName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 4. XDG fallback
	if xdgPath := xdgDBPath(); xdgPath != "" {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", fmt.Errorf("no %s found (set KGREASON_DB, use --db, or run from a directory containing %s)", DefaultDBName, DefaultDBName)
}

// TargetDB picks where a load writes: env or flag when given, else the
// discovered database, else kg.db in the working directory
func TargetDB() string {
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath
	}
	if dbPath != "" {
		return dbPath
	}
	if path, err := DiscoverDB(); err == nil {
		return path
	}
	return DefaultDBName
}

func xdgDBPath() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "kgreason", DefaultDBName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "kgreason", DefaultDBName)
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	logger.Debug("opening database", zap.String("path", path))
	return db.OpenDB(path)
}

// ResolveNode finds a node by exact ID, falling back to an exact name match
func ResolveNode(ctx context.Context, d *db.DB, reference string) (*db.Node, error) {
	// 1. Exact ID match
	node, err := d.GetNode(ctx, reference)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	// 2. Name match
	matches, err := d.NodesByName(ctx, reference, 10)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("node not found: %s", reference)
	case 1:
		return &matches[0], nil
	}

	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("  %s (%s)", m.ID, m.Category)
	}
	return nil, fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\nUse a node ID instead.",
		reference, len(matches), strings.Join(lines, "\n"))
}
