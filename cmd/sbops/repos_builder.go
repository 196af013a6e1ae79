package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"github.com/securebackend/sbops/adapters/store/inmem"
	"github.com/securebackend/sbops/adapters/store/rdb"
	"github.com/securebackend/sbops/config/sbopscfg"
	"github.com/securebackend/sbops/domain"
)

// reposCache keeps one set of repositories per process so that every use case
// built for a command, and the pipeline in particular, shares the same
// in-memory run history.
var (
	reposCache   = map[string]*domain.Repositories{}
	reposCacheMu sync.Mutex
)

// findFlag looks up a flag on cmd or any of its parents.
func findFlag(cmd *cobra.Command, name string) *pflag.Flag {
	for c := cmd; c != nil; c = c.Parent() {
		if f := c.Flags().Lookup(name); f != nil {
			return f
		}
		if f := c.PersistentFlags().Lookup(name); f != nil {
			return f
		}
	}
	return nil
}

func flagString(cmd *cobra.Command, name string) string {
	if f := findFlag(cmd, name); f != nil {
		return f.Value.String()
	}
	return ""
}

// getDBURL extracts the db-url flag value from command hierarchy.
func getDBURL(cmd *cobra.Command) string {
	if v := flagString(cmd, "db-url"); v != "" {
		return v
	}
	return defaultDBURL
}

// configFilePath returns the sbops.yml path of a file: db-url.
func configFilePath(dbURL string) (string, error) {
	if !strings.HasPrefix(dbURL, "file:") {
		return "", fmt.Errorf("db-url %s is not a file: URL", dbURL)
	}
	path := strings.TrimPrefix(dbURL, "file:")
	if path == "" {
		return "", fmt.Errorf("file path is required for file: URL")
	}
	return path, nil
}

// loadConfig reads path and applies the --env overlay.
func loadConfig(cmd *cobra.Command, path string) (*sbopscfg.Root, error) {
	cfg, err := sbopscfg.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.ApplyEnvironment(flagString(cmd, "env")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDB opens and migrates a sqlite: database.
func openDB(dbURL string) (*gorm.DB, error) {
	db, err := rdb.OpenFromURL(dbURL)
	if err != nil {
		return nil, err
	}
	if err := rdb.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", dbURL, err)
	}
	return db, nil
}

// buildRepos creates repositories based on db-url. A file: URL loads and
// validates sbops.yml into an in-memory store; run history then goes to
// --history-url when set. A sqlite: URL serves everything from the database.
func buildRepos(cmd *cobra.Command) (*domain.Repositories, error) {
	dbURL := getDBURL(cmd)
	env := flagString(cmd, "env")
	history := flagString(cmd, "history-url")
	key := dbURL + "|" + env + "|" + history

	reposCacheMu.Lock()
	defer reposCacheMu.Unlock()
	if cached, ok := reposCache[key]; ok {
		return cached, nil
	}

	var repos *domain.Repositories
	switch {
	case strings.HasPrefix(dbURL, "file:"):
		path, err := configFilePath(dbURL)
		if err != nil {
			return nil, err
		}
		cfg, err := loadConfig(cmd, path)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
		store := inmem.NewStore()
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := store.LoadFromConfig(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config into store: %w", err)
		}
		repos = store.Repositories()
		if history != "" {
			db, err := openDB(history)
			if err != nil {
				return nil, err
			}
			repos.Run = rdb.NewRunRepository(db)
		}

	case strings.HasPrefix(dbURL, "sqlite:") || strings.HasPrefix(dbURL, "sqlite3:"):
		db, err := openDB(dbURL)
		if err != nil {
			return nil, err
		}
		repos = rdb.NewRepositories(db)

	default:
		return nil, fmt.Errorf("unsupported db scheme: %s", dbURL)
	}
	reposCache[key] = repos
	return repos, nil
}
