// Command admin provides operator utilities for managing Inkwell accounts.
package main

import (
	"fmt"
	"os"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"

	"gorm.io/gorm"
)

func main() {
	root := newRootCmd(connectFromEnv)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func connectFromEnv() (*gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	// Role and status changes must evict the server's cached user entries.
	cache.InitRedis(cfg.RedisURL)
	if cache.GetClient() == nil {
		fmt.Fprintf(os.Stderr, "Warning: Redis unavailable, cached sessions may keep their old role for up to %s\n", cache.UserTTL)
	}
	return db, nil
}
