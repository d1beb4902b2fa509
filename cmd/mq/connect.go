package main

import (
	"fmt"

	"github.com/zulandar/marquee/internal/config"
	"github.com/zulandar/marquee/internal/db"
	"gorm.io/gorm"
)

const defaultConfigPath = "marquee.yaml"

// connectFromConfig loads the config file and opens the configured database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s database: %w", cfg.Database.Driver, err)
	}

	return cfg, gormDB, nil
}
