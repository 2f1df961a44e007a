package main

import (
	"fmt"
	"log"
	"os"

	"classifieds-portal/internal/config"
	"classifieds-portal/internal/database"
	"classifieds-portal/internal/notify"
	"classifieds-portal/internal/purge"
)

// One-shot runner for the listing expiration workflow. Intended for
// cron or manual invocation; the API server runs the same workflow on
// its own schedule, and the database lease keeps the two from
// overlapping.
func main() {
	configPath := getEnv("CONFIG_PATH", "/app/config/portal_config.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}

	if appConfig.DemoMode {
		log.Println("Demo mode is enabled, purge will not run")
		return
	}

	mysqlCfg := appConfig.Database.MySQL
	portStr := ""
	if mysqlCfg.Port > 0 {
		portStr = fmt.Sprintf("%d", mysqlCfg.Port)
	}

	gormDB, err := database.NewGormDB(
		getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "mysql"),
		getEnvOrConfig(portStr, "DB_PORT", "3306"),
		getEnvOrConfig(mysqlCfg.User, "DB_USER", "classifieds_user"),
		getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", "classifieds_pass"),
		getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "classifieds_db"),
	)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer gormDB.Close()

	if err := gormDB.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	dispatcher := notify.NewOutboxDispatcher(gormDB.DB())
	runner := purge.NewRunner(gormDB, dispatcher, appConfig)

	result, err := runner.Run()
	if err != nil {
		if err == purge.ErrLeaseHeld {
			log.Println("Purge is already running elsewhere, nothing to do")
			return
		}
		log.Fatalf("Purge failed: %v", err)
	}

	log.Printf("Purge completed. Countries: %d, Evaluated: %d, Archived: %d, Deleted: %d, Reminded: %d, Unfeatured: %d, Skipped: %d, Errors: %d",
		result.Countries, result.Evaluated, result.Archived, result.Deleted,
		result.Reminded, result.Unfeatured, result.Skipped, result.Errors)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, defaultValue)
}
