package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath    string
	LogDir      string
	PatternsDir string // directory of the JSONL store of completed project outcomes

	// DefaultIterations is used when a run request carries no iteration
	// count. It is never allowed below the engine's minimum.
	DefaultIterations int
	// SensitivityThreshold is the relative-change floor for the model
	// change detector.
	SensitivityThreshold float64
	// Workers caps simulation parallelism; 0 means all CPUs.
	Workers int
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory first
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve data paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := filepath.Join(dataPath, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}

	patternsDir := getEnv("PATTERNS_DIR", dataPath)

	cfg := &AppConfig{
		DataPath:             dataPath,
		LogDir:               logDir,
		PatternsDir:          patternsDir,
		DefaultIterations:    getEnvInt("DEFAULT_ITERATIONS", 10000),
		SensitivityThreshold: getEnvFloat("SENSITIVITY_THRESHOLD", 0.10),
		Workers:              getEnvInt("SIMULATION_WORKERS", 0),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
