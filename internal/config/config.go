package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"paratranz-sync/internal/paratranz"
	"paratranz-sync/internal/reconcile"
	"paratranz-sync/internal/unit"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	APIToken         string
	ProjectID        string
	BaseURL          string
	SourceDir        string
	OutputDir        string
	OutputLangPrefix string
	SourceLocale     string
	TargetLocale     string
	SkipMarker       string
	QuestFileMarker  string
	QuestLangDir     string
	QuestSNBTPath    string
	FallbackStages   string
	WorkerCount      int
	SourceCacheSize  int
	DatabaseURL      string
	LogLevel         string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		APIToken:         getEnv("API_TOKEN", ""),
		ProjectID:        getEnv("PROJECT_ID", ""),
		BaseURL:          getEnv("PARATRANZ_BASE_URL", paratranz.DefaultBaseURL),
		SourceDir:        getEnv("SOURCE_DIR", "Source"),
		OutputDir:        getEnv("OUTPUT_DIR", "CNPack"),
		OutputLangPrefix: getEnv("OUTPUT_LANG_PREFIX", "assets/vm/lang"),
		SourceLocale:     getEnv("SOURCE_LOCALE", "en_us"),
		TargetLocale:     getEnv("TARGET_LOCALE", "zh_cn"),
		SkipMarker:       getEnv("SKIP_MARKER", "TM"),
		QuestFileMarker:  getEnv("QUEST_FILE_MARKER", "ftbquest"),
		QuestLangDir:     getEnv("QUEST_LANG_DIR", "kubejs/assets/quests/lang/"),
		QuestSNBTPath:    getEnv("QUEST_SNBT_PATH", "config/ftbquests/quests/lang/zh_cn.snbt"),
		FallbackStages:   getEnv("FALLBACK_STAGES", "0,-1,2"),
		WorkerCount:      getEnvInt("WORKER_COUNT", 8),
		SourceCacheSize:  getEnvInt("SOURCE_CACHE_SIZE", 256),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports missing or malformed settings needed to talk to ParaTranz.
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateOffline is Validate without the API token requirement.
func (c *Config) ValidateOffline() error {
	return c.validate(false)
}

func (c *Config) validate(online bool) error {
	var result *multierror.Error
	if online && c.APIToken == "" {
		result = multierror.Append(result, errors.New("API_TOKEN is required"))
	}
	if c.ProjectID == "" {
		result = multierror.Append(result, errors.New("PROJECT_ID is required"))
	}
	if _, err := c.Policy(); err != nil {
		result = multierror.Append(result, fmt.Errorf("FALLBACK_STAGES: %w", err))
	}
	return result.ErrorOrNil()
}

// Policy parses FallbackStages.
func (c *Config) Policy() (reconcile.Policy, error) {
	return reconcile.ParsePolicy(c.FallbackStages)
}

// Layout returns the unit layout described by the configuration.
func (c *Config) Layout() unit.Layout {
	return unit.Layout{
		SourceDir:        c.SourceDir,
		OutputDir:        c.OutputDir,
		OutputLangPrefix: c.OutputLangPrefix,
		SourceLocale:     c.SourceLocale,
		TargetLocale:     c.TargetLocale,
		SkipMarker:       c.SkipMarker,
		QuestFileMarker:  c.QuestFileMarker,
		QuestLangDir:     c.QuestLangDir,
	}
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
