// Package config loads the chunks tool configuration from YAML and
// JUNIPER_CHUNKS_* environment variables.
package config

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. JUNIPER_CHUNKS_IMPORT_WORKERS.
const EnvPrefix = "JUNIPER_CHUNKS"

// Chunking modes.
const (
	ChunkingVerse   = "verse"
	ChunkingSection = "section"
	ChunkingMap     = "map"
)

type Config struct {
	Projects ProjectsConfig `mapstructure:"projects"`
	Import   ImportConfig   `mapstructure:"import"`
	Language LanguageConfig `mapstructure:"language"`
	Log      LogConfig      `mapstructure:"log"`
}

type ProjectsConfig struct {
	Directory string `mapstructure:"directory" validate:"required"`
	BackupDir string `mapstructure:"backup_directory" validate:"required"`
}

type ImportConfig struct {
	Chunking          string `mapstructure:"chunking" validate:"oneof=verse section map"`
	ChunkMap          string `mapstructure:"chunk_map" validate:"omitempty,file"`
	RequireVerses     bool   `mapstructure:"require_verses"`
	RejectEmptyChunks bool   `mapstructure:"reject_empty_chunks"`
	Workers           int    `mapstructure:"workers" validate:"min=1,max=64"`
}

type LanguageConfig struct {
	ID   string `mapstructure:"id" validate:"required,langtag"`
	Name string `mapstructure:"name" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("chunks")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/juniper-chunks")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

// Load reads the configuration. A missing config file is not an error; the
// defaults and environment apply.
func Load(configFile string) (*Config, error) {
	loader, err := NewConfigLoader(configFile)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("projects.directory", ".")
	v.SetDefault("projects.backup_directory", "backups")
	v.SetDefault("import.chunking", ChunkingVerse)
	v.SetDefault("import.chunk_map", "")
	v.SetDefault("import.require_verses", true)
	v.SetDefault("import.reject_empty_chunks", false)
	v.SetDefault("import.workers", 4)
	v.SetDefault("language.id", "en")
	v.SetDefault("language.name", "English")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg, reporting every failing field in one error.
func (loader *ConfigLoader) Validate(cfg *Config) error {
	var errorMsgs []string
	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
	}
	if cfg.Import.Chunking == ChunkingMap && cfg.Import.ChunkMap == "" {
		errorMsgs = append(errorMsgs, "import.chunk_map is required when import.chunking is map")
	}
	if len(errorMsgs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}
	return nil
}
