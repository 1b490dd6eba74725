package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
	Engine      EngineConfig   `mapstructure:"engine"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// EngineConfig tunes the trade-lifecycle engine and the online model.
type EngineConfig struct {
	// DefaultRewardRisk is the reward:risk multiple used to recompute a
	// target that arrived on the wrong side of price.
	DefaultRewardRisk float64 `mapstructure:"default_reward_risk"`
	// LearningRate is the SGD step size for the online classifier.
	LearningRate float64 `mapstructure:"learning_rate"`
	// DefaultTick is the tick size assumed for instruments missing from
	// TickSizes.
	DefaultTick float64 `mapstructure:"default_tick"`
	// BreakevenTicks sizes the breakeven tolerance band in ticks.
	BreakevenTicks int `mapstructure:"breakeven_ticks"`
	// TickSizes maps instrument symbols to their minimum price increment.
	TickSizes map[string]float64 `mapstructure:"tick_sizes"`
	// HistoryLimit caps the closed-trade history kept in memory.
	HistoryLimit int `mapstructure:"history_limit"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Common deploy-time variables that do not follow the dotted scheme.
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN: %w", err)
	}
	if err := viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_CHAT_ID: %w", err)
	}
	if err := viper.BindEnv("server.port", "PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind PORT: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.Engine.LearningRate <= 0 || config.Engine.LearningRate >= 1 {
		return nil, fmt.Errorf("learning rate must be in (0, 1), got %v", config.Engine.LearningRate)
	}
	if config.Engine.DefaultTick <= 0 {
		return nil, fmt.Errorf("default tick must be positive, got %v", config.Engine.DefaultTick)
	}
	if config.Engine.BreakevenTicks < 0 {
		return nil, fmt.Errorf("breakeven ticks must not be negative, got %d", config.Engine.BreakevenTicks)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "tradepulse")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")

	viper.SetDefault("engine.default_reward_risk", 2.0)
	viper.SetDefault("engine.learning_rate", 0.05)
	viper.SetDefault("engine.default_tick", 0.25)
	viper.SetDefault("engine.breakeven_ticks", 4)
	viper.SetDefault("engine.tick_sizes", map[string]float64{
		"NQ": 0.25,
		"ES": 0.25,
		"YM": 1.0,
		"GC": 0.10,
		"SI": 0.005,
	})
	viper.SetDefault("engine.history_limit", 500)
}
