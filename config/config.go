package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server     Server
	Database   Database
	Redis      Redis
	Assessment Assessment
	LogLevel   string
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Redis backs the fast half of the session store. An empty Addr runs the
// store on its in-process fallback only.
type Redis struct {
	Addr     string
	Password string `json:"-"`
	DB       int
	Timeout  time.Duration
}

type Assessment struct {
	// StateGrace is added to the remaining test time when setting the TTL of
	// ephemeral session state.
	StateGrace     time.Duration
	PassValidity   time.Duration
	RetestCooldown time.Duration
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("REDIS_TIMEOUT", "300ms")
	viper.SetDefault("SESSION_STATE_GRACE", "5m")
	viper.SetDefault("SKILL_PASS_VALIDITY", "4320h")
	viper.SetDefault("SKILL_RETEST_COOLDOWN", "72h")
	viper.SetDefault("LOG_LEVEL", "info")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")
	config.Database.SSLMode = viper.GetString("DATABASE_SSLMODE")

	config.Redis.Addr = viper.GetString("REDIS_ADDR")
	config.Redis.Password = viper.GetString("REDIS_PASSWORD")
	config.Redis.DB = viper.GetInt("REDIS_DB")
	config.Redis.Timeout = viper.GetDuration("REDIS_TIMEOUT")

	config.Assessment.StateGrace = viper.GetDuration("SESSION_STATE_GRACE")
	config.Assessment.PassValidity = viper.GetDuration("SKILL_PASS_VALIDITY")
	config.Assessment.RetestCooldown = viper.GetDuration("SKILL_RETEST_COOLDOWN")

	config.LogLevel = viper.GetString("LOG_LEVEL")

	log.Info().
		Str("port", config.Server.Port).
		Str("db_host", config.Database.Host).
		Str("redis_addr", config.Redis.Addr).
		Dur("state_grace", config.Assessment.StateGrace).
		Msg("Config loaded")
	return &config, nil
}
