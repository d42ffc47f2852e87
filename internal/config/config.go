package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Trello   TrelloConfig   `mapstructure:"trello"   validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects and configures the persistence backend.
// Driver "memory" runs entirely in-process; "postgres" requires a URL.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL    string `mapstructure:"url"    validate:"required_if=Driver postgres,omitempty,url"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// TrelloConfig contains settings for the Trello integration.
type TrelloConfig struct {
	// APIKey is the service-level Trello API key sent with every request.
	APIKey string `mapstructure:"api_key" validate:"required"`

	// BoardName is the board all tasks are synchronized onto.
	BoardName string `mapstructure:"board_name" validate:"required"`

	// TokenName is the application name shown on the Trello authorize page.
	TokenName string `mapstructure:"token_name" validate:"required"`

	// TokenExpirationDays controls the requested token lifetime on the
	// authorize URL.
	TokenExpirationDays int `mapstructure:"token_expiration_days" validate:"required,gt=0"`
}

// WorkerConfig contains settings for the background sync workers.
type WorkerConfig struct {
	Count     int `mapstructure:"count"      validate:"required,gt=0"`
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// MaxAttempts bounds how many times a sync job is tried before the task
	// is marked ERROR.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gt=0"`

	// RetryIntervalSeconds is the fixed delay between attempts.
	RetryIntervalSeconds int `mapstructure:"retry_interval_seconds" validate:"required,gt=0"`
}
