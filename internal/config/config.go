// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Transport TransportConfig `mapstructure:"transport"`
	Robot     RobotConfig     `mapstructure:"robot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLS             TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// TransportConfig selects and configures the byte link to the controller
type TransportConfig struct {
	Type      string          `mapstructure:"type"`
	Serial    SerialConfig    `mapstructure:"serial"`
	TCP       TCPConfig       `mapstructure:"tcp"`
	USB       USBConfig       `mapstructure:"usb"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
}

// SerialConfig represents serial port line settings
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	StopBits    int           `mapstructure:"stop_bits"`
	Parity      string        `mapstructure:"parity"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// TCPConfig represents a TCP serial bridge
type TCPConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	KeepAlive      bool          `mapstructure:"keep_alive"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// USBConfig represents a USB bulk endpoint pair
type USBConfig struct {
	VendorID    string        `mapstructure:"vendor_id"`
	ProductID   string        `mapstructure:"product_id"`
	InEndpoint  int           `mapstructure:"in_endpoint"`
	OutEndpoint int           `mapstructure:"out_endpoint"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// SimulatorConfig configures the in-process controller
type SimulatorConfig struct {
	Motors       []int         `mapstructure:"motors"`
	SilentMotors []int         `mapstructure:"silent_motors"`
	Latency      time.Duration `mapstructure:"latency"`
	ReadyBanner  bool          `mapstructure:"ready_banner"`
}

// RobotConfig represents command router tuning
type RobotConfig struct {
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	PingTimeout    time.Duration `mapstructure:"ping_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	ReadyTimeout   time.Duration `mapstructure:"ready_timeout"`
	ScanInterval   time.Duration `mapstructure:"scan_interval"`
	BatchInterval  time.Duration `mapstructure:"batch_interval"`
	ReadBufferSize int           `mapstructure:"read_buffer_size"`
	MaxLineLength  int           `mapstructure:"max_line_length"`
	ConnectOnStart bool          `mapstructure:"connect_on_start"`
	WaitReady      bool          `mapstructure:"wait_ready"`
}

// DatabaseConfig represents the command journal database
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"dbname"`
	SSLMode        string        `mapstructure:"sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	MigrationsPath string        `mapstructure:"migrations_path"`
	Retention      time.Duration `mapstructure:"retention"`
	MemoryLimit    int           `mapstructure:"memory_limit"`
}

// TelemetryConfig represents the Redis event publisher
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	RedisAddr    string `mapstructure:"redis_addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	Channel      string `mapstructure:"channel"`
	HistoryKey   string `mapstructure:"history_key"`
	HistoryLimit int64  `mapstructure:"history_limit"`
}

// MetricsConfig represents Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from config.yaml and ROBOT_SERVICE_* environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/robot-service")

	return LoadWith(v)
}

// LoadWith reads configuration through a prepared viper instance
func LoadWith(v *viper.Viper) (*Config, error) {
	// Environment variable support
	v.SetEnvPrefix("ROBOT_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Defaults plus environment are a complete configuration
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "robot-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.tls.enabled", false)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Transport defaults
	v.SetDefault("transport.type", "serial")
	v.SetDefault("transport.serial.port", "/dev/ttyACM0")
	v.SetDefault("transport.serial.baud_rate", 115200)
	v.SetDefault("transport.serial.data_bits", 8)
	v.SetDefault("transport.serial.stop_bits", 1)
	v.SetDefault("transport.serial.parity", "none")
	v.SetDefault("transport.serial.read_timeout", "100ms")

	v.SetDefault("transport.tcp.port", 4000)
	v.SetDefault("transport.tcp.keep_alive", true)
	v.SetDefault("transport.tcp.connect_timeout", "5s")
	v.SetDefault("transport.tcp.read_timeout", "100ms")
	v.SetDefault("transport.tcp.write_timeout", "2s")

	v.SetDefault("transport.usb.in_endpoint", 1)
	v.SetDefault("transport.usb.out_endpoint", 1)
	v.SetDefault("transport.usb.read_timeout", "100ms")

	v.SetDefault("transport.simulator.motors", []int{1, 2, 3, 4, 5, 6})
	v.SetDefault("transport.simulator.latency", "5ms")
	v.SetDefault("transport.simulator.ready_banner", true)

	// Robot defaults
	v.SetDefault("robot.command_timeout", "5s")
	v.SetDefault("robot.ping_timeout", "1s")
	v.SetDefault("robot.query_timeout", "2s")
	v.SetDefault("robot.ready_timeout", "5s")
	v.SetDefault("robot.scan_interval", "100ms")
	v.SetDefault("robot.batch_interval", "100ms")
	v.SetDefault("robot.read_buffer_size", 256)
	v.SetDefault("robot.max_line_length", 1024)
	v.SetDefault("robot.connect_on_start", false)
	v.SetDefault("robot.wait_ready", false)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "robot_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "file://migrations")
	v.SetDefault("database.retention", "168h")
	v.SetDefault("database.memory_limit", 1000)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.redis_addr", "localhost:6379")
	v.SetDefault("telemetry.db", 0)
	v.SetDefault("telemetry.channel", "robot:events")
	v.SetDefault("telemetry.history_key", "robot:events:history")
	v.SetDefault("telemetry.history_limit", 500)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !slices.Contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	switch strings.ToLower(config.Transport.Type) {
	case "serial":
		if config.Transport.Serial.Port == "" {
			return fmt.Errorf("transport.serial.port is required")
		}
		validRates := []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 250000, 500000, 1000000}
		if !slices.Contains(validRates, config.Transport.Serial.BaudRate) {
			return fmt.Errorf("invalid baud rate: %d", config.Transport.Serial.BaudRate)
		}
		if config.Transport.Serial.ReadTimeout <= 0 {
			return fmt.Errorf("transport.serial.read_timeout must be positive")
		}
	case "tcp":
		if config.Transport.TCP.Host == "" {
			return fmt.Errorf("transport.tcp.host is required")
		}
		if config.Transport.TCP.Port < 1 || config.Transport.TCP.Port > 65535 {
			return fmt.Errorf("invalid port number: %d", config.Transport.TCP.Port)
		}
		if config.Transport.TCP.ReadTimeout <= 0 {
			return fmt.Errorf("transport.tcp.read_timeout must be positive")
		}
	case "usb":
		if config.Transport.USB.VendorID == "" || config.Transport.USB.ProductID == "" {
			return fmt.Errorf("transport.usb.vendor_id and transport.usb.product_id are required")
		}
		if config.Transport.USB.ReadTimeout <= 0 {
			return fmt.Errorf("transport.usb.read_timeout must be positive")
		}
	case "simulator":
	default:
		return fmt.Errorf("transport.type must be one of: serial, tcp, usb, simulator")
	}

	if config.Robot.CommandTimeout <= 0 || config.Robot.PingTimeout <= 0 || config.Robot.QueryTimeout <= 0 {
		return fmt.Errorf("robot timeouts must be positive")
	}
	if config.Robot.ScanInterval < 0 || config.Robot.BatchInterval < 0 {
		return fmt.Errorf("robot intervals must not be negative")
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
