package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	StoreDriver string // "mysql" (default) or "memory"
	AutoMigrate bool   // apply the schema on startup
	DB          DatabaseConfig

	JWTSecret        string // secret used to sign admin JWTs
	AdminPIN         string // plain admin PIN, hashed at startup (optional when AdminPINHash is set)
	AdminPINHash     string // bcrypt hash of the admin PIN
	AdminTokenTTLMin int    // admin token time-to-live in minutes
	BcryptCost       int    // bcrypt cost for PIN hashing

	RabbitURL             string // broker URL; empty disables event publishing
	TicketConsumerEnabled bool   // run the ticket log consumer inside the server
	TicketLogPath         string // where the consumer appends ticket lines
}

// DatabaseConfig holds the MySQL connection settings.
type DatabaseConfig struct {
	User, Pass       string
	Host, Port, Name string
	MaxOpenConns     int
	ConnMaxLifetime  time.Duration
}

// LoadDotEnv loads a .env file from the working directory when present.
// Variables already set in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Database variables
// are only required for the mysql store.
func Load() Config {
	cfg := Config{
		Env:                   must("APP_ENV"),
		Port:                  must("APP_PORT"),
		StoreDriver:           strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
		AutoMigrate:           envBool("DB_AUTO_MIGRATE", false),
		JWTSecret:             must("JWT_SECRET"),
		AdminPIN:              os.Getenv("ADMIN_PIN"),
		AdminPINHash:          os.Getenv("ADMIN_PIN_HASH"),
		AdminTokenTTLMin:      envInt("ADMIN_TOKEN_TTL_MIN", 120),
		BcryptCost:            envInt("BCRYPT_COST", 10),
		RabbitURL:             RabbitURL(),
		TicketConsumerEnabled: envBool("TICKET_CONSUMER_ENABLED", false),
		TicketLogPath:         envStr("TICKET_LOG_PATH", "logs/tickets.log"),
	}
	if cfg.AdminPIN == "" && cfg.AdminPINHash == "" {
		log.Fatalf("missing required env var: ADMIN_PIN or ADMIN_PIN_HASH")
	}
	if cfg.AdminTokenTTLMin < 1 {
		cfg.AdminTokenTTLMin = 120
	}
	driver, err := ParseStoreDriver(cfg.StoreDriver)
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg.StoreDriver = driver
	if cfg.StoreDriver == StoreMySQL {
		cfg.DB = LoadDatabase()
	}
	return cfg
}

// ParseStoreDriver normalises a STORE_DRIVER value.  Empty means mysql.
func ParseStoreDriver(raw string) (string, error) {
	switch d := strings.ToLower(strings.TrimSpace(raw)); d {
	case "", StoreMySQL:
		return StoreMySQL, nil
	case StoreMemory:
		return StoreMemory, nil
	default:
		return "", fmt.Errorf("unknown STORE_DRIVER %q: want %s or %s", raw, StoreMySQL, StoreMemory)
	}
}

// LoadDatabase reads the MySQL settings.
func LoadDatabase() DatabaseConfig {
	return DatabaseConfig{
		User:            must("DB_USER"),      // database user
		Pass:            os.Getenv("DB_PASS"), // database password (empty allowed)
		Host:            must("DB_HOST"),      // database host
		Port:            must("DB_PORT"),      // database port
		Name:            must("DB_NAME"),      // database name
		MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
		ConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

// AdminTokenTTL returns the admin token lifetime.
func (c Config) AdminTokenTTL() time.Duration {
	return time.Duration(c.AdminTokenTTLMin) * time.Minute
}

// RabbitURL returns RABBITMQ_URL, falling back to AMQP_URL.
func RabbitURL() string {
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		return url
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
