// Package config assembles the service settings from defaults, an optional
// .env file, environment variables and finally command-line flags.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	HTTPAddr       string
	DatabaseDriver string
	DatabaseDSN    string
	ModelPath      string
	DatasetPath    string
	// JWTSecret signs API tokens. When unset a random secret is generated,
	// so tokens do not survive a restart.
	JWTSecret  string
	TokenTTL   time.Duration
	// SessionTTL is how long an idle browser session is kept.
	SessionTTL time.Duration
	BcryptCost int
	LogLevel   string

	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "users.db"
	c.ModelPath = "newmodel.json"
	c.DatasetPath = "noshow.xlsx"
	c.TokenTTL = 72 * time.Hour
	c.SessionTTL = 8 * time.Hour
	c.BcryptCost = bcrypt.DefaultCost
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
}

// Load reads .env (if present), the environment and args. args excludes the
// program name.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.loadEnv()
	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
	}
	return cfg, nil
}

func (c *Config) loadEnv() {
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.DatabaseDriver = getenv("DB_DRIVER", c.DatabaseDriver)
	c.DatabaseDSN = getenv("DATABASE_DSN", c.DatabaseDSN)
	c.ModelPath = getenv("MODEL_PATH", c.ModelPath)
	c.DatasetPath = getenv("DATASET_PATH", c.DatasetPath)
	c.JWTSecret = getenv("JWT_SECRET", c.JWTSecret)
	c.TokenTTL = getenvDuration("TOKEN_TTL", c.TokenTTL)
	c.SessionTTL = getenvDuration("SESSION_TTL", c.SessionTTL)
	c.BcryptCost = getenvInt("BCRYPT_COST", c.BcryptCost)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.S3Region = getenv("S3_REGION", c.S3Region)
	c.S3Endpoint = getenv("S3_ENDPOINT", c.S3Endpoint)
	c.S3AccessKey = getenv("S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = getenv("S3_SECRET_KEY", c.S3SecretKey)
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("noshow", flag.ContinueOnError)

	flags.StringVar(&c.HTTPAddr, "a", c.HTTPAddr, "address and port to listen on")
	flags.StringVar(&c.DatabaseDriver, "driver", c.DatabaseDriver, "database driver (sqlite or postgres)")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN or sqlite file")
	flags.StringVar(&c.ModelPath, "m", c.ModelPath, "classifier artifact path (file or s3://bucket/key)")
	flags.StringVar(&c.DatasetPath, "data", c.DatasetPath, "no-show dataset path (.xlsx or .csv, file or s3://bucket/key)")
	flags.StringVar(&c.JWTSecret, "s", c.JWTSecret, "API token secret")
	flags.DurationVar(&c.TokenTTL, "t", c.TokenTTL, "API token lifetime")
	flags.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "idle browser session lifetime")
	flags.IntVar(&c.BcryptCost, "cost", c.BcryptCost, "bcrypt cost")
	flags.StringVar(&c.LogLevel, "log", c.LogLevel, "log level")

	return flags.Parse(args)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
