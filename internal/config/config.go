package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	AWS      AWSConfig      `json:"aws"`
	IPFS     IPFSConfig     `json:"ipfs"`
	Minting  MintingConfig  `json:"minting"`
	Payments PaymentsConfig `json:"payments"`
	Workflow WorkflowConfig `json:"workflow"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// AWSConfig covers S3 file storage and SES mail delivery.
type AWSConfig struct {
	Region         string `json:"region"`
	DocumentBucket string `json:"document_bucket"`
	SenderAddress  string `json:"sender_address"`
}

// IPFSConfig points at the content-pinning node used before minting.
type IPFSConfig struct {
	APIURL  string        `json:"api_url"`
	Timeout time.Duration `json:"timeout"`
}

// MintingConfig points at the chain gateway that mints notarization NFTs.
type MintingConfig struct {
	GatewayURL      string        `json:"gateway_url"`
	APIKey          string        `json:"api_key"`
	ContractAddress string        `json:"contract_address"`
	Timeout         time.Duration `json:"timeout"`
}

// PaymentsConfig points at the checkout-link provider.
type PaymentsConfig struct {
	GatewayURL string        `json:"gateway_url"`
	APIKey     string        `json:"api_key"`
	ReturnURL  string        `json:"return_url"`
	CancelURL  string        `json:"cancel_url"`
	Timeout    time.Duration `json:"timeout"`
}

// WorkflowConfig tunes the status engine and the auto-verify sweep.
type WorkflowConfig struct {
	// StalenessThreshold is how long a pending subject may sit untouched
	// before the sweep picks it up.
	StalenessThreshold time.Duration `json:"staleness_threshold"`
	// SweepInterval is the cadence of the auto-verify sweep.
	SweepInterval time.Duration `json:"sweep_interval"`
	// DependencyTimeout bounds every external collaborator call.
	DependencyTimeout time.Duration `json:"dependency_timeout"`
	// ExactDocumentMatch switches required-document satisfaction from
	// substring matching to exact filename matching.
	ExactDocumentMatch bool `json:"exact_document_match"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "notary_portal",
			SSLMode: "disable",
		},
		AWS: AWSConfig{
			Region:         "us-east-1",
			DocumentBucket: "notary-portal-docs",
		},
		IPFS: IPFSConfig{
			APIURL:  "http://localhost:5001",
			Timeout: 30 * time.Second,
		},
		Workflow: WorkflowConfig{
			StalenessThreshold: time.Minute,
			SweepInterval:      time.Minute,
			DependencyTimeout:  30 * time.Second,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.AWS.Region = region
	}
	if bucket := os.Getenv("DOCUMENT_BUCKET"); bucket != "" {
		config.AWS.DocumentBucket = bucket
	}
	if sender := os.Getenv("MAIL_SENDER"); sender != "" {
		config.AWS.SenderAddress = sender
	}
	if url := os.Getenv("IPFS_API_URL"); url != "" {
		config.IPFS.APIURL = url
	}
	if url := os.Getenv("MINT_GATEWAY_URL"); url != "" {
		config.Minting.GatewayURL = url
	}
	if key := os.Getenv("MINT_API_KEY"); key != "" {
		config.Minting.APIKey = key
	}
	if url := os.Getenv("PAYMENT_GATEWAY_URL"); url != "" {
		config.Payments.GatewayURL = url
	}
	if key := os.Getenv("PAYMENT_API_KEY"); key != "" {
		config.Payments.APIKey = key
	}
	if threshold := os.Getenv("WORKFLOW_STALENESS_THRESHOLD"); threshold != "" {
		if d, err := time.ParseDuration(threshold); err == nil {
			config.Workflow.StalenessThreshold = d
		}
	}
	if interval := os.Getenv("WORKFLOW_SWEEP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Workflow.SweepInterval = d
		}
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
