package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration. Both blocks are optional in
// the HCL file; missing values fall back to defaults, and POKER_* environment
// variables override whatever the file provided.
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Table  *TableSettings  `hcl:"table,block"`
}

// ServerSettings contains transport, session, and authentication limits.
type ServerSettings struct {
	Addr                    string `hcl:"addr,optional"`
	LogLevel                string `hcl:"log_level,optional"`
	MaxMessageSize          int    `hcl:"max_message_size,optional"`
	InactivityTimeoutMs     int    `hcl:"inactivity_timeout_ms,optional"`
	MaxConnections          int    `hcl:"max_connections,optional"`
	MaxConnectionsPerIP     int    `hcl:"max_connections_per_ip,optional"`
	SessionTokenExpiryHours int    `hcl:"session_token_expiry_hours,optional"`
	EnableHMAC              bool   `hcl:"enable_hmac,optional"`
	HMACKey                 string `hcl:"hmac_key,optional"`
}

// TableSettings contains the game parameters for the table.
type TableSettings struct {
	SmallBlind     int `hcl:"small_blind,optional"`
	BigBlind       int `hcl:"big_blind,optional"`
	StartingChips  int `hcl:"starting_chips,optional"`
	MaxPlayerChips int `hcl:"max_player_chips,optional"`
	MaxBetPerHand  int `hcl:"max_bet_per_hand,optional"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerSettings{
			Addr:                    "127.0.0.1:8080",
			LogLevel:                "info",
			MaxMessageSize:          4096,
			InactivityTimeoutMs:     600000,
			MaxConnections:          100,
			MaxConnectionsPerIP:     5,
			SessionTokenExpiryHours: 24,
		},
		Table: &TableSettings{
			SmallBlind:     5,
			BigBlind:       10,
			StartingChips:  1000,
			MaxPlayerChips: 1000000,
			MaxBetPerHand:  100000,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file is not an
// error; defaults are used. Environment overrides apply either way.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(filename); err == nil {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
		}

		var loaded Config
		diags = gohcl.DecodeBody(file.Body, nil, &loaded)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
		}
		cfg.merge(&loaded)
	}

	cfg.applyEnv()
	return cfg, nil
}

// merge copies the values a config file actually set over the defaults.
func (c *Config) merge(o *Config) {
	if o.Server != nil {
		if o.Server.Addr != "" {
			c.Server.Addr = o.Server.Addr
		}
		if o.Server.LogLevel != "" {
			c.Server.LogLevel = o.Server.LogLevel
		}
		if o.Server.MaxMessageSize != 0 {
			c.Server.MaxMessageSize = o.Server.MaxMessageSize
		}
		if o.Server.InactivityTimeoutMs != 0 {
			c.Server.InactivityTimeoutMs = o.Server.InactivityTimeoutMs
		}
		if o.Server.MaxConnections != 0 {
			c.Server.MaxConnections = o.Server.MaxConnections
		}
		if o.Server.MaxConnectionsPerIP != 0 {
			c.Server.MaxConnectionsPerIP = o.Server.MaxConnectionsPerIP
		}
		if o.Server.SessionTokenExpiryHours != 0 {
			c.Server.SessionTokenExpiryHours = o.Server.SessionTokenExpiryHours
		}
		if o.Server.EnableHMAC {
			c.Server.EnableHMAC = true
		}
		if o.Server.HMACKey != "" {
			c.Server.HMACKey = o.Server.HMACKey
		}
	}
	if o.Table != nil {
		if o.Table.SmallBlind != 0 {
			c.Table.SmallBlind = o.Table.SmallBlind
		}
		if o.Table.BigBlind != 0 {
			c.Table.BigBlind = o.Table.BigBlind
		}
		if o.Table.StartingChips != 0 {
			c.Table.StartingChips = o.Table.StartingChips
		}
		if o.Table.MaxPlayerChips != 0 {
			c.Table.MaxPlayerChips = o.Table.MaxPlayerChips
		}
		if o.Table.MaxBetPerHand != 0 {
			c.Table.MaxBetPerHand = o.Table.MaxBetPerHand
		}
	}
}

// applyEnv overlays the POKER_* environment variables. Unparseable values
// are ignored, matching how the flags behaved before the HCL config existed.
func (c *Config) applyEnv() {
	envString("POKER_SERVER_ADDR", &c.Server.Addr)
	envInt("POKER_MAX_MESSAGE_SIZE", &c.Server.MaxMessageSize)
	envInt("POKER_INACTIVITY_TIMEOUT_MS", &c.Server.InactivityTimeoutMs)
	envInt("POKER_MAX_CONNECTIONS", &c.Server.MaxConnections)
	envInt("POKER_MAX_CONNECTIONS_PER_IP", &c.Server.MaxConnectionsPerIP)
	envInt("POKER_SESSION_TOKEN_EXPIRY_HOURS", &c.Server.SessionTokenExpiryHours)
	envBool("POKER_ENABLE_HMAC", &c.Server.EnableHMAC)
	envString("POKER_HMAC_KEY", &c.Server.HMACKey)

	envInt("POKER_SMALL_BLIND", &c.Table.SmallBlind)
	envInt("POKER_BIG_BLIND", &c.Table.BigBlind)
	envInt("POKER_STARTING_CHIPS", &c.Table.StartingChips)
	envInt("POKER_MAX_PLAYER_CHIPS", &c.Table.MaxPlayerChips)
	envInt("POKER_MAX_BET_PER_HAND", &c.Table.MaxBetPerHand)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address must not be empty")
	}
	if c.Server.MaxMessageSize <= 0 {
		return fmt.Errorf("max message size must be positive")
	}
	if c.Server.InactivityTimeoutMs <= 0 {
		return fmt.Errorf("inactivity timeout must be positive")
	}
	if c.Server.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be positive")
	}
	if c.Server.MaxConnectionsPerIP <= 0 {
		return fmt.Errorf("max connections per IP must be positive")
	}
	if c.Server.SessionTokenExpiryHours <= 0 {
		return fmt.Errorf("session token expiry must be positive")
	}
	if c.Table.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if c.Table.BigBlind <= c.Table.SmallBlind {
		return fmt.Errorf("big blind must be greater than small blind")
	}
	if c.Table.StartingChips < c.Table.BigBlind {
		return fmt.Errorf("starting chips must cover the big blind")
	}
	if c.Table.MaxPlayerChips < c.Table.StartingChips {
		return fmt.Errorf("max player chips must be at least the starting stack")
	}
	if c.Table.MaxBetPerHand <= 0 {
		return fmt.Errorf("max bet per hand must be positive")
	}
	return nil
}

// InactivityTimeout returns the read-side idle limit as a duration.
func (c *Config) InactivityTimeout() time.Duration {
	return time.Duration(c.Server.InactivityTimeoutMs) * time.Millisecond
}

// SessionTokenExpiry returns the session token lifetime as a duration.
func (c *Config) SessionTokenExpiry() time.Duration {
	return time.Duration(c.Server.SessionTokenExpiryHours) * time.Hour
}
