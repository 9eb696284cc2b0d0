package server

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/kernc"
	"github.com/dekarrin/kernc/server/kcs"
)

const (
	MaxSecretSize = 64
	MinSecretSize = 32
)

// Config is a configuration for a server. It contains all parameters that can
// be used to configure the operation of a compile Server.
type Config struct {

	// TokenSecret is the secret used for signing tokens. If not provided, a
	// default key is used.
	TokenSecret []byte

	// DB is the configuration to use for connecting to the build cache. If
	// not provided, it will be set to a configuration for using an in-memory
	// cache.
	DB kernc.Database

	// UnauthDelayMillis is the amount of additional time to wait
	// (in milliseconds) before sending a response that indicates either that
	// the client was unauthorized or the client was unauthenticated. This is
	// something of an "anti-flood" measure for naive clients attempting
	// non-parallel connections. If not set it will default to 1 second
	// (1000ms). Set this to any negative number to disable the delay.
	UnauthDelayMillis int

	// Workers is the most builds compiled at once. If not set it defaults to
	// the number of CPUs.
	Workers int

	// Clients are the API clients that may log in.
	Clients []kcs.Client
}

// configFile is the TOML layout of a server config file.
type configFile struct {
	TokenSecret string `toml:"token_secret"`
	DB          string `toml:"db"`
	UnauthDelay int    `toml:"unauth_delay_ms"`
	Workers     int    `toml:"workers"`
	Clients     []struct {
		ID         string `toml:"id"`
		SecretHash string `toml:"secret_hash"`
		Admin      bool   `toml:"admin"`
	} `toml:"clients"`
}

// LoadConfig reads a Config from a TOML file of the form:
//
//	token_secret = "..."
//	db = "sqlite:/var/lib/kcserver"
//	unauth_delay_ms = 1000
//	workers = 4
//
//	[[clients]]
//	id = "ci"
//	secret_hash = "<output of kcserver --hash-secret>"
//	admin = true
//
// Every key is optional. The returned Config has not had defaults filled or
// been validated.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// ParseConfig reads a Config from TOML text. See LoadConfig for the format.
func ParseConfig(data []byte) (Config, error) {
	var cf configFile
	if err := toml.Unmarshal(data, &cf); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Config{
		UnauthDelayMillis: cf.UnauthDelay,
		Workers:           cf.Workers,
	}
	if cf.TokenSecret != "" {
		cfg.TokenSecret = []byte(cf.TokenSecret)
	}
	if cf.DB != "" {
		db, err := kernc.ParseDBConnString(cf.DB)
		if err != nil {
			return Config{}, fmt.Errorf("db: %w", err)
		}
		cfg.DB = db
	}
	for _, c := range cf.Clients {
		cfg.Clients = append(cfg.Clients, kcs.Client{ID: c.ID, SecretHash: c.SecretHash, Admin: c.Admin})
	}

	return cfg, nil
}

// UnauthDelay returns the configured time for the UnauthDelay as a
// time.Duration. If cfg.UnauthDelayMillis is set to a number less than 0, this
// will return a zero-valued time.Duration.
func (cfg Config) UnauthDelay() time.Duration {
	if cfg.UnauthDelayMillis < 1 {
		var dur time.Duration
		return dur
	}
	return time.Millisecond * time.Duration(cfg.UnauthDelayMillis)
}

// FillDefaults returns a new Config identitical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	if newCFG.TokenSecret == nil {
		newCFG.TokenSecret = []byte("DEFAULT_TOKEN_SECRET-DO_NOT_USE_IN_PROD!")
	}
	if newCFG.DB.Type == "" || newCFG.DB.Type == kernc.DatabaseNone {
		newCFG.DB = kernc.Database{Type: kernc.DatabaseInMemory}
	}
	if newCFG.UnauthDelayMillis == 0 {
		newCFG.UnauthDelayMillis = 1000
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid; if defaults are intended to be used,
// call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if len(cfg.TokenSecret) < MinSecretSize {
		return fmt.Errorf("token secret: must be at least %d bytes, but is %d", MinSecretSize, len(cfg.TokenSecret))
	}
	if len(cfg.TokenSecret) > MaxSecretSize {
		return fmt.Errorf("token secret: must be no more than %d bytes, but is %d", MaxSecretSize, len(cfg.TokenSecret))
	}
	if err := cfg.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers: must not be negative, but is %d", cfg.Workers)
	}

	seen := map[string]bool{}
	for i, c := range cfg.Clients {
		if c.ID == "" {
			return fmt.Errorf("clients[%d]: id is empty", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("clients[%d]: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true

		if c.SecretHash == "" {
			return fmt.Errorf("clients[%d]: secret_hash is empty", i)
		}
		if _, err := base64.StdEncoding.DecodeString(c.SecretHash); err != nil {
			return fmt.Errorf("clients[%d]: secret_hash is not base64: %w", i, err)
		}
	}

	// all possible values for UnauthDelayMillis are valid, so no need to
	// check it

	return nil
}
