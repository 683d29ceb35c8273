package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/feedwatch/gazette"
)

// daemonConfig is the top-level feedwatchd configuration.
type daemonConfig struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// DBPath is the main database (records, readers, queue).
	DBPath string `yaml:"db_path"`
	// EventsDBPath is the observability database. Kept separate so event
	// writes never contend with the record store.
	EventsDBPath string `yaml:"events_db_path"`
	// OpenAIModel selects the summarization model. The API key comes from
	// the OPENAI_API_KEY environment variable; without it enrichment is
	// disabled and records are served unenriched.
	OpenAIModel string `yaml:"openai_model"`
	// MaxBodyBytes caps request body sizes on the public router.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// Gazette configures the core service.
	Gazette gazette.Config `yaml:"gazette"`
}

func (c *daemonConfig) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "data/feedwatch.db"
	}
	if c.EventsDBPath == "" {
		c.EventsDBPath = "data/feedwatch_events.db"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
}

// loadConfigFile reads a YAML configuration file. A missing path yields the
// defaults.
func loadConfigFile(path string) (*daemonConfig, error) {
	var cfg daemonConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}
