// Package config loads the relay settings.
//
// Sources, lowest precedence first:
//  1. built-in defaults
//  2. an optional YAML file
//  3. environment variables, including those read from a .env file
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPort        = "8080"
	DefaultLogLevel    = "info"
	DefaultBotUserName = "slackbot"
	DefaultTimezone    = "Local"
	DefaultWorkerCount = 2
	DefaultQueueSize   = 100
	DefaultJobHistory  = 500
)

// Config holds all settings for the server and the CLI.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Slack SlackConfig `yaml:"slack"`
	Zaim  ZaimConfig  `yaml:"zaim"`
	Jobs  JobsConfig  `yaml:"jobs"`

	// AdminToken guards /api/jobs. Empty disables those endpoints.
	AdminToken string `yaml:"admin_token"`

	// CredentialsFile is a Google service account key used for gs:// URIs.
	// Empty means application default credentials.
	CredentialsFile string `yaml:"credentials_file"`
}

// SlackConfig holds the Slack side.
type SlackConfig struct {
	// Token is the bot token used for reactions and replies.
	Token string `yaml:"token"`

	// WebhookToken is the shared token of the outgoing webhook.
	WebhookToken string `yaml:"webhook_token"`

	// BotUserName is ignored as a sender so the bot never answers itself.
	BotUserName string `yaml:"bot_user_name"`

	// APIURL overrides the Slack Web API base URL.
	APIURL string `yaml:"api_url"`
}

// ZaimConfig holds the Zaim side.
type ZaimConfig struct {
	ConsumerKey      string `yaml:"consumer_key"`
	ConsumerSecret   string `yaml:"consumer_secret"`
	OAuthToken       string `yaml:"oauth_token"`
	OAuthTokenSecret string `yaml:"oauth_token_secret"`
	APIURL           string `yaml:"api_url"`

	// Genre is the inline category table JSON.
	Genre string `yaml:"genre"`

	// GenreURI is a file path or gs:// URI holding the table.
	GenreURI string `yaml:"genre_uri"`

	// Timezone names the zone "today" is computed in.
	Timezone string `yaml:"timezone"`
}

// JobsConfig sizes the background queue.
type JobsConfig struct {
	WorkerCount int `yaml:"worker_count"`
	QueueSize   int `yaml:"queue_size"`
	History     int `yaml:"history"`
}

// Load builds the configuration. path may be empty, in which case
// CONFIG_FILE is consulted. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Load: .env: %w", err)
	}

	cfg := &Config{}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Load: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("Load: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("Load: %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("PORT", &c.Port)
	str("LOG_LEVEL", &c.LogLevel)
	str("ADMIN_TOKEN", &c.AdminToken)
	str("GOOGLE_APPLICATION_CREDENTIALS_FILE", &c.CredentialsFile)

	str("SLACK_TOKEN", &c.Slack.Token)
	str("SLACK_OUTGOING_WEBHOOKS_TOKEN", &c.Slack.WebhookToken)
	str("SLACK_BOT_USER_NAME", &c.Slack.BotUserName)
	str("SLACK_API_URL", &c.Slack.APIURL)

	str("CONSUMER_KEY", &c.Zaim.ConsumerKey)
	str("CONSUMER_SECRET", &c.Zaim.ConsumerSecret)
	str("OAUTH_TOKEN", &c.Zaim.OAuthToken)
	str("OAUTH_TOKEN_SECRET", &c.Zaim.OAuthTokenSecret)
	str("ZAIM_API_URL", &c.Zaim.APIURL)
	str("ZAIM_GENRE", &c.Zaim.Genre)
	str("ZAIM_GENRE_URI", &c.Zaim.GenreURI)
	str("ZAIM_TIMEZONE", &c.Zaim.Timezone)

	for key, dst := range map[string]*int{
		"WORKER_COUNT": &c.Jobs.WorkerCount,
		"QUEUE_SIZE":   &c.Jobs.QueueSize,
		"JOB_HISTORY":  &c.Jobs.History,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Slack.BotUserName == "" {
		c.Slack.BotUserName = DefaultBotUserName
	}
	if c.Zaim.Timezone == "" {
		c.Zaim.Timezone = DefaultTimezone
	}
	if c.Jobs.WorkerCount <= 0 {
		c.Jobs.WorkerCount = DefaultWorkerCount
	}
	if c.Jobs.QueueSize <= 0 {
		c.Jobs.QueueSize = DefaultQueueSize
	}
	if c.Jobs.History <= 0 {
		c.Jobs.History = DefaultJobHistory
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Zaim.Timezone)
	if err != nil {
		return nil, fmt.Errorf("Location: %w", err)
	}
	return loc, nil
}

// ValidateZaim checks the four OAuth secrets the Zaim client needs.
func (c *Config) ValidateZaim() error {
	var missing []string
	for key, v := range map[string]string{
		"CONSUMER_KEY":       c.Zaim.ConsumerKey,
		"CONSUMER_SECRET":    c.Zaim.ConsumerSecret,
		"OAUTH_TOKEN":        c.Zaim.OAuthToken,
		"OAUTH_TOKEN_SECRET": c.Zaim.OAuthTokenSecret,
	} {
		if v == "" {
			missing = append(missing, key)
		}
	}
	return missingError(missing)
}

// Validate checks everything the server needs to start.
func (c *Config) Validate() error {
	var missing []string
	if c.Slack.Token == "" {
		missing = append(missing, "SLACK_TOKEN")
	}
	if c.Slack.WebhookToken == "" {
		missing = append(missing, "SLACK_OUTGOING_WEBHOOKS_TOKEN")
	}
	if err := missingError(missing); err != nil {
		return err
	}
	if err := c.ValidateZaim(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("Validate: ZAIM_TIMEZONE: %w", err)
	}
	return nil
}

func missingError(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	slices.Sort(keys)
	return fmt.Errorf("Validate: missing required settings: %s", strings.Join(keys, ", "))
}
