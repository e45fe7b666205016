// Package config loads process configuration and builds the AWS clients.
//
// Values are layered from lowest to highest priority:
//  1. Defaults
//  2. The YAML file named by ORDERTABLE_CONFIG, if set
//  3. Environment variables, optionally seeded from a .env file
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/ordertable/store"
)

// FileEnv names the environment variable holding the YAML config path.
const FileEnv = "ORDERTABLE_CONFIG"

// Config is the runtime configuration shared by the Lambda entry points.
type Config struct {
	TableName        string `yaml:"table_name"`
	ReverseIndexName string `yaml:"reverse_index_name"`
	ConsistentRead   bool   `yaml:"consistent_read"`

	Region   string `yaml:"region"`
	Profile  string `yaml:"profile"`
	Endpoint string `yaml:"endpoint"`

	// Static credentials, mostly for DynamoDB Local.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	sc := store.DefaultConfig()
	return Config{
		TableName:        sc.TableName,
		ReverseIndexName: sc.ReverseIndexName,
		LogLevel:         "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file and the environment.
// A missing .env file is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	strs := map[string]*string{
		"TABLE_NAME":            &c.TableName,
		"REVERSE_INDEX_NAME":    &c.ReverseIndexName,
		"AWS_REGION":            &c.Region,
		"AWS_PROFILE":           &c.Profile,
		"DYNAMODB_ENDPOINT":     &c.Endpoint,
		"AWS_ACCESS_KEY_ID":     &c.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY": &c.SecretAccessKey,
		"LOG_LEVEL":             &c.LogLevel,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("CONSISTENT_READ"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CONSISTENT_READ: %w", err)
		}
		c.ConsistentRead = b
	}
	return nil
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.TableName) == "" {
		errs = append(errs, errors.New("table name is required"))
	}
	if strings.TrimSpace(c.ReverseIndexName) == "" {
		errs = append(errs, errors.New("reverse index name is required"))
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		errs = append(errs, errors.New("access key id and secret access key must be set together"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StoreConfig returns the store settings.
func (c Config) StoreConfig() store.Config {
	return store.Config{
		TableName:        c.TableName,
		ReverseIndexName: c.ReverseIndexName,
		ConsistentRead:   c.ConsistentRead,
	}
}

// Logger returns a JSON logger writing to stdout at the configured level.
func (c Config) Logger() *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}

// AWSConfig loads the shared AWS configuration with any region, profile and
// static credentials overrides applied.
func (c Config) AWSConfig(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	if c.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(c.Profile))
	}
	if c.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// DynamoDB returns a client for the configured region and endpoint.
func (c Config) DynamoDB(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := c.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}

// Store returns a store bound to the configured table.
func (c Config) Store(ctx context.Context) (*store.Store, error) {
	client, err := c.DynamoDB(ctx)
	if err != nil {
		return nil, err
	}
	return store.New(client, c.StoreConfig()), nil
}
