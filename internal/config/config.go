package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/couchcryptid/rainfall-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/shopspring/decimal"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaEventsTopic string
	KafkaDailyTopic  string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Partitioning rules and the zone naive reading times are read in.
	Rules    domain.Rules
	Location *time.Location

	// Google Sheets sink, disabled when SpreadsheetID is empty.
	SpreadsheetID   string
	EventsSheet     string
	DailySheet      string
	CredentialsFile string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	rules, err := LoadRules()
	if err != nil {
		return nil, err
	}

	loc, err := LoadLocation()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "rainfall-series"),
		KafkaEventsTopic:   sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "rainfall-events"),
		KafkaDailyTopic:    sharedcfg.EnvOrDefault("KAFKA_DAILY_TOPIC", "rainfall-daily"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "rainfall-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Rules:    rules,
		Location: loc,

		SpreadsheetID:   sharedcfg.EnvOrDefault("SHEETS_SPREADSHEET_ID", ""),
		EventsSheet:     sharedcfg.EnvOrDefault("SHEETS_EVENTS_SHEET", "Events"),
		DailySheet:      sharedcfg.EnvOrDefault("SHEETS_DAILY_SHEET", "Daily"),
		CredentialsFile: sharedcfg.EnvOrDefault("GOOGLE_CREDENTIALS_FILE", ""),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaEventsTopic == "" {
		return nil, errors.New("KAFKA_EVENTS_TOPIC is required")
	}
	if cfg.KafkaDailyTopic == "" {
		return nil, errors.New("KAFKA_DAILY_TOPIC is required")
	}
	if cfg.KafkaEventsTopic == cfg.KafkaDailyTopic {
		return nil, errors.New("KAFKA_EVENTS_TOPIC and KAFKA_DAILY_TOPIC must differ")
	}
	if cfg.SpreadsheetID != "" && cfg.EventsSheet == cfg.DailySheet {
		return nil, errors.New("SHEETS_EVENTS_SHEET and SHEETS_DAILY_SHEET must differ")
	}

	return cfg, nil
}

// SheetsEnabled reports whether reports should also be written to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.SpreadsheetID != ""
}

// LoadRules reads the partitioning rules, starting from domain.DefaultRules.
func LoadRules() (domain.Rules, error) {
	rules := domain.DefaultRules()

	gap, err := parsePositiveDuration("EVENT_GAP", rules.Gap)
	if err != nil {
		return domain.Rules{}, err
	}
	rules.Gap = gap

	splitAfter, err := parsePositiveDuration("EVENT_SPLIT_AFTER", rules.SplitAfter)
	if err != nil {
		return domain.Rules{}, err
	}
	rules.SplitAfter = splitAfter

	amount, err := decimal.NewFromString(sharedcfg.EnvOrDefault("EVENT_SPLIT_AMOUNT", rules.SplitAmount.String()))
	if err != nil || amount.IsNegative() {
		return domain.Rules{}, errors.New("invalid EVENT_SPLIT_AMOUNT")
	}
	rules.SplitAmount = amount

	openFirst, err := strconv.ParseBool(sharedcfg.EnvOrDefault("EVENT_OPEN_FIRST", "false"))
	if err != nil {
		return domain.Rules{}, errors.New("invalid EVENT_OPEN_FIRST")
	}
	rules.OpenFirstEvent = openFirst

	return rules, nil
}

// LoadLocation reads READING_TIMEZONE as an IANA zone name.
func LoadLocation() (*time.Location, error) {
	name := sharedcfg.EnvOrDefault("READING_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid READING_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func parsePositiveDuration(key string, def time.Duration) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def.String()))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
