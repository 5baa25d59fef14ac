package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tradesync/pkg/retry"
	"github.com/ruslano69/tradesync/pkg/storage"
)

// Config is the full configuration of one sync pipeline.
type Config struct {
	Name      string           `yaml:"name"`
	CSV       CSVConfig        `yaml:"csv"`
	Storage   storage.S3Config `yaml:"storage"`
	Retry     retry.Config     `yaml:"retry"`
	Target    TargetConfig     `yaml:"target"`
	Backup    BackupConfig     `yaml:"backup"`
	Upload    UploadConfig     `yaml:"upload"`
	State     StateConfig      `yaml:"state"`
	Audit     AuditConfig      `yaml:"audit"`
	ResultLog ResultLogConfig  `yaml:"result_log"`
	Notify    NotifyConfig     `yaml:"notify"`
	Report    ReportConfig     `yaml:"report"`
}

// CSVConfig describes the export wire format.
type CSVConfig struct {
	Delimiter     string   `yaml:"delimiter"`      // field separator, default ";"
	Encoding      string   `yaml:"encoding"`       // utf-8 (default) or latin-1
	DecimalSep    string   `yaml:"decimal_sep"`    // output decimal separator, default ","
	NumericFields []string `yaml:"numeric_fields"` // columns receiving numeric normalization
	DateField     string   `yaml:"date_field"`     // column parsed for sorting
	DateFormats   []string `yaml:"date_formats"`   // accepted date layouts, in priority order
}

// TargetConfig names the master ledger in remote storage.
type TargetConfig struct {
	MasterName string `yaml:"master_name"` // ledger file name, e.g. master.csv
	Prefix     string `yaml:"prefix"`      // folder/prefix holding the ledger
}

// BackupConfig controls the backup chain.
type BackupConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Folder   string `yaml:"folder"`   // backup folder name under the target prefix
	Keep     int    `yaml:"keep"`     // how many backups retention preserves
	Compress bool   `yaml:"compress"` // zstd-compress backup payloads
}

// UploadConfig controls upload concurrency.
type UploadConfig struct {
	Workers int `yaml:"workers"` // concurrent storage operations, default 3
}

// StateConfig locates the local sync checkpoint.
type StateConfig struct {
	Path string `yaml:"path"` // empty disables checkpointing
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Output   string `yaml:"output"`   // JSONL file path
	Database string `yaml:"database"` // SQLite path, empty = file only
}

// ResultLogConfig publishes run results to Redis so an orchestrator can
// poll (GET) or subscribe to them.
type ResultLogConfig struct {
	Type     string `yaml:"type"`     // "redis", empty = disabled
	Address  string `yaml:"address"`  // e.g. "127.0.0.1:6379"
	Password string `yaml:"password"` // optional
	DB       int    `yaml:"db"`       // database index, default 0
	TTL      int    `yaml:"ttl"`      // key TTL in seconds, default 3600
}

// NotifyConfig publishes sync events to a message broker.
type NotifyConfig struct {
	Type     string          `yaml:"type"` // "rabbitmq", "kafka", empty = disabled
	RabbitMQ *RabbitMQConfig `yaml:"rabbitmq,omitempty"`
	Kafka    *KafkaConfig    `yaml:"kafka,omitempty"`
}

// RabbitMQConfig carries RabbitMQ connection parameters.
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Queue    string `yaml:"queue"`
}

// KafkaConfig carries Kafka connection parameters.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ReportConfig controls the optional XLSX export of the merged ledger.
type ReportConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Destination string `yaml:"destination"` // output file path
	Sheet       string `yaml:"sheet"`       // sheet name, empty = "Transactions"
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks required fields and cross-section consistency.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("pipeline name is required")
	}

	if c.Target.MasterName == "" {
		return fmt.Errorf("target: master_name is required")
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}

	if len(c.CSV.Delimiter) > 1 {
		return fmt.Errorf("csv: delimiter must be a single character, got %q", c.CSV.Delimiter)
	}
	if len(c.CSV.DecimalSep) > 1 {
		return fmt.Errorf("csv: decimal_sep must be a single character, got %q", c.CSV.DecimalSep)
	}

	if c.Backup.Enabled {
		if c.Backup.Folder == "" {
			return fmt.Errorf("backup: folder is required when enabled")
		}
		if c.Backup.Keep < 0 {
			return fmt.Errorf("backup: keep must be >= 0, got %d", c.Backup.Keep)
		}
	}

	switch c.Notify.Type {
	case "", "rabbitmq", "kafka":
	default:
		return fmt.Errorf("notify: unsupported type %q, must be rabbitmq or kafka", c.Notify.Type)
	}
	if c.Notify.Type == "rabbitmq" && c.Notify.RabbitMQ == nil {
		return fmt.Errorf("notify: rabbitmq section is required for type rabbitmq")
	}
	if c.Notify.Type == "kafka" && (c.Notify.Kafka == nil || len(c.Notify.Kafka.Brokers) == 0) {
		return fmt.Errorf("notify: kafka brokers are required for type kafka")
	}

	if c.ResultLog.Type != "" && c.ResultLog.Type != "redis" {
		return fmt.Errorf("result_log: unsupported type %q, only redis is supported", c.ResultLog.Type)
	}
	if c.ResultLog.Type == "redis" && c.ResultLog.Address == "" {
		return fmt.Errorf("result_log: address is required for type redis")
	}

	if c.Report.Enabled && c.Report.Destination == "" {
		return fmt.Errorf("report: destination is required when enabled")
	}

	return nil
}

// SetDefaults fills the optional fields.
func (c *Config) SetDefaults() {
	if c.CSV.Delimiter == "" {
		c.CSV.Delimiter = ";"
	}
	if c.CSV.Encoding == "" {
		c.CSV.Encoding = "utf-8"
	}
	if c.CSV.DecimalSep == "" {
		c.CSV.DecimalSep = ","
	}
	if c.CSV.DateField == "" {
		c.CSV.DateField = "Data"
	}
	if len(c.CSV.NumericFields) == 0 {
		c.CSV.NumericFields = []string{"Valore", "Commissioni", "Tasse"}
	}

	if !c.Retry.Enabled && c.Retry.MaxAttempts == 0 {
		c.Retry = retry.DefaultConfig()
	}

	if c.Upload.Workers <= 0 {
		c.Upload.Workers = 3
	}

	if c.Backup.Enabled && c.Backup.Keep == 0 {
		c.Backup.Keep = 10
	}

	if c.ResultLog.Type == "redis" && c.ResultLog.TTL == 0 {
		c.ResultLog.TTL = 3600
	}

	if c.Report.Sheet == "" {
		c.Report.Sheet = "Transactions"
	}
}
