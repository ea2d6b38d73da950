package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/osusproperties/brokerage-core/internal/domain/commission"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Commission CommissionConfig `mapstructure:"commission"`
	Approval   ApprovalConfig   `mapstructure:"approval"`
	Odoo       OdooConfig       `mapstructure:"odoo"`
	Lark       LarkConfig       `mapstructure:"lark"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Report     ReportConfig     `mapstructure:"report"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CommissionConfig holds the allocation policy
type CommissionConfig struct {
	Currency       string  `mapstructure:"currency"`
	RoundingPlaces int32   `mapstructure:"rounding_places"`
	RoundingMode   string  `mapstructure:"rounding_mode"`
	ValidationMode string  `mapstructure:"validation_mode"`
	WarnMarginPct  float64 `mapstructure:"warn_margin_pct"`
}

// ApprovalConfig holds static role grants and the names of the approver parameters
type ApprovalConfig struct {
	ApproverIDsKey string   `mapstructure:"approver_ids_key"`
	ApproverIDKey  string   `mapstructure:"approver_id_key"`
	ParamSource    string   `mapstructure:"param_source"`
	Authors        []string `mapstructure:"authors"`
	Reviewers      []string `mapstructure:"reviewers"`
	Approvers      []string `mapstructure:"approvers"`
	Posters        []string `mapstructure:"posters"`
}

// OdooConfig holds the XML-RPC connection to the ERP
type OdooConfig struct {
	URL        string        `mapstructure:"url"`
	Database   string        `mapstructure:"database"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	RateBurst  int           `mapstructure:"rate_burst"`
	ProductID  int64         `mapstructure:"commission_product_id"`
	CurrencyID int64         `mapstructure:"currency_id"`
}

// Enabled reports whether an Odoo instance is configured
func (o OdooConfig) Enabled() bool {
	return o.URL != ""
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	AppID      string        `mapstructure:"app_id"`
	AppSecret  string        `mapstructure:"app_secret"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
	BaseURL    string        `mapstructure:"base_url"`
	// ReceiveIDType is the im.v1 receive_id_type used for approver messages
	ReceiveIDType string `mapstructure:"receive_id_type"`
	// Recipients maps approver user IDs to Lark receive IDs
	Recipients map[string]string `mapstructure:"recipients"`
}

// Enabled reports whether Lark credentials are present
func (l LarkConfig) Enabled() bool {
	return l.AppID != "" && l.AppSecret != ""
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PromptsPath string        `mapstructure:"prompts_path"`
}

// Enabled reports whether an API key is present
func (o OpenAIConfig) Enabled() bool {
	return o.APIKey != ""
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	ExportPollInterval  time.Duration `mapstructure:"export_poll_interval"`
	ExportBatchSize     int           `mapstructure:"export_batch_size"`
	ExportTimeout       time.Duration `mapstructure:"export_timeout"`
	ScoringPollInterval time.Duration `mapstructure:"scoring_poll_interval"`
	ScoringBatchSize    int           `mapstructure:"scoring_batch_size"`
	ScoringTimeout      time.Duration `mapstructure:"scoring_timeout"`
}

// ReportConfig holds spreadsheet report settings
type ReportConfig struct {
	CompanyName string `mapstructure:"company_name"`
	OutputDir   string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configPath, then overlays variables from an optional .env file
// and the process environment. An empty configPath uses defaults only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "data/brokerage.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("commission.currency", "AED")
	v.SetDefault("commission.rounding_places", 2)
	v.SetDefault("commission.rounding_mode", string(commission.RoundHalfEven))
	v.SetDefault("commission.validation_mode", string(commission.ModeStrict))
	v.SetDefault("commission.warn_margin_pct", 10.0)

	v.SetDefault("approval.approver_ids_key", "account_payment_approval.approval_user_ids")
	v.SetDefault("approval.approver_id_key", "account_payment_approval.approval_user_id")
	v.SetDefault("approval.param_source", "local")

	v.SetDefault("odoo.timeout", 30*time.Second)
	v.SetDefault("odoo.rate_limit", 5.0)
	v.SetDefault("odoo.rate_burst", 2)

	v.SetDefault("lark.api_timeout", 30*time.Second)
	v.SetDefault("lark.receive_id_type", "open_id")

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.max_tokens", 400)
	v.SetDefault("openai.timeout", 60*time.Second)

	v.SetDefault("worker.export_poll_interval", 30*time.Second)
	v.SetDefault("worker.export_batch_size", 10)
	v.SetDefault("worker.export_timeout", 60*time.Second)
	v.SetDefault("worker.scoring_poll_interval", time.Minute)
	v.SetDefault("worker.scoring_batch_size", 5)
	v.SetDefault("worker.scoring_timeout", 90*time.Second)

	v.SetDefault("report.company_name", "OSUS Properties")
	v.SetDefault("report.output_dir", "reports")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars maps credentials to their conventional variable names
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("odoo.url", "ODOO_URL")
	_ = v.BindEnv("odoo.database", "ODOO_DB")
	_ = v.BindEnv("odoo.username", "ODOO_USERNAME")
	_ = v.BindEnv("odoo.password", "ODOO_PASSWORD")
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	if _, err := commission.ParseMode(c.Commission.ValidationMode); err != nil {
		return fmt.Errorf("commission.validation_mode: %w", err)
	}
	if _, err := commission.ParseRoundingMode(c.Commission.RoundingMode); err != nil {
		return fmt.Errorf("commission.rounding_mode: %w", err)
	}
	if c.Commission.RoundingPlaces < 0 || c.Commission.RoundingPlaces > 6 {
		return fmt.Errorf("commission.rounding_places must be between 0 and 6")
	}
	if c.Commission.WarnMarginPct < 0 || c.Commission.WarnMarginPct > 100 {
		return fmt.Errorf("commission.warn_margin_pct must be between 0 and 100")
	}

	if c.Approval.ApproverIDsKey == "" || c.Approval.ApproverIDKey == "" {
		return fmt.Errorf("approval.approver_ids_key and approval.approver_id_key are required")
	}
	switch c.Approval.ParamSource {
	case "local":
	case "odoo":
		if !c.Odoo.Enabled() {
			return fmt.Errorf("approval.param_source is odoo but odoo.url is not set")
		}
	default:
		return fmt.Errorf("approval.param_source must be local or odoo")
	}

	if c.Odoo.Enabled() {
		if c.Odoo.Database == "" || c.Odoo.Username == "" || c.Odoo.Password == "" {
			return fmt.Errorf("odoo.database, odoo.username and odoo.password are required when odoo.url is set")
		}
		if c.Odoo.RateLimit <= 0 {
			return fmt.Errorf("odoo.rate_limit must be positive")
		}
	}

	return nil
}
