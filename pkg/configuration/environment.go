package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/org-import/pkg/logging"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"org_import"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.Password, d.SSLMode,
	)
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"org-import"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
}

type PrometheusOptions struct {
	// When set, the CLI writes the metrics of a run to this file in text exposition format.
	TextfilePath string `env:"PROMETHEUS_TEXTFILE_PATH"`
}

// ImportOptions are the defaults applied when a CLI flag is not given.
type ImportOptions struct {
	SkipOnError         bool   `env:"IMPORT_SKIP_ON_ERROR" envDefault:"false"`
	UseTransaction      bool   `env:"IMPORT_USE_TRANSACTION" envDefault:"true"`
	ReferencePolicy     string `env:"IMPORT_REFERENCE_POLICY" envDefault:"batch"`
	Mode                string `env:"IMPORT_MODE" envDefault:"upsert"`
	DetectManagerCycles bool   `env:"IMPORT_DETECT_MANAGER_CYCLES" envDefault:"true"`
	HeaderAliasesPath   string `env:"IMPORT_HEADER_ALIASES"`
	MigrationsTable     string `env:"IMPORT_MIGRATIONS_TABLE" envDefault:"org_import_goose_db_version"`
}

func (o *ImportOptions) Validate() error {
	policy := strings.ToLower(strings.TrimSpace(o.ReferencePolicy))
	if policy == "" {
		policy = "batch"
	}
	switch policy {
	case "batch", "record":
	default:
		return fmt.Errorf("invalid IMPORT_REFERENCE_POLICY=%q (expected batch|record)", o.ReferencePolicy)
	}
	o.ReferencePolicy = policy

	mode := strings.ToLower(strings.TrimSpace(o.Mode))
	if mode == "" {
		mode = "upsert"
	}
	switch mode {
	case "upsert", "create":
	default:
		return fmt.Errorf("invalid IMPORT_MODE=%q (expected upsert|create)", o.Mode)
	}
	o.Mode = mode
	return nil
}

type Configuration struct {
	Database      DatabaseOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	Import        ImportOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Load reads configuration from the given env files and the process environment.
// Unlike Use it does not cache, which keeps tests independent of each other.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && os.Getenv("LOG_LEVEL") == "debug" {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import configuration error: %w", err)
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
