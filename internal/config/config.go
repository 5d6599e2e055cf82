package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	AdminUserID      int64  `env:"ADMIN_USER"`

	// Storage
	StoreDriver     string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"data/reviews.db"`
	MongoURI        string `env:"MONGO_URI"`
	MongoDatabase   string `env:"MONGO_DATABASE" envDefault:"reviews"`
	ReviewsFilePath string `env:"REVIEWS_FILE_PATH" envDefault:"data/reviews.jsonl"`

	// Dialog
	MessagesFilePath string        `env:"MESSAGES_FILE_PATH"`
	Cooldown         time.Duration `env:"COOLDOWN" envDefault:"4h"`
	ResetDelay       time.Duration `env:"RESET_DELAY" envDefault:"3s"`
	ExcerptLimit     int           `env:"EXCERPT_LIMIT" envDefault:"3"`
	SupportContact   string        `env:"SUPPORT_CONTACT" envDefault:"@aaghsnnn"`

	// Reports
	ReportCron string `env:"REPORT_CRON" envDefault:"0 21 * * *"`

	// Formatting
	MessageParseMode string `env:"MESSAGE_PARSE_MODE"`
}

func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Parse reads the environment without exiting on failure.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
