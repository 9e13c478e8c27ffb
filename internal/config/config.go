// Package config manages application configuration from default values,
// an optional YAML config file, and BOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration for all components of the
// goalbot system: logging, the Telegram transport, the database, the account
// linking HTTP endpoint, background jobs, and user-visible message texts.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Site      SiteConfig      `mapstructure:"site"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds transport settings.
type TelegramConfig struct {
	Token       string        `mapstructure:"token"        validate:"required"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"required,min=1s,max=5m"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// HTTPConfig holds settings for the account-linking endpoint listener.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// SchedulerConfig holds background job settings. DialogTTL is how long an
// abandoned creation dialog survives before the expiry job clears it.
type SchedulerConfig struct {
	DialogTTL           time.Duration `mapstructure:"dialog_ttl"           validate:"required,min=1m"`
	ExpiryInterval      time.Duration `mapstructure:"expiry_interval"      validate:"required,min=10s"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval" validate:"required,min=1m"`
}

// SiteConfig holds the web application base URL used to build deep links.
type SiteConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// MessagesConfig holds every user-visible reply text. The verification and
// greeting texts contain fmt verbs filled in at send time.
type MessagesConfig struct {
	Greeting           string `mapstructure:"greeting"             validate:"required"`
	VerifyInstructions string `mapstructure:"verify_instructions"  validate:"required"`
	UnknownCommand     string `mapstructure:"unknown_command"      validate:"required"`
	SomethingWrong     string `mapstructure:"something_wrong"      validate:"required"`
	Cancelled          string `mapstructure:"cancelled"            validate:"required"`
	DialogExpired      string `mapstructure:"dialog_expired"       validate:"required"`
	LinkSuccess        string `mapstructure:"link_success"         validate:"required"`
	GoalsHeader        string `mapstructure:"goals_header"         validate:"required"`
	NoActiveGoals      string `mapstructure:"no_active_goals"      validate:"required"`
	CreateWhat         string `mapstructure:"create_what"          validate:"required"`
	NoCategories       string `mapstructure:"no_categories"        validate:"required"`
	NoBoards           string `mapstructure:"no_boards"            validate:"required"`
	ChooseCategory     string `mapstructure:"choose_category"      validate:"required"`
	ChooseBoard        string `mapstructure:"choose_board"         validate:"required"`
	EnterGoalTitle     string `mapstructure:"enter_goal_title"     validate:"required"`
	EnterCategoryTitle string `mapstructure:"enter_category_title" validate:"required"`
	EnterBoardTitle    string `mapstructure:"enter_board_title"    validate:"required"`
	GoalCreated        string `mapstructure:"goal_created"         validate:"required"`
	CategoryCreated    string `mapstructure:"category_created"     validate:"required"`
	BoardCreated       string `mapstructure:"board_created"        validate:"required"`
}

// LoadConfig loads and validates configuration from, in order of precedence:
// BOT_* environment variables, the config file at path, built-in defaults.
// A missing config file is not an error; defaults and env cover everything.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values for every optional parameter.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	// An empty default keeps the key visible to viper so BOT_TELEGRAM_TOKEN
	// is picked up during Unmarshal; validation rejects the empty value.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.poll_timeout", 60*time.Second)

	v.SetDefault("database.path", "./goalbot.db")

	v.SetDefault("http.addr", ":8081")

	v.SetDefault("scheduler.dialog_ttl", 30*time.Minute)
	v.SetDefault("scheduler.expiry_interval", time.Minute)
	v.SetDefault("scheduler.maintenance_interval", 24*time.Hour)

	v.SetDefault("site.base_url", "http://localhost")

	v.SetDefault("messages.greeting", "Hello there, your verification code: %s")
	v.SetDefault("messages.verify_instructions", "Please enter this verification code on %s: %s")
	v.SetDefault("messages.unknown_command", "Unknown command")
	v.SetDefault("messages.something_wrong", "Something went wrong, please start over")
	v.SetDefault("messages.cancelled", "Creation cancelled")
	v.SetDefault("messages.dialog_expired", "Creation timed out, please start over")
	v.SetDefault("messages.link_success", "Congratulations! You have successfully linked your telegram account")
	v.SetDefault("messages.goals_header", "Your currently active goals:\n")
	v.SetDefault("messages.no_active_goals", "You don't have any active goals at the moment")
	v.SetDefault("messages.create_what", "What would you like to create?")
	v.SetDefault("messages.no_categories", "No categories found. Please create a category first")
	v.SetDefault("messages.no_boards", "No boards found. Please create a board first")
	v.SetDefault("messages.choose_category", "Please choose a category from the following:\n")
	v.SetDefault("messages.choose_board", "Please choose a board from the following:\n")
	v.SetDefault("messages.enter_goal_title", "Please enter goal title:")
	v.SetDefault("messages.enter_category_title", "Please enter category title:")
	v.SetDefault("messages.enter_board_title", "Please enter board title:")
	v.SetDefault("messages.goal_created", "Goal successfully created")
	v.SetDefault("messages.category_created", "Category successfully created")
	v.SetDefault("messages.board_created", "Board successfully created")
}
