package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Enabled reports whether a datastore is configured. Without one the
// server runs in demo mode on the in-memory store.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type NATSConfig struct {
	Host   string       `mapstructure:"host"`
	Port   int          `mapstructure:"port"`
	Stream StreamConfig `mapstructure:"stream"`
}

func (n NATSConfig) Enabled() bool {
	return n.Host != ""
}

type StreamConfig struct {
	Name     string   `mapstructure:"name"`
	Subjects []string `mapstructure:"subjects"`
	Consumer string   `mapstructure:"consumer"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type TemporalConfig struct {
	HostPort        string        `mapstructure:"hostport"`
	Namespace       string        `mapstructure:"namespace"`
	TaskQueue       string        `mapstructure:"taskqueue"`
	ActivityTimeout time.Duration `mapstructure:"activitytimeout"`
}

func (t TemporalConfig) Enabled() bool {
	return t.HostPort != ""
}

type RobloxConfig struct {
	UsersURL      string        `mapstructure:"usersurl"`
	SearchURL     string        `mapstructure:"searchurl"`
	ThumbnailsURL string        `mapstructure:"thumbnailsurl"`
	AvatarSize    string        `mapstructure:"avatarsize"`
	AvatarFormat  string        `mapstructure:"avatarformat"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type SignupConfig struct {
	DebounceDelay     time.Duration `mapstructure:"debouncedelay"`
	SessionIdle       time.Duration `mapstructure:"sessionidle"`
	SupportedPlatform string        `mapstructure:"supportedplatform"`
	// InternalTrigger enriches on the service's own insert events. Turn it
	// off when datastore webhooks call the profile endpoint instead.
	InternalTrigger bool `mapstructure:"internaltrigger"`
}

type I18nConfig struct {
	DefaultLang string `mapstructure:"defaultlang"`
}

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Server   ServerConfig   `mapstructure:"server"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Roblox   RobloxConfig   `mapstructure:"roblox"`
	Signup   SignupConfig   `mapstructure:"signup"`
	I18n     I18nConfig     `mapstructure:"i18n"`
}

func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("signup")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults() {
	viper.SetDefault("database.host", "")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "signup")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("nats.host", "")
	viper.SetDefault("nats.port", 4222)
	viper.SetDefault("nats.stream.name", "SIGNUP_PARTICIPANTS")
	viper.SetDefault("nats.stream.subjects", []string{"signup.participants.>"})
	viper.SetDefault("nats.stream.consumer", "enrichment-trigger")

	viper.SetDefault("server.port", "8080")

	viper.SetDefault("temporal.hostport", "")
	viper.SetDefault("temporal.namespace", "default")
	viper.SetDefault("temporal.taskqueue", "signup-enrichment")
	viper.SetDefault("temporal.activitytimeout", time.Minute)

	viper.SetDefault("roblox.usersurl", "https://users.roblox.com/v1/usernames/users")
	viper.SetDefault("roblox.searchurl", "https://users.roblox.com/v1/users/search")
	viper.SetDefault("roblox.thumbnailsurl", "https://thumbnails.roblox.com/v1/users/avatar-headshot")
	viper.SetDefault("roblox.avatarsize", "150x150")
	viper.SetDefault("roblox.avatarformat", "Png")
	viper.SetDefault("roblox.timeout", 10*time.Second)

	viper.SetDefault("signup.debouncedelay", 800*time.Millisecond)
	viper.SetDefault("signup.sessionidle", 15*time.Minute)
	viper.SetDefault("signup.supportedplatform", "roblox")
	viper.SetDefault("signup.internaltrigger", true)

	viper.SetDefault("i18n.defaultlang", "fr")
}
