package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the process configuration. It is loaded once at startup.
var Conf = NewConfig()

type (
	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | inmem
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	QueueConfig struct {
		Backend     string // inline | memory | redis
		RedisAddr   string
		Key         string
		Size        int
		MaxAttempts int
		RetryDelay  time.Duration
	}

	Config struct {
		AppName          string
		Build            string
		Env              string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		CronKey          string
		WorkDir          string
		Server           ServerConfig
		Database         DatabaseConfig
		Queue            QueueConfig
		NotificationTTL  time.Duration
		PasswordResetTTL time.Duration
		defaultFromEmail string
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig reads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// ENV selects the environment: DEV (local; default), TEST, QA, PROD.
// Each variable is read with the env as prefix, eg. `PROD_SECRETKEY`.
func NewConfig() *Config {
	v := viper.New()

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd: %v", err)
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Mahudhurio")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "v7!ze0k&2bq_p4x(um-1a#c$_9r)s@n8w5yfh3t+dlj6gio%e")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("cronKey", "")
	v.SetDefault("workDir", wd)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("disableReqLogs", false)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "mahudhurio")
	v.SetDefault("dbUser", "mahudhurio")
	v.SetDefault("dbPassword", "mahudhurio")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("queueBackend", "memory")
	v.SetDefault("queueRedisAddr", "localhost:6379")
	v.SetDefault("queueKey", "mahudhurio:notifications")
	v.SetDefault("queueSize", 256)
	v.SetDefault("queueMaxAttempts", 3)
	v.SetDefault("queueRetryDelay", 500*time.Millisecond)

	v.SetDefault("notificationTTL", 30*24*time.Hour)
	v.SetDefault("passwordResetTTL", 10*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:         v.GetString("appName"),
		Build:           v.GetString("build"),
		Env:             env,
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		RollbarToken:    v.GetString("rollbarToken"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		CronKey:         v.GetString("cronKey"),
		WorkDir:         v.GetString("workDir"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			DisableReqLogs:            v.GetBool("disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Queue: QueueConfig{
			Backend:     v.GetString("queueBackend"),
			RedisAddr:   v.GetString("queueRedisAddr"),
			Key:         v.GetString("queueKey"),
			Size:        v.GetInt("queueSize"),
			MaxAttempts: v.GetInt("queueMaxAttempts"),
			RetryDelay:  v.GetDuration("queueRetryDelay"),
		},
		NotificationTTL:  v.GetDuration("notificationTTL"),
		PasswordResetTTL: v.GetDuration("passwordResetTTL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
}
