package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		DisableRequestLogs        bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr           string
		Password       string
		DB             int
		LockExpiry     time.Duration
		LockTries      int
		LockRetryDelay time.Duration
	}

	WhatsAppConfig struct {
		APIURL          string
		Token           string
		DefaultLocale   string
		PaymentTemplate string
		WelcomeTemplate string
		Timeout         time.Duration
	}

	Config struct {
		Debug        bool
		TestMode     bool
		AppName      string
		Env          string
		Build        string
		SecretKey    string
		WorkDir      string
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		WhatsApp WhatsAppConfig
	}
)

// Address returns the "host:port" of the database server.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "SchoolMS")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverDisableRequestLogs", false)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseName", "schoolms")
	v.SetDefault("databaseUser", "schoolms")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseAdminUser", "postgres")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("redisLockExpiry", 10*time.Second)
	v.SetDefault("redisLockTries", 32)
	v.SetDefault("redisLockRetryDelay", 100*time.Millisecond)

	v.SetDefault("whatsappAPIURL", "https://graph.facebook.com/v17.0/me/messages")
	v.SetDefault("whatsappToken", "")
	v.SetDefault("whatsappDefaultLocale", "en")
	v.SetDefault("whatsappPaymentTemplate", "send_payment")
	v.SetDefault("whatsappWelcomeTemplate", "hello_world")
	v.SetDefault("whatsappTimeout", 10*time.Second)
}

// NewConfig loads the app configuration.
// Values are read from the environment, prefixed with the current ENV (DEV by default): e.g. DEV_DATABASENAME.
// A "config/.env.<env>" file under the project root is loaded first, when it exists.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		SecretKey:    v.GetString("secretKey"),
		WorkDir:      workDir,
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			DebugHost:                 v.GetString("serverDebugHost"),
			DisableRequestLogs:        v.GetBool("serverDisableRequestLogs"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:           v.GetString("redisAddr"),
			Password:       v.GetString("redisPassword"),
			DB:             v.GetInt("redisDB"),
			LockExpiry:     v.GetDuration("redisLockExpiry"),
			LockTries:      v.GetInt("redisLockTries"),
			LockRetryDelay: v.GetDuration("redisLockRetryDelay"),
		},
		WhatsApp: WhatsAppConfig{
			APIURL:          v.GetString("whatsappAPIURL"),
			Token:           v.GetString("whatsappToken"),
			DefaultLocale:   v.GetString("whatsappDefaultLocale"),
			PaymentTemplate: v.GetString("whatsappPaymentTemplate"),
			WelcomeTemplate: v.GetString("whatsappWelcomeTemplate"),
			Timeout:         v.GetDuration("whatsappTimeout"),
		},
	}
}

// NewTestConfig returns a Config suitable for unit tests: no .env file is read.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{
		Debug:     false,
		TestMode:  true,
		AppName:   v.GetString("appName"),
		Env:       "TEST",
		Build:     "test",
		SecretKey: v.GetString("secretKey"),
		Server: ServerConfig{
			Host:                      ":0",
			DisableRequestLogs:        true,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:     "postgres",
			Host:       envOr("TEST_DATABASE_HOST", "localhost"),
			Port:       envOr("TEST_DATABASE_PORT", "5432"),
			Name:       envOr("TEST_DATABASE_NAME", "schoolms_test"),
			User:       envOr("TEST_DATABASE_USER", "postgres"),
			Password:   envOr("TEST_DATABASE_PASSWORD", ""),
			DisableTLS: true,
		},
		Redis: RedisConfig{
			LockExpiry:     v.GetDuration("redisLockExpiry"),
			LockTries:      v.GetInt("redisLockTries"),
			LockRetryDelay: 10 * time.Millisecond,
		},
		WhatsApp: WhatsAppConfig{
			DefaultLocale:   v.GetString("whatsappDefaultLocale"),
			PaymentTemplate: v.GetString("whatsappPaymentTemplate"),
			WelcomeTemplate: v.GetString("whatsappWelcomeTemplate"),
			Timeout:         time.Second,
		},
	}
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s, build %s)", c.AppName, c.Env, c.Build)
}
