package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type ClientConfig struct {
	APIBase            string
	SnapshotDBPath     string
	UseCredentials     bool
	Timezone           string
	HTTPTimeoutSeconds int
	HTTPRetries        int
}

var instance *ClientConfig
var once sync.Once

func GetClientConfig() *ClientConfig {
	once.Do(func() {
		instance = &ClientConfig{}

		if err := godotenv.Load(); err != nil {
			logrus.Debugf("no .env file loaded: %s", err.Error())
		}

		instance.APIBase = strings.TrimRight(getEnv("HYGIENE_API_BASE", "http://localhost:8000/api"), "/")
		if instance.APIBase == "" {
			logrus.Fatal("could not get api base url")
		}

		instance.SnapshotDBPath = getEnv("HYGIENE_SNAPSHOT_DB", "hygiene_snapshot.db")
		instance.UseCredentials = getEnvAsBool("HYGIENE_USE_CREDENTIALS", false)
		instance.Timezone = getEnv("HYGIENE_TIMEZONE", "Asia/Tokyo")
		instance.HTTPTimeoutSeconds = int(getEnvAsInt("HYGIENE_HTTP_TIMEOUT_SECONDS", 15))
		instance.HTTPRetries = int(getEnvAsInt("HYGIENE_HTTP_RETRIES", 2))
	})

	return instance
}

// FromEnv builds a config without the singleton, for callers that manage
// several client instances (tests, multi-backend tools).
func FromEnv() *ClientConfig {
	return &ClientConfig{
		APIBase:            strings.TrimRight(getEnv("HYGIENE_API_BASE", "http://localhost:8000/api"), "/"),
		SnapshotDBPath:     getEnv("HYGIENE_SNAPSHOT_DB", "hygiene_snapshot.db"),
		UseCredentials:     getEnvAsBool("HYGIENE_USE_CREDENTIALS", false),
		Timezone:           getEnv("HYGIENE_TIMEZONE", "Asia/Tokyo"),
		HTTPTimeoutSeconds: int(getEnvAsInt("HYGIENE_HTTP_TIMEOUT_SECONDS", 15)),
		HTTPRetries:        int(getEnvAsInt("HYGIENE_HTTP_RETRIES", 2)),
	}
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return int64(val)
	}

	return defaultVal
}
