package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"cloudranges/internal/app/server"
	"cloudranges/internal/awsranges"
	"cloudranges/internal/jobs/runtime"
	"cloudranges/internal/stats"
	"cloudranges/internal/support"
)

const (
	defaultPort                = 8080
	defaultFetchTimeoutSeconds = 30
)

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	log.SetLevel(parseLogLevel(support.GetEnv("LOG_LEVEL", "info")))

	portFlag := flag.Int("port", defaultPort, "Port for the API server")
	flag.Parse()

	port := resolvePort("PORT", *portFlag)

	// Computed once at startup and handed to everything that reports
	// identity; nothing regenerates it later.
	instanceID := generateInstanceID()
	log.Debug("Instance identity assigned", "instance_id", instanceID)

	fetchTimeout := time.Duration(support.GetEnvInt("FETCH_TIMEOUT_SECONDS", defaultFetchTimeoutSeconds)) * time.Second
	fetcher := awsranges.NewHTTPFetcher(support.GetEnv("AWS_RANGES_URL", awsranges.DefaultURL), fetchTimeout)
	cache := awsranges.NewCache()

	var recorder *stats.Recorder
	redisClient, err := support.GetRedisClient()
	if err != nil {
		log.Warn("Redis unavailable; stats and heartbeat disabled", "error", err)
	} else if redisClient != nil {
		recorder = stats.NewRecorder(redisClient)
		heartbeatCancel := runtime.LaunchInstanceHeartbeat(context.Background(), redisClient, instanceID)
		defer heartbeatCancel()
		defer func() {
			if err := support.CloseRedisClient(); err != nil {
				log.Warn("error closing redis client", "error", err)
			}
		}()
	}

	adminToken := support.GetEnv("ADMIN_TOKEN", "")
	if adminToken == "" {
		log.Info("ADMIN_TOKEN not set; POST /refresh is disabled")
	}

	srv := server.New(cache, fetcher, recorder, instanceID, adminToken)
	return srv.Open(port)
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%d", hostname, os.Getpid(), time.Now().UnixNano())
}

func parseLogLevel(raw string) log.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func resolvePort(envKey string, fallback int) int {
	if port := readPort(envKey); port != 0 {
		return port
	}
	return fallback
}

func readPort(envKey string) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return 0
	}
	return port
}
