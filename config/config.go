package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SMBConfig describes the scanner share the monitor walks. All of it comes
// from the environment; the struct is built once at startup and passed to the
// reader explicitly.
type SMBConfig struct {
	Server   string
	Port     int
	Share    string
	BasePath string
	Username string
	Password string
	Domain   string

	// DepthFile is the marker file read inside each batch folder.
	DepthFile string
}

type Config struct {
	Port string

	BatchesFile string
	UsersFile   string

	SMB SMBConfig

	ScanInterval time.Duration
	ScanTimeout  time.Duration
}

// FromEnv loads the full service configuration, falling back to the defaults
// the operator page shipped with.
func FromEnv() Config {
	godotenv.Load()

	return Config{
		Port:        envDefault("PORT", "5001"),
		BatchesFile: envDefault("BATCHES_FILE", "batches.json"),
		UsersFile:   envDefault("USERS_FILE", "users.json"),
		SMB: SMBConfig{
			Server:    envDefault("SMB_SERVER", "172.16.11.107"),
			Port:      envIntDefault("SMB_PORT", 445),
			Share:     envDefault("SMB_SHARE", "pond"),
			BasePath:  envDefault("SMB_BASE_PATH", "incoming/Orexplore"),
			Username:  os.Getenv("SMB_USERNAME"),
			Password:  os.Getenv("SMB_PASSWORD"),
			Domain:    os.Getenv("SMB_DOMAIN"),
			DepthFile: envDefault("SMB_DEPTH_FILE", "depth.txt"),
		},
		ScanInterval: time.Duration(envIntDefault("SMB_SCAN_INTERVAL_SECONDS", 300)) * time.Second,
		ScanTimeout:  time.Duration(envIntDefault("SMB_SCAN_TIMEOUT_SECONDS", 120)) * time.Second,
	}
}

func envDefault(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
