package config

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath                string `json:"dbPath"`
	ListenAddr            string `json:"listenAddr"`
	CSVImportFolderPath   string `json:"csvImportFolderPath"`
	RejectInvalidChecksum bool   `json:"rejectInvalidChecksum"`
	ClampLegacyToZero     bool   `json:"clampLegacyToZero"`
	ExpiryWarningDays     int    `json:"expiryWarningDays"`
	PortalUserID          string `json:"portalUserID"`
	PortalPassword        string `json:"portalPassword"`
}

var (
	cfg Config
	mu  sync.RWMutex
)

const configFilePath = "./medtrack_config.json"

func defaults() Config {
	return Config{
		DBPath:            "./medtrack.db",
		ListenAddr:        ":8080",
		ExpiryWarningDays: 30,
	}
}

// LoadConfig reads the JSON config file and applies environment overrides
// (a .env file is honored when present). Missing file means defaults.
func LoadConfig() (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	_ = godotenv.Load()

	c := defaults()
	file, err := os.ReadFile(configFilePath)
	if err == nil {
		if err := json.Unmarshal(file, &c); err != nil {
			return Config{}, err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	applyEnv(&c)
	if c.ExpiryWarningDays == 0 {
		c.ExpiryWarningDays = 30
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "./medtrack.db"
	}

	cfg = c
	return cfg, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("MEDTRACK_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("MEDTRACK_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("MEDTRACK_CSV_IMPORT_FOLDER"); v != "" {
		c.CSVImportFolderPath = v
	}
	if v := os.Getenv("MEDTRACK_REJECT_INVALID_CHECKSUM"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RejectInvalidChecksum = b
		}
	}
	if v := os.Getenv("MEDTRACK_CLAMP_LEGACY_TO_ZERO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ClampLegacyToZero = b
		}
	}
	if v := os.Getenv("MEDTRACK_EXPIRY_WARNING_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ExpiryWarningDays = n
		}
	}
	if v := os.Getenv("MEDTRACK_PORTAL_USER"); v != "" {
		c.PortalUserID = v
	}
	if v := os.Getenv("MEDTRACK_PORTAL_PASSWORD"); v != "" {
		c.PortalPassword = v
	}
}

// SaveConfig persists the config file and replaces the cached copy.
func SaveConfig(newCfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if newCfg.ExpiryWarningDays == 0 {
		newCfg.ExpiryWarningDays = 30
	}

	file, err := json.MarshalIndent(newCfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(configFilePath, file, 0644); err != nil {
		return err
	}
	cfg = newCfg
	return nil
}

func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}
