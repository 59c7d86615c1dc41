package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/digioh-event-services/common/logger"
)

// SystemConfig holds tunables for listing, QR rendering and code generation.
// Read from config/system_config.json; defaults apply when the file is absent.
type SystemConfig struct {
	DefaultPageSize int `json:"defaultPageSize"`
	MaxPageSize     int `json:"maxPageSize"`

	QRWidth  int    `json:"qrWidth"`
	QRMargin int    `json:"qrMargin"`
	QRDark   string `json:"qrDark"`
	QRLight  string `json:"qrLight"`

	// CodeLength is the length of generated guest codes
	CodeLength int `json:"codeLength"`
	// CodeInsertAttempts bounds regeneration on a unique_code collision
	CodeInsertAttempts int `json:"codeInsertAttempts"`

	HeadcountAttributeKey string `json:"headcountAttributeKey"`
}

var (
	globalConfig *SystemConfig
	configMutex  sync.RWMutex
	configPath   = "config/system_config.json"

	hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// DefaultConfig returns the built-in configuration
func DefaultConfig() *SystemConfig {
	return &SystemConfig{
		DefaultPageSize:       10,
		MaxPageSize:           100,
		QRWidth:               300,
		QRMargin:              1,
		QRDark:                "#000000",
		QRLight:               "#ffffff",
		CodeLength:            8,
		CodeInsertAttempts:    5,
		HeadcountAttributeKey: "Jumlah Orang",
	}
}

// LoadConfig reads system_config.json once and caches it.
// Invalid or missing values fall back to defaults.
func LoadConfig() *SystemConfig {
	configMutex.RLock()
	if globalConfig != nil {
		configMutex.RUnlock()
		return globalConfig
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	if globalConfig != nil {
		return globalConfig
	}

	cfg := DefaultConfig()
	possiblePaths := []string{
		configPath,
		filepath.Join("..", configPath),
	}

	found := false
	for _, path := range possiblePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		found = true
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			logger.Warn("Failed to parse config from %s: %v. Using defaults.", path, jsonErr)
			cfg = DefaultConfig()
		} else if err := Validate(cfg); err != nil {
			logger.Warn("Config from %s out of range: %v. Falling back per field.", path, err)
		} else {
			logger.Info("Loaded system config from %s", path)
		}
		break
	}
	if !found {
		logger.Debug("System config file not found, using defaults")
	}

	sanitize(cfg)
	globalConfig = cfg
	return globalConfig
}

// GetConfig returns the current configuration (thread-safe)
func GetConfig() *SystemConfig {
	return LoadConfig()
}

// SetConfig replaces the cached configuration. Used by tests and tooling.
func SetConfig(cfg *SystemConfig) {
	configMutex.Lock()
	defer configMutex.Unlock()
	if cfg != nil {
		sanitize(cfg)
	}
	globalConfig = cfg
}

// Validate reports the first out-of-range value
func Validate(cfg *SystemConfig) error {
	switch {
	case cfg.DefaultPageSize < 1 || cfg.DefaultPageSize > cfg.MaxPageSize:
		return fmt.Errorf("defaultPageSize must be between 1 and maxPageSize")
	case cfg.MaxPageSize < 1 || cfg.MaxPageSize > 1000:
		return fmt.Errorf("maxPageSize must be between 1 and 1000")
	case cfg.QRWidth < 21 || cfg.QRWidth > 2000:
		return fmt.Errorf("qrWidth must be between 21 and 2000")
	case cfg.QRMargin < 0 || cfg.QRMargin > 20:
		return fmt.Errorf("qrMargin must be between 0 and 20")
	case !hexColor.MatchString(cfg.QRDark) || !hexColor.MatchString(cfg.QRLight):
		return fmt.Errorf("qrDark and qrLight must be #rrggbb colors")
	case cfg.CodeLength < 4 || cfg.CodeLength > 32:
		return fmt.Errorf("codeLength must be between 4 and 32")
	case cfg.CodeInsertAttempts < 1 || cfg.CodeInsertAttempts > 20:
		return fmt.Errorf("codeInsertAttempts must be between 1 and 20")
	case cfg.HeadcountAttributeKey == "":
		return fmt.Errorf("headcountAttributeKey cannot be empty")
	}
	return nil
}

func sanitize(cfg *SystemConfig) {
	def := DefaultConfig()
	if cfg.MaxPageSize < 1 || cfg.MaxPageSize > 1000 {
		cfg.MaxPageSize = def.MaxPageSize
	}
	if cfg.DefaultPageSize < 1 || cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = def.DefaultPageSize
	}
	if cfg.QRWidth < 21 || cfg.QRWidth > 2000 {
		cfg.QRWidth = def.QRWidth
	}
	if cfg.QRMargin < 0 || cfg.QRMargin > 20 {
		cfg.QRMargin = def.QRMargin
	}
	if !hexColor.MatchString(cfg.QRDark) {
		cfg.QRDark = def.QRDark
	}
	if !hexColor.MatchString(cfg.QRLight) {
		cfg.QRLight = def.QRLight
	}
	if cfg.CodeLength < 4 || cfg.CodeLength > 32 {
		cfg.CodeLength = def.CodeLength
	}
	if cfg.CodeInsertAttempts < 1 || cfg.CodeInsertAttempts > 20 {
		cfg.CodeInsertAttempts = def.CodeInsertAttempts
	}
	if cfg.HeadcountAttributeKey == "" {
		cfg.HeadcountAttributeKey = def.HeadcountAttributeKey
	}
}
