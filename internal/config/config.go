// Package config provides configuration management for the LacyLights console.
package config

import (
	"os"
	"strconv"

	"github.com/bbernstein/lacylights-console/internal/services/dmx"
	"github.com/bbernstein/lacylights-console/pkg/artnet"
	"github.com/bbernstein/lacylights-console/pkg/sacn"
)

// Config holds all configuration values for the console.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// Logging
	LogLevel  string
	LogPretty bool

	// DMX output
	DMXFrameRate     int // Hz, clamped to 1-44
	DMXUniverseCount int

	// Art-Net configuration
	ArtNetEnabled       bool
	ArtNetAddress       string
	ArtNetPort          int
	ArtNetMode          string
	ArtNetUniverseStart int

	// sACN configuration
	SACNEnabled       bool
	SACNMode          string
	SACNAddress       string
	SACNPort          int
	SACNUniverseStart int
	SACNSourceName    string
	SACNPriority      int

	// Fixture sources
	PatchFile     string // YAML or TOML patch loaded at startup
	OFLFixtureDir string // directory of Open Fixture Library JSON files

	// MQTT remote commands (disabled when MQTTBroker is empty)
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string
	MQTTUser        string
	MQTTPassword    string

	// DogStatsD metrics (disabled when DDAgentAddr is empty)
	DDAgentAddr string
	DDNamespace string

	// CORS configuration
	CORSOrigin string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "4000"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./console.db"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),

		// DMX
		DMXFrameRate:     dmx.ClampRate(getEnvInt("DMX_FRAME_RATE", dmx.MaxRateHz)),
		DMXUniverseCount: getEnvInt("DMX_UNIVERSE_COUNT", 4),

		// Art-Net
		ArtNetEnabled:       getEnvBool("ARTNET_ENABLED", true),
		ArtNetAddress:       getEnv("ARTNET_ADDRESS", dmx.DefaultBroadcastAddr),
		ArtNetPort:          getEnvInt("ARTNET_PORT", artnet.DefaultPort),
		ArtNetMode:          getEnv("ARTNET_MODE", dmx.ModeBroadcast),
		ArtNetUniverseStart: getEnvInt("ARTNET_UNIVERSE_START", 0),

		// sACN
		SACNEnabled:       getEnvBool("SACN_ENABLED", false),
		SACNMode:          getEnv("SACN_MODE", dmx.ModeMulticast),
		SACNAddress:       getEnv("SACN_ADDRESS", ""),
		SACNPort:          getEnvInt("SACN_PORT", sacn.DefaultPort),
		SACNUniverseStart: getEnvInt("SACN_UNIVERSE_START", 1),
		SACNSourceName:    getEnv("SACN_SOURCE_NAME", dmx.DefaultSourceName),
		SACNPriority:      getEnvInt("SACN_PRIORITY", sacn.DefaultPriority),

		// Fixtures
		PatchFile:     getEnv("PATCH_FILE", ""),
		OFLFixtureDir: getEnv("OFL_FIXTURE_DIR", ""),

		// MQTT
		MQTTBroker:      getEnv("MQTT_BROKER", ""),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "lacylights-console"),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "lacylights"),
		MQTTUser:        getEnv("MQTT_USER", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),

		// Metrics
		DDAgentAddr: getEnv("DD_AGENT_ADDR", ""),
		DDNamespace: getEnv("DD_NAMESPACE", "lacylights."),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ArtNet returns the Art-Net output configuration from the environment.
func (c *Config) ArtNet() dmx.ArtNetConfig {
	return dmx.ArtNetConfig{
		Enabled:       c.ArtNetEnabled,
		IPAddress:     c.ArtNetAddress,
		Port:          c.ArtNetPort,
		UniverseStart: c.ArtNetUniverseStart,
		UniverseRange: c.DMXUniverseCount,
		Mode:          c.ArtNetMode,
	}.Normalize()
}

// SACN returns the sACN output configuration from the environment.
func (c *Config) SACN() dmx.SACNConfig {
	return dmx.SACNConfig{
		Enabled:       c.SACNEnabled,
		Mode:          c.SACNMode,
		IPAddress:     c.SACNAddress,
		Port:          c.SACNPort,
		UniverseStart: c.SACNUniverseStart,
		UniverseRange: c.DMXUniverseCount,
		SourceName:    c.SACNSourceName,
		Priority:      c.SACNPriority,
	}.Normalize()
}

// DMX returns the output service configuration.
func (c *Config) DMX() dmx.Config {
	return dmx.Config{
		RateHz: c.DMXFrameRate,
		ArtNet: c.ArtNet(),
		SACN:   c.SACN(),
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
