// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ayusman/signscribe/internal/capture"
)

// Detector backends.
const (
	DetectorRoboflow = "roboflow"
	DetectorLocal    = "local"
)

// Config holds every setting the service reads at startup.
type Config struct {
	RoboflowKey     string
	RoboflowModel   string
	RoboflowVersion int

	ElevenLabsKey   string
	ElevenLabsVoice string
	ElevenLabsModel string

	Detector string
	Facing   capture.Facing
	Devices  capture.DeviceMap
	Camera   capture.DeviceSettings

	Addr    string
	DataDir string
	Tray    bool

	TraceExporter string
	OTLPEndpoint  string
}

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	var errs []error

	version, err := getEnvInt("ROBOFLOW_VERSION", 1)
	errs = append(errs, err)
	envCamera, err := getEnvInt("SIGNSCRIBE_CAMERA_ENV", 0)
	errs = append(errs, err)
	userCamera, err := getEnvInt("SIGNSCRIBE_CAMERA_USER", 1)
	errs = append(errs, err)
	width, err := getEnvInt("SIGNSCRIBE_CAMERA_WIDTH", capture.DefaultWidth)
	errs = append(errs, err)
	height, err := getEnvInt("SIGNSCRIBE_CAMERA_HEIGHT", capture.DefaultHeight)
	errs = append(errs, err)
	fps, err := getEnvInt("SIGNSCRIBE_CAMERA_FPS", capture.DefaultFPS)
	errs = append(errs, err)
	tray, err := getEnvBool("SIGNSCRIBE_TRAY", false)
	errs = append(errs, err)
	facing, err := capture.ParseFacing(os.Getenv("SIGNSCRIBE_FACING"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cfg := &Config{
		RoboflowKey:     os.Getenv("ROBOFLOW_PUBLISHABLE_KEY"),
		RoboflowModel:   getEnv("ROBOFLOW_MODEL", "american-sign-language-v36cz"),
		RoboflowVersion: version,

		ElevenLabsKey:   os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoice: getEnv("ELEVENLABS_VOICE_ID", "OKanSStS6li6xyU1WdXa"),
		ElevenLabsModel: getEnv("ELEVENLABS_MODEL", "eleven_multilingual_v2"),

		Detector: strings.ToLower(getEnv("SIGNSCRIBE_DETECTOR", DetectorRoboflow)),
		Facing:   facing,
		Devices: capture.DeviceMap{
			capture.FacingEnvironment: envCamera,
			capture.FacingUser:        userCamera,
		},
		Camera: capture.DeviceSettings{Width: width, Height: height, FPS: fps},

		Addr:    getEnv("SIGNSCRIBE_ADDR", ":8080"),
		DataDir: getEnv("SIGNSCRIBE_DATA_DIR", defaultDataDir()),
		Tray:    tray,

		TraceExporter: getEnv("TRACE_EXPORTER", "none"),
		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	return cfg, nil
}

// Validate reports settings the selected backend cannot run without.
// A missing ElevenLabs key is not an error: speech is optional.
func (c *Config) Validate() error {
	switch c.Detector {
	case DetectorRoboflow:
		if c.RoboflowKey == "" {
			return fmt.Errorf("ROBOFLOW_PUBLISHABLE_KEY is required for the %s detector", DetectorRoboflow)
		}
		if c.RoboflowVersion <= 0 {
			return fmt.Errorf("ROBOFLOW_VERSION must be positive, got %d", c.RoboflowVersion)
		}
	case DetectorLocal:
	default:
		return fmt.Errorf("unknown detector %q (want %s or %s)", c.Detector, DetectorRoboflow, DetectorLocal)
	}
	return nil
}

// SpeechEnabled reports whether an ElevenLabs key is configured.
func (c *Config) SpeechEnabled() bool {
	return c.ElevenLabsKey != ""
}

// DBPath returns the path of the sign database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "signscribe.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".signscribe"
	}
	return filepath.Join(home, ".signscribe")
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, value)
	}
	return b, nil
}
