package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the immutable prop configuration built once at startup and
// passed to every component constructor.
type Config struct {
	// Control holds the gRPC control API settings.
	Control ControlConfig `yaml:"control"`
	// HTTP holds the network trigger endpoint settings.
	HTTP HTTPConfig `yaml:"http"`
	// Sensors holds trigger input timing.
	Sensors SensorsConfig `yaml:"sensors"`
	// Motors holds actuator timing and driver selection.
	Motors MotorsConfig `yaml:"motors"`
	// Audio holds clip location and playback backend.
	Audio AudioConfig `yaml:"audio"`
	// Serial holds the microcontroller bridge port.
	Serial SerialConfig `yaml:"serial"`
	// Idle holds the idle look-around behaviour.
	Idle IdleConfig `yaml:"idle"`
	// Log holds logger settings.
	Log LogConfig `yaml:"log"`
	// StateFile is the path to the JSON file storing performance statistics.
	StateFile string `yaml:"state_file"`
}

// ControlConfig configures the gRPC control server and its clients.
type ControlConfig struct {
	// ListenAddress is where ghost-host serves the control API.
	ListenAddress string `yaml:"listen_addr"`
	// ServerAddress is where ghost-ctl connects.
	ServerAddress string `yaml:"server_addr"`
	// Timeout bounds every control RPC.
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPConfig configures the network trigger endpoint.
type HTTPConfig struct {
	// Enabled turns the HTTP endpoint on.
	Enabled bool `yaml:"enabled"`
	// ListenAddress is the HTTP bind address.
	ListenAddress string `yaml:"listen_addr"`
	// NetworkTriggers lists the remotely callable triggers.
	NetworkTriggers []NetworkTrigger `yaml:"network_triggers"`
}

// NetworkTrigger is one remotely callable trigger.
type NetworkTrigger struct {
	// ID is the path segment in /api/trigger/<id>/play.
	ID string `yaml:"id"`
	// Enabled disables the trigger without removing it when false.
	Enabled *bool `yaml:"enabled,omitempty"`
	// Secret, when set, must be presented as a bearer token or token query.
	Secret string `yaml:"secret,omitempty"`
	// Clip overrides the default clip for this trigger.
	Clip string `yaml:"audio_file,omitempty"`
}

// IsEnabled reports whether the trigger accepts requests. Missing means enabled.
func (t *NetworkTrigger) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// SensorsConfig configures trigger inputs and the gates in front of them.
type SensorsConfig struct {
	// Source selects the level reader: "none" or "serial".
	Source string `yaml:"source"`
	// DebounceWindow rejects repeat edges on one channel within this window.
	DebounceWindow time.Duration `yaml:"debounce_time"`
	// CooldownPeriod suppresses triggers after a performance.
	CooldownPeriod time.Duration `yaml:"cooldown_period"`
	// PollInterval is the sampling period of the sensor levels.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// MotorsConfig configures actuator timing.
type MotorsConfig struct {
	// Driver selects the actuator output: "log" or "serial".
	Driver string `yaml:"driver"`
	// MovementDuration limits head/torso motion; zero means the whole clip.
	MovementDuration time.Duration `yaml:"head_torso_duration"`
	// MinimumOpen is the shortest mouth opening.
	MinimumOpen time.Duration `yaml:"mouth_open_duration"`
	// MouthCloseDelay is the pause after each mouth close.
	MouthCloseDelay time.Duration `yaml:"mouth_close_delay"`
	// Direction is the head/torso sweep direction: "left" or "right".
	Direction string `yaml:"direction"`
}

// AudioConfig configures clip storage and playback.
type AudioConfig struct {
	// SoundDir holds clips and their word timestamp files.
	SoundDir string `yaml:"soundfiles_dir"`
	// DefaultClip is played when a trigger names no clip.
	DefaultClip string `yaml:"default_file"`
	// Backend selects playback: "command" or "simulated".
	Backend string `yaml:"backend"`
	// Command is the external player binary used by the command backend.
	Command string `yaml:"command"`
	// Device is the ALSA device handed to the player.
	Device string `yaml:"device"`
	// CacheSize bounds the clip metadata cache.
	CacheSize int `yaml:"cache_size"`
}

// SerialConfig configures the microcontroller bridge.
type SerialConfig struct {
	// Port is the serial device path.
	Port string `yaml:"port"`
	// BaudRate is the line speed.
	BaudRate int `yaml:"baud_rate"`
}

// IdleConfig configures the idle look-around.
type IdleConfig struct {
	// Enabled turns idle motion on.
	Enabled bool `yaml:"enabled"`
	// Interval is the period between look-arounds.
	Interval time.Duration `yaml:"interval"`
	// Duration is how long each look-around moves.
	Duration time.Duration `yaml:"duration"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the minimum level name.
	Level string `yaml:"level"`
	// File optionally duplicates logs into a file.
	File string `yaml:"file"`
}

const (
	// DefaultConfigFilename is the default filename for prop settings.
	DefaultConfigFilename = "ghost-host-settings.yaml"

	// DefaultStateFilename is the default filename for performance statistics.
	DefaultStateFilename = "ghost-host-state.json"

	// DefaultListenAddress is the default gRPC control address.
	DefaultListenAddress = ":50051"

	// DefaultServerAddress is where ghost-ctl looks for the daemon by default.
	DefaultServerAddress = "127.0.0.1:50051"

	// DefaultHTTPListenAddress is the default network trigger address.
	DefaultHTTPListenAddress = ":5055"

	// DefaultTimeout is the default duration for control calls.
	DefaultTimeout = 5 * time.Second

	// DefaultDebounceWindow is the default per-channel debounce window.
	DefaultDebounceWindow = 200 * time.Millisecond

	// DefaultCooldownPeriod is the default quiet time after a performance.
	DefaultCooldownPeriod = 30 * time.Second

	// DefaultPollInterval is the default sensor sampling period.
	DefaultPollInterval = 20 * time.Millisecond

	// DefaultMinimumOpen is the default shortest mouth opening.
	DefaultMinimumOpen = 100 * time.Millisecond

	// DefaultMouthCloseDelay is the default pause after a mouth close.
	DefaultMouthCloseDelay = 50 * time.Millisecond

	// DefaultSoundDir is the default clip directory.
	DefaultSoundDir = "SoundFiles"

	// DefaultClip is the default greeting clip.
	DefaultClip = "HMGreeting.wav"

	// DefaultAudioCommand is the default external player.
	DefaultAudioCommand = "aplay"

	// DefaultAudioDevice is the default ALSA device.
	DefaultAudioDevice = "default"

	// DefaultCacheSize is the default number of cached clip entries.
	DefaultCacheSize = 64

	// DefaultBaudRate is the default serial line speed.
	DefaultBaudRate = 9600

	// DefaultIdleInterval is the default period between look-arounds.
	DefaultIdleInterval = 2 * time.Minute

	// DefaultIdleDuration is the default look-around length.
	DefaultIdleDuration = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Accepted selector values.
const (
	SensorSourceNone   = "none"
	SensorSourceSerial = "serial"

	MotorDriverLog    = "log"
	MotorDriverSerial = "serial"

	AudioBackendCommand   = "command"
	AudioBackendSimulated = "simulated"

	DirectionLeft  = "left"
	DirectionRight = "right"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownSelector is returned for an unsupported enum-like setting.
	errUnknownSelector = errors.New("unsupported value")
	// errNegativeDuration is returned for negative timing settings.
	errNegativeDuration = errors.New("duration must not be negative")
	// errSerialPortRequired is returned when serial hardware is selected without a port.
	errSerialPortRequired = errors.New("serial port must be provided")
	// errDuplicateTrigger is returned when two network triggers share an id.
	errDuplicateTrigger = errors.New("duplicate network trigger id")
	// errTriggerIDRequired is returned when a network trigger has no id.
	errTriggerIDRequired = errors.New("network trigger id must be provided")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Defaults never fail validation.
	_ = Validate(cfg) //nolint:errcheck // See above.

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the provided settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	if err := validateControl(&cfg.Control); err != nil {
		return err
	}

	if err := validateHTTP(&cfg.HTTP); err != nil {
		return err
	}

	if err := validateSensors(&cfg.Sensors); err != nil {
		return err
	}

	if err := validateMotors(&cfg.Motors); err != nil {
		return err
	}

	if err := validateAudio(&cfg.Audio); err != nil {
		return err
	}

	if cfg.Serial.BaudRate <= 0 {
		cfg.Serial.BaudRate = DefaultBaudRate
	}

	usesSerial := cfg.Sensors.Source == SensorSourceSerial || cfg.Motors.Driver == MotorDriverSerial
	if usesSerial && cfg.Serial.Port == "" {
		return errSerialPortRequired
	}

	if cfg.Idle.Interval <= 0 {
		cfg.Idle.Interval = DefaultIdleInterval
	}

	if cfg.Idle.Duration <= 0 {
		cfg.Idle.Duration = DefaultIdleDuration
	}

	return nil
}

func validateControl(c *ControlConfig) error {
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultListenAddress
	}

	if c.ServerAddress == "" {
		c.ServerAddress = DefaultServerAddress
	}

	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return fmt.Errorf("invalid control listen address: %w", err)
	}

	if _, err := net.ResolveTCPAddr("tcp", c.ServerAddress); err != nil {
		return fmt.Errorf("invalid control server address: %w", err)
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	return nil
}

func validateHTTP(c *HTTPConfig) error {
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultHTTPListenAddress
	}

	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return fmt.Errorf("invalid http listen address: %w", err)
	}

	seen := make(map[string]struct{}, len(c.NetworkTriggers))

	for i := range c.NetworkTriggers {
		id := strings.TrimSpace(c.NetworkTriggers[i].ID)
		if id == "" {
			return errTriggerIDRequired
		}

		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", errDuplicateTrigger, id)
		}

		seen[id] = struct{}{}
		c.NetworkTriggers[i].ID = id
	}

	return nil
}

func validateSensors(c *SensorsConfig) error {
	c.Source = defaultString(strings.ToLower(c.Source), SensorSourceNone)
	if c.Source != SensorSourceNone && c.Source != SensorSourceSerial {
		return fmt.Errorf("sensors.source %q: %w", c.Source, errUnknownSelector)
	}

	if c.DebounceWindow < 0 || c.CooldownPeriod < 0 {
		return fmt.Errorf("sensors: %w", errNegativeDuration)
	}

	if c.DebounceWindow == 0 {
		c.DebounceWindow = DefaultDebounceWindow
	}

	if c.CooldownPeriod == 0 {
		c.CooldownPeriod = DefaultCooldownPeriod
	}

	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}

	return nil
}

func validateMotors(c *MotorsConfig) error {
	c.Driver = defaultString(strings.ToLower(c.Driver), MotorDriverLog)
	if c.Driver != MotorDriverLog && c.Driver != MotorDriverSerial {
		return fmt.Errorf("motors.driver %q: %w", c.Driver, errUnknownSelector)
	}

	c.Direction = defaultString(strings.ToLower(c.Direction), DirectionLeft)
	if c.Direction != DirectionLeft && c.Direction != DirectionRight {
		return fmt.Errorf("motors.direction %q: %w", c.Direction, errUnknownSelector)
	}

	// Zero movement duration is meaningful: it follows the clip length.
	if c.MovementDuration < 0 || c.MinimumOpen < 0 || c.MouthCloseDelay < 0 {
		return fmt.Errorf("motors: %w", errNegativeDuration)
	}

	if c.MinimumOpen == 0 {
		c.MinimumOpen = DefaultMinimumOpen
	}

	if c.MouthCloseDelay == 0 {
		c.MouthCloseDelay = DefaultMouthCloseDelay
	}

	return nil
}

func validateAudio(c *AudioConfig) error {
	c.Backend = defaultString(strings.ToLower(c.Backend), AudioBackendCommand)
	if c.Backend != AudioBackendCommand && c.Backend != AudioBackendSimulated {
		return fmt.Errorf("audio.backend %q: %w", c.Backend, errUnknownSelector)
	}

	c.SoundDir = defaultString(c.SoundDir, DefaultSoundDir)
	c.DefaultClip = defaultString(c.DefaultClip, DefaultClip)
	c.Command = defaultString(c.Command, DefaultAudioCommand)
	c.Device = defaultString(c.Device, DefaultAudioDevice)

	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}

	return nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}
