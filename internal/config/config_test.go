package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate_FillsDefaults checks that an empty config becomes a usable one.
func TestValidate_FillsDefaults(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))

	require.Equal(t, DefaultListenAddress, cfg.Control.ListenAddress)
	require.Equal(t, DefaultServerAddress, cfg.Control.ServerAddress)
	require.Equal(t, DefaultTimeout, cfg.Control.Timeout)
	require.Equal(t, DefaultDebounceWindow, cfg.Sensors.DebounceWindow)
	require.Equal(t, DefaultCooldownPeriod, cfg.Sensors.CooldownPeriod)
	require.Equal(t, DefaultPollInterval, cfg.Sensors.PollInterval)
	require.Equal(t, SensorSourceNone, cfg.Sensors.Source)
	require.Equal(t, MotorDriverLog, cfg.Motors.Driver)
	require.Equal(t, DirectionLeft, cfg.Motors.Direction)
	require.Zero(t, cfg.Motors.MovementDuration)
	require.Equal(t, DefaultMinimumOpen, cfg.Motors.MinimumOpen)
	require.Equal(t, DefaultMouthCloseDelay, cfg.Motors.MouthCloseDelay)
	require.Equal(t, AudioBackendCommand, cfg.Audio.Backend)
	require.Equal(t, DefaultClip, cfg.Audio.DefaultClip)
	require.Equal(t, DefaultStateFilename, cfg.StateFile)
}

// TestValidate_Rejects covers the settings that must fail validation.
func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	cases := map[string]*Config{
		"bad listen":     {Control: ControlConfig{ListenAddress: "nope"}},
		"bad server":     {Control: ControlConfig{ServerAddress: "bad:address"}},
		"bad source":     {Sensors: SensorsConfig{Source: "pir"}},
		"bad driver":     {Motors: MotorsConfig{Driver: "pwm"}},
		"bad direction":  {Motors: MotorsConfig{Direction: "up"}},
		"negative":       {Sensors: SensorsConfig{CooldownPeriod: -time.Second}},
		"bad backend":    {Audio: AudioConfig{Backend: "pulse"}},
		"serial no port": {Motors: MotorsConfig{Driver: MotorDriverSerial}},
		"trigger no id":  {HTTP: HTTPConfig{NetworkTriggers: []NetworkTrigger{{ID: " "}}}},
		"duplicate trigger": {HTTP: HTTPConfig{NetworkTriggers: []NetworkTrigger{
			{ID: "door"},
			{ID: "door"},
		}}},
	}

	for name, cfg := range cases {
		require.Error(t, Validate(cfg), name)
	}
}

// TestNetworkTrigger_IsEnabled checks that a missing flag means enabled.
func TestNetworkTrigger_IsEnabled(t *testing.T) {
	t.Parallel()

	disabled := false

	require.True(t, (&NetworkTrigger{ID: "door"}).IsEnabled())
	require.False(t, (&NetworkTrigger{ID: "door", Enabled: &disabled}).IsEnabled())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		Sensors: SensorsConfig{CooldownPeriod: 45 * time.Second},
		Motors:  MotorsConfig{MovementDuration: 3 * time.Second, Direction: DirectionRight},
		Audio:   AudioConfig{DefaultClip: "Boo.wav", Backend: AudioBackendSimulated},
		HTTP: HTTPConfig{NetworkTriggers: []NetworkTrigger{
			{ID: "doorbell", Secret: "s3cret", Clip: "Ding.wav"},
		}},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, loaded.Sensors.CooldownPeriod)
	require.Equal(t, 3*time.Second, loaded.Motors.MovementDuration)
	require.Equal(t, DirectionRight, loaded.Motors.Direction)
	require.Equal(t, "Boo.wav", loaded.Audio.DefaultClip)
	require.Equal(t, settings.HTTP.NetworkTriggers, loaded.HTTP.NetworkTriggers)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_ParsesHumanDurations ensures YAML durations are written the way operators expect.
func TestLoad_ParsesHumanDurations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := []byte(`
sensors:
  debounce_time: 150ms
  cooldown_period: 1m
motors:
  mouth_close_delay: 40ms
idle:
  enabled: true
  interval: 90s
`)

	require.NoError(t, os.WriteFile(path, contents, DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 150*time.Millisecond, cfg.Sensors.DebounceWindow)
	require.Equal(t, time.Minute, cfg.Sensors.CooldownPeriod)
	require.Equal(t, 40*time.Millisecond, cfg.Motors.MouthCloseDelay)
	require.True(t, cfg.Idle.Enabled)
	require.Equal(t, 90*time.Second, cfg.Idle.Interval)
	require.Equal(t, DefaultIdleDuration, cfg.Idle.Duration)
}
