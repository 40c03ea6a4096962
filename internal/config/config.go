// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Sensor backends.
const (
	BackendGPIO   = "gpio"
	BackendSerial = "serial"
	BackendMQTT   = "mqtt"
)

// Display state sources.
const (
	DisplayUdev = "udev"
	DisplayMQTT = "mqtt"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientID        string
	MQTTClientIDNode    string
	MQTTClientIDCtl     string
	MQTTClientIDAmbient string
	MQTTUsername        string
	MQTTPassword        string

	// Topics
	TopicPulse           string
	TopicDisplay         string
	TopicDozeEnabled     string
	TopicPrefs           string // prefix, one sub-topic per gesture key
	TopicSensorProximity string
	TopicSensorPickUp    string
	TopicSensorPose      string
	TopicSensorControl   string // prefix, one sub-topic per sensor
	TopicState           string

	// Sensors
	SensorBackend             string // "gpio", "serial" or "mqtt"
	ProximityGPIOPin          string
	ProximityActiveLow        bool
	PickUpGPIOPin             string
	PickUpActiveLow           bool
	IMUSPIDevice              string
	IMUCSPin                  string
	OrientationSampleInterval int // milliseconds
	SerialPort                string
	SerialBaudRate            int

	// Display
	DisplaySource   string // "udev" or "mqtt"
	BacklightDevice string // e.g. "rpi_backlight"

	// Ambient OLED shown on each pulse
	AmbientDuration int // milliseconds

	// Power
	WakeLockPath string
	WakeLockName string

	// Preferences and daemon state
	PrefsPath  string
	LockPath   string
	RingerMode string

	// Engine
	EventQueueSize int

	// Debug HTTP server; empty disables it
	DebugHTTPAddr string

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config populated with the values used when a key is
// absent from the file.
func Default() *Config {
	return &Config{
		MQTTClientID:        "dozed",
		MQTTClientIDNode:    "doze-sensor-node",
		MQTTClientIDCtl:     "dozectl",
		MQTTClientIDAmbient: "doze-ambient",

		TopicPulse:           "doze/pulse",
		TopicDisplay:         "doze/display",
		TopicDozeEnabled:     "doze/enabled",
		TopicPrefs:           "doze/prefs",
		TopicSensorProximity: "doze/sensor/proximity",
		TopicSensorPickUp:    "doze/sensor/pickup",
		TopicSensorPose:      "doze/sensor/pose",
		TopicSensorControl:   "doze/sensor/control",
		TopicState:           "doze/state",

		SensorBackend:             BackendGPIO,
		ProximityActiveLow:        true,
		OrientationSampleInterval: 50,
		SerialBaudRate:            115200,

		DisplaySource:   DisplayMQTT,
		AmbientDuration: 5000,

		WakeLockPath: "/sys/power/wake_lock",
		WakeLockName: "SensorsDozeServiceWakeLock",

		PrefsPath:  "/var/lib/dozed/gestures.toml",
		LockPath:   "/run/dozed.lock",
		RingerMode: "normal",

		EventQueueSize: 32,

		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_CLIENT_ID_NODE":
		c.MQTTClientIDNode = value
	case "MQTT_CLIENT_ID_CTL":
		c.MQTTClientIDCtl = value
	case "MQTT_CLIENT_ID_AMBIENT":
		c.MQTTClientIDAmbient = value
	case "MQTT_USERNAME":
		c.MQTTUsername = value
	case "MQTT_PASSWORD":
		c.MQTTPassword = value

	// Topics
	case "TOPIC_PULSE":
		c.TopicPulse = value
	case "TOPIC_DISPLAY":
		c.TopicDisplay = value
	case "TOPIC_DOZE_ENABLED":
		c.TopicDozeEnabled = value
	case "TOPIC_PREFS":
		c.TopicPrefs = strings.TrimSuffix(value, "/")
	case "TOPIC_SENSOR_PROXIMITY":
		c.TopicSensorProximity = value
	case "TOPIC_SENSOR_PICKUP":
		c.TopicSensorPickUp = value
	case "TOPIC_SENSOR_POSE":
		c.TopicSensorPose = value
	case "TOPIC_SENSOR_CONTROL":
		c.TopicSensorControl = strings.TrimSuffix(value, "/")
	case "TOPIC_STATE":
		c.TopicState = value

	// Sensors
	case "SENSOR_BACKEND":
		switch value {
		case BackendGPIO, BackendSerial, BackendMQTT:
			c.SensorBackend = value
		default:
			return fmt.Errorf("SENSOR_BACKEND must be gpio, serial or mqtt, got %q", value)
		}
	case "PROXIMITY_GPIO_PIN":
		c.ProximityGPIOPin = value
	case "PROXIMITY_ACTIVE_LOW":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid PROXIMITY_ACTIVE_LOW %q: %w", value, err)
		}
		c.ProximityActiveLow = b
	case "PICKUP_GPIO_PIN":
		c.PickUpGPIOPin = value
	case "PICKUP_ACTIVE_LOW":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid PICKUP_ACTIVE_LOW %q: %w", value, err)
		}
		c.PickUpActiveLow = b
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "ORIENTATION_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ORIENTATION_SAMPLE_INTERVAL %q: %w", value, err)
		}
		if interval < 5 || interval > 1000 {
			return fmt.Errorf("ORIENTATION_SAMPLE_INTERVAL must be 5-1000 ms, got %d", interval)
		}
		c.OrientationSampleInterval = interval
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", rate)
		}
		c.SerialBaudRate = rate

	// Display
	case "DISPLAY_SOURCE":
		switch value {
		case DisplayUdev, DisplayMQTT:
			c.DisplaySource = value
		default:
			return fmt.Errorf("DISPLAY_SOURCE must be udev or mqtt, got %q", value)
		}
	case "BACKLIGHT_DEVICE":
		c.BacklightDevice = value
	case "AMBIENT_DURATION":
		d, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid AMBIENT_DURATION %q: %w", value, err)
		}
		if d < 500 || d > 60000 {
			return fmt.Errorf("AMBIENT_DURATION must be 500-60000 ms, got %d", d)
		}
		c.AmbientDuration = d

	// Power
	case "WAKE_LOCK_PATH":
		c.WakeLockPath = value
	case "WAKE_LOCK_NAME":
		c.WakeLockName = value

	// Preferences and daemon state
	case "PREFS_PATH":
		c.PrefsPath = value
	case "LOCK_PATH":
		c.LockPath = value
	case "RINGER_MODE":
		switch strings.ToLower(value) {
		case "normal", "vibrate", "silent":
			c.RingerMode = strings.ToLower(value)
		default:
			return fmt.Errorf("RINGER_MODE must be normal, vibrate or silent, got %q", value)
		}

	// Engine
	case "EVENT_QUEUE_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid EVENT_QUEUE_SIZE %q: %w", value, err)
		}
		if size < 1 || size > 4096 {
			return fmt.Errorf("EVENT_QUEUE_SIZE must be 1-4096, got %d", size)
		}
		c.EventQueueSize = size

	case "DEBUG_HTTP_ADDR":
		c.DebugHTTPAddr = value

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = value
	case "LOG_FORMAT":
		c.LogFormat = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	switch c.SensorBackend {
	case BackendGPIO:
		if c.ProximityGPIOPin == "" {
			return fmt.Errorf("PROXIMITY_GPIO_PIN is required for the gpio backend")
		}
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for the gpio backend")
		}
	case BackendSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for the serial backend")
		}
	}
	if c.DisplaySource == DisplayUdev && c.BacklightDevice == "" {
		return fmt.Errorf("BACKLIGHT_DEVICE is required when DISPLAY_SOURCE=udev")
	}
	if c.PrefsPath == "" {
		return fmt.Errorf("PREFS_PATH is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
