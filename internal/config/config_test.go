package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dozed_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MinimalMQTTBackend(t *testing.T) {
	path := writeConfig(t, `
# doze daemon
MQTT_BROKER = tcp://localhost:1883
SENSOR_BACKEND=mqtt
PREFS_PATH=/tmp/gestures.toml
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, BackendMQTT, cfg.SensorBackend)
	assert.Equal(t, "doze/pulse", cfg.TopicPulse)
	assert.Equal(t, 50, cfg.OrientationSampleInterval)
	assert.Equal(t, "/sys/power/wake_lock", cfg.WakeLockPath)
	assert.Equal(t, DisplayMQTT, cfg.DisplaySource)
	assert.Equal(t, 5000, cfg.AmbientDuration)
}

func TestLoad_GPIOBackend(t *testing.T) {
	path := writeConfig(t, `MQTT_BROKER=tcp://pi:1883
PROXIMITY_GPIO_PIN=GPIO17
PROXIMITY_ACTIVE_LOW=false
PICKUP_GPIO_PIN=GPIO27
IMU_SPI_DEVICE=/dev/spidev0.0
IMU_CS_PIN=8
ORIENTATION_SAMPLE_INTERVAL=20
TOPIC_PREFS=phone/prefs/
RINGER_MODE=Vibrate
EVENT_QUEUE_SIZE=64
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "GPIO17", cfg.ProximityGPIOPin)
	assert.False(t, cfg.ProximityActiveLow)
	assert.Equal(t, 20, cfg.OrientationSampleInterval)
	assert.Equal(t, "phone/prefs", cfg.TopicPrefs)
	assert.Equal(t, "vibrate", cfg.RingerMode)
	assert.Equal(t, 64, cfg.EventQueueSize)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing broker", "SENSOR_BACKEND=mqtt\n", "MQTT_BROKER is required"},
		{"bad line", "MQTT_BROKER\n", "invalid config line 1"},
		{"unknown key", "MQTT_BROKER=x\nFOO=1\n", "unknown config key"},
		{"bad backend", "MQTT_BROKER=x\nSENSOR_BACKEND=i2c\n", "SENSOR_BACKEND"},
		{"gpio needs pin", "MQTT_BROKER=x\n", "PROXIMITY_GPIO_PIN is required"},
		{"serial needs port", "MQTT_BROKER=x\nSENSOR_BACKEND=serial\n", "SERIAL_PORT is required"},
		{"udev needs backlight", "MQTT_BROKER=x\nSENSOR_BACKEND=mqtt\nDISPLAY_SOURCE=udev\n", "BACKLIGHT_DEVICE is required"},
		{"interval range", "MQTT_BROKER=x\nORIENTATION_SAMPLE_INTERVAL=1\n", "5-1000"},
		{"ambient duration", "MQTT_BROKER=x\nAMBIENT_DURATION=10\n", "500-60000"},
		{"queue size", "MQTT_BROKER=x\nEVENT_QUEUE_SIZE=abc\n", "invalid EVENT_QUEUE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorContains(t, err, "failed to open config file")
}
