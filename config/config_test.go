package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexandre-normand/chatrelay/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithDefault(t *testing.T) {
	v := config.NewViperWithDefaults()

	assert.Equal(t, false, v.GetBool(config.DebugKey), "%s should be %t", config.DebugKey, false)
	assert.Equal(t, "Local", v.GetString(config.TimeLocationKey), "%s should be %s", config.TimeLocationKey, "Local")
	assert.Equal(t, 16, v.GetInt(config.DeliveryPartitionCountKey), "%s should be %d", config.DeliveryPartitionCountKey, 16)
	assert.Equal(t, 10, v.GetInt(config.DeliveryBufferedTaskCountKey), "%s should be %d", config.DeliveryBufferedTaskCountKey, 10)
	assert.Equal(t, 100*time.Millisecond, v.GetDuration(config.SlackPollIntervalKey))
	assert.Equal(t, 30*time.Second, v.GetDuration(config.SlackPingIntervalKey))
	assert.Equal(t, 30*time.Second, v.GetDuration(config.ImageWaitTimeoutKey))
	assert.Equal(t, "leveldb", v.GetString(config.StorageBackendKey))
	assert.Equal(t, ":8765", v.GetString(config.HangoutsListenAddrKey))
}

func TestLayerConfigWithDefaults(t *testing.T) {
	v := viper.New()

	for _, key := range config.NewViperWithDefaults().AllKeys() {
		assert.Nil(t, v.Get(key))
	}

	defaults := config.NewViperWithDefaults()
	v = config.LayerConfigWithDefaults(v)
	for _, key := range defaults.AllKeys() {
		assert.Equal(t, defaults.Get(key), v.Get(key), "%s should be %v", key, defaults.Get(key))
	}
}

func TestLayeredConfigWithDefaultsAndOverrides(t *testing.T) {
	v := viper.New()
	v.Set(config.DeliveryPartitionCountKey, 32)
	v.Set(config.DeliveryBufferedTaskCountKey, 20)

	v = config.LayerConfigWithDefaults(v)

	assert.Equal(t, 32, v.GetInt(config.DeliveryPartitionCountKey))
	assert.Equal(t, 20, v.GetInt(config.DeliveryBufferedTaskCountKey))
	assert.Equal(t, "Local", v.GetString(config.TimeLocationKey))
}

func TestNewViperFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\nslack:\n  token: xoxb-1\n  admins: [U1, U2]\n"), 0600))

	v, err := config.NewViperFromFile(path)
	require.NoError(t, err)

	assert.True(t, v.GetBool(config.DebugKey))
	assert.Equal(t, "xoxb-1", v.GetString(config.SlackTokenKey))
	assert.Equal(t, []string{"U1", "U2"}, config.GetStringSlice(v, config.SlackAdminsKey))
	assert.Equal(t, 16, v.GetInt(config.DeliveryPartitionCountKey))
}

func TestNewViperFromMissingFile(t *testing.T) {
	_, err := config.NewViperFromFile(filepath.Join(t.TempDir(), "missing.yaml"))

	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "Failed to read configuration file")
	}
}

func TestGetTimeLocationWithDefault(t *testing.T) {
	v := viper.New()
	v.Set(config.TimeLocationKey, "Local")

	timeLoc, err := config.GetTimeLocation(v)

	assert.Nil(t, err)
	if assert.NotNil(t, timeLoc) {
		assert.Conditionf(t, func() bool { return timeLoc.String() == "Local" || timeLoc.String() == "UTC" }, "timeLoc should be either Local or UTC but was %s", timeLoc.String())
	}
}

func TestGetTimeLocationWithTimezoneId(t *testing.T) {
	v := viper.New()
	v.Set(config.TimeLocationKey, "America/Los_Angeles")

	timeLoc, err := config.GetTimeLocation(v)

	assert.Nil(t, err)
	if assert.NotNil(t, timeLoc) {
		assert.Equal(t, "America/Los_Angeles", timeLoc.String())
	}
}

func TestGetTimeLocationWithInvalidValue(t *testing.T) {
	v := viper.New()
	v.Set(config.TimeLocationKey, "invalid")

	_, err := config.GetTimeLocation(v)

	if assert.NotNil(t, err) {
		assert.Contains(t, err.Error(), "invalid")
	}
}

func TestGetPluginConfig(t *testing.T) {
	v := viper.New()
	configValues := map[string]interface{}{
		"feature1": true,
		"subFeature": map[string]string{
			"name":  "John",
			"email": "test@golang.org",
		},
	}
	v.Set(config.PluginsKey, map[string]interface{}{
		"pluginName": configValues,
	})

	pc, err := config.GetPluginConfig(v, "pluginName")

	assert.Nil(t, err)
	if assert.NotNil(t, pc) {
		assert.Equal(t, configValues["subFeature"], pc.GetStringMapString("subFeature"))
	}
}

func TestGetPluginConfigWithMissingConfig(t *testing.T) {
	v := viper.New()

	_, err := config.GetPluginConfig(v, "pluginName")

	if assert.NotNil(t, err) {
		assert.Contains(t, err.Error(), "Missing plugin configuration for plugin [pluginName]")
	}
}

func TestGetStringSlice(t *testing.T) {
	tests := map[string]struct {
		value    interface{}
		expected []string
	}{
		"CommaSeparated": {value: "U1, U2,,U3", expected: []string{"U1", "U2", "U3"}},
		"List":           {value: []interface{}{"U1", "U2"}, expected: []string{"U1", "U2"}},
		"Empty":          {value: "", expected: []string{}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			v.Set("k", tc.value)

			assert.Equal(t, tc.expected, config.GetStringSlice(v, "k"))
		})
	}
}

func TestGetDuration(t *testing.T) {
	v := viper.New()
	v.Set("valid", "2s")
	v.Set("invalid", "soon")

	assert.Equal(t, 2*time.Second, config.GetDuration(v, "valid", time.Second))
	assert.Equal(t, time.Second, config.GetDuration(v, "invalid", time.Second))
	assert.Equal(t, time.Minute, config.GetDuration(v, "missing", time.Minute))
}

func TestGetHangoutsImageHosts(t *testing.T) {
	testCases := map[string]struct {
		hosts       interface{}
		callbackURL string
		expected    []string
	}{
		"Explicit":            {hosts: []string{"img.example.com"}, callbackURL: "https://chat.example.com/send", expected: []string{"img.example.com"}},
		"FromCallback":        {callbackURL: "https://chat.example.com:8443/send", expected: []string{"chat.example.com:8443"}},
		"NoCallback":          {expected: []string{}},
		"InvalidCallback":     {callbackURL: "://", expected: []string{}},
		"CommaSeparatedHosts": {hosts: "a.example.com, b.example.com", expected: []string{"a.example.com", "b.example.com"}},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			if tc.hosts != nil {
				v.Set(config.HangoutsImageHostsKey, tc.hosts)
			}
			v.Set(config.HangoutsCallbackURLKey, tc.callbackURL)

			assert.Equal(t, tc.expected, config.GetHangoutsImageHosts(v))
		})
	}
}

func TestSlackFileHostsDefault(t *testing.T) {
	v := config.NewViperWithDefaults()

	assert.Equal(t, []string{"files.slack.com"}, config.GetStringSlice(v, config.SlackFileHostsKey))
}
