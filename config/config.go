// Package config provides the configuration keys, defaults and helpers of a chat relay
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Configuration keys
const (
	NameKey         = "name"         // Name of the relay, also the name links are persisted under. Defaults to chatrelay
	DebugKey        = "debug"        // Debug mode, defaults to false
	BridgeIDKey     = "bridgeId"     // Identifier of this relay instance in already-relayed sets, defaults to the relay name
	TimeLocationKey = "timeLocation" // Time location for scheduled jobs (i.e. directory refreshes), defaults to "Local"
	PluginsKey      = "plugins"      // Root element of the map of plugin configurations

	DeliveryPartitionCountKey    = "advanced.deliveryPartitionCount"    // Number of delivery workers, must be a power of two. Defaults to 16
	DeliveryBufferedTaskCountKey = "advanced.deliveryBufferedTaskCount" // Number of tasks buffered per delivery worker. Defaults to 10

	ImageWaitTimeoutKey   = "images.waitTimeout"  // How long a deferred image delivery waits for its url, defaults to 30s
	ImageRetentionKey     = "images.retention"    // How long resolved image urls are kept for late waiters, defaults to 5m
	ImageFetchTimeoutKey  = "images.fetchTimeout" // Timeout of image downloads, defaults to 30s
	ImageMaxSizeBytesKey  = "images.maxSizeBytes" // Max size of a relayed image, defaults to 10MB
	StorageBackendKey     = "storage.backend"     // One of leveldb, datastore or memory. Defaults to leveldb
	StoragePathKey        = "storage.path"        // Path of the leveldb directory, defaults to ~/.chatrelay
	StorageProjectIDKey   = "storage.gcloudProjectId"
	StorageCredentialsKey = "storage.gcloudCredentialsFile"

	SlackTokenKey                = "slack.token"
	SlackFileHostsKey            = "slack.fileHosts"            // Hosts the slack token is sent to when fetching images, defaults to files.slack.com
	SlackNameKey                 = "slack.name"                 // Name of the slack side, defaults to self@team.domain once logged in
	SlackAdminsKey               = "slack.admins"               // User ids allowed to run sync commands
	SlackTeamTagKey              = "slack.teamTag"              // Default external tag of links that don't define one
	SlackPollIntervalKey         = "slack.pollInterval"         // Defaults to 100ms
	SlackPingIntervalKey         = "slack.pingInterval"         // Defaults to 30s
	SlackMaxReconnectAttemptsKey = "slack.maxReconnectAttempts" // Consecutive reconnects before giving up, defaults to 10
	SlackRateLimitKey            = "slack.rateLimitPerSecond"   // Outbound api calls per second, defaults to 1
	SlackRateBurstKey            = "slack.rateBurst"            // Defaults to 3
	SlackDirectoryCacheSizeKey   = "slack.directoryCacheSize"   // Defaults to 5000
	SlackDirectoryRefreshKey     = "slack.directoryRefreshMinutes"

	HangoutsListenAddrKey  = "hangouts.listenAddr"    // Address of the webhook sink, defaults to :8765
	HangoutsCallbackURLKey = "hangouts.callbackUrl"   // Url of the host accepting messages sent by the relay
	HangoutsImageTokenKey  = "hangouts.imageToken"    // Optional bearer token used to fetch images for the host
	HangoutsImageHostsKey  = "hangouts.imageHosts"    // Hosts the image token is sent to, defaults to the callback url host
	HangoutsCommandKey     = "hangouts.commandPrefix" // Prefix of host messages addressed to the relay, defaults to /relay
	HangoutsSendTimeoutKey = "hangouts.sendTimeout"   // Timeout of calls to the host callback, defaults to 10s
)

// NewViperWithDefaults creates a new viper instance with defaults
func NewViperWithDefaults() (v *viper.Viper) {
	v = viper.New()
	v.SetDefault(NameKey, "chatrelay")
	v.SetDefault(DebugKey, false)
	v.SetDefault(BridgeIDKey, "")
	v.SetDefault(TimeLocationKey, "Local")
	v.SetDefault(DeliveryPartitionCountKey, 16)
	v.SetDefault(DeliveryBufferedTaskCountKey, 10)
	v.SetDefault(ImageWaitTimeoutKey, 30*time.Second)
	v.SetDefault(ImageRetentionKey, 5*time.Minute)
	v.SetDefault(ImageFetchTimeoutKey, 30*time.Second)
	v.SetDefault(ImageMaxSizeBytesKey, 10*1024*1024)
	v.SetDefault(StorageBackendKey, "leveldb")
	v.SetDefault(StoragePathKey, "~/.chatrelay")
	v.SetDefault(SlackFileHostsKey, []string{"files.slack.com"})
	v.SetDefault(SlackPollIntervalKey, 100*time.Millisecond)
	v.SetDefault(SlackPingIntervalKey, 30*time.Second)
	v.SetDefault(SlackMaxReconnectAttemptsKey, 10)
	v.SetDefault(SlackRateLimitKey, 1.0)
	v.SetDefault(SlackRateBurstKey, 3)
	v.SetDefault(SlackDirectoryCacheSizeKey, 5000)
	v.SetDefault(SlackDirectoryRefreshKey, 60)
	v.SetDefault(HangoutsListenAddrKey, ":8765")
	v.SetDefault(HangoutsCommandKey, "/relay")
	v.SetDefault(HangoutsSendTimeoutKey, 10*time.Second)

	return v
}

// LayerConfigWithDefaults sets all defaults on the viper instance for values that aren't set
func LayerConfigWithDefaults(v *viper.Viper) (lv *viper.Viper) {
	defaults := NewViperWithDefaults()
	for _, key := range defaults.AllKeys() {
		v.SetDefault(key, defaults.Get(key))
	}

	return v
}

// NewViperFromFile returns a viper instance layered with defaults and loaded from the config file.
// Environment variables prefixed with CHATRELAY_ override file values
func NewViperFromFile(path string) (v *viper.Viper, err error) {
	v = LayerConfigWithDefaults(viper.New())
	v.SetConfigFile(path)
	v.SetEnvPrefix("chatrelay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("Failed to read configuration file [%s]: %v", path, err)
	}

	return v, nil
}

// WatchConfig calls onChange every time the configuration file backing v is modified
func WatchConfig(v *viper.Viper, onChange func(v *viper.Viper)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) != 0 {
			onChange(v)
		}
	})
	v.WatchConfig()
}

// GetTimeLocation loads the location from the config's timeLocation key
func GetTimeLocation(v *viper.Viper) (timeLoc *time.Location, err error) {
	return time.LoadLocation(v.GetString(TimeLocationKey))
}

// GetPluginConfig returns the viper sub-tree for a plugin configuration
func GetPluginConfig(v *viper.Viper, name string) (pc *viper.Viper, err error) {
	pluginKey := fmt.Sprintf("%s.%s", PluginsKey, name)

	if !v.IsSet(pluginKey) {
		return nil, fmt.Errorf("Missing plugin configuration for plugin [%s] at [%s]", name, pluginKey)
	}

	return v.Sub(pluginKey), nil
}

// GetStringSlice returns the value of key as a slice of strings. Unlike viper, a single
// comma-separated string is also accepted
func GetStringSlice(v *viper.Viper, key string) (values []string) {
	raw := v.Get(key)
	if s, ok := raw.(string); ok {
		values = make([]string, 0)
		for _, e := range strings.Split(s, ",") {
			if e = strings.TrimSpace(e); e != "" {
				values = append(values, e)
			}
		}

		return values
	}

	return cast.ToStringSlice(raw)
}

// GetDuration returns the value of key as a duration, falling back to def if the value can't be cast
func GetDuration(v *viper.Viper, key string, def time.Duration) (d time.Duration) {
	d, err := cast.ToDurationE(v.Get(key))
	if err != nil || d <= 0 {
		return def
	}

	return d
}

// GetHangoutsImageHosts returns the hosts the host image token may be sent to. Without an explicit list, only the
// host of the callback url gets it
func GetHangoutsImageHosts(v *viper.Viper) (hosts []string) {
	if hosts = GetStringSlice(v, HangoutsImageHostsKey); len(hosts) > 0 {
		return hosts
	}

	u, err := url.Parse(v.GetString(HangoutsCallbackURLKey))
	if err != nil || u.Host == "" {
		return []string{}
	}

	return []string{u.Host}
}
