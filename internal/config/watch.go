package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"chartsync/internal/logger"
)

// WatchLogLevel hot-reloads app.log_level whenever the config file changes.
// Other settings require a restart; the log level is the one knob operators
// flip on a live process.
func WatchLogLevel(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			logger.Warnf("[config] reload failed after %s: %v", evt.Op, err)
			return
		}
		level := strings.TrimSpace(v.GetString("app.log_level"))
		if level == "" {
			return
		}
		logger.SetLevel(level)
		logger.Infof("[config] log level now %s", level)
	})
	v.WatchConfig()
	return nil
}
