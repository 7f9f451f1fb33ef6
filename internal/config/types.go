package config

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Market MarketConfig `mapstructure:"market"`
	Sync   SyncConfig   `mapstructure:"sync"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Store  StoreConfig  `mapstructure:"store"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

type MarketConfig struct {
	// Symbol pins the synchronized symbol; empty means auto-pick.
	Symbol       string `mapstructure:"symbol"`
	Transport    string `mapstructure:"transport"` // sdk | rest
	RESTBaseURL  string `mapstructure:"rest_base_url"`
	HTTPTimeout  int    `mapstructure:"http_timeout_sec"`
	ProxyEnabled bool   `mapstructure:"proxy_enabled"`
	RESTProxyURL string `mapstructure:"rest_proxy_url"`
}

type SyncConfig struct {
	DefaultGranularity string `mapstructure:"default_granularity"`
	DebounceMs         int    `mapstructure:"debounce_ms"`
	ResizeWindowMs     int    `mapstructure:"resize_window_ms"`
}

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type StoreConfig struct {
	// Empty paths disable the corresponding sink.
	SyncLogPath  string `mapstructure:"synclog_path"`
	SnapshotPath string `mapstructure:"snapshot_path"`
}
