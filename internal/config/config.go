package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultDomain      = "localhost:8080"
	DefaultSTUN        = "stun:stun.l.google.com:19302"
	DefaultRelayAddr   = ":8080"
	DefaultChatRate    = 2.0
	DefaultChatBurst   = 5
	DefaultMaxMembers  = 16
	DefaultDisplayName = "guest"
)

// Config holds application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	ICE     ICEConfig     `mapstructure:"ice"`
	User    UserConfig    `mapstructure:"user"`
	Devices DevicesConfig `mapstructure:"devices"`
	Relay   RelayConfig   `mapstructure:"relay"`

	// RelayURL, BrokerURL and APIURL are derived from Server.
	RelayURL  string `mapstructure:"-"`
	BrokerURL string `mapstructure:"-"`
	APIURL    string `mapstructure:"-"`
}

// ServerConfig locates the relay server.
type ServerConfig struct {
	Domain   string `mapstructure:"domain"`
	Insecure bool   `mapstructure:"insecure"`
}

// ICEConfig holds the ICE servers used for peer connections.
type ICEConfig struct {
	STUNServer string `mapstructure:"stun"`
	TURNServer string `mapstructure:"turn"`
	TURNUser   string `mapstructure:"turn_user"`
	TURNPass   string `mapstructure:"turn_pass"`
	ForceRelay bool   `mapstructure:"force_relay"`
}

type UserConfig struct {
	Name string `mapstructure:"name"`
}

// DevicesConfig points capture devices at media files. Empty paths mean idle
// tracks.
type DevicesConfig struct {
	CameraVideo   string `mapstructure:"camera_video"`
	CameraAudio   string `mapstructure:"camera_audio"`
	ScreenVideo   string `mapstructure:"screen_video"`
	NoCamera      bool   `mapstructure:"no_camera"`
	ScreenBlocked bool   `mapstructure:"screen_blocked"`
}

// RelayConfig configures the relay server command.
type RelayConfig struct {
	Addr       string  `mapstructure:"addr"`
	ChatRate   float64 `mapstructure:"chat_rate"`
	ChatBurst  int     `mapstructure:"chat_burst"`
	MaxMembers int     `mapstructure:"max_members"`
}

// Options for loading config with CLI flag overrides. Zero values leave the
// lower-priority sources in charge.
type Options struct {
	ConfigFile string

	Domain     string
	Insecure   bool
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	Name        string
	CameraVideo string
	CameraAudio string
	ScreenVideo string
	NoCamera    bool

	RelayAddr string
}

// envBindings maps config keys to environment variables, most specific first.
var envBindings = map[string][]string{
	"server.domain":          {"HUDDLE_DOMAIN", "DOMAIN"},
	"server.insecure":        {"HUDDLE_INSECURE"},
	"ice.stun":               {"HUDDLE_STUN_SERVER", "STUN_SERVER"},
	"ice.turn":               {"HUDDLE_TURN_SERVER", "TURN_SERVER"},
	"ice.turn_user":          {"HUDDLE_TURN_USERNAME", "TURN_USERNAME"},
	"ice.turn_pass":          {"HUDDLE_TURN_PASSWORD", "TURN_PASSWORD"},
	"ice.force_relay":        {"HUDDLE_FORCE_RELAY"},
	"user.name":              {"HUDDLE_NAME"},
	"devices.camera_video":   {"HUDDLE_CAMERA_VIDEO"},
	"devices.camera_audio":   {"HUDDLE_CAMERA_AUDIO"},
	"devices.screen_video":   {"HUDDLE_SCREEN_VIDEO"},
	"devices.no_camera":      {"HUDDLE_NO_CAMERA"},
	"devices.screen_blocked": {"HUDDLE_SCREEN_BLOCKED"},
	"relay.addr":             {"HUDDLE_RELAY_ADDR"},
	"relay.chat_rate":        {"HUDDLE_CHAT_RATE"},
	"relay.chat_burst":       {"HUDDLE_CHAT_BURST"},
	"relay.max_members":      {"HUDDLE_MAX_MEMBERS"},
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Config file (huddle.yaml in the working directory or ~/.config/huddle)
// 4. Defaults - lowest priority
func Load(opts Options) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("server.domain", DefaultDomain)
	v.SetDefault("server.insecure", false)
	v.SetDefault("ice.stun", DefaultSTUN)
	v.SetDefault("ice.turn", "")
	v.SetDefault("ice.turn_user", "")
	v.SetDefault("ice.turn_pass", "")
	v.SetDefault("ice.force_relay", false)
	v.SetDefault("user.name", defaultName())
	v.SetDefault("devices.camera_video", "")
	v.SetDefault("devices.camera_audio", "")
	v.SetDefault("devices.screen_video", "")
	v.SetDefault("devices.no_camera", false)
	v.SetDefault("devices.screen_blocked", false)
	v.SetDefault("relay.addr", DefaultRelayAddr)
	v.SetDefault("relay.chat_rate", DefaultChatRate)
	v.SetDefault("relay.chat_burst", DefaultChatBurst)
	v.SetDefault("relay.max_members", DefaultMaxMembers)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	applyFlags(v, opts)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Server.Domain = strings.TrimSuffix(cfg.Server.Domain, "/")
	wsScheme, httpScheme := "wss", "https"
	if cfg.Server.Insecure || isLocal(cfg.Server.Domain) {
		wsScheme, httpScheme = "ws", "http"
	}
	cfg.RelayURL = fmt.Sprintf("%s://%s/ws", wsScheme, cfg.Server.Domain)
	cfg.BrokerURL = fmt.Sprintf("%s://%s/peerjs", wsScheme, cfg.Server.Domain)
	cfg.APIURL = fmt.Sprintf("%s://%s/api", httpScheme, cfg.Server.Domain)

	return &cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("huddle")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "huddle"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func applyFlags(v *viper.Viper, opts Options) {
	setString := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	setBool := func(key string, value bool) {
		if value {
			v.Set(key, true)
		}
	}

	setString("server.domain", opts.Domain)
	setBool("server.insecure", opts.Insecure)
	setString("ice.stun", opts.STUNServer)
	setString("ice.turn", opts.TURNServer)
	setString("ice.turn_user", opts.TURNUser)
	setString("ice.turn_pass", opts.TURNPass)
	setBool("ice.force_relay", opts.ForceRelay)
	setString("user.name", opts.Name)
	setString("devices.camera_video", opts.CameraVideo)
	setString("devices.camera_audio", opts.CameraAudio)
	setString("devices.screen_video", opts.ScreenVideo)
	setBool("devices.no_camera", opts.NoCamera)
	setString("relay.addr", opts.RelayAddr)
}

func defaultName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return DefaultDisplayName
}

func isLocal(domain string) bool {
	host, _, err := net.SplitHostPort(domain)
	if err != nil {
		host = domain
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

// GetRoomLink returns a shareable join command for a room.
func (c *Config) GetRoomLink(roomID string) string {
	if c.Server.Domain == DefaultDomain {
		return fmt.Sprintf("huddle join %s", roomID)
	}
	return fmt.Sprintf("huddle join %s --server %s", roomID, c.Server.Domain)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.ICE.STUNServer == "" {
		return nil
	}
	return []string{c.ICE.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.ICE.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.TrimPrefix(c.ICE.TURNServer, "turn:"), "turns:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.ICE.TURNUser, c.ICE.TURNPass
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	if c.ICE.ForceRelay && c.GetTURNServers() == nil {
		return errors.New("cannot force relay mode without TURN server configured")
	}
	if strings.TrimSpace(c.User.Name) == "" {
		return errors.New("display name must not be empty")
	}
	return nil
}
