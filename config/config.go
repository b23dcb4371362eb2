// Package config loads lunalink settings for both peers.
//
// Values start from Default(), which models an Earth-Moon link. A YAML file
// given with --config overrides them, and any flag set on the command line
// overrides the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mbocsi/lunalink/media"
	"github.com/mbocsi/lunalink/proto"
)

type Config struct {
	Log   LogConfig   `yaml:"log"`
	Link  LinkConfig  `yaml:"link"`
	Rover RoverConfig `yaml:"rover"`
	Earth EarthConfig `yaml:"earth"`
}

// LinkConfig must match on both peers.
type LinkConfig struct {
	// Latency is the synthetic one-way delay applied before every command
	// and every frame is sent. 1.28s is the Earth-Moon light delay.
	Latency time.Duration `yaml:"latency"`

	// ReadChunk bounds a single command read. Longer tokens are truncated.
	ReadChunk int `yaml:"read_chunk"`

	// Mode is "raw" or "tagged".
	Mode string `yaml:"mode"`

	// MaxMessageSize caps the declared length of an incoming framed
	// message. Zero accepts anything the 32-bit header can express.
	MaxMessageSize uint32 `yaml:"max_message_size"`
}

type RoverConfig struct {
	Listen      string       `yaml:"listen"`
	MaxClients  int          `yaml:"max_clients"`
	StatusAddr  string       `yaml:"status_addr"` // chi status API, empty disables
	Advertise   bool         `yaml:"advertise"`   // mDNS
	MCP         bool         `yaml:"mcp"`         // stdio MCP server
	Camera      CameraConfig `yaml:"camera"`
	JPEGQuality int          `yaml:"jpeg_quality"`
}

type CameraConfig struct {
	Device string `yaml:"device"` // "test", "none" or a camera index
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type EarthConfig struct {
	Connect         string        `yaml:"connect"`
	Discover        bool          `yaml:"discover"`
	DiscoverTimeout time.Duration `yaml:"discover_timeout"`
	Display         string        `yaml:"display"` // "log", "dir" or "web"
	OutputDir       string        `yaml:"output_dir"`
	SaveQuality     int           `yaml:"save_quality"` // JPEG quality of frames written by the dir display
	WebAddr         string        `yaml:"web_addr"`
	Operator        string        `yaml:"operator"` // "stdin", "mcp" or "script"
	Script          []string      `yaml:"script"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Link: LinkConfig{
			Latency:   1280 * time.Millisecond,
			ReadChunk: 512,
			Mode:      string(proto.ModeRaw),
		},
		Rover: RoverConfig{
			Listen:     "0.0.0.0:12345",
			MaxClients: 16,
			Camera: CameraConfig{
				Device: "0",
				Width:  640,
				Height: 480,
			},
			JPEGQuality: 50,
		},
		Earth: EarthConfig{
			Connect:         "127.0.0.1:12345",
			DiscoverTimeout: 5 * time.Second,
			Display:         "web",
			OutputDir:       "frames",
			SaveQuality:     media.DefaultQuality,
			WebAddr:         "127.0.0.1:8080",
			Operator:        "stdin",
		},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Parse builds the configuration for one binary: defaults, then the file
// named by --config (or LUNALINK_CONFIG), then the remaining flags. bind
// registers the binary's flags against the loaded values so that only
// flags actually given on the command line override the file.
func Parse(name string, args []string, bind func(*Config, *pflag.FlagSet)) (*Config, *pflag.FlagSet, error) {
	cfg := Default()
	if path := configPath(args); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, nil, err
		}
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file (or LUNALINK_CONFIG)")
	bind(cfg, fs)
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fs, err
	}
	return cfg, fs, nil
}

func configPath(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	path := fs.String("config", os.Getenv("LUNALINK_CONFIG"), "")
	fs.BoolP("help", "h", false, "")
	_ = fs.Parse(args)
	return *path
}

// BindFlags registers the flags shared by both binaries.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level: debug, info, warn, error")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "log format: text or json")
	fs.DurationVar(&c.Link.Latency, "latency", c.Link.Latency, "synthetic one-way latency")
	fs.IntVar(&c.Link.ReadChunk, "read-chunk", c.Link.ReadChunk, "maximum bytes per command read")
	fs.StringVar(&c.Link.Mode, "mode", c.Link.Mode, "wire mode: raw or tagged")
	fs.Uint32Var(&c.Link.MaxMessageSize, "max-message-size", c.Link.MaxMessageSize, "reject framed messages larger than this (0 = no limit)")
}

func (c *Config) BindRoverFlags(fs *pflag.FlagSet) {
	c.BindFlags(fs)
	fs.StringVar(&c.Rover.Listen, "listen", c.Rover.Listen, "address to accept earth connections on")
	fs.IntVar(&c.Rover.MaxClients, "max-clients", c.Rover.MaxClients, "maximum concurrent connections")
	fs.StringVar(&c.Rover.StatusAddr, "status-addr", c.Rover.StatusAddr, "HTTP status API address (empty disables)")
	fs.BoolVar(&c.Rover.Advertise, "advertise", c.Rover.Advertise, "advertise the rover over mDNS")
	fs.BoolVar(&c.Rover.MCP, "mcp", c.Rover.MCP, "serve MCP tools on stdio")
	fs.StringVar(&c.Rover.Camera.Device, "camera", c.Rover.Camera.Device, "camera device: test, none or an index")
	fs.IntVar(&c.Rover.Camera.Width, "width", c.Rover.Camera.Width, "capture width")
	fs.IntVar(&c.Rover.Camera.Height, "height", c.Rover.Camera.Height, "capture height")
	fs.IntVar(&c.Rover.JPEGQuality, "quality", c.Rover.JPEGQuality, "JPEG quality 1-100")
}

func (c *Config) BindEarthFlags(fs *pflag.FlagSet) {
	c.BindFlags(fs)
	fs.StringVar(&c.Earth.Connect, "connect", c.Earth.Connect, "rover address")
	fs.BoolVar(&c.Earth.Discover, "discover", c.Earth.Discover, "find the rover over mDNS instead of --connect")
	fs.DurationVar(&c.Earth.DiscoverTimeout, "discover-timeout", c.Earth.DiscoverTimeout, "mDNS lookup timeout")
	fs.StringVar(&c.Earth.Display, "display", c.Earth.Display, "display sink: log, dir or web")
	fs.StringVar(&c.Earth.OutputDir, "output-dir", c.Earth.OutputDir, "directory for the dir display")
	fs.IntVar(&c.Earth.SaveQuality, "save-quality", c.Earth.SaveQuality, "JPEG quality 1-100 for the dir display")
	fs.StringVar(&c.Earth.WebAddr, "web-addr", c.Earth.WebAddr, "address of the browser viewer")
	fs.StringVar(&c.Earth.Operator, "operator", c.Earth.Operator, "command source: stdin, mcp or script")
	fs.StringSliceVar(&c.Earth.Script, "script", c.Earth.Script, "commands for the script operator")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Link.Latency < 0 {
		errs = append(errs, fmt.Errorf("link.latency must not be negative"))
	}
	if c.Link.ReadChunk <= 0 {
		errs = append(errs, fmt.Errorf("link.read_chunk must be positive"))
	}
	if _, err := proto.ParseMode(c.Link.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Rover.MaxClients <= 0 {
		errs = append(errs, fmt.Errorf("rover.max_clients must be positive"))
	}
	if c.Rover.Camera.Width <= 0 || c.Rover.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("rover.camera resolution must be positive"))
	}
	if c.Rover.JPEGQuality < 1 || c.Rover.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("rover.jpeg_quality must be between 1 and 100"))
	}
	if c.Earth.SaveQuality < 1 || c.Earth.SaveQuality > 100 {
		errs = append(errs, fmt.Errorf("earth.save_quality must be between 1 and 100"))
	}
	switch c.Earth.Display {
	case "log", "dir", "web":
	default:
		errs = append(errs, fmt.Errorf("earth.display %q is not one of log, dir, web", c.Earth.Display))
	}
	switch c.Earth.Operator {
	case "stdin", "mcp", "script":
	default:
		errs = append(errs, fmt.Errorf("earth.operator %q is not one of stdin, mcp, script", c.Earth.Operator))
	}
	return errors.Join(errs...)
}

// WireMode returns the parsed link mode. Call Validate first.
func (c *Config) WireMode() proto.Mode {
	m, _ := proto.ParseMode(c.Link.Mode)
	return m
}
