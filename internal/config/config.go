package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brogergvhs/chaptrix/internal/stitch"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Output         string   `yaml:"output" mapstructure:"output"`
	DownloadPath   string   `yaml:"download_path" mapstructure:"download_path"`
	ImageWorkers   int      `yaml:"image_workers" mapstructure:"image_workers"`
	ChapterWorkers int      `yaml:"chapter_workers" mapstructure:"chapter_workers"`
	KeepFolders    bool     `yaml:"keep_folders" mapstructure:"keep_folders"`
	Archive        bool     `yaml:"archive" mapstructure:"archive"`
	Debug          bool     `yaml:"debug" mapstructure:"debug"`
	AllowExt       []string `yaml:"allow_ext" mapstructure:"allow_ext"`

	DefaultURL   string `yaml:"default_url" mapstructure:"default_url"`
	DefaultRange string `yaml:"default_range" mapstructure:"default_range"`
	DefaultList  string `yaml:"default_list" mapstructure:"default_list"`

	Cookie           string `yaml:"cookie" mapstructure:"cookie"`
	CookieFile       string `yaml:"cookie_file" mapstructure:"cookie_file"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass" mapstructure:"cloudflare_bypass"`

	SkipBroken bool `yaml:"skip_broken" mapstructure:"skip_broken"`

	Stitch StitchConfig `yaml:"stitch" mapstructure:"stitch"`

	CheckInterval time.Duration `yaml:"check_interval" mapstructure:"check_interval"`
	MetricsAddr   string        `yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

type StitchConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	TargetWidth     int    `yaml:"target_width" mapstructure:"target_width"`
	MaxHeight       int    `yaml:"max_height" mapstructure:"max_height"`
	Quality         int    `yaml:"quality" mapstructure:"quality"`
	Format          string `yaml:"format" mapstructure:"format"`
	Resampler       string `yaml:"resampler" mapstructure:"resampler"`
	MmapThresholdMB int    `yaml:"mmap_threshold_mb" mapstructure:"mmap_threshold_mb"`
}

// Options converts the stitch section into the value the stitching
// pipeline takes. An unknown format falls back to JPEG.
func (s StitchConfig) Options() stitch.Options {
	opts := stitch.DefaultOptions()
	opts.TargetWidth = s.TargetWidth
	opts.MaxHeight = s.MaxHeight
	if s.Quality != 0 {
		opts.Quality = s.Quality
	}
	if f, ok := stitch.ParseFormat(s.Format); ok {
		opts.Format = f
	}
	if s.Resampler != "" {
		opts.Resampler = s.Resampler
	}
	if s.MmapThresholdMB > 0 {
		opts.MmapThreshold = int64(s.MmapThresholdMB) << 20
	}
	return opts
}

type Options struct {
	IgnoreConfig     bool
	Debug            bool
	Output           string
	DownloadPath     string
	ImageWorkers     int
	ChapterWorkers   int
	KeepFolders      bool
	NoStitch         bool
	DefaultURL       string
	DefaultRange     string
	DefaultList      string
	Cookie           string
	CookieFile       string
	UserAgent        string
	CloudflareBypass bool
	SkipBroken       bool
}

func DefaultConfig() *Config {
	return &Config{
		Output:         "processed",
		DownloadPath:   "downloads",
		ImageWorkers:   5,
		ChapterWorkers: 2,
		Archive:        true,
		AllowExt:       []string{"jpg", "jpeg", "png", "webp"},
		Stitch: StitchConfig{
			Enabled:   true,
			MaxHeight: stitch.DefaultMaxHeight,
			Quality:   stitch.DefaultQuality,
			Format:    string(stitch.FormatJPEG),
			Resampler: stitch.DefaultResampler,
		},
		CheckInterval: 4 * time.Hour,
		MetricsAddr:   ":9090",
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("output", d.Output)
	v.SetDefault("download_path", d.DownloadPath)
	v.SetDefault("image_workers", d.ImageWorkers)
	v.SetDefault("chapter_workers", d.ChapterWorkers)
	v.SetDefault("keep_folders", d.KeepFolders)
	v.SetDefault("archive", d.Archive)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("allow_ext", d.AllowExt)
	v.SetDefault("default_url", "")
	v.SetDefault("default_range", "")
	v.SetDefault("default_list", "")
	v.SetDefault("cookie", "")
	v.SetDefault("cookie_file", "")
	v.SetDefault("user_agent", "")
	v.SetDefault("cloudflare_bypass", false)
	v.SetDefault("skip_broken", false)
	v.SetDefault("stitch.enabled", d.Stitch.Enabled)
	v.SetDefault("stitch.target_width", d.Stitch.TargetWidth)
	v.SetDefault("stitch.max_height", d.Stitch.MaxHeight)
	v.SetDefault("stitch.quality", d.Stitch.Quality)
	v.SetDefault("stitch.format", d.Stitch.Format)
	v.SetDefault("stitch.resampler", d.Stitch.Resampler)
	v.SetDefault("stitch.mmap_threshold_mb", d.Stitch.MmapThresholdMB)
	v.SetDefault("check_interval", d.CheckInterval)
	v.SetDefault("metrics_addr", d.MetricsAddr)
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Load reads a config file (optional) and CHAPTRIX_* environment overrides
// on top of the built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHAPTRIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg, err := Load("")
		if err != nil {
			return nil, "", err
		}
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if errors.Is(err, ErrNoConfig) || activePath == "" {
		cfg, err := Load("")
		if err != nil {
			return nil, "", err
		}
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `chaptrix config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.DownloadPath != "" {
		c.DownloadPath = o.DownloadPath
	}
	if o.ImageWorkers != 0 {
		c.ImageWorkers = o.ImageWorkers
	}
	if o.ChapterWorkers != 0 {
		c.ChapterWorkers = o.ChapterWorkers
	}
	if o.KeepFolders {
		c.KeepFolders = true
	}
	if o.NoStitch {
		c.Stitch.Enabled = false
	}
	if o.Debug {
		c.Debug = true
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.DefaultRange != "" {
		c.DefaultRange = o.DefaultRange
	}
	if o.DefaultList != "" {
		c.DefaultList = o.DefaultList
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
	if o.SkipBroken {
		c.SkipBroken = true
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}
	if c.DownloadPath == "" {
		c.DownloadPath = "downloads"
	}
	if c.ImageWorkers <= 0 {
		c.ImageWorkers = 5
	}
	if c.ChapterWorkers <= 0 {
		c.ChapterWorkers = 2
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 4 * time.Hour
	}
}

func (c *Config) Print() {
	fmt.Printf(" -output: %s\n", c.Output)
	fmt.Printf(" -download_path: %s\n", c.DownloadPath)
	fmt.Printf(" -image_workers: %d\n", c.ImageWorkers)
	fmt.Printf(" -chapter_workers: %d\n", c.ChapterWorkers)
	if c.KeepFolders {
		fmt.Printf(" -keep_folders: %t\n", c.KeepFolders)
	}
	fmt.Printf(" -archive: %t\n", c.Archive)
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.DefaultURL != "" {
		fmt.Printf(" -url: %s\n", c.DefaultURL)
	}
	if c.DefaultRange != "" {
		fmt.Printf(" -range: %s\n", c.DefaultRange)
	}
	if c.DefaultList != "" {
		fmt.Printf(" -list: %s\n", c.DefaultList)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.CloudflareBypass {
		fmt.Printf(" -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
	if c.SkipBroken {
		fmt.Printf(" -skip_broken: %t\n", c.SkipBroken)
	}
	if len(c.AllowExt) > 0 {
		fmt.Printf(" -allow_ext: %s\n", strings.Join(c.AllowExt, ", "))
	}

	s := c.Stitch
	fmt.Printf(" -stitch: enabled=%t width=%d max_height=%d quality=%d format=%s resampler=%s\n",
		s.Enabled, s.TargetWidth, s.MaxHeight, s.Quality, s.Format, s.Resampler)
	fmt.Printf(" -check_interval: %s\n", c.CheckInterval)
	fmt.Printf(" -metrics_addr: %s\n", c.MetricsAddr)
}
