package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConf holds HTTP listener settings
type ServerConf struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MediaConf holds the scanned media library location
type MediaConf struct {
	Dir string `mapstructure:"dir"`
}

// ImagesConf holds uploaded image storage settings
type ImagesConf struct {
	Dir          string `mapstructure:"dir"`
	MaxDimension int    `mapstructure:"max_dimension"`
}

// AssetsConf holds the directory of fallback placeholder images
type AssetsConf struct {
	Dir string `mapstructure:"dir"`
}

// CatalogConf selects the catalog backend ("mongo" or "memory")
type CatalogConf struct {
	Driver string `mapstructure:"driver"`
}

// MongoConf holds the MongoDB catalog connection settings
type MongoConf struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ScanConf holds synchronizer scheduling and reporting settings
type ScanConf struct {
	Schedule          string `mapstructure:"schedule"`
	ProgressBar       bool   `mapstructure:"progress_bar"`
	IdentityCacheSize int    `mapstructure:"identity_cache_size"`
}

// CORSConf holds allowed browser origins
type CORSConf struct {
	Origins []string `mapstructure:"origins"`
}

// Config is the full application configuration, read once at startup
type Config struct {
	Server      ServerConf  `mapstructure:"server"`
	BaseURL     string      `mapstructure:"base_url"`
	Debug       bool        `mapstructure:"debug"`
	ForceResync bool        `mapstructure:"force_resync"`
	Media       MediaConf   `mapstructure:"media"`
	Images      ImagesConf  `mapstructure:"images"`
	Assets      AssetsConf  `mapstructure:"assets"`
	Catalog     CatalogConf `mapstructure:"catalog"`
	Mongo       MongoConf   `mapstructure:"mongo"`
	Scan        ScanConf    `mapstructure:"scan"`
	CORS        CORSConf    `mapstructure:"cors"`
}

// New returns a viper instance with defaults and VIBEIFY_ env overrides applied
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("vibeify")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path into v and decodes it
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Scan.IdentityCacheSize <= 0 {
		cfg.Scan.IdentityCacheSize = 4096
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("base_url", "http://localhost:8000")
	v.SetDefault("debug", false)
	v.SetDefault("force_resync", false)
	v.SetDefault("media.dir", defaultMediaDir())
	v.SetDefault("images.dir", filepath.Join(".", "data", "images"))
	v.SetDefault("images.max_dimension", 1024)
	v.SetDefault("assets.dir", filepath.Join(".", "static"))
	v.SetDefault("catalog.driver", "mongo")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "vibeify")
	v.SetDefault("mongo.collection", "songs")
	v.SetDefault("mongo.timeout", 10*time.Second)
	v.SetDefault("scan.schedule", "")
	v.SetDefault("scan.progress_bar", true)
	v.SetDefault("scan.identity_cache_size", 4096)
	v.SetDefault("cors.origins", []string{"http://localhost:3000", "http://localhost:5173"})
}

// defaultMediaDir returns the OS-appropriate music folder
func defaultMediaDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if can't get home dir
		return filepath.Join(".", "music")
	}
	return filepath.Join(homeDir, "Music")
}
