// Package config assembles the server configuration. Sources are applied in order, each
// overriding the last: built-in defaults, an optional YAML file, a .env file and the
// process environment (CAMPUSLEND_*), then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "CAMPUSLEND_"

// Config is the server configuration.
type Config struct {
	DBPath          string        `yaml:"db"`
	Addr            string        `yaml:"addr"`
	AdminUser       string        `yaml:"admin_user"`
	LogPath         string        `yaml:"log"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Photos          Photos        `yaml:"photos"`
}

// Photos configures item photo uploads.
type Photos struct {
	MaxDimension   int   `yaml:"max_dimension"`
	Quality        int   `yaml:"quality"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DBPath:          "campuslend.sqlite3",
		Addr:            ":8080",
		AdminUser:       "Admin",
		ShutdownTimeout: 5 * time.Second,
		Photos: Photos{
			MaxDimension:   1024,
			Quality:        85,
			MaxUploadBytes: 5 << 20,
		},
	}
}

const usage = `Usage: campuslend [flags]

Flags:
  -c, -config <path>      YAML config file (default: none)
  -e, -env <path>         .env file (default: .env, ignored if missing)
  -d, -db <path>          SQLite database path (default: campuslend.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: Admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment:
  CAMPUSLEND_DB, CAMPUSLEND_ADDR, CAMPUSLEND_ADMIN_USER, CAMPUSLEND_LOG,
  CAMPUSLEND_CORS_ORIGINS (comma separated), CAMPUSLEND_SHUTDOWN_TIMEOUT,
  CAMPUSLEND_PHOTO_MAX_DIMENSION, CAMPUSLEND_PHOTO_QUALITY
`

// Load builds the configuration from args (without the program name). It returns
// flag.ErrHelp after printing usage to out when help was requested.
func Load(args []string, out io.Writer) (*Config, error) {
	fset := flag.NewFlagSet("campuslend", flag.ContinueOnError)
	fset.SetOutput(out)
	fset.Usage = func() { fmt.Fprint(out, usage) }

	var configPath, envPath string
	fset.StringVar(&configPath, "config", "", "")
	fset.StringVar(&configPath, "c", "", "")
	fset.StringVar(&envPath, "env", ".env", "")
	fset.StringVar(&envPath, "e", ".env", "")

	var flagged Config
	fset.StringVar(&flagged.DBPath, "db", "", "")
	fset.StringVar(&flagged.DBPath, "d", "", "")
	fset.StringVar(&flagged.Addr, "addr", "", "")
	fset.StringVar(&flagged.Addr, "a", "", "")
	fset.StringVar(&flagged.AdminUser, "user", "", "")
	fset.StringVar(&flagged.AdminUser, "u", "", "")
	fset.StringVar(&flagged.LogPath, "log", "", "")
	fset.StringVar(&flagged.LogPath, "l", "", "")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	if fset.NArg() > 0 {
		fset.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fset.Arg(0))
	}

	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			return nil, err
		}
	}

	dotenv, err := godotenv.Read(envPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", envPath, err)
	}
	if err := cfg.applyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}); err != nil {
		return nil, err
	}

	cfg.applyFlags(&flagged)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from CAMPUSLEND_* variables. The process environment wins
// over the .env file.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("DB", &c.DBPath)
	str("ADDR", &c.Addr)
	str("ADMIN_USER", &c.AdminUser)
	str("LOG", &c.LogPath)

	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.CORSOrigins = append(c.CORSOrigins, origin)
			}
		}
	}
	if v, ok := lookup(EnvPrefix + "SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSHUTDOWN_TIMEOUT: %w", EnvPrefix, err)
		}
		c.ShutdownTimeout = d
	}
	if err := num("PHOTO_MAX_DIMENSION", &c.Photos.MaxDimension); err != nil {
		return err
	}
	return num("PHOTO_QUALITY", &c.Photos.Quality)
}

func (c *Config) applyFlags(f *Config) {
	for _, p := range []struct{ dst, src *string }{
		{&c.DBPath, &f.DBPath},
		{&c.Addr, &f.Addr},
		{&c.AdminUser, &f.AdminUser},
		{&c.LogPath, &f.LogPath},
	} {
		if *p.src != "" {
			*p.dst = *p.src
		}
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("database path required")
	case c.Addr == "":
		return errors.New("listen address required")
	case c.AdminUser == "":
		return errors.New("admin username required")
	case c.ShutdownTimeout <= 0:
		return errors.New("shutdown timeout must be positive")
	case c.Photos.MaxDimension <= 0:
		return errors.New("photo max dimension must be positive")
	case c.Photos.Quality < 1 || c.Photos.Quality > 100:
		return fmt.Errorf("photo quality %d out of range 1-100", c.Photos.Quality)
	}
	return nil
}
