package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Address            string
	BaudRate           int
	Mode               string
	FlowControl        string
	DialTimeout        time.Duration
	NegotiationTimeout time.Duration
	ResponseTimeout    time.Duration
	KeepAlive          time.Duration
	IdleTimeout        time.Duration // Timeout for NOP keepalive
	VCOMSync           bool
	Debug              bool
	ProxyProtocol      bool
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		BaudRate:           9600,
		Mode:               "8N1",
		FlowControl:        "none",
		DialTimeout:        10 * time.Second,
		NegotiationTimeout: 5 * time.Second,
		ResponseTimeout:    1000 * time.Millisecond,
		KeepAlive:          30 * time.Second,
		IdleTimeout:        30 * time.Second,
	}
}

// Load builds the config from defaults, the YAML file named by CONFIG_FILE
// (if any) and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile overlays the fields present in a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return raw.apply(c)
}

func (c *Config) applyEnv() {
	c.Address = getEnv("RFC2217_ADDR", c.Address)
	c.BaudRate = getIntEnv("BAUD_RATE", c.BaudRate)
	c.Mode = getEnv("MODE", c.Mode)
	c.FlowControl = getEnv("FLOW_CONTROL", c.FlowControl)
	c.DialTimeout = getDurationEnv("DIAL_TIMEOUT", c.DialTimeout)
	c.NegotiationTimeout = getDurationEnv("NEGOTIATION_TIMEOUT", c.NegotiationTimeout)
	c.ResponseTimeout = getDurationEnv("RESPONSE_TIMEOUT", c.ResponseTimeout)
	c.KeepAlive = getDurationEnv("KEEPALIVE", c.KeepAlive)
	c.IdleTimeout = getDurationEnv("IDLE_TIMEOUT", c.IdleTimeout)
	c.VCOMSync = getBoolEnv("VCOM_SYNC", c.VCOMSync)
	c.Debug = getBoolEnv("DEBUG", c.Debug)
	c.ProxyProtocol = getBoolEnv("PROXY_PROTOCOL", c.ProxyProtocol)
}

// fileConfig mirrors Config with pointers so absent keys keep their value
// and durations may be written as "1500ms" or plain seconds.
type fileConfig struct {
	Address            *string `yaml:"address"`
	BaudRate           *int    `yaml:"baud_rate"`
	Mode               *string `yaml:"mode"`
	FlowControl        *string `yaml:"flow_control"`
	DialTimeout        *string `yaml:"dial_timeout"`
	NegotiationTimeout *string `yaml:"negotiation_timeout"`
	ResponseTimeout    *string `yaml:"response_timeout"`
	KeepAlive          *string `yaml:"keepalive"`
	IdleTimeout        *string `yaml:"idle_timeout"`
	VCOMSync           *bool   `yaml:"vcom_sync"`
	Debug              *bool   `yaml:"debug"`
	ProxyProtocol      *bool   `yaml:"proxy_protocol"`
}

func (f *fileConfig) apply(c *Config) error {
	setString(&c.Address, f.Address)
	setString(&c.Mode, f.Mode)
	setString(&c.FlowControl, f.FlowControl)
	if f.BaudRate != nil {
		c.BaudRate = *f.BaudRate
	}
	setBool(&c.VCOMSync, f.VCOMSync)
	setBool(&c.Debug, f.Debug)
	setBool(&c.ProxyProtocol, f.ProxyProtocol)

	durations := []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"dial_timeout", f.DialTimeout, &c.DialTimeout},
		{"negotiation_timeout", f.NegotiationTimeout, &c.NegotiationTimeout},
		{"response_timeout", f.ResponseTimeout, &c.ResponseTimeout},
		{"keepalive", f.KeepAlive, &c.KeepAlive},
		{"idle_timeout", f.IdleTimeout, &c.IdleTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := parseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// parseDuration accepts Go duration syntax or an integer number of seconds.
func parseDuration(val string) (time.Duration, error) {
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(val)
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "1" || val == "true" || val == "yes"
	}
	return defaultVal
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := parseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
