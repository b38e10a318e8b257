package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/subhroacharjee/lanpeer/internal/p2p"
)

// Config is the file-level configuration surface. Timeouts are carried
// in milliseconds so the file stays plain JSON numbers.
type Config struct {
	AppName string `json:"appName"`

	ListenAddr string `json:"listenAddr"`
	Port       int    `json:"port"`

	AddrPrefix string `json:"addrPrefix"`
	AddrCount  int    `json:"addrCount"`

	DialTimeoutMs   int `json:"dialTimeoutMs"`
	AcceptTimeoutMs int `json:"acceptTimeoutMs"`
	MaxScanAttempts int `json:"maxScanAttempts"`
	ScanBackoffMs   int `json:"scanBackoffMs"`

	Debug bool `json:"debug"`
}

func GetDefaultConfig(appName string) *Config {
	return &Config{
		AppName:         appName,
		ListenAddr:      fmt.Sprintf(":%d", p2p.DefaultPort),
		Port:            p2p.DefaultPort,
		AddrPrefix:      p2p.DefaultAddrPrefix,
		AddrCount:       p2p.DefaultAddrCount,
		DialTimeoutMs:   int(p2p.DefaultDialTimeout / time.Millisecond),
		AcceptTimeoutMs: int(p2p.DefaultAcceptTimeout / time.Millisecond),
		MaxScanAttempts: p2p.DefaultMaxScanAttempts,
		ScanBackoffMs:   int(p2p.DefaultScanBackoff / time.Millisecond),
	}
}

func ParseConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := GetDefaultConfig("")
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.AppName == "" {
		return fmt.Errorf("appName is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if !strings.HasSuffix(c.AddrPrefix, ".") {
		return fmt.Errorf("addrPrefix %q must end with a dot", c.AddrPrefix)
	}
	if c.AddrCount <= 0 {
		return fmt.Errorf("addrCount must be positive")
	}
	if c.MaxScanAttempts <= 0 {
		return fmt.Errorf("maxScanAttempts must be positive")
	}
	if c.DialTimeoutMs <= 0 || c.AcceptTimeoutMs <= 0 || c.ScanBackoffMs <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func (c *Config) GetNodeOpts() p2p.NodeOpts {
	return p2p.NodeOpts{
		Identity:        p2p.NewIdentity(c.AppName),
		ListenAddr:      c.ListenAddr,
		Port:            c.Port,
		AddrPrefix:      c.AddrPrefix,
		AddrCount:       c.AddrCount,
		DialTimeout:     time.Duration(c.DialTimeoutMs) * time.Millisecond,
		AcceptTimeout:   time.Duration(c.AcceptTimeoutMs) * time.Millisecond,
		MaxScanAttempts: c.MaxScanAttempts,
		ScanBackoff:     time.Duration(c.ScanBackoffMs) * time.Millisecond,
	}
}
