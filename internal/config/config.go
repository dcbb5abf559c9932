// Package config loads the gateway's YAML configuration file, converging on
// the same devicespec.SpecifiedDevice value the command-line device-spec
// grammar (§6.3) produces, so the bus manager never has two device
// representations to reconcile. Grounded on doismellburning/samoyed's own config.go
// (channel-by-channel settings plus a handful of global knobs) for the
// "global settings block + list of per-unit entries" document shape,
// translated from its hand-rolled INI-like parser into a
// gopkg.in/yaml.v3 document.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wmbus-tools/wmbusgw/internal/devicespec"
	"github.com/wmbus-tools/wmbusgw/internal/telegram"
	"github.com/wmbus-tools/wmbusgw/internal/wmbuscrypto"
)

// DeviceEntry is one YAML device entry: either a full device-spec string
// (the same grammar accepted on the command line) or broken out field by
// field. Spec wins if present.
type DeviceEntry struct {
	Spec      string            `yaml:"spec,omitempty"`
	BusAlias  string            `yaml:"bus_alias,omitempty"`
	File      string            `yaml:"file,omitempty"`
	Command   string            `yaml:"command,omitempty"`
	Type      string            `yaml:"type,omitempty"`
	ID        string            `yaml:"id,omitempty"`
	Extras    map[string]string `yaml:"extras,omitempty"`
	Baud      int               `yaml:"baud,omitempty"`
	Frequency string            `yaml:"frequency,omitempty"`
	LinkModes string            `yaml:"link_modes,omitempty"`

	ReadOnly            bool   `yaml:"read_only,omitempty"`
	TimeoutSeconds      int    `yaml:"timeout_seconds,omitempty"`
	ResetIntervalHours  int    `yaml:"reset_interval_hours,omitempty"`
	ActivityWindow      string `yaml:"activity_window,omitempty"`
	RigModel            int    `yaml:"rig_model,omitempty"`
	RigDevice           string `yaml:"rig_device,omitempty"`
}

// Config is the gateway-wide YAML document (spec §AMBIENT "Configuration").
type Config struct {
	Devices []DeviceEntry `yaml:"devices"`

	DedupeEnabled bool `yaml:"dedupe_enabled"`
	Verbose       bool `yaml:"verbose"`

	DefaultResetIntervalHours int    `yaml:"default_reset_interval_hours"`
	DefaultTimeoutSeconds     int    `yaml:"default_timeout_seconds"`
	ExitOnNoDevice            bool   `yaml:"exit_on_no_device"`
	LogLevel                  string `yaml:"log_level"`

	// Keys maps a meter id (as rendered by DLL/ELL/TPL, e.g. "12345678") to
	// its 16-byte AES confidentiality key, hex-encoded.
	Keys map[string]string `yaml:"keys,omitempty"`
}

// Keystore builds a telegram.Keystore from Keys: zero entries yields
// telegram.NoKeystore, exactly one entry yields telegram.OnlyOneKeystore (the
// "only_one_key" convenience the original source offers as a shortcut when a
// deployment only ever talks to one meter), and two or more entries yields a
// telegram.MapKeystore keyed by meter id.
func (c *Config) Keystore() (telegram.Keystore, error) {
	if len(c.Keys) == 0 {
		return telegram.NoKeystore{}, nil
	}

	var parsed = make(telegram.MapKeystore, len(c.Keys))
	for id, hexKey := range c.Keys {
		var keyBytes, err = hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("config: key for id %q: %w", id, err)
		}
		var key, ok = wmbuscrypto.KeyFromBytes(keyBytes)
		if !ok {
			return nil, fmt.Errorf("config: key for id %q: must be 16 bytes", id)
		}
		parsed[id] = telegram.MeterKeys{ConfidentialityKey: key, HasConfidentiality: true}
	}

	if len(parsed) == 1 {
		for _, keys := range parsed {
			return telegram.OnlyOneKeystore{Keys: keys}, nil
		}
	}
	return parsed, nil
}

// Load reads and parses a YAML config file from path.
func Load(path string) (*Config, error) {
	var data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML config document already in memory.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &c, nil
}

// SpecifiedDevice resolves one DeviceEntry into a devicespec.SpecifiedDevice:
// if Spec is set it is parsed via the §6.3 grammar directly, otherwise the
// broken-out fields are assembled into the same struct by hand.
func (e DeviceEntry) SpecifiedDevice() (devicespec.SpecifiedDevice, error) {
	if e.Spec != "" {
		return devicespec.Parse(e.Spec)
	}
	return devicespec.Parse(assembleSpecString(e))
}

// assembleSpecString rebuilds the §6.3 colon-delimited grammar from broken-out
// fields. When File and Command are both empty, the type token itself becomes
// the first token (e.g. "auto", "im871a[id]") rather than leaving an empty
// leading token, matching devicespec.Parse's "bare type token means
// auto-discover the device" rule.
func assembleSpecString(e DeviceEntry) string {
	var typeToken string
	if e.Type != "" {
		typeToken = e.Type
		if e.ID != "" {
			typeToken += "[" + e.ID + "]"
		}
		if len(e.Extras) > 0 {
			typeToken += "(" + joinExtras(e.Extras) + ")"
		}
	}

	var fileToken string
	switch {
	case e.Command != "":
		fileToken = fmt.Sprintf("CMD(%s)", e.Command)
	case e.File != "":
		fileToken = e.File
	}

	var tokens []string
	if fileToken != "" {
		tokens = []string{fileToken, typeToken}
	} else {
		tokens = []string{typeToken}
	}
	if e.Baud != 0 {
		tokens = append(tokens, fmt.Sprintf("%d", e.Baud))
	} else {
		tokens = append(tokens, "")
	}
	tokens = append(tokens, e.Frequency, e.LinkModes)

	var s string
	if e.BusAlias != "" {
		s = e.BusAlias + "="
	}
	return s + strings.Join(tokens, ":")
}

func joinExtras(extras map[string]string) string {
	var s string
	var first = true
	for k, v := range extras {
		if !first {
			s += ","
		}
		first = false
		if v == "" {
			s += k
		} else {
			s += k + "=" + v
		}
	}
	return s
}

// ResetInterval returns the entry's configured reset interval, or fall back
// hours if unset (0).
func (e DeviceEntry) ResetInterval(fallbackHours int) time.Duration {
	var hours = e.ResetIntervalHours
	if hours == 0 {
		hours = fallbackHours
	}
	return time.Duration(hours) * time.Hour
}

// Timeout returns the entry's configured inactivity timeout, or fall back
// seconds if unset (0).
func (e DeviceEntry) Timeout(fallbackSeconds int) time.Duration {
	var secs = e.TimeoutSeconds
	if secs == 0 {
		secs = fallbackSeconds
	}
	return time.Duration(secs) * time.Second
}
