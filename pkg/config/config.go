// Package config loads the per-player INI configuration of spec.md §6: one
// "Player N" section per participant with host/port keys, plus — on the
// section belonging to the file's owner — a "prss_keys" subsection mapping
// space-separated subset ids to a hex key string. The owner is inferred as
// the sole section carrying a prss_keys subsection, following the
// teacher's protocols/lss/config package naming (Config, Load).
package config

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/luxfi/mpc/pkg/party"
)

var playerSectionRE = regexp.MustCompile(`^Player (\d+)$`)

// Config is the loaded view of one player's INI file: every player's
// network endpoint, plus the owning player's own PRSS key material.
type Config struct {
	Self    party.ID
	Players map[party.ID]party.Player
}

// ErrNoOwner is returned when no section in the file carries a prss_keys
// subsection, so the owning player cannot be inferred.
var ErrNoOwner = fmt.Errorf("config: no section has a prss_keys subsection; cannot infer owner")

// ErrAmbiguousOwner is returned when more than one section carries a
// prss_keys subsection.
var ErrAmbiguousOwner = fmt.Errorf("config: more than one section has a prss_keys subsection")

// Load parses the INI file at path.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", path, err)
	}
	return FromFile(f)
}

// FromFile parses an already-loaded ini.File, for callers that build the
// file in memory (tests, or the files Generate returns).
func FromFile(f *ini.File) (*Config, error) {
	players := make(map[party.ID]party.Player)
	var owner party.ID
	ownerFound := false

	for _, section := range f.Sections() {
		m := playerSectionRE.FindStringSubmatch(section.Name())
		if m == nil {
			continue
		}
		idNum, _ := strconv.ParseUint(m[1], 10, 32)
		id := party.ID(idNum)

		host := section.Key("host").String()
		port := section.Key("port").String()
		if host == "" || port == "" {
			return nil, fmt.Errorf("config: section %q missing host/port", section.Name())
		}

		p := party.Player{ID: id, Host: host, Port: port}

		keysSection := f.Section(section.Name() + ".prss_keys")
		if keysSection != nil && len(keysSection.Keys()) > 0 {
			if ownerFound {
				return nil, ErrAmbiguousOwner
			}
			ownerFound = true
			owner = id
			p.PRSSKeys = make(map[string][]byte)
			for _, k := range keysSection.Keys() {
				subset := normalizeSubsetKey(k.Name())
				raw, err := hex.DecodeString(k.Value())
				if err != nil {
					return nil, fmt.Errorf("config: decoding prss key for subset %q: %w", k.Name(), err)
				}
				key, err := decodeKeyBlob(raw)
				if err != nil {
					return nil, fmt.Errorf("config: subset %q: %w", k.Name(), err)
				}
				p.PRSSKeys[subset] = key
			}
		}

		players[id] = p
	}

	if !ownerFound {
		return nil, ErrNoOwner
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("config: no \"Player N\" sections found")
	}

	return &Config{Self: owner, Players: players}, nil
}

// normalizeSubsetKey collapses repeated whitespace in a "1  3" style
// subset key into the canonical single-space form used by party.IDSlice.Key.
func normalizeSubsetKey(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Registry converts Config into the party.Registry shape pkg/runtime
// consumes.
func (c *Config) Registry() party.Registry {
	return party.Registry{Self: c.Self, Players: c.Players}
}
