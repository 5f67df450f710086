package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"gopkg.in/ini.v1"

	"github.com/luxfi/mpc/pkg/party"
)

// Generate builds one ini.File per player (indexed 1..n), each carrying
// every player's host/port and that player's own prss_keys subsection for
// every maximal unqualified subset (size n-t) it belongs to. Subsets that
// include more than one player share the identical key bytes, since PRSS
// correctness requires every member of a subset to hold the same key.
//
// This is the Go-idiomatic, runtime-facing replacement for the out-of-scope
// generate_config_files.py / aux.py key-material generator named in
// spec.md §1: it produces the same INI shape pkg/config.Load reads, rather
// than a standalone script.
func Generate(n, t int, host string, basePort int, src io.Reader) ([]*ini.File, error) {
	if t < 0 || t >= n {
		return nil, fmt.Errorf("config: invalid threshold t=%d for n=%d", t, n)
	}

	ids := make(party.IDSlice, n)
	for i := 0; i < n; i++ {
		ids[i] = party.ID(i + 1)
	}

	subsetSize := n - t
	subsets := combinations(ids, subsetSize)
	keys := make(map[string][]byte, len(subsets))
	for _, s := range subsets {
		raw := make([]byte, 32)
		if _, err := io.ReadFull(src, raw); err != nil {
			return nil, fmt.Errorf("config: generating prss key: %w", err)
		}
		keys[s.Key()] = raw
	}

	files := make([]*ini.File, n)
	for idx, owner := range ids {
		f := ini.Empty()
		for i, id := range ids {
			sec, err := f.NewSection(fmt.Sprintf("Player %d", id))
			if err != nil {
				return nil, err
			}
			if _, err := sec.NewKey("host", host); err != nil {
				return nil, err
			}
			if _, err := sec.NewKey("port", fmt.Sprintf("%d", basePort+i)); err != nil {
				return nil, err
			}
		}

		keysSec, err := f.NewSection(fmt.Sprintf("Player %d.prss_keys", owner))
		if err != nil {
			return nil, err
		}
		for _, s := range subsets {
			if !s.Contains(owner) {
				continue
			}
			blob, err := encodeKeyBlob(keys[s.Key()])
			if err != nil {
				return nil, err
			}
			if _, err := keysSec.NewKey(s.Key(), hex.EncodeToString(blob)); err != nil {
				return nil, err
			}
		}

		files[idx] = f
	}
	return files, nil
}

// DefaultEntropy is crypto/rand.Reader, the production source for Generate.
var DefaultEntropy = rand.Reader

// combinations returns every subsetSize-length subset of ids, as sorted
// IDSlices.
func combinations(ids party.IDSlice, subsetSize int) []party.IDSlice {
	var out []party.IDSlice
	n := len(ids)
	if subsetSize <= 0 || subsetSize > n {
		return out
	}
	idx := make([]int, subsetSize)
	for i := range idx {
		idx[i] = i
	}
	for {
		s := make(party.IDSlice, subsetSize)
		for i, v := range idx {
			s[i] = ids[v]
		}
		out = append(out, s)

		i := subsetSize - 1
		for i >= 0 && idx[i] == i+n-subsetSize {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < subsetSize; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return out
}
