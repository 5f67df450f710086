// Package seed resolves the run's entropy source from the MPC_SEED
// environment variable, mirroring viff/util.py's module-level rand: unset
// picks a random seed and prints it (reproducible after the fact), set to
// an integer seeds deterministically, and set to the empty string opts out
// of seeding entirely in favor of the system CSPRNG. The seed governs only
// local randomness that never crosses the network unsplit — share()'s
// polynomial coefficients and PRSS key generation — never any
// secret-bearing value itself.
package seed

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	mathrand "math/rand"
	"os"
)

// EnvVar is the environment variable consulted by FromEnv.
const EnvVar = "MPC_SEED"

// FromEnv resolves the entropy source for this process per EnvVar, and
// returns the seed actually used (0 if the system CSPRNG was selected). The
// seed line is written to out only when EnvVar is unset.
func FromEnv(out io.Writer) (io.Reader, int64, error) {
	raw, set := os.LookupEnv(EnvVar)
	switch {
	case !set:
		n, err := rand.Int(rand.Reader, big.NewInt(1<<62))
		if err != nil {
			return nil, 0, fmt.Errorf("seed: drawing random seed: %w", err)
		}
		s := n.Int64()
		fmt.Fprintf(out, "seeding random generator with random seed %d\n", s)
		return newSeededReader(s), s, nil
	case raw == "":
		return rand.Reader, 0, nil
	default:
		var s int64
		if _, err := fmt.Sscanf(raw, "%d", &s); err != nil {
			return nil, 0, fmt.Errorf("seed: parsing %s=%q: %w", EnvVar, raw, err)
		}
		return newSeededReader(s), s, nil
	}
}

// seededReader adapts a math/rand source to io.Reader, for reproducible
// (non-cryptographic) test runs only.
type seededReader struct {
	r *mathrand.Rand
}

func newSeededReader(s int64) *seededReader {
	return &seededReader{r: mathrand.New(mathrand.NewSource(s))}
}

func (s *seededReader) Read(p []byte) (int, error) {
	return s.r.Read(p)
}
