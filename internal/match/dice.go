package match

import (
	"crypto/rand"
	"io"
	"math/big"
	mrand "math/rand/v2"
	"sync"

	"github.com/rs/zerolog/log"
)

// Roller produces one die face in [1, faces].
type Roller interface {
	Roll() int
}

type CryptoRoller struct {
	faces  int64
	source io.Reader
}

func NewRoller(faces int) *CryptoRoller {
	if faces < 2 {
		faces = 6
	}
	return &CryptoRoller{faces: int64(faces), source: rand.Reader}
}

// Roll draws from crypto/rand. A failing entropy source is logged at error
// level and counted; the roll then comes from math/rand.
func (r *CryptoRoller) Roll() int {
	n, err := rand.Int(r.source, big.NewInt(r.faces))
	if err != nil {
		rollerFallbacks.Add(1)
		log.Error().Err(err).Msg("crypto_rand_failed_using_fallback")
		return int(mrand.Int64N(r.faces)) + 1
	}
	return int(n.Int64()) + 1
}

// ScriptedRoller replays fixed values, then repeats the last one.
type ScriptedRoller struct {
	mu     sync.Mutex
	values []int
	next   int
}

func NewScriptedRoller(values ...int) *ScriptedRoller {
	return &ScriptedRoller{values: values}
}

func (r *ScriptedRoller) Roll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return 1
	}
	if r.next >= len(r.values) {
		return r.values[len(r.values)-1]
	}
	v := r.values[r.next]
	r.next++
	return v
}
