package surface

import (
	"errors"
	"fmt"
)

// ErrHitSizeMismatch signals a hit cache that does not match the point field
var ErrHitSizeMismatch = errors.New("inconsistent sizes between hit indices and points")

// HitCache remembers the surface hit of each interface point so the point
// follows the same surface location while the surface moves
type HitCache struct {
	hits  []Hit
	valid []bool
}

func NewHitCache(nPoints int) *HitCache {
	return &HitCache{hits: make([]Hit, nPoints), valid: make([]bool, nPoints)}
}

func (hc *HitCache) Len() int { return len(hc.hits) }

// Check fails when the cache was sized for a different point field
func (hc *HitCache) Check(nPoints int) error {
	if len(hc.hits) != nPoints {
		return fmt.Errorf("%w: %d hits for %d points", ErrHitSizeMismatch, len(hc.hits), nPoints)
	}
	return nil
}

func (hc *HitCache) Get(p int) (Hit, bool) { return hc.hits[p], hc.valid[p] }

func (hc *HitCache) Set(p int, h Hit) { hc.hits[p], hc.valid[p] = h, true }

func (hc *HitCache) Clear(p int) { hc.hits[p], hc.valid[p] = Hit{}, false }

// Count returns the number of cached hits
func (hc *HitCache) Count() (n int) {
	for _, v := range hc.valid {
		if v {
			n++
		}
	}
	return
}

// Clone returns an independent copy, used to restore the cache on revert
func (hc *HitCache) Clone() *HitCache {
	return &HitCache{
		hits:  append([]Hit(nil), hc.hits...),
		valid: append([]bool(nil), hc.valid...),
	}
}
