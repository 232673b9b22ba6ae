// Package worldgen places the asteroid field.
//
// Placement is a pure function of Params. Clients rebuild their cosmetic
// asteroid textures from (seed, id, radius), so the draw sequence is part of
// the wire contract: for every attempt the generator draws the radius, then x,
// then y from a math/rand source seeded with Params.Seed. Changing that order
// changes every map.
package worldgen

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

type Asteroid struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	R  float64 `json:"r"`
}

type Params struct {
	Seed        int64
	MapW        float64
	MapH        float64
	Count       int
	MinR        int
	MaxR        int
	EdgePad     int
	Gap         float64
	MaxAttempts int
}

type Result struct {
	Asteroids []Asteroid
	Requested int
	Attempts  int
}

// Shortfall is the number of requested asteroids that could not be placed.
func (r Result) Shortfall() int {
	if d := r.Requested - len(r.Asteroids); d > 0 {
		return d
	}
	return 0
}

func (p Params) Validate() error {
	var errs []error
	if p.Count < 0 {
		errs = append(errs, fmt.Errorf("count must be >= 0 (got %d)", p.Count))
	}
	if p.MinR <= 0 || p.MinR > p.MaxR {
		errs = append(errs, fmt.Errorf("radius range [%d,%d] is invalid", p.MinR, p.MaxR))
	}
	if p.EdgePad < 0 {
		errs = append(errs, fmt.Errorf("edge_pad must be >= 0 (got %d)", p.EdgePad))
	}
	if p.Gap < 0 {
		errs = append(errs, fmt.Errorf("gap must be >= 0 (got %v)", p.Gap))
	}
	if p.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max_attempts must be >= 0 (got %d)", p.MaxAttempts))
	}
	minSpan := float64(2 * (p.EdgePad + p.MinR))
	if p.MapW <= minSpan || p.MapH <= minSpan {
		errs = append(errs, fmt.Errorf("map %vx%v too small for edge_pad %d and min_r %d", p.MapW, p.MapH, p.EdgePad, p.MinR))
	}
	return errors.Join(errs...)
}

// Generate runs rejection sampling until Count asteroids are accepted or
// MaxAttempts draws have been made. Ids start at 1 in acceptance order.
func Generate(p Params) Result {
	res := Result{Requested: p.Count}
	if p.Count <= 0 {
		return res
	}
	rng := rand.New(rand.NewSource(p.Seed))
	w := int(p.MapW)
	h := int(p.MapH)
	out := make([]Asteroid, 0, p.Count)

	for res.Attempts < p.MaxAttempts && len(out) < p.Count {
		res.Attempts++

		r := p.MinR + rng.Intn(p.MaxR-p.MinR+1)
		xlo, xhi := p.EdgePad+r, w-p.EdgePad-r
		ylo, yhi := p.EdgePad+r, h-p.EdgePad-r
		if xhi <= xlo || yhi <= ylo {
			continue
		}
		x := float64(xlo + rng.Intn(xhi-xlo))
		y := float64(ylo + rng.Intn(yhi-ylo))
		rf := float64(r)

		if !fits(out, x, y, rf, p.Gap) {
			continue
		}
		out = append(out, Asteroid{ID: len(out) + 1, X: x, Y: y, R: rf})
	}
	res.Asteroids = out
	return res
}

func fits(placed []Asteroid, x, y, r, gap float64) bool {
	for _, a := range placed {
		if math.Hypot(x-a.X, y-a.Y) < r+a.R+gap {
			return false
		}
	}
	return true
}
