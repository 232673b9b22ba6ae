package world

import "math"

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2         { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2         { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2    { return Vec2{X: v.X * k, Y: v.Y * k} }
func (v Vec2) Len() float64            { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64     { return math.Hypot(v.X-o.X, v.Y-o.Y) }
func (v Vec2) Clamp(w, h float64) Vec2 { return Vec2{X: clamp(v.X, 0, w), Y: clamp(v.Y, 0, h)} }

// Dir returns the unit vector from v toward o and the distance between them.
// Coincident points yield (+1, 0).
func (v Vec2) Dir(o Vec2) (Vec2, float64) {
	d := o.Sub(v)
	n := d.Len()
	if n == 0 {
		return Vec2{X: 1}, 0
	}
	return d.Scale(1 / n), n
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
