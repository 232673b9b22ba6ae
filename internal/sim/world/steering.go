package world

import "math"

// steer moves e one tick toward its target. It returns true when the entity
// arrived this tick.
func (w *World) steer(e *Entity) bool {
	if e.Target == nil {
		return false
	}
	n, dist := e.Pos.Dir(*e.Target)
	step := e.Speed * w.dt
	if dist < w.cfg.Movement.ArrivalThreshold || step >= dist {
		e.Pos = *e.Target
		e.Vel = Vec2{}
		e.clearTarget()
		return true
	}
	e.Vel = n.Scale(e.Speed)
	e.Pos = e.Pos.Add(e.Vel.Scale(w.dt))
	e.Heading = headingOf(n)
	return false
}

// headingOf converts a direction into the client's angle convention:
// 0 points up the screen (−y) and angles grow clockwise.
func headingOf(n Vec2) float64 {
	return math.Atan2(n.X, -n.Y)
}
