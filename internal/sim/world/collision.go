package world

// resolveAsteroids pushes e out of every asteroid it overlaps, in asteroid id
// order. It returns true if any push happened.
func (w *World) resolveAsteroids(e *Entity) bool {
	hit := false
	for _, a := range w.asteroids {
		minDist := e.Radius + a.R
		dx := e.Pos.X - a.X
		dy := e.Pos.Y - a.Y
		if dx == 0 && dy == 0 {
			e.Pos.X += minDist
			hit = true
			continue
		}
		n, dist := Vec2{X: a.X, Y: a.Y}.Dir(e.Pos)
		if dist < minDist {
			e.Pos = Vec2{X: a.X + n.X*minDist, Y: a.Y + n.Y*minDist}
			hit = true
		}
	}
	return hit
}

// moveAndCollide is plain steering followed by collision. A collision
// cancels the move target.
func (w *World) moveAndCollide(e *Entity) (arrived bool) {
	arrived = w.steer(e)
	if w.resolveAsteroids(e) {
		e.clearTarget()
	}
	return arrived
}
