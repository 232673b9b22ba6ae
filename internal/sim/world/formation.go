package world

import "math"

// FormationSlots lays n destinations out on a square grid of side
// ceil(sqrt(n)) centred on target. Slot i sits at column i%side, row i/side.
func FormationSlots(n int, target Vec2, spacing float64) []Vec2 {
	if n <= 0 {
		return nil
	}
	side := int(math.Ceil(math.Sqrt(float64(n))))
	origin := Vec2{
		X: target.X - float64(side-1)*spacing/2,
		Y: target.Y - float64(side-1)*spacing/2,
	}
	out := make([]Vec2, n)
	for i := range out {
		out[i] = Vec2{
			X: origin.X + float64(i%side)*spacing,
			Y: origin.Y + float64(i/side)*spacing,
		}
	}
	return out
}

// FitSlots translates the whole formation so every slot lies inside
// [0,w]x[0,h], keeping spacing and distinctness. A formation wider than
// the map on an axis is centred on that axis and then clamped.
func FitSlots(slots []Vec2, w, h float64) []Vec2 {
	if len(slots) == 0 {
		return slots
	}
	lo, hi := slots[0], slots[0]
	for _, s := range slots[1:] {
		lo.X, hi.X = math.Min(lo.X, s.X), math.Max(hi.X, s.X)
		lo.Y, hi.Y = math.Min(lo.Y, s.Y), math.Max(hi.Y, s.Y)
	}
	d := Vec2{X: fitShift(lo.X, hi.X, w), Y: fitShift(lo.Y, hi.Y, h)}
	out := make([]Vec2, len(slots))
	for i, s := range slots {
		out[i] = s.Add(d).Clamp(w, h)
	}
	return out
}

func fitShift(lo, hi, limit float64) float64 {
	switch {
	case hi-lo > limit:
		return (limit-(hi-lo))/2 - lo
	case lo < 0:
		return -lo
	case hi > limit:
		return limit - hi
	}
	return 0
}
