package world

import (
	"math"
	"testing"

	"orerush.io/internal/sim/worldgen"
)

func TestResolveAsteroids_PushesOutToContactDistance(t *testing.T) {
	ast := worldgen.Asteroid{ID: 1, X: 2000, Y: 2000, R: 50}
	w := newTestWorld(t, ast)
	p1 := join(w, "a")
	f := unitsOf(w, p1, KindFighter)[0]

	f.Pos = Vec2{X: 2000 - 30, Y: 2000 - 40} // 50 from centre, inside r+10
	f.setTarget(Vec2{X: 2000, Y: 2000})
	w.moveAndCollide(f)

	if f.Target != nil {
		t.Fatalf("collision should clear the move target")
	}
	d := f.Pos.Dist(Vec2{X: ast.X, Y: ast.Y})
	if math.Abs(d-(ast.R+f.Radius)) > 1e-9 {
		t.Fatalf("distance after push=%v want %v", d, ast.R+f.Radius)
	}
	// Pushed along the centre->unit direction.
	if f.Pos.X >= ast.X || f.Pos.Y >= ast.Y {
		t.Fatalf("pushed to the wrong side: %+v", f.Pos)
	}
}

func TestResolveAsteroids_CoincidentCentre(t *testing.T) {
	ast := worldgen.Asteroid{ID: 1, X: 2000, Y: 2000, R: 50}
	w := newTestWorld(t, ast)
	p1 := join(w, "a")
	f := unitsOf(w, p1, KindFighter)[0]
	f.Pos = Vec2{X: 2000, Y: 2000}

	if !w.resolveAsteroids(f) {
		t.Fatalf("expected a push")
	}
	if f.Pos != (Vec2{X: 2060, Y: 2000}) {
		t.Fatalf("coincident push=%+v", f.Pos)
	}
}

func TestResolveAsteroids_NoOverlapNoPush(t *testing.T) {
	ast := worldgen.Asteroid{ID: 1, X: 2000, Y: 2000, R: 50}
	w := newTestWorld(t, ast)
	p1 := join(w, "a")
	f := unitsOf(w, p1, KindFighter)[0]
	f.Pos = Vec2{X: 2060, Y: 2000}
	f.setTarget(Vec2{X: 2200, Y: 2000})

	w.moveAndCollide(f)
	if f.Target == nil {
		t.Fatalf("touching without overlap should not clear the target")
	}
}

func TestSimulate_NoLiveUnitEndsInsideAsteroid(t *testing.T) {
	ast := worldgen.Asteroid{ID: 1, X: 3000, Y: 3000, R: 120}
	w := newTestWorld(t, ast)
	p1 := join(w, "a")
	fighters := unitsOf(w, p1, KindFighter)
	ids := make([]EntityID, len(fighters))
	for i, f := range fighters {
		ids[i] = f.ID
	}
	// Drive the whole group through the asteroid.
	w.Enqueue(p1, MoveCommand{UnitIDs: ids, Target: Vec2{X: 3000, Y: 3000}})
	for i := 0; i < 600; i++ {
		w.step()
		for _, f := range fighters {
			if d := f.Pos.Dist(Vec2{X: ast.X, Y: ast.Y}); d < ast.R+f.Radius-1e-9 {
				t.Fatalf("tick %d: fighter %d inside asteroid (d=%v)", i, f.ID, d)
			}
		}
	}
}
