package world

// stepMiner advances one miner by one tick.
//
// Transitions out of to_asteroid and returning happen when the move target
// clears, whether by arrival or by bumping into an asteroid.
func (w *World) stepMiner(e *Entity) {
	m := e.Miner
	switch m.State {
	case MinerToAsteroid:
		w.moveAndCollide(e)
		if e.Target == nil {
			m.State = MinerMining
			m.MineTimer = w.cfg.Economy.MiningTime
		}

	case MinerMining:
		m.MineTimer -= w.dt
		e.Heading += w.cfg.Economy.MiningSpinRate * w.dt
		if m.MineTimer > 0 {
			return
		}
		m.MineTimer = 0
		m.Cargo = w.cfg.Economy.MiningReward
		st := w.homeStation(e)
		if st == nil {
			w.abandonRun(e)
			return
		}
		m.State = MinerReturning
		e.setTarget(w.dockPoint(st))

	case MinerReturning:
		if w.homeStation(e) == nil {
			w.abandonRun(e)
			return
		}
		w.moveAndCollide(e)
		if e.Target != nil {
			return
		}
		w.deposit(e)
		if a, ok := w.asteroidByID[m.AsteroidID]; ok {
			m.State = MinerToAsteroid
			m.MineTimer = 0
			e.setTarget(landingPoint(a, e.Pos, e.Radius))
		} else {
			m.State = MinerIdle
			m.AsteroidID = 0
		}

	default:
		w.moveAndCollide(e)
	}
}

// homeStation returns the miner's live home station, or nil.
func (w *World) homeStation(e *Entity) *Entity {
	st := w.liveEntity(e.Miner.HomeStationID)
	if st == nil || st.Kind != KindStation {
		return nil
	}
	return st
}

func (w *World) dockPoint(st *Entity) Vec2 {
	return Vec2{X: st.Pos.X, Y: st.Pos.Y - w.cfg.Movement.DockOffset}.Clamp(w.cfg.Map.W, w.cfg.Map.H)
}

// abandonRun drops any cargo and parks the miner.
func (w *World) abandonRun(e *Entity) {
	e.Miner.reset()
	e.clearTarget()
	e.Vel = Vec2{}
}

func (w *World) deposit(e *Entity) {
	m := e.Miner
	if m.Cargo <= 0 {
		m.Cargo = 0
		return
	}
	w.credits[e.Owner] += m.Cargo
	w.journal.Ledger = append(w.journal.Ledger, LedgerEntry{
		PlayerID: e.Owner,
		Kind:     LedgerDeposit,
		Amount:   m.Cargo,
		Balance:  w.credits[e.Owner],
		EntityID: e.ID,
	})
	m.Cargo = 0
}
