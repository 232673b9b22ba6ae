package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"

	"orerush.io/internal/sim/world"
	"orerush.io/internal/transport/session"
	"orerush.io/internal/transport/ws"
)

type muxDeps struct {
	world  *world.World
	hub    *session.Hub
	index  runtimeIndex
	ws     *ws.Server
	logger *slog.Logger

	enableAdmin bool
	enablePprof bool
}

func newMux(d muxDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		select {
		case <-d.world.Done():
			http.Error(rw, "stopped", http.StatusServiceUnavailable)
		default:
			rw.WriteHeader(200)
			_, _ = rw.Write([]byte("ok"))
		}
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, d)
	})

	if d.enableAdmin {
		// Local-only admin endpoints. Read-only; they never touch the tick.
		mux.HandleFunc("/admin/v1/state", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			resp := struct {
				Tick    uint64             `json:"tick"`
				Metrics world.WorldMetrics `json:"metrics"`
				Players []world.Player     `json:"players"`
				Hub     session.Metrics    `json:"hub"`
			}{
				Tick:    d.world.CurrentTick(),
				Metrics: d.world.Metrics(),
				Players: d.world.Players(),
				Hub:     d.hub.Metrics(),
			}
			writeJSON(rw, http.StatusOK, resp)
		}))
		mux.HandleFunc("/admin/v1/sessions", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			writeJSON(rw, http.StatusOK, d.hub.Sessions())
		}))
		mux.HandleFunc("/admin/v1/ledger", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			if d.index == nil {
				http.Error(rw, "index disabled", http.StatusServiceUnavailable)
				return
			}
			pid, err := strconv.Atoi(r.URL.Query().Get("player_id"))
			if err != nil || pid <= 0 {
				http.Error(rw, "bad player_id", http.StatusBadRequest)
				return
			}
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			rows, err := d.index.Ledger(r.Context(), pid, limit)
			if err != nil {
				d.logger.Warn("admin ledger query", slog.Any("err", err))
				http.Error(rw, "query failed", http.StatusInternalServerError)
				return
			}
			writeJSON(rw, http.StatusOK, rows)
		}))
	} else {
		d.logger.Info("admin endpoints disabled (ORERUSH_ENABLE_ADMIN_HTTP=false)")
	}
	if d.enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	if d.ws != nil {
		mux.HandleFunc("/v1/ws", d.ws.Handler())
	}
	return mux
}

// Minimal Prometheus exposition format.
func writeMetrics(rw http.ResponseWriter, d muxDeps) {
	m := d.world.Metrics()
	tick := d.world.CurrentTick()
	if m.Tick != 0 {
		tick = m.Tick
	}
	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
		fmt.Fprintf(rw, "%s %v\n", name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s counter\n", name)
		fmt.Fprintf(rw, "%s %d\n", name, v)
	}

	gauge("orerush_world_tick", "Current world tick.", tick)
	gauge("orerush_world_entities", "Live entities.", m.Entities)
	gauge("orerush_world_players", "Players ever joined.", m.Players)
	gauge("orerush_world_connected_players", "Players with a live session.", m.ConnectedPlayers)
	gauge("orerush_world_queue_depth", "Commands and joins waiting for the next tick.", m.QueueDepth)
	gauge("orerush_world_step_ms", "Last tick step duration in milliseconds.", strconv.FormatFloat(m.StepMS, 'f', 3, 64))
	gauge("orerush_world_snapshot_bytes", "Size of the last broadcast snapshot.", m.SnapshotBytes)
	counter("orerush_world_commands_total", "Commands applied.", m.CommandsTotal)
	counter("orerush_world_catchup_resets_total", "Tick schedule resets after falling behind.", m.CatchupResetsTotal)

	hm := d.hub.Metrics()
	gauge("orerush_sessions", "Live client sessions.", hm.Sessions)
	counter("orerush_sessions_pruned_total", "Sessions removed after a failed write.", hm.PrunedTotal)
	counter("orerush_commands_rate_limited_total", "Inbound commands dropped by the rate limiter.", hm.RateLimitedTotal)
	counter("orerush_commands_invalid_total", "Inbound messages rejected by schema validation.", hm.InvalidTotal)

	if d.index == nil {
		return
	}
	st := d.index.Stats()
	gauge("orerush_index_queue_depth", "Index writer backlog.", st.QueueDepth)
	gauge("orerush_index_queue_capacity", "Index writer queue capacity.", st.QueueCapacity)
	fmt.Fprintf(rw, "# HELP orerush_index_dropped_total Index requests dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE orerush_index_dropped_total counter\n")
	fmt.Fprintf(rw, "orerush_index_dropped_total{kind=%q} %d\n", "tick", st.DropTickTotal)
	fmt.Fprintf(rw, "orerush_index_dropped_total{kind=%q} %d\n", "session", st.DropSessionTotal)
	counter("orerush_index_write_errors_total", "Index write failures.", st.WriteErrTotal)
}

func loopbackOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next(rw, r)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
