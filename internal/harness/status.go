package harness

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/ndbaker1/BONK/internal/storage"
)

// BotStatus 单个机器人的状态
type BotStatus struct {
	Identity  string   `json:"identity"`
	Connected bool     `json:"connected"`
	Screen    string   `json:"screen"`
	SessionID string   `json:"session_id,omitempty"`
	Roster    []string `json:"roster,omitempty"`
	IsTurn    bool     `json:"is_turn"`
	Health    *int     `json:"health,omitempty"`
	Hand      []string `json:"hand,omitempty"`
}

// Status /status 的返回内容
type Status struct {
	RunID string                 `json:"run_id"`
	Bots  []BotStatus            `json:"bots"`
	Log   []storage.JournalEntry `json:"log"`
}

// Status 当前所有机器人的状态
func (h *Harness) Status() Status {
	st := Status{RunID: h.runID, Log: h.Log()}
	for _, bot := range h.bots {
		snap := bot.Session.Snapshot()
		bs := BotStatus{
			Identity:  snap.Identity,
			Connected: bot.IsConnected(),
			Screen:    snap.Screen.String(),
			SessionID: snap.SessionID,
			Roster:    snap.Roster,
			IsTurn:    bot.Game.IsTurn(snap.Identity),
		}
		if pd := bot.Game.PlayerData(); pd != nil {
			health := pd.Health
			bs.Health = &health
			for _, c := range pd.Hand {
				bs.Hand = append(bs.Hand, c.String())
			}
		}
		st.Bots = append(st.Bots, bs)
	}
	return st
}

// Handler /status 与 /health，带访问日志和 panic 恢复
func (h *Harness) Handler(accessLog io.Writer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.Status()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(log.New(accessLog, "status: ", log.LstdFlags)),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(handlers.LoggingHandler(accessLog, mux))
}
