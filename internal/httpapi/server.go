// Package httpapi serves a read-only JSON view of the room store.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/luki/roomtemps/internal/alert"
	"github.com/luki/roomtemps/internal/reading"
	"github.com/luki/roomtemps/internal/store"
)

// Reading is the wire form of one reading.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// RoomSummary is one entry of GET /rooms.
type RoomSummary struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Latest        *Reading `json:"latest,omitempty"`
	Threshold     float64  `json:"threshold"`
	FromReference bool     `json:"fromReference"`
}

// RoomDetail is the body of GET /rooms/{id}.
type RoomDetail struct {
	RoomSummary
	Environment []Reading `json:"environment"`
	Reference   []Reading `json:"reference"`
}

type Server struct {
	store    *store.Store
	fallback float64
	logger   *zap.SugaredLogger
	http     *http.Server
}

// NewServer creates a server listening on addr. fallback is the threshold
// reported for rooms without a reference.
func NewServer(addr string, s *store.Store, fallback float64, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	srv := &Server{store: s, fallback: fallback, logger: logger.With("component", "httpapi")}

	access := zap.NewStdLog(srv.logger.Desugar()).Writer()
	srv.http = &http.Server{
		Addr:              addr,
		Handler:           handlers.RecoveryHandler()(handlers.LoggingHandler(access, srv.Router())),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// Router returns the API routes without middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.getHealth).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.listRooms).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{id}", s.getRoom).Methods(http.MethodGet)

	return r
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	s.logger.Infow("http server starting", "bind", s.http.Addr)
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("http server stopping")
	return s.http.Shutdown(ctx)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listRooms(w http.ResponseWriter, _ *http.Request) {
	views := s.store.AllSnapshots()
	out := make([]RoomSummary, 0, len(views))
	for _, id := range s.store.RoomIDs() {
		v, ok := views[id]
		if !ok {
			// room appeared between the two reads
			continue
		}
		out = append(out, s.summarize(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	v, ok := s.store.RoomSnapshot(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown room " + id})
		return
	}
	writeJSON(w, http.StatusOK, RoomDetail{
		RoomSummary: s.summarize(v),
		Environment: wire(v.SortedEnvironment()),
		Reference:   wire(v.Reference),
	})
}

func (s *Server) summarize(v store.RoomView) RoomSummary {
	th, fromRef := alert.DisplayThreshold(v, s.fallback)
	sum := RoomSummary{
		ID:            v.ID,
		Status:        alert.RoomStatus(v).String(),
		Threshold:     th,
		FromReference: fromRef,
	}
	if latest, ok := v.LatestEnvironment(); ok {
		sum.Latest = &Reading{Timestamp: latest.Time, Value: latest.Value}
	}
	return sum
}

func wire(rs []reading.Reading) []Reading {
	out := make([]Reading, len(rs))
	for i, r := range rs {
		out[i] = Reading{Timestamp: r.Time, Value: r.Value}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
