package main

import (
	"go.uber.org/zap"

	"github.com/luki/roomtemps/internal/alert"
	"github.com/luki/roomtemps/internal/coalesce"
	"github.com/luki/roomtemps/internal/ingest"
	"github.com/luki/roomtemps/internal/store"
)

// reporter is the headless consumer: every refresh is written to the log.
type reporter struct {
	store     *store.Store
	selection *ingest.Selection
	fallback  float64
	logger    *zap.SugaredLogger
}

func (r *reporter) Handlers() coalesce.Handlers {
	return coalesce.Handlers{
		OnSummaryChanged:  r.summary,
		OnRoomListChanged: r.roomList,
		OnDisplayChanged:  r.display,
	}
}

func (r *reporter) summary() {
	views := r.store.AllSnapshots()
	for _, id := range r.store.RoomIDs() {
		v, ok := views[id]
		if !ok {
			continue
		}
		th, fromRef := alert.DisplayThreshold(v, r.fallback)
		fields := []interface{}{
			"room", id,
			"status", alert.RoomStatus(v).String(),
			"threshold", th,
			"from_reference", fromRef,
		}
		if latest, ok := v.LatestEnvironment(); ok {
			fields = append(fields, "latest", latest.Value, "at", latest.Time)
		}
		r.logger.Infow("room summary", fields...)
	}
}

func (r *reporter) roomList() {
	r.logger.Infow("room list changed", "rooms", r.store.RoomIDs())
}

func (r *reporter) display() {
	room, all := r.selection.Get()
	var views []store.RoomView
	if all {
		for _, v := range r.store.AllSnapshots() {
			views = append(views, v)
		}
	} else if v, ok := r.store.RoomSnapshot(room); ok {
		views = append(views, v)
	}

	for _, v := range views {
		alerts := 0
		for _, env := range v.Environment {
			if alert.IsAlert(v, env) {
				alerts++
			}
		}
		r.logger.Debugw("room readings", "room", v.ID, "readings", len(v.Environment), "alerts", alerts)
	}
}
