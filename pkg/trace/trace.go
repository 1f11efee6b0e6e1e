// Package trace implements an append-only JSONL audit trail of snapshot
// stores and restore passes.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventType enumerates all trace event types.
type EventType string

const (
	EventStoreWritten     EventType = "store_written"
	EventStoreFailed      EventType = "store_failed"
	EventRestoreScheduled EventType = "restore_scheduled"
	EventRestoreStart     EventType = "restore_start"
	EventSnapshotLoaded   EventType = "snapshot_loaded"
	EventRestoreFailed    EventType = "restore_failed"
	EventNodeDeleted      EventType = "node_deleted"
	EventNodeCreated      EventType = "node_created"
	EventEdgeRestored     EventType = "edge_restored"
	EventRestoreComplete  EventType = "restore_complete"
)

// Event is a single trace event written to the JSONL stream.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	PassID    string         `json:"pass_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Writer writes trace events to an append-only JSONL stream.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	enc    *json.Encoder
}

// NewWriter creates a trace writer that writes to the given io.Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:   w,
		enc: json.NewEncoder(w),
	}
}

// NewFileWriter creates a trace writer that appends to a JSONL file.
func NewFileWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	tw := NewWriter(f)
	tw.closer = f
	return tw, nil
}

// Nop returns a writer that discards every event.
func Nop() *Writer {
	return NewWriter(io.Discard)
}

// Close closes the underlying file, if the writer owns one.
func (tw *Writer) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.closer == nil {
		return nil
	}
	err := tw.closer.Close()
	tw.closer = nil
	return err
}

// Emit writes a single event not tied to a restore pass.
func (tw *Writer) Emit(eventType EventType, data map[string]any) error {
	return tw.EmitPass("", eventType, data)
}

// EmitPass writes a single event attributed to a restore pass.
func (tw *Writer) EmitPass(passID string, eventType EventType, data map[string]any) error {
	if tw == nil {
		return nil
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return tw.enc.Encode(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		PassID:    passID,
		Data:      data,
	})
}

// Pass returns an emitter bound to one restore pass.
func (tw *Writer) Pass(passID string) *PassWriter {
	return &PassWriter{tw: tw, passID: passID}
}

// PassWriter emits events for a single restore pass.
type PassWriter struct {
	tw     *Writer
	passID string
}

// Emit writes an event for the bound pass.
func (pw *PassWriter) Emit(eventType EventType, data map[string]any) error {
	return pw.tw.EmitPass(pw.passID, eventType, data)
}

// EmitNodeDeleted emits a node_deleted event.
func (pw *PassWriter) EmitNodeDeleted(id, name, kind string) error {
	return pw.Emit(EventNodeDeleted, map[string]any{
		"id":   id,
		"name": name,
		"kind": kind,
	})
}

// EmitNodeCreated emits a node_created event.
func (pw *PassWriter) EmitNodeCreated(id, name, kind string) error {
	return pw.Emit(EventNodeCreated, map[string]any{
		"id":   id,
		"name": name,
		"kind": kind,
	})
}

// EmitEdgeRestored emits an edge_restored event.
func (pw *PassWriter) EmitEdgeRestored(role, sourceID, sinkID string) error {
	return pw.Emit(EventEdgeRestored, map[string]any{
		"role":   role,
		"source": sourceID,
		"sink":   sinkID,
	})
}

// EmitRestoreComplete emits a restore_complete event.
func (pw *PassWriter) EmitRestoreComplete(deleted, created, edges int, duration time.Duration) error {
	return pw.Emit(EventRestoreComplete, map[string]any{
		"deleted":  deleted,
		"created":  created,
		"edges":    edges,
		"duration": duration.String(),
	})
}

// EmitRestoreFailed emits a restore_failed event.
func (pw *PassWriter) EmitRestoreFailed(stage string, err error) error {
	return pw.Emit(EventRestoreFailed, map[string]any{
		"stage": stage,
		"error": err.Error(),
	})
}
