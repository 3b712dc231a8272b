package model

import (
	"fmt"
	"time"
)

// FlowStatus is the lifecycle state of a single flow.
type FlowStatus string

const (
	StatusIdle     FlowStatus = "IDLE"
	StatusChecking FlowStatus = "CHECKING"
	StatusScanning FlowStatus = "SCANNING"
	StatusRunning  FlowStatus = "RUNNING"
	StatusHealing  FlowStatus = "HEALING"
)

// IsActive reports whether the flow is mid-tick.
func (s FlowStatus) IsActive() bool {
	return s != StatusIdle && s != ""
}

// Flow names. These are also the JSON keys of Flows.
const (
	FlowPreservation = "preservation"
	FlowKnowledge    = "knowledge"
	FlowProphecy     = "prophecy"
)

// FlowNames lists every flow in a stable order.
var FlowNames = []string{FlowPreservation, FlowKnowledge, FlowProphecy}

const (
	// DefaultGlobalRisk is the risk index of a fresh state.
	DefaultGlobalRisk = 35.0

	// DefaultEventLimit caps the event log when no limit is configured.
	DefaultEventLimit = 500
)

// Indices holds the risk indices. Stability is derived from GlobalRisk on
// every Normalize and never written on its own.
type Indices struct {
	GlobalRisk float64 `json:"globalRisk"`
	Stability  float64 `json:"stability"`
}

// PreservationFlow tracks integrity checkpoints.
type PreservationFlow struct {
	Status    FlowStatus `json:"status"`
	LastCheck string     `json:"lastCheck,omitempty"` // RFC3339 of the last checkpoint
}

// KnowledgeFlow tracks discovered opportunities.
type KnowledgeFlow struct {
	Status        FlowStatus `json:"status"`
	Opportunities int        `json:"opportunities"`
}

// ProphecyFlow tracks high-risk alerts.
type ProphecyFlow struct {
	Status FlowStatus `json:"status"`
	Alerts int        `json:"alerts"`
}

// Flows is keyed by flow name on the wire.
type Flows struct {
	Preservation PreservationFlow `json:"preservation"`
	Knowledge    KnowledgeFlow    `json:"knowledge"`
	Prophecy     ProphecyFlow     `json:"prophecy"`
}

// Status returns the status of the named flow.
func (f Flows) Status(name string) (FlowStatus, bool) {
	switch name {
	case FlowPreservation:
		return f.Preservation.Status, true
	case FlowKnowledge:
		return f.Knowledge.Status, true
	case FlowProphecy:
		return f.Prophecy.Status, true
	}
	return "", false
}

// Detail returns a short human-readable description of the flow's scalar.
func (f Flows) Detail(name string) string {
	switch name {
	case FlowPreservation:
		if f.Preservation.LastCheck == "" {
			return "lastCheck: never"
		}
		return "lastCheck: " + f.Preservation.LastCheck
	case FlowKnowledge:
		return fmt.Sprintf("opportunities: %d", f.Knowledge.Opportunities)
	case FlowProphecy:
		return fmt.Sprintf("alerts: %d", f.Prophecy.Alerts)
	}
	return ""
}

// State is the shared vigilance snapshot.
type State struct {
	Indices Indices  `json:"indices"`
	Flows   Flows    `json:"flows"`
	Events  []string `json:"events"` // most recent first
}

// Default returns the fixed initial state.
func Default() State {
	s := State{
		Indices: Indices{GlobalRisk: DefaultGlobalRisk},
		Flows: Flows{
			Preservation: PreservationFlow{Status: StatusIdle},
			Knowledge:    KnowledgeFlow{Status: StatusIdle},
			Prophecy:     ProphecyFlow{Status: StatusIdle},
		},
		Events: []string{},
	}
	s.Normalize(DefaultEventLimit)
	return s
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	c.Events = make([]string, len(s.Events))
	copy(c.Events, s.Events)
	return c
}

// Normalize clamps the risk index, derives stability, truncates the event
// log to limit entries and fills missing flow statuses with IDLE. It is
// applied to loaded snapshots, which may come from older or hand-edited files.
func (s *State) Normalize(limit int) {
	s.Indices.GlobalRisk = ClampRisk(s.Indices.GlobalRisk)
	s.Indices.Stability = 100 - s.Indices.GlobalRisk
	if s.Events == nil {
		s.Events = []string{}
	}
	if limit > 0 && len(s.Events) > limit {
		s.Events = s.Events[:limit]
	}
	if s.Flows.Preservation.Status == "" {
		s.Flows.Preservation.Status = StatusIdle
	}
	if s.Flows.Knowledge.Status == "" {
		s.Flows.Knowledge.Status = StatusIdle
	}
	if s.Flows.Prophecy.Status == "" {
		s.Flows.Prophecy.Status = StatusIdle
	}
}

// PrependEvent adds a timestamped entry to the front of the log, dropping
// the oldest entries beyond limit.
func (s *State) PrependEvent(at time.Time, message string, limit int) string {
	entry := FormatEvent(at, message)
	s.Events = append(s.Events, "")
	copy(s.Events[1:], s.Events)
	s.Events[0] = entry
	if limit > 0 && len(s.Events) > limit {
		s.Events = s.Events[:limit]
	}
	return entry
}

// FormatEvent renders an event log line: "<ISO-8601 timestamp> - <message>".
func FormatEvent(at time.Time, message string) string {
	return at.UTC().Format("2006-01-02T15:04:05.000Z07:00") + " - " + message
}

// ClampRisk bounds a risk value to [0, 100].
func ClampRisk(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
