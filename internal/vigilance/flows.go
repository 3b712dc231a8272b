package vigilance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/events"
	"github.com/alfredjeanlab/praevisio/internal/model"
)

// Each tick holds mu for its whole body, so the ACTIVE status is only ever
// observed through the payloads the tick publishes. The return to IDLE at
// the end of a tick is persisted but not broadcast.

func (s *Service) tickPreservation(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer flowTicks.WithLabelValues(model.FlowPreservation).Inc()

	f := &s.state.Flows.Preservation
	f.Status = model.StatusChecking
	f.LastCheck = s.now().UTC().Format(time.RFC3339)
	s.publishLocked(ctx, events.EventUpdate, "Preservation flow: integrity checkpoint completed")

	if s.rng.Float64() < s.tuning.Preservation.HealingProbability {
		f.Status = model.StatusHealing
		s.publishLocked(ctx, events.EventUpdate, "Preservation flow: anomaly detected, initiating self-healing")
		s.publishLocked(ctx, events.EventUpdate, "Preservation flow: self-healing completed, integrity restored")
	}

	f.Status = model.StatusIdle
	s.saveLocked()
}

func (s *Service) tickKnowledge(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer flowTicks.WithLabelValues(model.FlowKnowledge).Inc()

	f := &s.state.Flows.Knowledge
	f.Status = model.StatusScanning
	if s.rng.Float64() < s.tuning.Knowledge.DiscoveryProbability {
		f.Opportunities++
		s.publishLocked(ctx, events.EventUpdate,
			fmt.Sprintf("Knowledge flow: new opportunity discovered (%d total)", f.Opportunities))
	}

	f.Status = model.StatusIdle
	s.saveLocked()
}

func (s *Service) tickProphecy(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer flowTicks.WithLabelValues(model.FlowProphecy).Inc()

	t := s.tuning.Prophecy
	f := &s.state.Flows.Prophecy
	f.Status = model.StatusRunning

	prev := s.state.Indices.GlobalRisk
	delta := (s.rng.Float64()*2 - 1) * t.MaxDelta
	risk := model.ClampRisk(math.Round((prev+delta)*10) / 10)
	s.state.Indices.GlobalRisk = risk
	s.state.Indices.Stability = 100 - risk
	globalRiskGauge.Set(risk)

	if risk > t.AlertThreshold && s.rng.Float64() < t.AlertProbability {
		f.Alerts++
		s.publishLocked(ctx, events.EventUpdate,
			fmt.Sprintf("Prophecy flow: high risk alert, global risk at %.1f", risk))
	}
	s.publishLocked(ctx, events.EventUpdate,
		fmt.Sprintf("Prophecy flow: global risk %.1f (%+.1f)", risk, risk-prev))

	f.Status = model.StatusIdle
	s.saveLocked()
}
