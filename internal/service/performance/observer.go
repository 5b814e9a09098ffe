package performance

import (
	"time"

	domain "github.com/oshokin/ghost-host/internal/domain/performance"
)

// Observer is told about orchestrator decisions. Methods are called with the
// orchestrator lock held, in decision order, and must not call back into the
// orchestrator.
type Observer interface {
	// TriggerRejected reports a trigger that did not start a performance.
	TriggerRejected(source domain.TriggerSource, reason domain.RejectReason)
	// PerformanceStarted reports a session reaching the active state.
	PerformanceStarted(session *domain.Session)
	// PerformanceFinished reports the end of a session that had been accepted.
	PerformanceFinished(session *domain.Session, outcome domain.Outcome, elapsed time.Duration)
}

// nopObserver ignores everything.
type nopObserver struct{}

func (nopObserver) TriggerRejected(domain.TriggerSource, domain.RejectReason) {}

func (nopObserver) PerformanceStarted(*domain.Session) {}

func (nopObserver) PerformanceFinished(*domain.Session, domain.Outcome, time.Duration) {}
