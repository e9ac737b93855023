package models

import "time"

// CycleStatus is the overall result of one cycle.
type CycleStatus string

const (
	CycleSuccess  CycleStatus = "success"
	CycleDegraded CycleStatus = "degraded"
	CycleAborted  CycleStatus = "aborted"
)

// CyclePhase is the last phase a cycle reached.
type CyclePhase string

const (
	PhaseIdle      CyclePhase = "idle"
	PhaseVerifying CyclePhase = "verifying"
	PhaseMerging   CyclePhase = "merging"
	PhasePersisted CyclePhase = "persisted"
	// PhaseStateOnly means the state was written but the history append and the
	// rollback both failed, so the two stores disagree
	PhaseStateOnly CyclePhase = "state_only"
)

// OutcomeStatus is the result of a single collaborator call.
type OutcomeStatus string

const (
	OutcomeSuccess  OutcomeStatus = "success"
	OutcomeDegraded OutcomeStatus = "degraded"
	OutcomeFailed   OutcomeStatus = "failed"
)

// Collaborator names used in outcomes.
const (
	CollaboratorState      = "state_store"
	CollaboratorHistory    = "history_store"
	CollaboratorMarketData = "market_data"
	CollaboratorNewsFeed   = "news_feed"
	CollaboratorLLM        = "llm"
	CollaboratorNotifier   = "notifier"
)

// Outcome records what happened when the engine called one collaborator.
type Outcome struct {
	Collaborator string        `json:"collaborator"`
	Target       string        `json:"target,omitempty"`
	Status       OutcomeStatus `json:"status"`
	Error        string        `json:"error,omitempty"`
}

// CycleResult is the structured result returned from a cycle run.
type CycleResult struct {
	CycleID    string      `json:"cycleId"`
	Status     CycleStatus `json:"status"`
	Phase      CyclePhase  `json:"phase"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
	Outcomes   []Outcome   `json:"outcomes"`
	Err        error       `json:"-"`

	Dashboard *DashboardState `json:"-"`
}

// NewOutcome builds an outcome, capturing err's message when present.
func NewOutcome(collaborator, target string, status OutcomeStatus, err error) Outcome {
	o := Outcome{Collaborator: collaborator, Target: target, Status: status}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Record appends an outcome.
func (r *CycleResult) Record(collaborator, target string, status OutcomeStatus, err error) {
	r.Outcomes = append(r.Outcomes, NewOutcome(collaborator, target, status, err))
}

// Degraded reports whether any recorded outcome was not a success.
func (r *CycleResult) Degraded() bool {
	for _, o := range r.Outcomes {
		if o.Status != OutcomeSuccess {
			return true
		}
	}
	return false
}
