package domain

import "time"

// UpsertResult reports what a keyed write did.
type UpsertResult string

// Upsert results.
const (
	Inserted UpsertResult = "inserted"
	Updated  UpsertResult = "updated"
	Skipped  UpsertResult = "skipped"
)

// EntityState is the lifecycle state of one entity within a run.
type EntityState string

// Entity states. An entity moves Pending → Fetching → Reconciling → Committed,
// or ends early in Skipped or Failed.
const (
	StatePending     EntityState = "pending"
	StateFetching    EntityState = "fetching"
	StateReconciling EntityState = "reconciling"
	StateCommitted   EntityState = "committed"
	StateSkipped     EntityState = "skipped"
	StateFailed      EntityState = "failed"
)

// SkipReason explains why an entity wrote nothing.
type SkipReason string

// Skip reasons. NoData and RateLimited are kept distinct so operators can tell
// "nothing to fetch" from "throttled, retry next run".
const (
	SkipNone        SkipReason = ""
	SkipEmptyWindow SkipReason = "empty-window"
	SkipNoData      SkipReason = "no-data"
	SkipRateLimited SkipReason = "rate-limited"
)

// EntityOutcome is the per-entity result of a run.
type EntityOutcome struct {
	Symbol     string      `json:"symbol"`
	State      EntityState `json:"state"`
	SkipReason SkipReason  `json:"skip_reason,omitempty"`
	Window     *Window     `json:"-"`

	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errored  int `json:"errored"`
	Commits  int `json:"commits"`

	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Failed reports whether the entity ended in the Failed state.
func (o EntityOutcome) Failed() bool {
	return o.State == StateFailed
}

// RunSummary aggregates entity outcomes for one run. It is not persisted.
type RunSummary struct {
	RunID      string          `json:"run_id"`
	Job        string          `json:"job"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Entities   []EntityOutcome `json:"entities"`

	// FirstDate and LastDate bound the trading dates written in this run.
	FirstDate *time.Time `json:"first_date,omitempty"`
	LastDate  *time.Time `json:"last_date,omitempty"`
}

// Totals is the aggregate row and entity counts of a run.
type Totals struct {
	Entities    int `json:"entities"`
	Committed   int `json:"committed"`
	Skipped     int `json:"skipped_entities"`
	Failed      int `json:"failed"`
	RateLimited int `json:"rate_limited"`

	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Rows     int `json:"skipped_rows"`
	Errored  int `json:"errored"`
}

// Processed is the number of rows written (inserted or updated).
func (t Totals) Processed() int {
	return t.Inserted + t.Updated
}

// Add appends an outcome and widens the written date range.
func (s *RunSummary) Add(o EntityOutcome, first, last *time.Time) {
	if o.Err != nil && o.Error == "" {
		o.Error = o.Err.Error()
	}
	s.Entities = append(s.Entities, o)
	if first != nil && (s.FirstDate == nil || first.Before(*s.FirstDate)) {
		f := *first
		s.FirstDate = &f
	}
	if last != nil && (s.LastDate == nil || last.After(*s.LastDate)) {
		l := *last
		s.LastDate = &l
	}
}

// Totals sums the entity outcomes.
func (s *RunSummary) Totals() Totals {
	var t Totals
	for _, o := range s.Entities {
		t.Entities++
		switch o.State {
		case StateCommitted:
			t.Committed++
		case StateSkipped:
			t.Skipped++
			if o.SkipReason == SkipRateLimited {
				t.RateLimited++
			}
		case StateFailed:
			t.Failed++
		}
		t.Fetched += o.Fetched
		t.Inserted += o.Inserted
		t.Updated += o.Updated
		t.Rows += o.Skipped
		t.Errored += o.Errored
	}
	return t
}

// HasFailures reports whether any entity failed.
func (s *RunSummary) HasFailures() bool {
	for _, o := range s.Entities {
		if o.Failed() {
			return true
		}
	}
	return false
}

// Duration returns the wall-clock length of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Outcome returns the outcome for a symbol.
func (s *RunSummary) Outcome(symbol string) (EntityOutcome, bool) {
	for _, o := range s.Entities {
		if o.Symbol == symbol {
			return o, true
		}
	}
	return EntityOutcome{}, false
}
