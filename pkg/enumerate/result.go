package enumerate

import (
	"github.com/channelvisor/tg-members/pkg/telegram"
)

// Status is the terminal state of an enumeration run.
type Status string

const (
	// StatusCompleted means every filter was processed, possibly with
	// per-filter errors recorded.
	StatusCompleted Status = "completed"

	// StatusFailed means a fatal condition aborted the run.
	StatusFailed Status = "failed"

	// StatusCancelled means the caller cancelled the run.
	StatusCancelled Status = "cancelled"
)

// FilterError records a filter value whose drain failed after the retry
// policy was exhausted. The run continued with the next filter.
type FilterError struct {
	Filter string
	Err    error
}

// Result is the outcome of one enumeration run. It is populated during
// the run and handed off read-only; exporters receive the member slice
// copy and never the live set.
type Result struct {
	Status Status

	// Channel is the resolved collection, nil when resolution failed.
	Channel *telegram.ChannelInfo

	// Members is the identity-unique member set in discovery order.
	Members []telegram.Member

	// Calls is the number of listing API calls issued.
	Calls int

	// FiltersCompleted counts filter values drained to exhaustion.
	FiltersCompleted int

	// FilterErrors lists filters that failed without aborting the run.
	FilterErrors []FilterError
}

// Unique returns the unique member count.
func (r *Result) Unique() int {
	return len(r.Members)
}

// Coverage returns the ratio of unique members found to the channel's
// reported total size. Advisory only: the filter alphabet is a heuristic
// cover, and a coverage of 1.0 is not a completeness guarantee. Returns
// 0 when the channel did not report a total.
func (r *Result) Coverage() float64 {
	if r.Channel == nil || r.Channel.ParticipantsCount <= 0 {
		return 0
	}
	return float64(len(r.Members)) / float64(r.Channel.ParticipantsCount)
}
