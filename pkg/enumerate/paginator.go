package enumerate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelvisor/tg-members/pkg/governor"
	"github.com/channelvisor/tg-members/pkg/telegram"
)

// ErrRequestBudgetExceeded is returned when a filter keeps yielding full
// pages past the configured request budget. Guards against a misbehaving
// server that never signals exhaustion.
var ErrRequestBudgetExceeded = errors.New("per-filter request budget exceeded")

// Lister is the engine's view of the remote listing API.
type Lister interface {
	// ListMembers returns one page of members matching filter, starting
	// at offset. Fewer than limit results (including zero) mean the
	// filter is exhausted.
	ListMembers(ctx context.Context, ref, filter string, offset, limit int) ([]telegram.Member, error)
}

// Page is one bounded batch of members from a filtered query.
type Page struct {
	Filter  string
	Offset  int
	Members []telegram.Member

	// Exhausted is true when no further pages exist for this filter.
	Exhausted bool
}

// Paginator drains one filtered query to exhaustion via offset paging.
type Paginator struct {
	lister      Lister
	pacer       *governor.Pacer
	pageSize    int
	maxRequests int
	logger      zerolog.Logger
}

// NewPaginator creates a paginator. maxRequests bounds the calls issued
// per filter; pageSize is the per-call limit.
func NewPaginator(lister Lister, pacer *governor.Pacer, pageSize, maxRequests int) *Paginator {
	if pageSize <= 0 {
		pageSize = 200
	}
	if maxRequests <= 0 {
		maxRequests = 50
	}
	return &Paginator{
		lister:      lister,
		pacer:       pacer,
		pageSize:    pageSize,
		maxRequests: maxRequests,
		logger:      log.With().Str("component", "paginator").Logger(),
	}
}

// Drain walks one filter from offset 0 until a short or empty page and
// invokes fn for every page, including the final short one. Each offset
// is requested exactly once; a short page with a nonzero count is
// terminal and no trailing empty-offset call is issued. Returns the
// number of API calls made. The drain is not restartable: a failed
// filter surfaces its error and is not resumed.
//
// Pacing runs before every call; the shared pacer releases the first
// call of a run immediately and thereafter spaces all calls across
// filters and concurrent drains.
func (p *Paginator) Drain(ctx context.Context, ref, filter string, fn func(Page) error) (int, error) {
	offset := 0
	calls := 0

	for {
		if calls >= p.maxRequests {
			p.logger.Warn().
				Str("filter", filter).
				Int("calls", calls).
				Int("offset", offset).
				Msg("Filter still yielding full pages at request budget, stopping drain")
			return calls, fmt.Errorf("%w: %d calls for filter %q", ErrRequestBudgetExceeded, calls, filter)
		}

		if err := p.pacer.Wait(ctx); err != nil {
			return calls, err
		}

		members, err := p.lister.ListMembers(ctx, ref, filter, offset, p.pageSize)
		if err != nil {
			return calls, err
		}
		calls++

		page := Page{
			Filter:    filter,
			Offset:    offset,
			Members:   members,
			Exhausted: len(members) < p.pageSize,
		}

		p.logger.Debug().
			Str("filter", filter).
			Int("offset", offset).
			Int("returned", len(members)).
			Bool("exhausted", page.Exhausted).
			Msg("Drained page")

		if err := fn(page); err != nil {
			return calls, err
		}

		if page.Exhausted {
			return calls, nil
		}

		offset += len(members)
	}
}
