// Package ensemble fits competing forecasting families to a series and picks
// one by information criterion, falling back to a naive trend forecast when
// every family fails.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sartorproj/stockcast/pattern"
)

// Options configures a run.
type Options struct {
	Workers    int           // concurrent fits (default: 4)
	FitTimeout time.Duration // wall-clock limit per configuration (default: 10s)
	Observer   Observer      // optional
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		Workers:    4,
		FitTimeout: 10 * time.Second,
	}
}

// ErrNoCandidate is wrapped by the error recorded for a family whose
// configurations all failed.
var ErrNoCandidate = errors.New("no configuration produced a candidate")

// Attempt records how one family fared.
type Attempt struct {
	Family  Family
	State   State // left at Attempting when every configuration failed
	Configs int
	Failed  int
	Err     error // wraps ErrNoCandidate when State is Attempting
}

// Selection is the outcome of a run.
type Selection struct {
	// State is Selected or Fallback.
	State State
	// Chosen is the selected candidate, or the naive forecast on fallback.
	Chosen *Candidate
	// Plausible reports whether Chosen passed the plausibility scan.
	Plausible bool
	// Candidates holds each family's best candidate sorted by AIC.
	Candidates []*Candidate
	Attempts   []Attempt
}

// Ensemble runs a fixed list of fitters.
type Ensemble struct {
	fitters []Fitter
	opts    Options
}

// New creates an ensemble. With no fitters it uses DefaultFitters.
func New(opts Options, fitters ...Fitter) *Ensemble {
	def := DefaultOptions()
	if opts.Workers < 1 {
		opts.Workers = def.Workers
	}
	if opts.FitTimeout <= 0 {
		opts.FitTimeout = def.FitTimeout
	}
	if len(fitters) == 0 {
		fitters = DefaultFitters()
	}
	return &Ensemble{fitters: fitters, opts: opts}
}

func (e *Ensemble) emit(ev Event) {
	if e.opts.Observer != nil {
		e.opts.Observer(ev)
	}
}

// Run fits every applicable configuration of every family to y, keeps the
// lowest-AIC candidate of each family, and selects the first candidate in
// ascending AIC order whose forecast is plausible. When none is plausible
// the lowest-AIC candidate is selected anyway; when there are no candidates
// the naive forecast is returned with State Fallback.
func (e *Ensemble) Run(ctx context.Context, y []float64, horizon int, profile pattern.Profile) (*Selection, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be at least 1, got %d", horizon)
	}
	if len(y) == 0 {
		return nil, errors.New("empty series")
	}

	var jobs []job
	attempts := make([]Attempt, len(e.fitters))
	for i, f := range e.fitters {
		configs := f.Configs(len(y), profile)
		attempts[i] = Attempt{Family: f.Family(), State: NotAttempted, Configs: len(configs)}
		for _, c := range configs {
			jobs = append(jobs, job{family: f.Family(), config: c})
		}
	}

	for i := range attempts {
		if attempts[i].Configs > 0 {
			attempts[i].State = Attempting
			e.emit(Event{Kind: EventAttempted, Family: attempts[i].Family})
		}
	}

	outcomes, err := runJobs(ctx, jobs, y, horizon, e.opts.Workers, e.opts.FitTimeout)
	if err != nil {
		return nil, err
	}

	// Fold each family to its lowest AIC, first configuration winning ties.
	var candidates []*Candidate
	next := 0
	for i := range attempts {
		a := &attempts[i]
		if a.Configs == 0 {
			continue
		}
		var best *Candidate
		var lastErr error
		for _, o := range outcomes[next : next+a.Configs] {
			if o.err == nil && !usable(o.candidate, horizon) {
				o.err = errors.New("candidate has non-finite forecast or AIC")
			}
			if o.err != nil {
				a.Failed++
				lastErr = o.err
				e.emit(Event{Kind: EventConfigFailed, Family: a.Family, Order: jobs[next].config.Order(), Err: o.err, Elapsed: o.elapsed})
				next++
				continue
			}
			if best == nil || o.candidate.AIC < best.AIC {
				best = o.candidate
			}
			next++
		}

		if best == nil {
			a.Err = fmt.Errorf("%s: %w: %w", a.Family, ErrNoCandidate, lastErr)
			e.emit(Event{Kind: EventFitterFailed, Family: a.Family, Err: a.Err})
			continue
		}
		a.State = Scored
		candidates = append(candidates, best)
		e.emit(Event{Kind: EventScored, Family: a.Family, Order: best.Order, AIC: best.AIC})
	}

	sel := &Selection{Attempts: attempts}
	if len(candidates) == 0 {
		sel.State = Fallback
		sel.Chosen = Naive(y, horizon)
		sel.Plausible = Plausible(sel.Chosen, y)
		e.emit(Event{Kind: EventFallback, Family: FamilyNaive, Order: OrderNaive})
		return sel, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].AIC < candidates[j].AIC })
	sel.Candidates = candidates
	sel.State = Selected

	for _, c := range candidates {
		if Plausible(c, y) {
			sel.Chosen = c
			sel.Plausible = true
			break
		}
		e.emit(Event{Kind: EventRejected, Family: c.Family, Order: c.Order, AIC: c.AIC})
	}
	if sel.Chosen == nil {
		sel.Chosen = candidates[0]
	}
	e.emit(Event{Kind: EventSelected, Family: sel.Chosen.Family, Order: sel.Chosen.Order, AIC: sel.Chosen.AIC})
	return sel, nil
}

// usable rejects candidates whose forecast length or values cannot be used.
func usable(c *Candidate, horizon int) bool {
	if c == nil || math.IsNaN(c.AIC) || math.IsInf(c.AIC, 0) {
		return false
	}
	if len(c.Forecast) != horizon || len(c.Lower) != horizon || len(c.Upper) != horizon {
		return false
	}
	for i := range c.Forecast {
		for _, v := range []float64{c.Forecast[i], c.Lower[i], c.Upper[i]} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
