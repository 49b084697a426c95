// Package harness drives one sequential run over the target catalog:
// category by category, one probe at a time, each outcome appended to
// the recorder, printed to the console, and mirrored to the run log.
package harness

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"traffic-gen/pkg/catalog"
	"traffic-gen/pkg/config"
	"traffic-gen/pkg/logging"
	"traffic-gen/pkg/probe"
	"traffic-gen/pkg/report"
)

// ANSI colors matching the demo's console output.
const (
	colorGreen  = "\033[92m"
	colorRed    = "\033[91m"
	colorYellow = "\033[93m"
	colorBlue   = "\033[94m"
	colorReset  = "\033[0m"
)

// Prober abstracts the probe executors so the harness can run against
// fakes in tests.
type Prober interface {
	Ping(ctx context.Context, t catalog.Target) probe.Outcome
	DNSQuery(ctx context.Context, t catalog.Target) probe.Outcome
	WebRequest(ctx context.Context, t catalog.Target) probe.Outcome
	GeoIPWeb(ctx context.Context, t catalog.Target) probe.Outcome
}

// Sink receives plain transcript lines. *runlog.Log satisfies it.
type Sink interface {
	Printf(format string, args ...any)
}

// Phase names the harness state. Transitions are strictly forward:
// Idle -> Running -> Summarizing -> Done.
type Phase string

const (
	// PhaseIdle means Run has not started yet
	PhaseIdle Phase = "idle"
	// PhaseRunning means the harness is iterating catalog categories
	PhaseRunning Phase = "running"
	// PhaseSummarizing means all targets are done and the tally is being emitted
	PhaseSummarizing Phase = "summarizing"
	// PhaseDone means the run completed
	PhaseDone Phase = "done"
)

// Recorder is the append-only outcome accumulator for one run. It is
// passed into the Runner explicitly rather than living in a package
// global, so runs stay independently testable.
type Recorder struct {
	outcomes []probe.Outcome
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one outcome. Outcomes are never mutated or removed.
func (r *Recorder) Record(o probe.Outcome) {
	r.outcomes = append(r.outcomes, o)
}

// Outcomes returns a copy of the outcome sequence in generation order.
func (r *Recorder) Outcomes() []probe.Outcome {
	out := make([]probe.Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Len returns the number of recorded outcomes.
func (r *Recorder) Len() int {
	return len(r.outcomes)
}

// Options tunes a run.
type Options struct {
	Pacing    config.PacingConfig
	Sampling  config.SamplingConfig
	GeoIPPing bool      // also ping each geo-ip target before fetching it
	Seed      int64     // 0 = time-seeded
	Console   io.Writer // defaults to os.Stdout
	Color     bool
}

// Runner executes one sequential pass over the catalog.
type Runner struct {
	cat    *catalog.Catalog
	prober Prober
	rec    *Recorder
	logger *logging.Logger
	sink   Sink
	opts   Options
	rng    *rand.Rand
	phase  Phase
}

// New creates a Runner. sink may be nil when no transcript is wanted
// (tests); a nil logger falls back to the process-wide logger and the
// console defaults to stdout.
func New(cat *catalog.Catalog, prober Prober, rec *Recorder, logger *logging.Logger, sink Sink, opts Options) *Runner {
	if logger == nil {
		logger = logging.Global()
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Runner{
		cat:    cat,
		prober: prober,
		rec:    rec,
		logger: logger,
		sink:   sink,
		opts:   opts,
		rng:    rand.New(rand.NewSource(seed)),
		phase:  PhaseIdle,
	}
}

// Phase returns the current harness state.
func (r *Runner) Phase() Phase {
	return r.phase
}

// Run executes the full catalog once. It returns an error only when the
// context is canceled mid-run; probe failures are outcomes, not errors.
// The summary is emitted once the harness has started, even for an
// interrupted run or an empty catalog.
func (r *Runner) Run(ctx context.Context) error {
	r.phase = PhaseRunning

	for _, g := range r.cat.Groups() {
		r.section(g.Category)
		r.logger.Debug("entering category", "category", g.Category, "targets", len(g.Targets))

		for _, t := range r.sample(g) {
			if err := ctx.Err(); err != nil {
				r.finish()
				return fmt.Errorf("run interrupted: %w", err)
			}

			if err := t.Validate(); err != nil {
				r.logger.Warn("skipping malformed target",
					"category", t.Category,
					"value", t.Value,
					"error", err,
				)
				continue
			}

			for _, o := range r.dispatch(ctx, t) {
				r.rec.Record(o)
				r.emit(o)
			}

			if err := r.pause(ctx, g.Category); err != nil {
				r.finish()
				return fmt.Errorf("run interrupted: %w", err)
			}
		}
	}

	r.finish()
	return nil
}

// finish emits the summary and closes out the run state.
func (r *Runner) finish() {
	r.phase = PhaseSummarizing
	r.summary()
	r.phase = PhaseDone
}

// dispatch runs the probe(s) matching the target's category. Geo-ip
// targets get both a ping and a web fetch when GeoIPPing is on.
func (r *Runner) dispatch(ctx context.Context, t catalog.Target) []probe.Outcome {
	switch t.Category {
	case catalog.CategoryDNSServer:
		return []probe.Outcome{r.prober.Ping(ctx, t)}
	case catalog.CategoryBlockedDomain, catalog.CategoryAllowedDomain:
		return []probe.Outcome{r.prober.DNSQuery(ctx, t)}
	case catalog.CategoryBlockedURL, catalog.CategoryAllowedURL:
		return []probe.Outcome{r.prober.WebRequest(ctx, t)}
	case catalog.CategoryGeoIP:
		var outs []probe.Outcome
		if r.opts.GeoIPPing {
			outs = append(outs, r.prober.Ping(ctx, t))
		}
		return append(outs, r.prober.GeoIPWeb(ctx, t))
	}

	// Validate() rejects unknown categories before dispatch
	r.logger.Error("no probe for category", "category", t.Category)
	return nil
}

// sample returns the targets to probe for a group. The allowed lists
// may be randomly sampled down to keep demo runs short; other
// categories always run in full.
func (r *Runner) sample(g catalog.Group) []catalog.Target {
	var limit int
	switch g.Category {
	case catalog.CategoryAllowedDomain:
		limit = r.opts.Sampling.DomainLimit()
	case catalog.CategoryAllowedURL:
		limit = r.opts.Sampling.URLLimit()
	default:
		return g.Targets
	}

	if limit <= 0 || len(g.Targets) <= limit {
		return g.Targets
	}

	sampled := make([]catalog.Target, len(g.Targets))
	copy(sampled, g.Targets)
	r.rng.Shuffle(len(sampled), func(i, j int) {
		sampled[i], sampled[j] = sampled[j], sampled[i]
	})
	return sampled[:limit]
}

// pause sleeps a uniformly random delay for the category, honoring
// cancellation. The jitter makes the traffic look hand-driven on the
// firewall's timeline.
func (r *Runner) pause(ctx context.Context, cat catalog.Category) error {
	if !r.opts.Pacing.Enabled {
		return nil
	}

	var dr config.DelayRange
	switch cat {
	case catalog.CategoryDNSServer:
		dr = r.opts.Pacing.Ping
	case catalog.CategoryBlockedDomain, catalog.CategoryAllowedDomain:
		dr = r.opts.Pacing.DNS
	case catalog.CategoryBlockedURL, catalog.CategoryAllowedURL:
		dr = r.opts.Pacing.Web
	case catalog.CategoryGeoIP:
		dr = r.opts.Pacing.GeoIP
	}

	delay := dr.Min
	if span := dr.Max - dr.Min; span > 0 {
		delay += time.Duration(r.rng.Int63n(int64(span)))
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// section prints a category banner to console and transcript.
func (r *Runner) section(cat catalog.Category) {
	titles := map[catalog.Category]string{
		catalog.CategoryDNSServer:     "PING tests to DNS servers",
		catalog.CategoryBlockedDomain: "DNS query tests (blocked domains)",
		catalog.CategoryAllowedDomain: "DNS query tests (allowed domains)",
		catalog.CategoryBlockedURL:    "Web request tests (blocked sites)",
		catalog.CategoryAllowedURL:    "Web request tests (allowed sites)",
		catalog.CategoryGeoIP:         "Geo-IP block tests",
	}
	title := titles[cat]

	if r.opts.Color {
		fmt.Fprintf(r.opts.Console, "\n%s>>> %s%s\n\n", colorYellow, title, colorReset)
	} else {
		fmt.Fprintf(r.opts.Console, "\n>>> %s\n\n", title)
	}
	if r.sink != nil {
		r.sink.Printf(">>> %s", title)
	}
}

// emit prints one outcome line to the console (colorized) and appends
// the plain form to the transcript.
func (r *Runner) emit(o probe.Outcome) {
	ts := o.Timestamp.Format("2006-01-02 15:04:05")
	status := "FAIL"
	if o.Passed {
		status = "PASS"
	}

	if r.opts.Color {
		statusColor := colorRed
		if o.Passed {
			statusColor = colorGreen
		}
		fmt.Fprintf(r.opts.Console, "[%s] %s%-12s%s | %-50s | %s%-4s%s %s\n",
			ts, colorBlue, o.Type, colorReset,
			o.Target.Display(),
			statusColor, status, colorReset, o.Detail)
	} else {
		fmt.Fprintf(r.opts.Console, "[%s] %-12s | %-50s | %-4s %s\n",
			ts, o.Type, o.Target.Display(), status, o.Detail)
	}

	if r.sink != nil {
		r.sink.Printf("[%s] %-12s | %-50s | %-4s %s", ts, o.Type, o.Target.Display(), status, o.Detail)
	}
}

// summary derives the tally from the recorded outcomes and emits it.
func (r *Runner) summary() {
	rows := report.Summarize(r.rec.Outcomes())
	table := report.Render(rows)

	if r.opts.Color {
		fmt.Fprintf(r.opts.Console, "\n%sTest Summary%s\n%s", colorBlue, colorReset, table)
	} else {
		fmt.Fprintf(r.opts.Console, "\nTest Summary\n%s", table)
	}
	if r.sink != nil {
		r.sink.Printf("")
		r.sink.Printf("Test Summary")
		r.sink.Printf("%s", table)
	}
}
