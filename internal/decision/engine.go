package decision

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/counttalita/ScamShield-sub000/internal/callcontrol"
	"github.com/counttalita/ScamShield-sub000/internal/contacts"
	"github.com/counttalita/ScamShield-sub000/internal/metrics"
	"github.com/counttalita/ScamShield-sub000/internal/phone"
	"github.com/counttalita/ScamShield-sub000/internal/provider"
	"github.com/counttalita/ScamShield-sub000/internal/riskcache"
	"github.com/counttalita/ScamShield-sub000/internal/traces"
)

// Engine resolves incoming calls. All collaborators are injected and
// owned by the process lifecycle; the engine itself holds no background
// state.
type Engine struct {
	normalizer     *phone.Normalizer
	cache          *riskcache.TieredCache
	aggregator     *provider.Aggregator
	contacts       contacts.Resolver
	controller     callcontrol.Controller
	counters       CounterStore
	recorder       Recorder
	checkTimeout   time.Duration
	silenceUnknown bool
	logger         *slog.Logger
}

// NewEngine creates a decision engine. recorder may be nil. checkTimeout
// bounds one full resolution including the provider round; zero disables
// the deadline.
func NewEngine(
	normalizer *phone.Normalizer,
	cache *riskcache.TieredCache,
	aggregator *provider.Aggregator,
	contactsResolver contacts.Resolver,
	controller callcontrol.Controller,
	counters CounterStore,
	recorder Recorder,
	checkTimeout time.Duration,
	silenceUnknown bool,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		normalizer:     normalizer,
		cache:          cache,
		aggregator:     aggregator,
		contacts:       contactsResolver,
		controller:     controller,
		counters:       counters,
		recorder:       recorder,
		checkTimeout:   checkTimeout,
		silenceUnknown: silenceUnknown,
		logger:         logger,
	}
}

// Resolve runs the full resolution flow for one incoming call:
// normalize, cache lookup, contact check on miss, remote aggregation on
// no contact, then exactly one call-control invocation. No failure mode
// below validation may propagate; everything degrades to a defined
// action.
func (e *Engine) Resolve(ctx context.Context, req CheckRequest) (*Verdict, error) {
	if strings.TrimSpace(req.Number) == "" {
		return nil, ErrMissingNumber
	}

	number := e.normalizer.Normalize(req.Number)
	if number == "" {
		return nil, ErrMissingNumber
	}

	// The overall deadline covers cache, contacts, and the provider
	// round; per-provider timeouts nest inside it.
	if e.checkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.checkTimeout)
		defer cancel()
	}

	ctx, span := traces.StartSpan(ctx, "decision.resolve", traces.PhoneNumber(number))
	defer span.End()

	silenceUnknown := e.silenceUnknown
	if req.SilenceUnknown != nil {
		silenceUnknown = *req.SilenceUnknown
	}

	verdict := e.resolve(ctx, number, silenceUnknown)
	verdict.CheckedAt = time.Now()

	span.SetAttributes(traces.Action(string(verdict.Action)))

	e.applyAction(ctx, verdict)
	e.count(ctx, verdict.Action)
	e.record(req.SessionID, verdict)

	return verdict, nil
}

// resolve walks the state machine up to (but not including) the
// call-control side effects.
func (e *Engine) resolve(ctx context.Context, number string, silenceUnknown bool) *Verdict {
	lookup := e.cache.Lookup(ctx, number)

	switch lookup.Outcome {
	case riskcache.OutcomeSafe:
		return &Verdict{
			Number:     number,
			Action:     ActionAllow,
			State:      StateWhitelisted,
			RiskLevel:  riskcache.RiskSafe,
			Confidence: 1.0,
		}

	case riskcache.OutcomeScam:
		record := lookup.Record
		verdict := &Verdict{
			Number:     number,
			State:      StateCacheScam,
			RiskLevel:  record.RiskLevel,
			Confidence: record.Confidence,
			IsScam:     true,
			Sources:    []string{record.Source},
		}
		verdict.Action = decideAction(record.RiskLevel, record.Confidence, true, false, silenceUnknown)
		return verdict

	case riskcache.OutcomeSpam:
		record := lookup.Record
		verdict := &Verdict{
			Number:     number,
			State:      StateCacheSpam,
			RiskLevel:  record.RiskLevel,
			Confidence: record.Confidence,
			IsSpam:     true,
			Sources:    []string{record.Source},
		}
		verdict.Action = decideAction(record.RiskLevel, record.Confidence, false, true, silenceUnknown)
		return verdict
	}

	// Cache miss: a known contact resolves to allow and is learned into
	// the whitelist. Resolver failures count as "not a contact".
	known, err := e.contacts.IsKnownContact(ctx, number)
	if err != nil {
		e.logger.Warn("contact resolver failed, treating as unknown", "number", number, "error", err)
		known = false
	}
	if known {
		e.cache.AddToWhitelist(ctx, number, "contacts")
		return &Verdict{
			Number:     number,
			Action:     ActionAllow,
			State:      StateContactMatch,
			RiskLevel:  riskcache.RiskSafe,
			Confidence: 1.0,
		}
	}

	assessment := e.aggregator.CheckNumber(ctx, number)
	verdict := &Verdict{
		Number:     number,
		State:      StateRemoteChecked,
		RiskLevel:  assessment.RiskLevel,
		Confidence: assessment.Confidence,
		IsScam:     assessment.IsScam,
		IsSpam:     assessment.IsSpam,
		Sources:    assessment.Sources,
	}
	verdict.Action = decideAction(assessment.RiskLevel, assessment.Confidence, assessment.IsScam, assessment.IsSpam, silenceUnknown)

	e.writeBack(ctx, assessment)
	return verdict
}

// decideAction maps a risk evaluation onto a terminal action.
func decideAction(level riskcache.RiskLevel, confidence float64, isScam, isSpam, silenceUnknown bool) Action {
	if isScam && level == riskcache.RiskHigh && confidence > 0.8 {
		return ActionAutoReject
	}
	if isScam || (isSpam && confidence > 0.6) {
		return ActionBlock
	}
	if level == riskcache.RiskUnknown || (isSpam && confidence <= 0.6) {
		if silenceUnknown {
			return ActionSilence
		}
	}
	return ActionAllow
}

// writeBack persists non-LOW remote verdicts so the provider round is
// amortized over future lookups. LOW verdicts are not cached: they would
// only suppress fresher provider data on the next call.
func (e *Engine) writeBack(ctx context.Context, assessment *provider.Assessment) {
	source := assessment.PrimarySource
	if source == "" {
		source = "aggregator:" + string(assessment.Strategy)
	}

	switch {
	case assessment.IsScam:
		e.cache.PutScam(ctx, assessment.Number, assessment.RiskLevel, assessment.Confidence, source)
	case assessment.IsSpam:
		e.cache.PutSpam(ctx, assessment.Number, assessment.RiskLevel, assessment.Confidence, source)
	}
}

// applyAction invokes the call controller exactly once per verdict.
// Controller failures are logged, never propagated: the verdict stands
// regardless of whether the native layer acknowledged it.
func (e *Engine) applyAction(ctx context.Context, verdict *Verdict) {
	var err error
	switch verdict.Action {
	case ActionAutoReject, ActionBlock:
		err = e.controller.TerminateCall(ctx, verdict.Number)
	case ActionSilence:
		err = e.controller.SilenceCall(ctx, verdict.Number)
	default:
		err = e.controller.AllowCall(ctx, verdict.Number)
	}
	if err != nil {
		e.logger.Warn("call controller failed",
			"number", verdict.Number, "action", verdict.Action, "error", err)
	}
}

func (e *Engine) count(ctx context.Context, action Action) {
	metrics.CallChecksTotal.WithLabelValues(string(action)).Inc()
	if err := e.counters.Increment(ctx, action.CounterName()); err != nil {
		e.logger.Warn("failed to increment action counter", "action", action, "error", err)
	}
}

func (e *Engine) record(sessionID string, verdict *Verdict) {
	if e.recorder == nil || sessionID == "" {
		return
	}

	e.recorder.AddResult(sessionID, map[string]interface{}{
		"number":     verdict.Number,
		"action":     string(verdict.Action),
		"state":      string(verdict.State),
		"riskLevel":  string(verdict.RiskLevel),
		"confidence": verdict.Confidence,
	})

	if verdict.IsScam {
		e.recorder.AddWarning(sessionID, "high", "caller flagged as scam")
	} else if verdict.IsSpam {
		e.recorder.AddWarning(sessionID, "medium", "caller flagged as spam")
	}
}

// Counters returns the persisted action counters.
func (e *Engine) Counters(ctx context.Context) (map[string]int64, error) {
	return e.counters.All(ctx)
}
