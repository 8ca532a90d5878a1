package provider

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/counttalita/ScamShield-sub000/internal/circuitbreaker"
	"github.com/counttalita/ScamShield-sub000/internal/metrics"
	"github.com/counttalita/ScamShield-sub000/internal/riskcache"
	"github.com/counttalita/ScamShield-sub000/internal/traces"
)

// Aggregator fans risk checks out to all enabled providers and combines
// the results. A failed or timed-out provider is simply excluded from
// that round; there are no retries. With zero usable results the
// aggregator returns a fixed safe default, never an error: remote-lookup
// unavailability must not block a legitimate call.
type Aggregator struct {
	registry *Registry
	strategy Strategy
	breaker  *circuitbreaker.Breaker
	logger   *slog.Logger
}

// NewAggregator creates an aggregator over the given registry.
func NewAggregator(registry *Registry, strategy Strategy, breaker *circuitbreaker.Breaker, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		registry: registry,
		strategy: strategy,
		breaker:  breaker,
		logger:   logger,
	}
}

// Strategy returns the active consensus strategy.
func (a *Aggregator) Strategy() Strategy {
	return a.strategy
}

// CheckNumber queries every enabled provider concurrently and aggregates
// the settled results. The caller's context bounds the whole round, so a
// client disconnect or overall deadline aborts outstanding calls; each
// provider additionally gets its own configured timeout.
func (a *Aggregator) CheckNumber(ctx context.Context, number string) *Assessment {
	ctx, span := traces.StartSpan(ctx, "aggregator.check_number", traces.PhoneNumber(number))
	defer span.End()

	targets := a.registry.enabledTargets()
	if len(targets) == 0 {
		return a.safeDefault(number)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*Result
	)

	for _, t := range targets {
		if a.breaker != nil && !a.breaker.Allow(t.binding.Name) {
			a.logger.Debug("provider circuit open, skipping", "provider", t.binding.Name)
			continue
		}

		wg.Add(1)
		go func(t target) {
			defer wg.Done()

			result, err := a.callProvider(ctx, t, number)
			if err != nil {
				a.logger.Warn("provider call failed",
					"provider", t.binding.Name, "number", number, "error", err)
				return
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(t)
	}

	// All settled: wait for every call to succeed, fail, or time out.
	wg.Wait()

	if len(results) == 0 {
		a.logger.Info("all providers failed, using safe default", "number", number)
		return a.safeDefault(number)
	}

	assessment := a.aggregate(number, results)
	span.SetAttributes(traces.Action(assessment.Action))
	return assessment
}

// callProvider runs a single provider call bounded by the binding's
// timeout, recording stats, metrics, and breaker state either way.
func (a *Aggregator) callProvider(ctx context.Context, t target, number string) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.binding.Timeout)
	defer cancel()

	start := time.Now()
	result, err := t.checker.CheckNumber(callCtx, number)
	elapsed := time.Since(start)

	name := t.binding.Name
	a.registry.RecordCall(name, err == nil, elapsed)
	metrics.ProviderResponseTime.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		metrics.ProviderCallsTotal.WithLabelValues(name, "failure").Inc()
		if a.breaker != nil {
			a.breaker.RecordFailure(name)
		}
		return nil, err
	}

	metrics.ProviderCallsTotal.WithLabelValues(name, "success").Inc()
	if a.breaker != nil {
		a.breaker.RecordSuccess(name)
	}

	result.Provider = name
	result.Weight = t.binding.Weight
	result.ResponseTimeMs = elapsed.Milliseconds()
	return result, nil
}

// safeDefault is the fail-open verdict used when no provider answered.
func (a *Aggregator) safeDefault(number string) *Assessment {
	return &Assessment{
		Number:     number,
		RiskLevel:  riskcache.RiskLow,
		Confidence: 0,
		Action:     ActionAllow,
		AutoReject: false,
		Strategy:   a.strategy,
	}
}

// aggregate combines settled results with the configured strategy.
func (a *Aggregator) aggregate(number string, results []*Result) *Assessment {
	var assessment *Assessment
	switch a.strategy {
	case StrategyMajorityVote:
		assessment = a.majorityVote(number, results)
	case StrategyWeightedAverage:
		assessment = a.weightedAverage(number, results)
	default:
		assessment = a.highestRisk(number, results)
	}

	for _, r := range results {
		assessment.Sources = append(assessment.Sources, r.Provider)
	}
	assessment.IsScam = assessment.RiskLevel == riskcache.RiskHigh
	assessment.IsSpam = assessment.RiskLevel == riskcache.RiskMedium
	assessment.AutoReject = assessment.IsScam && assessment.Confidence > 0.8
	return assessment
}

// highestRisk picks the single most alarming verdict. Ties on risk level
// go to the provider with the lowest priority value (most trusted).
func (a *Aggregator) highestRisk(number string, results []*Result) *Assessment {
	winner := results[0]
	winnerPriority := a.priorityOf(winner.Provider)

	for _, r := range results[1:] {
		p := a.priorityOf(r.Provider)
		switch {
		case r.RiskLevel.Ordinal() > winner.RiskLevel.Ordinal():
			winner, winnerPriority = r, p
		case r.RiskLevel.Ordinal() == winner.RiskLevel.Ordinal() && p < winnerPriority:
			winner, winnerPriority = r, p
		}
	}

	return &Assessment{
		Number:        number,
		RiskLevel:     winner.RiskLevel,
		Confidence:    winner.Confidence,
		Action:        winner.Action,
		PrimarySource: winner.Provider,
		Strategy:      StrategyHighestRisk,
	}
}

// majorityVote tallies risk levels and actions independently and returns
// each plurality. The method computes no confidence of its own, so it is
// fixed at 0.5.
func (a *Aggregator) majorityVote(number string, results []*Result) *Assessment {
	riskVotes := make(map[riskcache.RiskLevel]int)
	actionVotes := make(map[string]int)
	for _, r := range results {
		riskVotes[r.RiskLevel]++
		actionVotes[r.Action]++
	}

	level := riskcache.RiskUnknown
	best := 0
	for candidate, votes := range riskVotes {
		if votes > best || (votes == best && candidate.Ordinal() > level.Ordinal()) {
			level, best = candidate, votes
		}
	}

	action := ActionAllow
	best = 0
	for candidate, votes := range actionVotes {
		if votes > best || (votes == best && candidate == ActionBlock) {
			action, best = candidate, votes
		}
	}

	return &Assessment{
		Number:     number,
		RiskLevel:  level,
		Confidence: 0.5,
		Action:     action,
		Strategy:   StrategyMajorityVote,
	}
}

// weightedAverage scores Σ(ordinal×weight)/Σ(weight) and maps the score
// onto a level: ≥2.5 HIGH/block, ≥1.5 MEDIUM/allow, else LOW/allow.
func (a *Aggregator) weightedAverage(number string, results []*Result) *Assessment {
	var weightedSum, totalWeight float64
	for _, r := range results {
		weight := r.Weight
		if weight <= 0 {
			weight = 1.0
		}
		weightedSum += float64(r.RiskLevel.Ordinal()) * weight
		totalWeight += weight
	}

	score := 0.0
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}

	level := riskcache.RiskLow
	action := ActionAllow
	switch {
	case score >= 2.5:
		level, action = riskcache.RiskHigh, ActionBlock
	case score >= 1.5:
		level = riskcache.RiskMedium
	}

	return &Assessment{
		Number:     number,
		RiskLevel:  level,
		Confidence: score / 3.0, // normalize the ordinal scale to [0,1]
		Action:     action,
		Strategy:   StrategyWeightedAverage,
	}
}

// priorityOf looks up a provider's configured priority.
// Unknown providers sort last.
func (a *Aggregator) priorityOf(name string) int {
	binding, err := a.registry.Get(name)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return binding.Priority
}
