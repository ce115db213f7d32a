package quality

import (
	"mcmcref/domain/core"
	"mcmcref/domain/diagnostics"
)

// Check names persisted alongside converted draws as provenance.
const (
	CheckNDrawsIs10K   = "ndraws_is_10k"
	CheckNChainsGte4   = "nchains_is_gte_4"
	CheckESSAbove400   = "ess_above_400"
	CheckRhatBelow1_01 = "rhat_below_1_01"
)

// Policy holds the corpus-wide gating thresholds. These are conventions, not
// algorithmic necessities; hosts may adjust them without touching the math.
type Policy struct {
	MinChains  int
	DrawBudget int
	MinESSBulk float64
	MaxRhat    float64
}

// DefaultPolicy is the production gating policy for reference corpora.
func DefaultPolicy() Policy {
	return Policy{
		MinChains:  diagnostics.DefaultMinChains,
		DrawBudget: 10_000,
		MinESSBulk: 400,
		MaxRhat:    1.01,
	}
}

// Checks maps check name to outcome. Immutable once computed.
type Checks map[string]bool

// Failing returns the names of all failing checks, unsorted.
func (c Checks) Failing() []string {
	var failed []string
	for name, ok := range c {
		if !ok {
			failed = append(failed, name)
		}
	}
	return failed
}

// ComputeChecks evaluates the gating checklist for one conversion job from
// raw counts and all per-parameter diagnostics.
func ComputeChecks(nChains, nDrawsPerChain int, diag map[string]diagnostics.Result, policy Policy) Checks {
	essOK := true
	rhatOK := true
	for _, result := range diag {
		if !(result.ESSBulk > policy.MinESSBulk) {
			essOK = false
		}
		if !(result.Rhat < policy.MaxRhat) {
			rhatOK = false
		}
	}
	return Checks{
		CheckNDrawsIs10K:   nChains*nDrawsPerChain == policy.DrawBudget,
		CheckNChainsGte4:   nChains >= policy.MinChains,
		CheckESSAbove400:   essOK,
		CheckRhatBelow1_01: rhatOK,
	}
}

// Enforce turns any failing check into a hard failure. Callers that opted
// into force mode skip this call; the checks are still persisted so the
// metadata accurately records the violations.
func Enforce(checks Checks) error {
	failed := checks.Failing()
	if len(failed) > 0 {
		return &core.QualityCheckFailure{Failures: failed}
	}
	return nil
}
