package diagnostics

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"mcmcref/domain/core"
)

// DefaultMinChains is the minimum chain count for which R-hat and ESS
// estimates are considered statistically reliable.
const DefaultMinChains = 4

// Result holds the convergence diagnostics for a single parameter.
type Result struct {
	Rhat    float64 `json:"rhat"`
	ESSBulk float64 `json:"ess_bulk"`
	ESSTail float64 `json:"ess_tail"`
}

// SplitRhat computes rank-normalized split R-hat with the folded variant and
// returns the max of both. The bulk variant catches location non-convergence,
// the folded (tail) variant catches scale non-convergence.
//
// Diagnostics are only valid for at least minChains independent chains
// (DefaultMinChains in production). Callers may lower minChains to 1 to
// bypass the guard; single-chain input then yields NaN instead of an error
// because between-chain variance is undefined.
func SplitRhat(chains [][]float64, minChains int) (float64, error) {
	if err := guardChains(chains, minChains); err != nil {
		return 0, err
	}
	if len(chains) < 2 {
		return math.NaN(), nil
	}

	z := rankNormalize(chains)
	rhatBulk := rhat(splitChains(z))

	zFolded := rankNormalize(foldChains(chains))
	rhatTail := rhat(splitChains(zFolded))

	return math.Max(rhatBulk, rhatTail), nil
}

// ESSBulk computes effective sample size on rank-normalized chains.
// Same precondition and single-chain NaN behavior as SplitRhat.
func ESSBulk(chains [][]float64, minChains int) (float64, error) {
	if err := guardChains(chains, minChains); err != nil {
		return 0, err
	}
	if len(chains) < 2 {
		return math.NaN(), nil
	}
	return ess(rankNormalize(chains)), nil
}

// ESSTail computes effective sample size on rank-normalized folded chains,
// exposing poor mixing in the distribution tails.
func ESSTail(chains [][]float64, minChains int) (float64, error) {
	if err := guardChains(chains, minChains); err != nil {
		return 0, err
	}
	if len(chains) < 2 {
		return math.NaN(), nil
	}
	return ess(rankNormalize(foldChains(chains))), nil
}

// Compute runs all three diagnostics for one parameter's chains.
func Compute(chains [][]float64, minChains int) (Result, error) {
	rhatVal, err := SplitRhat(chains, minChains)
	if err != nil {
		return Result{}, err
	}
	essB, err := ESSBulk(chains, minChains)
	if err != nil {
		return Result{}, err
	}
	essT, err := ESSTail(chains, minChains)
	if err != nil {
		return Result{}, err
	}
	return Result{Rhat: rhatVal, ESSBulk: essB, ESSTail: essT}, nil
}

func guardChains(chains [][]float64, minChains int) error {
	if minChains < 1 {
		return core.NewInvalidConfigurationError("min_chains", "must be >= 1")
	}
	if len(chains) < minChains {
		return &core.InsufficientChainsError{Required: minChains, Actual: len(chains)}
	}
	return nil
}

// splitChains halves every chain, dropping a trailing odd draw, so within-chain
// non-stationarity shows up as between-half variance.
func splitChains(chains [][]float64) [][]float64 {
	out := make([][]float64, 0, 2*len(chains))
	for _, chain := range chains {
		half := len(chain) / 2
		if half == 0 {
			continue
		}
		out = append(out, chain[:half], chain[half:2*half])
	}
	return out
}

// foldChains replaces every draw with its absolute deviation from the pooled
// median.
func foldChains(chains [][]float64) [][]float64 {
	var flat []float64
	for _, chain := range chains {
		flat = append(flat, chain...)
	}
	if len(flat) == 0 {
		return nil
	}
	med, err := stats.Median(flat)
	if err != nil {
		return nil
	}

	out := make([][]float64, len(chains))
	for i, chain := range chains {
		folded := make([]float64, len(chain))
		for j, v := range chain {
			folded[j] = math.Abs(v - med)
		}
		out[i] = folded
	}
	return out
}

// rankNormalize pools all draws across chains, assigns tie-averaged ranks,
// and maps rank r to the normal score Phi^-1((r - 0.5) / N). Per-chain draw
// order is preserved.
func rankNormalize(chains [][]float64) [][]float64 {
	type pooledDraw struct {
		value    float64
		chainIdx int
		drawIdx  int
	}

	var flat []pooledDraw
	for chainIdx, chain := range chains {
		for drawIdx, value := range chain {
			flat = append(flat, pooledDraw{value: value, chainIdx: chainIdx, drawIdx: drawIdx})
		}
	}
	n := len(flat)
	if n == 0 {
		return nil
	}

	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].value < flat[j].value
	})

	ranks := make([][]float64, len(chains))
	for i, chain := range chains {
		ranks[i] = make([]float64, len(chain))
	}

	// Assign ranks, averaging over tie runs so ranking is order-independent.
	i := 0
	for i < n {
		j := i + 1
		for j < n && flat[j].value == flat[i].value {
			j++
		}
		avgRank := float64(i+1+j) / 2.0
		for k := i; k < j; k++ {
			ranks[flat[k].chainIdx][flat[k].drawIdx] = avgRank
		}
		i = j
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	out := make([][]float64, len(chains))
	for chainIdx, chain := range chains {
		z := make([]float64, len(chain))
		for drawIdx := range chain {
			p := (ranks[chainIdx][drawIdx] - 0.5) / float64(n)
			z[drawIdx] = norm.Quantile(p)
		}
		out[chainIdx] = z
	}
	return out
}

// rhat computes the classic potential scale reduction on k chains truncated
// to their common minimum length. A zero within-chain variance returns 1
// when between-chain variance is also zero (identical constant chains) and
// +Inf otherwise (degenerate divergence signal).
func rhat(chains [][]float64) float64 {
	m := len(chains)
	if m < 2 {
		return math.NaN()
	}
	n := minLen(chains)
	if n < 2 {
		return math.NaN()
	}

	means := make([]float64, m)
	meanTotal := 0.0
	for i, chain := range chains {
		means[i] = mean(chain[:n])
		meanTotal += means[i]
	}
	meanTotal /= float64(m)

	varBetween := 0.0
	for _, mu := range means {
		d := mu - meanTotal
		varBetween += d * d
	}
	varBetween *= float64(n) / float64(m-1)

	varWithin := 0.0
	for _, chain := range chains {
		varWithin += sampleVariance(chain[:n])
	}
	varWithin /= float64(m)

	varHat := float64(n-1)/float64(n)*varWithin + varBetween/float64(n)
	if varWithin == 0 {
		if varBetween == 0 {
			return 1.0
		}
		return math.Inf(1)
	}
	return math.Sqrt(varHat / varWithin)
}

// ess computes effective sample size with the standard positive-autocorrelation
// truncation: lag sums stop at the first negative autocorrelation estimate so
// noisy negative lags cannot inflate the result.
func ess(chains [][]float64) float64 {
	m := len(chains)
	if m == 0 {
		return math.NaN()
	}
	n := minLen(chains)
	if n < 2 {
		return math.NaN()
	}

	truncated := make([][]float64, m)
	for i, chain := range chains {
		truncated[i] = chain[:n]
	}

	means := make([]float64, m)
	meanTotal := 0.0
	for i, chain := range truncated {
		means[i] = mean(chain)
		meanTotal += means[i]
	}
	meanTotal /= float64(m)

	varBetween := 0.0
	if m > 1 {
		for _, mu := range means {
			d := mu - meanTotal
			varBetween += d * d
		}
		varBetween *= float64(n) / float64(m-1)
	}

	varWithin := 0.0
	for _, chain := range truncated {
		varWithin += sampleVariance(chain)
	}
	varWithin /= float64(m)

	varHat := float64(n-1)/float64(n)*varWithin + varBetween/float64(n)
	if varHat == 0 {
		return float64(m * n)
	}

	rhoSum := 0.0
	for lag := 1; lag < n; lag++ {
		rho := autocorr(truncated, means, lag, varHat)
		if rho < 0 {
			break
		}
		rhoSum += rho
	}
	return float64(m*n) / (1 + 2*rhoSum)
}

// autocorr estimates the pooled lag-t autocorrelation: per-chain demeaned
// autocovariance with divisor (n - lag), averaged over chains and normalized
// by the pooled variance estimate.
func autocorr(chains [][]float64, means []float64, lag int, varHat float64) float64 {
	m := len(chains)
	n := minLen(chains)
	if varHat == 0 {
		return 0.0
	}
	covSum := 0.0
	for i, chain := range chains {
		mu := means[i]
		cov := 0.0
		for j := 0; j < n-lag; j++ {
			cov += (chain[j] - mu) * (chain[j+lag] - mu)
		}
		cov /= float64(n - lag)
		covSum += cov
	}
	return covSum / (float64(m) * varHat)
}

func minLen(chains [][]float64) int {
	n := math.MaxInt
	for _, chain := range chains {
		if len(chain) < n {
			n = len(chain)
		}
	}
	if n == math.MaxInt {
		return 0
	}
	return n
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleVariance(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0.0
	}
	mu := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mu
		sum += d * d
	}
	return sum / float64(n-1)
}
