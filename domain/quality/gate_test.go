package quality

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcmcref/domain/core"
	"mcmcref/domain/diagnostics"
)

func healthyDiagnostics() map[string]diagnostics.Result {
	return map[string]diagnostics.Result{
		"mu":  {Rhat: 1.001, ESSBulk: 3500, ESSTail: 3200},
		"tau": {Rhat: 1.004, ESSBulk: 2800, ESSTail: 2600},
	}
}

func TestComputeChecks_DrawBudget(t *testing.T) {
	checks := ComputeChecks(10, 1000, healthyDiagnostics(), DefaultPolicy())
	assert.True(t, checks[CheckNDrawsIs10K])

	checks = ComputeChecks(4, 2000, healthyDiagnostics(), DefaultPolicy())
	assert.False(t, checks[CheckNDrawsIs10K])
}

func TestComputeChecks_ChainCount(t *testing.T) {
	checks := ComputeChecks(1, 10000, healthyDiagnostics(), DefaultPolicy())
	assert.False(t, checks[CheckNChainsGte4])

	checks = ComputeChecks(4, 2500, healthyDiagnostics(), DefaultPolicy())
	assert.True(t, checks[CheckNChainsGte4])
}

func TestComputeChecks_PerParameterThresholds(t *testing.T) {
	diag := healthyDiagnostics()
	diag["theta"] = diagnostics.Result{Rhat: 1.02, ESSBulk: 350, ESSTail: 900}

	checks := ComputeChecks(4, 2500, diag, DefaultPolicy())

	// A single bad parameter fails the corpus-wide check.
	assert.False(t, checks[CheckESSAbove400])
	assert.False(t, checks[CheckRhatBelow1_01])
}

func TestComputeChecks_NaNDiagnosticsFail(t *testing.T) {
	diag := map[string]diagnostics.Result{
		"mu": {Rhat: math.NaN(), ESSBulk: math.NaN(), ESSTail: math.NaN()},
	}

	checks := ComputeChecks(1, 10000, diag, DefaultPolicy())

	assert.False(t, checks[CheckESSAbove400])
	assert.False(t, checks[CheckRhatBelow1_01])
}

func TestEnforce_AllPassing(t *testing.T) {
	checks := ComputeChecks(4, 2500, healthyDiagnostics(), DefaultPolicy())
	require.NoError(t, Enforce(checks))
}

func TestEnforce_NamesFailingChecks(t *testing.T) {
	checks := Checks{
		CheckNDrawsIs10K:   false,
		CheckNChainsGte4:   true,
		CheckESSAbove400:   false,
		CheckRhatBelow1_01: true,
	}

	err := Enforce(checks)
	require.Error(t, err)

	var qcf *core.QualityCheckFailure
	require.True(t, errors.As(err, &qcf))
	assert.ElementsMatch(t, []string{CheckNDrawsIs10K, CheckESSAbove400}, qcf.Failures)
	assert.Contains(t, err.Error(), CheckNDrawsIs10K)
	assert.Contains(t, err.Error(), CheckESSAbove400)
	assert.NotContains(t, err.Error(), CheckNChainsGte4)
}

func TestPolicyOverrides(t *testing.T) {
	policy := DefaultPolicy()
	policy.DrawBudget = 4000

	checks := ComputeChecks(4, 1000, healthyDiagnostics(), policy)
	assert.True(t, checks[CheckNDrawsIs10K])
}
