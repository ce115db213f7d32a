package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcmcref/adapters/fsstore"
	"mcmcref/domain/core"
	"mcmcref/domain/quality"
	"mcmcref/ports"
)

type fakeRegistry struct {
	records []*ports.ConversionRecord
	fail    bool
}

func (r *fakeRegistry) Create(_ context.Context, record *ports.ConversionRecord) error {
	if r.fail {
		return errors.New("registry down")
	}
	r.records = append(r.records, record)
	return nil
}

func (r *fakeRegistry) GetByModel(_ context.Context, model string) (*ports.ConversionRecord, error) {
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].Model == model {
			return r.records[i], nil
		}
	}
	return nil, core.ErrModelNotFound
}

func (r *fakeRegistry) List(_ context.Context, _, _ int) ([]*ports.ConversionRecord, error) {
	return r.records, nil
}

// writeDrawsCSV writes a fixture with nChains chains of nDraws constant draws
// per parameter. Constant chains diagnose cleanly: rhat 1.0 and maximal ESS.
func writeDrawsCSV(t *testing.T, nChains, nDraws int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("chain,draw,mu,tau\n")
	for chain := 0; chain < nChains; chain++ {
		for draw := 0; draw < nDraws; draw++ {
			fmt.Fprintf(&b, "%d,%d,1.5,0.5\n", chain, draw)
		}
	}
	path := filepath.Join(t.TempDir(), "fixture.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestConvertFile_PassingModel(t *testing.T) {
	store := fsstore.New(t.TempDir(), "")
	registry := &fakeRegistry{}
	svc := NewConvertService(store, registry, quality.DefaultPolicy(), nil)

	input := writeDrawsCSV(t, 4, 2500)
	result, err := svc.ConvertFile(context.Background(), input, "demo", false)
	require.NoError(t, err)

	assert.FileExists(t, result.DrawsPath)
	assert.FileExists(t, result.MetaPath)

	meta := result.Meta
	assert.Equal(t, "demo", meta.Model)
	assert.Equal(t, 4, meta.NChains)
	assert.Equal(t, 2500, meta.NDrawsPerChain)
	assert.NotEmpty(t, meta.ConversionID)
	for _, check := range []string{
		quality.CheckNDrawsIs10K,
		quality.CheckNChainsGte4,
		quality.CheckESSAbove400,
		quality.CheckRhatBelow1_01,
	} {
		assert.True(t, meta.Checks[check], check)
	}
	assert.InDelta(t, 1.0, float64(meta.Diagnostics["mu"].Rhat), 1e-12)
	assert.InDelta(t, 10_000, float64(meta.Diagnostics["mu"].ESSBulk), 1e-9)

	// The conversion lands in the registry with the same id.
	require.Len(t, registry.records, 1)
	assert.Equal(t, meta.ConversionID, registry.records[0].ID.String())
	assert.False(t, registry.records[0].Forced)

	// And round-trips through the store.
	got, err := store.ReadMeta("demo")
	require.NoError(t, err)
	assert.Equal(t, meta.Checks, got.Checks)
}

func TestConvertFile_FailingModelRejected(t *testing.T) {
	store := fsstore.New(t.TempDir(), "")
	svc := NewConvertService(store, nil, quality.DefaultPolicy(), nil)

	input := writeDrawsCSV(t, 4, 10)
	_, err := svc.ConvertFile(context.Background(), input, "short-run", false)
	require.Error(t, err)

	var qcf *core.QualityCheckFailure
	require.True(t, errors.As(err, &qcf))
	assert.Contains(t, qcf.Failures, quality.CheckNDrawsIs10K)
	assert.Contains(t, qcf.Failures, quality.CheckESSAbove400)
	assert.NotContains(t, qcf.Failures, quality.CheckRhatBelow1_01)

	// Nothing was persisted.
	_, err = store.ReadMeta("short-run")
	assert.True(t, errors.Is(err, core.ErrModelNotFound))
}

func TestConvertFile_ForceBypassesGate(t *testing.T) {
	store := fsstore.New(t.TempDir(), "")
	registry := &fakeRegistry{}
	svc := NewConvertService(store, registry, quality.DefaultPolicy(), nil)

	// A single short chain: diagnostics degrade to NaN, every check fails,
	// and the conversion still lands with the failures on record.
	input := writeDrawsCSV(t, 1, 10)
	result, err := svc.ConvertFile(context.Background(), input, "pathological", true)
	require.NoError(t, err)

	meta := result.Meta
	assert.False(t, meta.Checks[quality.CheckNChainsGte4])
	assert.False(t, meta.Checks[quality.CheckESSAbove400])
	assert.True(t, math.IsNaN(float64(meta.Diagnostics["mu"].Rhat)))

	require.Len(t, registry.records, 1)
	assert.True(t, registry.records[0].Forced)

	// NaN diagnostics survive the metadata round-trip.
	got, err := store.ReadMeta("pathological")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(float64(got.Diagnostics["mu"].Rhat)))
}

func TestConvertFile_RegistryOutageIsNonFatal(t *testing.T) {
	store := fsstore.New(t.TempDir(), "")
	svc := NewConvertService(store, &fakeRegistry{fail: true}, quality.DefaultPolicy(), nil)

	input := writeDrawsCSV(t, 4, 2500)
	result, err := svc.ConvertFile(context.Background(), input, "demo", false)
	require.NoError(t, err)
	assert.FileExists(t, result.MetaPath)
}

func TestConvertFile_UnsupportedInput(t *testing.T) {
	svc := NewConvertService(fsstore.New(t.TempDir(), ""), nil, quality.DefaultPolicy(), nil)
	_, err := svc.ConvertFile(context.Background(), "draws.parquet", "demo", false)
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
}
