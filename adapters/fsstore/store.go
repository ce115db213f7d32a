package fsstore

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"mcmcref/domain/core"
	"mcmcref/domain/draws"
	"mcmcref/ports"
)

const (
	drawsSuffix = ".draws.csv"
	metaSuffix  = ".meta.json"
)

// root is one corpus root on disk with the canonical subdirectory layout.
type root struct {
	path      string
	draws     string
	meta      string
	pairs     string
	stanData  string
	stanCode  string
	stanModel string
}

// Store is a layered filesystem corpus: an optional read-only packaged root
// consulted first, then a writable local root.
type Store struct {
	packaged *root
	local    *root
}

// New creates a store over the given local and packaged roots. Either may be
// empty; a root with none of the expected subdirectories resolves to nothing
// until written to.
func New(localRoot, packagedRoot string) *Store {
	return &Store{
		packaged: initRoot(packagedRoot),
		local:    initRoot(localRoot),
	}
}

// DefaultLocalRoot returns MCMC_REF_LOCAL_ROOT or ~/.mcmc-ref.
func DefaultLocalRoot() string {
	if env := os.Getenv("MCMC_REF_LOCAL_ROOT"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mcmc-ref"
	}
	return filepath.Join(home, ".mcmc-ref")
}

func initRoot(path string) *root {
	if path == "" {
		return nil
	}
	return &root{
		path:      path,
		draws:     filepath.Join(path, "draws"),
		meta:      filepath.Join(path, "meta"),
		pairs:     filepath.Join(path, "pairs"),
		stanData:  filepath.Join(path, "stan_data"),
		stanCode:  filepath.Join(path, "stan_code"),
		stanModel: filepath.Join(path, "stan_models"),
	}
}

func (s *Store) resolutionRoots() []*root {
	var roots []*root
	if s.packaged != nil {
		roots = append(roots, s.packaged)
	}
	if s.local != nil {
		roots = append(roots, s.local)
	}
	return roots
}

// ListModels returns the sorted union of model names across roots.
func (s *Store) ListModels() ([]string, error) {
	names := make(map[string]bool)
	for _, r := range s.resolutionRoots() {
		entries, err := os.ReadDir(r.draws)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to list %s: %w", r.draws, err)
		}
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), drawsSuffix) {
				names[strings.TrimSuffix(entry.Name(), drawsSuffix)] = true
			}
		}
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// OpenDraws loads a model's draws, applying the query's parameter and chain
// selection.
func (s *Store) OpenDraws(model string, query ports.DrawQuery) (*draws.Table, error) {
	path, err := s.resolve("draws", model+drawsSuffix, model, core.ErrModelNotFound)
	if err != nil {
		return nil, err
	}
	table, err := readDrawsCSV(path)
	if err != nil {
		return nil, err
	}
	table = table.FilterChains(query.Chains)
	return table.SelectParams(query.Params)
}

// ReadMeta loads a model's metadata record.
func (s *Store) ReadMeta(model string) (*ports.Metadata, error) {
	path, err := s.resolve("meta", model+metaSuffix, model, core.ErrModelNotFound)
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var meta ports.Metadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata %s: %w", path, err)
	}
	return &meta, nil
}

// WriteDraws persists a draws table under the local root and returns the
// written path.
func (s *Store) WriteDraws(model string, table *draws.Table) (string, error) {
	if s.local == nil {
		return "", fmt.Errorf("store has no writable local root")
	}
	if err := os.MkdirAll(s.local.draws, 0o755); err != nil {
		return "", fmt.Errorf("failed to create draws dir: %w", err)
	}
	path := filepath.Join(s.local.draws, model+drawsSuffix)
	if err := writeDrawsCSV(path, table); err != nil {
		return "", err
	}
	return path, nil
}

// WriteMeta persists a metadata record under the local root and returns the
// written path.
func (s *Store) WriteMeta(model string, meta *ports.Metadata) (string, error) {
	if s.local == nil {
		return "", fmt.Errorf("store has no writable local root")
	}
	if err := os.MkdirAll(s.local.meta, 0o755); err != nil {
		return "", fmt.Errorf("failed to create meta dir: %w", err)
	}
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	path := filepath.Join(s.local.meta, model+metaSuffix)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	return path, nil
}

// ReadStanData loads the Stan data JSON bundled with a reference model.
func (s *Store) ReadStanData(model string) (map[string]any, error) {
	path, err := s.resolve("stan_data", model+".data.json", model, core.ErrStanDataNotFound)
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stan data: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to decode stan data %s: %w", path, err)
	}
	return data, nil
}

// ReadStanCode loads the Stan program for a reference model, checking the
// stan_code directory first and falling back to stan_models.
func (s *Store) ReadStanCode(model string) (string, error) {
	for _, r := range s.resolutionRoots() {
		for _, dir := range []string{r.stanCode, r.stanModel} {
			path := filepath.Join(dir, model+".stan")
			if _, err := os.Stat(path); err == nil {
				code, err := os.ReadFile(path)
				if err != nil {
					return "", fmt.Errorf("failed to read stan code: %w", err)
				}
				return string(code), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", core.ErrStanCodeNotFound, model)
}

// PairRoots returns the pairs directories to search, local before packaged.
func (s *Store) PairRoots() []string {
	var dirs []string
	if s.local != nil {
		dirs = append(dirs, s.local.pairs)
	}
	if s.packaged != nil {
		dirs = append(dirs, s.packaged.pairs)
	}
	return dirs
}

func (s *Store) resolve(subdir, filename, model string, notFound error) (string, error) {
	for _, r := range s.resolutionRoots() {
		path := filepath.Join(r.path, subdir, filename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", notFound, model)
}

func readDrawsCSV(path string) (*draws.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open draws: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read draws header: %w", err)
	}

	chainCol, drawCol := -1, -1
	var params []string
	paramCols := make(map[string]int)
	for i, name := range header {
		switch name {
		case draws.ColChain:
			chainCol = i
		case draws.ColDraw:
			drawCol = i
		default:
			params = append(params, name)
			paramCols[name] = i
		}
	}
	if chainCol < 0 || drawCol < 0 {
		return nil, fmt.Errorf("draws file %s missing chain/draw columns", path)
	}

	table := draws.NewTable(params)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read draws row in %s: %w", path, err)
		}
		chain, err := strconv.Atoi(record[chainCol])
		if err != nil {
			return nil, fmt.Errorf("invalid chain index in %s: %w", path, err)
		}
		draw, err := strconv.Atoi(record[drawCol])
		if err != nil {
			return nil, fmt.Errorf("invalid draw index in %s: %w", path, err)
		}
		values := make(map[string]float64, len(params))
		for _, p := range params {
			v, err := strconv.ParseFloat(record[paramCols[p]], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value for %s in %s: %w", p, path, err)
			}
			values[p] = v
		}
		if err := table.AppendRow(chain, draw, values); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func writeDrawsCSV(path string, table *draws.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create draws file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{draws.ColChain, draws.ColDraw}, table.Params...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write draws header: %w", err)
	}
	for i := 0; i < table.NumRows(); i++ {
		record := make([]string, 0, len(header))
		record = append(record, strconv.Itoa(table.Chain[i]), strconv.Itoa(table.Draw[i]))
		for _, p := range table.Params {
			record = append(record, strconv.FormatFloat(table.Values[p][i], 'g', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write draws row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush draws file: %w", err)
	}
	return nil
}
