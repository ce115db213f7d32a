package pairs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gomarkdown/markdown"

	"mcmcref/domain/core"
)

const manifestName = "pair.json"

// Pair is one reparametrization test pair: a deliberately pathological
// variant and a well-posed variant of the same model, tied to a reference.
type Pair struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	BadVariant          string   `json:"bad_variant"`
	GoodVariant         string   `json:"good_variant"`
	ReferenceModel      string   `json:"reference_model"`
	ExpectedPathologies []string `json:"expected_pathologies"`
	Difficulty          string   `json:"difficulty"`

	BadSpec  map[string]any `json:"-"`
	GoodSpec map[string]any `json:"-"`
	BadStan  string         `json:"-"`
	GoodStan string         `json:"-"`
	Data     map[string]any `json:"-"`
}

// DescriptionHTML renders the markdown description to HTML.
func (p *Pair) DescriptionHTML() string {
	return string(markdown.ToHTML([]byte(p.Description), nil, nil))
}

// List returns the sorted pair names found under the given roots.
func List(roots []string) ([]string, error) {
	names := make(map[string]bool)
	for _, dir := range roots {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to list pairs in %s: %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, entry.Name(), manifestName)); err == nil {
				names[entry.Name()] = true
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

// Load reads a pair bundle by name, searching the roots in order.
func Load(name string, roots []string) (*Pair, error) {
	dir, err := resolveDir(name, roots)
	if err != nil {
		return nil, err
	}

	var pair Pair
	if err := readJSON(filepath.Join(dir, manifestName), &pair); err != nil {
		return nil, err
	}

	badDir := filepath.Join(dir, pair.BadVariant)
	goodDir := filepath.Join(dir, pair.GoodVariant)

	if err := readJSON(filepath.Join(badDir, "model_spec.json"), &pair.BadSpec); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(goodDir, "model_spec.json"), &pair.GoodSpec); err != nil {
		return nil, err
	}

	badStan, err := os.ReadFile(filepath.Join(badDir, "model.stan"))
	if err != nil {
		return nil, fmt.Errorf("failed to read bad variant stan code: %w", err)
	}
	pair.BadStan = string(badStan)

	goodStan, err := os.ReadFile(filepath.Join(goodDir, "model.stan"))
	if err != nil {
		return nil, fmt.Errorf("failed to read good variant stan code: %w", err)
	}
	pair.GoodStan = string(goodStan)

	// Data: prefer the good variant's data.json, fall back to bad.
	for _, candidate := range []string{filepath.Join(goodDir, "data.json"), filepath.Join(badDir, "data.json")} {
		if _, err := os.Stat(candidate); err == nil {
			if err := readJSON(candidate, &pair.Data); err != nil {
				return nil, err
			}
			break
		}
	}

	return &pair, nil
}

func resolveDir(name string, roots []string) (string, error) {
	for _, dir := range roots {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(filepath.Join(candidate, manifestName)); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", core.ErrPairNotFound, name)
}

func readJSON(path string, out any) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
