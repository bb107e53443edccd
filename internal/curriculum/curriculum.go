// Package curriculum holds the static level table: word ranges, grammar
// focus and allowed exercise kinds per level. It is loaded once at start
// and read-only afterwards.
package curriculum

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/cuentos-signos/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// Grammar feature identifiers used in levels.yaml.
const (
	FeaturePresent         = "presente"
	FeaturePreterite       = "preterito"
	FeatureImperfect       = "imperfecto"
	FeatureFuture          = "futuro"
	FeatureSubjectVerb     = "sujeto_verbo"
	FeatureSubjectVerbComp = "sujeto_verbo_complemento"
	FeatureCoordination    = "conectores_coordinantes"
	FeatureSubordination   = "conectores_subordinantes"
	FeatureTenseVariety    = "variedad_temporal"
)

var knownFeatures = map[string]bool{
	FeaturePresent:         true,
	FeaturePreterite:       true,
	FeatureImperfect:       true,
	FeatureFuture:          true,
	FeatureSubjectVerb:     true,
	FeatureSubjectVerbComp: true,
	FeatureCoordination:    true,
	FeatureSubordination:   true,
	FeatureTenseVariety:    true,
}

//go:embed levels.yaml
var defaultLevels []byte

type file struct {
	Version int                      `yaml:"version"`
	Levels  []models.CurriculumLevel `yaml:"levels"`
}

type Curriculum struct {
	version int
	levels  []models.CurriculumLevel // sorted, index = level-1
}

// Default returns the curriculum embedded in the binary. It panics if the
// embedded table is invalid, which tests guard against.
func Default() *Curriculum {
	c, err := Parse(defaultLevels)
	if err != nil {
		panic(fmt.Sprintf("embedded curriculum: %v", err))
	}
	return c
}

// Load reads a curriculum from path, or returns the embedded one when path
// is empty.
func Load(path string) (*Curriculum, error) {
	if path == "" {
		return Parse(defaultLevels)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Curriculum, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}
	levels := append([]models.CurriculumLevel(nil), f.Levels...)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })

	if err := validate(levels); err != nil {
		return nil, err
	}
	return &Curriculum{version: f.Version, levels: levels}, nil
}

func validate(levels []models.CurriculumLevel) error {
	if len(levels) == 0 {
		return fmt.Errorf("curriculum: no levels defined")
	}
	prevBand := -1
	for i, l := range levels {
		if l.Level != i+1 {
			return fmt.Errorf("curriculum: levels must run 1..N without gaps, found %d at position %d", l.Level, i+1)
		}
		order, ok := models.BandOrder[l.Band]
		if !ok {
			return fmt.Errorf("curriculum: level %d has unknown band %q", l.Level, l.Band)
		}
		if order < prevBand {
			return fmt.Errorf("curriculum: level %d band %q is lower than the previous level's", l.Level, l.Band)
		}
		prevBand = order
		if l.WordRange.Min <= 0 || l.WordRange.Min > l.WordRange.Max {
			return fmt.Errorf("curriculum: level %d has invalid word range %d-%d", l.Level, l.WordRange.Min, l.WordRange.Max)
		}
		if len(l.AllowedKinds) == 0 {
			return fmt.Errorf("curriculum: level %d allows no exercise kinds", l.Level)
		}
		for _, k := range l.AllowedKinds {
			if !models.ValidKinds[k] {
				return fmt.Errorf("curriculum: level %d allows unknown kind %q", l.Level, k)
			}
		}
		for _, f := range l.GrammarFeatures {
			if !knownFeatures[f] {
				return fmt.Errorf("curriculum: level %d has unknown grammar feature %q", l.Level, f)
			}
		}
	}
	return nil
}

func (c *Curriculum) Version() int { return c.version }

func (c *Curriculum) MaxLevel() int { return len(c.levels) }

func (c *Curriculum) Levels() []models.CurriculumLevel {
	return append([]models.CurriculumLevel(nil), c.levels...)
}

// Level returns the configuration for level n.
func (c *Curriculum) Level(n int) (models.CurriculumLevel, bool) {
	if n < 1 || n > len(c.levels) {
		return models.CurriculumLevel{}, false
	}
	return c.levels[n-1], true
}

// Clamp returns level n, or the first/last level when n is out of range.
func (c *Curriculum) Clamp(n int) models.CurriculumLevel {
	switch {
	case n < 1:
		return c.levels[0]
	case n > len(c.levels):
		return c.levels[len(c.levels)-1]
	}
	return c.levels[n-1]
}
