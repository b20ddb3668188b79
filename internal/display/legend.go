package display

import (
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/fish-tracker/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultMarkerColor is used when no legend rule matches.
const DefaultMarkerColor = "#2A81CB"

// Legend resolves a marker colour for a species.
type Legend struct {
	defaultColor string
	rules        []models.SpeciesRule
}

// DefaultLegend colours every marker the same.
func DefaultLegend() *Legend {
	return NewLegend(models.SpeciesLegend{})
}

// NewLegend sorts rules by descending priority; ties keep file order.
func NewLegend(cfg models.SpeciesLegend) *Legend {
	rules := make([]models.SpeciesRule, len(cfg.Rules))
	copy(rules, cfg.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})

	def := strings.TrimSpace(cfg.DefaultColor)
	if def == "" {
		def = DefaultMarkerColor
	}
	return &Legend{defaultColor: def, rules: rules}
}

// ParseLegend reads a YAML species legend file.
func ParseLegend(filePath string) (*Legend, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseLegendFromReader(file)
}

// ParseLegendFromReader parses a legend from an io.Reader.
func ParseLegendFromReader(r io.Reader) (*Legend, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var cfg models.SpeciesLegend
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return NewLegend(cfg), nil
}

// ColorFor returns the colour of the highest priority rule matching species.
// Patterns are case-insensitive and may use '*' wildcards.
func (l *Legend) ColorFor(species string) string {
	if l == nil {
		return DefaultMarkerColor
	}
	name := strings.ToLower(strings.TrimSpace(species))
	for _, r := range l.rules {
		if matchSpecies(strings.ToLower(r.Pattern), name) {
			return r.Color
		}
	}
	return l.defaultColor
}

// Entries returns the rules in evaluation order, for the page legend.
func (l *Legend) Entries() []models.SpeciesRule {
	if l == nil {
		return nil
	}
	out := make([]models.SpeciesRule, len(l.rules))
	copy(out, l.rules)
	return out
}

// DefaultColor is the fallback colour.
func (l *Legend) DefaultColor() string {
	if l == nil {
		return DefaultMarkerColor
	}
	return l.defaultColor
}

func matchSpecies(pattern, name string) bool {
	if pattern == "" {
		return false
	}
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == name
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
