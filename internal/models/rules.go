package models

// SpeciesLegend defines the YAML configuration for marker colours by species.
// Higher priority rules are evaluated first.
type SpeciesLegend struct {
	DefaultColor string        `json:"defaultColor" yaml:"default_color"`
	Rules        []SpeciesRule `json:"rules" yaml:"rules"`
}

// SpeciesRule maps a species pattern (case-insensitive, '*' wildcards) to a colour.
type SpeciesRule struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Color    string `json:"color" yaml:"color"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Priority int    `json:"priority" yaml:"priority"`
}
