package avatar

import (
	"maps"
	"slices"
)

// DefaultStyle is used when a Params value names no style.
const DefaultStyle = "adventurer"

// Params are the render options sent to the image service. Options keys are
// service query parameters such as "backgroundColor".
type Params struct {
	Style   string
	Options map[string]string
}

func (p Params) clone() Params {
	return Params{Style: p.Style, Options: maps.Clone(p.Options)}
}

// Config is one catalog entry.
type Config struct {
	Seed   string
	Params Params
}

var catalog = []Config{
	{Seed: "felix", Params: Params{Style: "adventurer", Options: map[string]string{"backgroundColor": "b6e3f4"}}},
	{Seed: "aneka", Params: Params{Style: "adventurer", Options: map[string]string{"backgroundColor": "c0aede"}}},
	{Seed: "milo", Params: Params{Style: "adventurer", Options: map[string]string{"backgroundColor": "d1d4f9", "flip": "true"}}},
	{Seed: "luna", Params: Params{Style: "adventurer", Options: map[string]string{"backgroundColor": "ffd5dc"}}},
	{Seed: "oliver", Params: Params{Style: "avataaars", Options: map[string]string{"backgroundColor": "ffdfbf"}}},
	{Seed: "sasha", Params: Params{Style: "avataaars", Options: map[string]string{"backgroundColor": "b6e3f4", "accessoriesProbability": "0"}}},
	{Seed: "nova", Params: Params{Style: "avataaars", Options: map[string]string{"backgroundColor": "c0aede"}}},
	{Seed: "kai", Params: Params{Style: "avataaars", Options: map[string]string{"backgroundColor": "d1d4f9"}}},
	{Seed: "pepper", Params: Params{Style: "bottts", Options: map[string]string{"backgroundColor": "ffd5dc"}}},
	{Seed: "bolt", Params: Params{Style: "bottts", Options: map[string]string{"backgroundColor": "ffdfbf"}}},
	{Seed: "gizmo", Params: Params{Style: "bottts", Options: map[string]string{"backgroundColor": "b6e3f4", "rotate": "10"}}},
	{Seed: "pixel", Params: Params{Style: "pixel-art", Options: map[string]string{"backgroundColor": "c0aede"}}},
	{Seed: "river", Params: Params{Style: "pixel-art", Options: map[string]string{"backgroundColor": "d1d4f9"}}},
	{Seed: "sage", Params: Params{Style: "lorelei", Options: map[string]string{"backgroundColor": "ffd5dc"}}},
	{Seed: "willow", Params: Params{Style: "lorelei", Options: map[string]string{"backgroundColor": "ffdfbf"}}},
	{Seed: "jasper", Params: Params{Style: "micah", Options: map[string]string{"backgroundColor": "b6e3f4"}}},
	{Seed: "hazel", Params: Params{Style: "micah", Options: map[string]string{"backgroundColor": "c0aede", "mouth": "smile"}}},
	{Seed: "orion", Params: Params{Style: "notionists", Options: map[string]string{"backgroundColor": "d1d4f9"}}},
	{Seed: "ivy", Params: Params{Style: "fun-emoji", Options: map[string]string{"backgroundColor": "ffd5dc"}}},
	{Seed: "rowan", Params: Params{Style: "thumbs", Options: map[string]string{"backgroundColor": "ffdfbf"}}},
}

// Catalog returns a copy of the fixed catalog.
func Catalog() []Config {
	out := make([]Config, len(catalog))
	for i, c := range catalog {
		out[i] = Config{Seed: c.Seed, Params: c.Params.clone()}
	}
	return out
}

// Lookup finds the catalog entry for seed.
func Lookup(seed string) (Config, bool) {
	i := slices.IndexFunc(catalog, func(c Config) bool { return c.Seed == seed })
	if i < 0 {
		return Config{}, false
	}
	return Config{Seed: catalog[i].Seed, Params: catalog[i].Params.clone()}, true
}
