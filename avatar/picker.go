package avatar

import (
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
)

// DefaultBaseURL is the public DiceBear endpoint.
const DefaultBaseURL = "https://api.dicebear.com/9.x"

// Picker selects catalog entries and renders their URLs.
type Picker struct {
	base string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker returns a Picker rendering against base. A nil rng uses the
// package-level source.
func NewPicker(base string, rng *rand.Rand) *Picker {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Picker{base: base, rng: rng}
}

func (p *Picker) intN(n int) int {
	if p.rng == nil {
		return rand.IntN(n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

// PickRandom returns a uniformly chosen catalog entry.
func (p *Picker) PickRandom() Config {
	c := catalog[p.intN(len(catalog))]
	return Config{Seed: c.Seed, Params: c.Params.clone()}
}

// URLFor renders the image URL for seed. When params is nil the catalog
// entry for seed supplies them; an unknown seed falls back to a random entry.
func (p *Picker) URLFor(seed string, params *Params) string {
	if params == nil {
		cfg, ok := Lookup(seed)
		if !ok {
			cfg = p.PickRandom()
		}
		return cfg.URL(p.base)
	}
	return Config{Seed: seed, Params: *params}.URL(p.base)
}

// BaseURL returns the image service root.
func (p *Picker) BaseURL() string {
	return p.base
}

// URL renders c against base. The query is sorted, so equal configs always
// produce identical URLs.
func (c Config) URL(base string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	style := c.Params.Style
	if style == "" {
		style = DefaultStyle
	}

	q := url.Values{}
	q.Set("seed", c.Seed)
	for k, v := range c.Params.Options {
		if k == "" || k == "seed" {
			continue
		}
		q.Set(k, v)
	}
	return base + "/" + url.PathEscape(style) + "/svg?" + q.Encode()
}
