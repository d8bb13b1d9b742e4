// Package i18n holds display text for the identifiers the game stores:
// achievements, investment categories and phases. English and Norwegian
// Bokmål catalogs are embedded.
package i18n

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"

	"phaseout.no/internal/sim/achievements"
	"phaseout.no/internal/sim/game"
)

const Fallback = "en"

//go:embed locales/*.po
var locales embed.FS

type Catalog struct {
	po map[string]*gotext.Po
}

// Load parses every embedded catalog.
func Load() (*Catalog, error) {
	ents, err := locales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: %w", err)
	}
	c := &Catalog{po: map[string]*gotext.Po{}}
	for _, e := range ents {
		lang, ok := strings.CutSuffix(e.Name(), ".po")
		if !ok {
			continue
		}
		b, err := locales.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", e.Name(), err)
		}
		po := gotext.NewPo()
		po.Parse(b)
		c.po[lang] = po
	}
	if _, ok := c.po[Fallback]; !ok {
		return nil, fmt.Errorf("i18n: missing %s catalog", Fallback)
	}
	return c, nil
}

// Locales lists the loaded languages.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.po))
	for k := range c.po {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Match picks the best loaded locale for an Accept-Language style value
// ("nb-NO,nb;q=0.9,en;q=0.8"). Quality weights are ignored; order wins.
func (c *Catalog) Match(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		if tag == "" {
			continue
		}
		if tag == "no" || strings.HasPrefix(tag, "nn") {
			tag = "nb"
		}
		base, _, _ := strings.Cut(tag, "-")
		if _, ok := c.po[base]; ok {
			return base
		}
	}
	return Fallback
}

// T translates key, falling back to English and then to the key itself.
func (c *Catalog) T(lang, key string) string {
	if po, ok := c.po[lang]; ok {
		if s := po.Get(key); s != key {
			return s
		}
	}
	if lang != Fallback {
		if s := c.po[Fallback].Get(key); s != key {
			return s
		}
	}
	return key
}

type Achievement struct {
	ID          achievements.ID `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Rule        string          `json:"rule"`
}

func (c *Catalog) Achievement(lang string, d achievements.Def) Achievement {
	return Achievement{
		ID:          d.ID,
		Name:        c.T(lang, "achievement."+string(d.ID)+".name"),
		Description: c.T(lang, "achievement."+string(d.ID)+".desc"),
		Rule:        d.Rule,
	}
}

func (c *Catalog) Category(lang string, cat game.Category) string {
	return c.T(lang, "category."+string(cat))
}

func (c *Catalog) Phase(lang string, p game.Phase) string {
	return c.T(lang, "phase."+string(p))
}
