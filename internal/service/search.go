package service

import (
	"sort"
	"strings"
	"time"

	"github.com/sakif/fitlog/internal/model"
)

// Archetype is one distinct thing the user has logged: a name with a fixed
// quantity and nutrition values, and how often it was logged.
type Archetype struct {
	Name     string   `json:"name"`
	Quantity *string  `json:"quantity"`
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Count    int      `json:"count"`
}

// archetypeKey groups entries. The name is compared case-insensitively;
// nil and zero are different values.
type archetypeKey struct {
	name     string
	quantity string
	hasQty   bool
	calories float64
	hasCal   bool
	protein  float64
	hasProt  bool
}

func keyOf(f model.Food) archetypeKey {
	k := archetypeKey{name: strings.ToLower(f.Name)}
	if f.Quantity != nil {
		k.quantity, k.hasQty = *f.Quantity, true
	}
	if f.Calories != nil {
		k.calories, k.hasCal = *f.Calories, true
	}
	if f.Protein != nil {
		k.protein, k.hasProt = *f.Protein, true
	}
	return k
}

// recency orders entries by when they were logged.
type recency struct {
	date    string
	created time.Time
}

func (r recency) after(o recency) bool {
	if r.date != o.date {
		return r.date > o.date
	}
	return r.created.After(o.created)
}

type spelling struct {
	count  int
	latest recency
}

type group struct {
	sample    model.Food
	count     int
	latest    recency
	spellings map[string]*spelling
}

// name is the most used spelling in the group; a tie goes to the one
// logged most recently.
func (g *group) name() string {
	var (
		best string
		top  *spelling
	)
	for name, sp := range g.spellings {
		switch {
		case top == nil,
			sp.count > top.count,
			sp.count == top.count && sp.latest.after(top.latest),
			sp.count == top.count && sp.latest == top.latest && name < best:
			best, top = name, sp
		}
	}
	return best
}

// rankArchetypes groups foods into archetypes and returns the limit most
// frequent. Ties go to the most recently logged archetype, then to the
// name in alphabetical order.
func rankArchetypes(foods []model.Food, limit int) []Archetype {
	groups := make(map[archetypeKey]*group)
	for _, f := range foods {
		k := keyOf(f)
		g, ok := groups[k]
		if !ok {
			g = &group{sample: f, spellings: make(map[string]*spelling)}
			groups[k] = g
		}
		r := recency{date: f.Date, created: f.CreatedAt}
		g.count++
		if g.count == 1 || r.after(g.latest) {
			g.latest = r
		}

		sp, ok := g.spellings[f.Name]
		if !ok {
			sp = &spelling{latest: r}
			g.spellings[f.Name] = sp
		}
		sp.count++
		if r.after(sp.latest) {
			sp.latest = r
		}
	}

	type ranked struct {
		Archetype
		latest recency
	}
	out := make([]ranked, 0, len(groups))
	for _, g := range groups {
		out = append(out, ranked{
			Archetype: Archetype{
				Name:     g.name(),
				Quantity: g.sample.Quantity,
				Calories: g.sample.Calories,
				Protein:  g.sample.Protein,
				Count:    g.count,
			},
			latest: g.latest,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.latest != b.latest {
			return a.latest.after(b.latest)
		}
		return a.Name < b.Name
	})

	if len(out) > limit {
		out = out[:limit]
	}
	result := make([]Archetype, len(out))
	for i := range out {
		result[i] = out[i].Archetype
	}
	return result
}
