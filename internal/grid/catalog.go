package grid

import (
	"sort"
	"strings"
	"sync/atomic"
)

// Safety flag values. The flag is advisory: it biases candidate ordering for
// the lifetime of the process and is never persisted.
const (
	SafetyUntested int32 = 0
	SafetySafe     int32 = 1
	SafetyUnsafe   int32 = 2
)

// Region is one simulation-host region known to the grid.
type Region struct {
	ID      string
	Name    string
	GridX   int
	GridY   int
	BaseURL string

	Default  bool
	Fallback bool

	safety atomic.Int32
}

// Handle is the stable 64-bit locator derived from grid coordinates.
func (r *Region) Handle() uint64 {
	return uint64(r.GridX*256)<<32 | uint64(r.GridY*256)
}

func (r *Region) Safety() int32 { return r.safety.Load() }
func (r *Region) MarkSafe()     { r.safety.Store(SafetySafe) }
func (r *Region) MarkUnsafe()   { r.safety.Store(SafetyUnsafe) }

// Catalog is the process-wide region directory. The region set is fixed at
// startup; only the per-region safety flags mutate, atomically.
type Catalog struct {
	regions []*Region
	byID    map[string]*Region
	byName  map[string]*Region
}

func NewCatalog(regions []*Region) *Catalog {
	c := &Catalog{
		byID:   make(map[string]*Region, len(regions)),
		byName: make(map[string]*Region, len(regions)),
	}
	for _, r := range regions {
		c.regions = append(c.regions, r)
		c.byID[r.ID] = r
		c.byName[strings.ToLower(r.Name)] = r
	}
	sort.Slice(c.regions, func(i, j int) bool { return c.regions[i].ID < c.regions[j].ID })
	return c
}

func (c *Catalog) ByID(id string) (*Region, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// ByName resolves a region by exact name, case-insensitively.
func (c *Catalog) ByName(name string) (*Region, bool) {
	r, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// Defaults returns the grid-configured default regions in catalog order,
// regions marked unsafe pushed behind the rest.
func (c *Catalog) Defaults() []*Region {
	var out []*Region
	for _, r := range c.regions {
		if r.Default {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}

// FallbacksNear returns the grid-configured fallback regions ordered by
// squared grid distance from (x, y), unsafe regions last.
func (c *Catalog) FallbacksNear(x, y int) []*Region {
	var out []*Region
	for _, r := range c.regions {
		if r.Fallback {
			out = append(out, r)
		}
	}
	dist := func(r *Region) int {
		dx, dy := r.GridX-x, r.GridY-y
		return dx*dx + dy*dy
	}
	sort.SliceStable(out, func(i, j int) bool { return dist(out[i]) < dist(out[j]) })
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}

// Safe returns every region currently marked safe.
func (c *Catalog) Safe() []*Region {
	var out []*Region
	for _, r := range c.regions {
		if r.Safety() == SafetySafe {
			out = append(out, r)
		}
	}
	return out
}

// Any returns all regions, regions not marked unsafe first. This is the
// last-resort candidate source (the empty-name search).
func (c *Catalog) Any() []*Region {
	out := make([]*Region, len(c.regions))
	copy(out, c.regions)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i]) < rank(out[j])
	})
	return out
}

func rank(r *Region) int {
	switch r.Safety() {
	case SafetySafe:
		return 0
	case SafetyUntested:
		return 1
	default:
		return 2
	}
}

func (c *Catalog) All() []*Region {
	out := make([]*Region, len(c.regions))
	copy(out, c.regions)
	return out
}
