package admission

import (
	"context"
	"log"
	"strconv"
	"strings"

	"auroragrid.io/internal/grid"
	"auroragrid.io/internal/protocol"
)

// Center sentinel used when no stored position applies.
var (
	centerPosition = protocol.Vec3{X: 128, Y: 128, Z: 0}
	defaultLookAt  = protocol.Vec3{X: 1, Y: 0, Z: 0}
)

// Source is one ordered batch of candidate regions. Landing via any source
// after the primary clears the landmark flag and reports reason "safe".
type Source struct {
	Name        string // primary | default | fallback | safe | any
	Reason      string
	ViaLandmark bool
	Position    protocol.Vec3
	LookAt      protocol.Vec3
	Regions     []*grid.Region
}

// Candidates is the ordered candidate list handed to the provisioner.
type Candidates struct {
	Sources []Source
}

func (c *Candidates) Empty() bool {
	for _, s := range c.Sources {
		if len(s.Regions) > 0 {
			return false
		}
	}
	return true
}

// Gateway resolves regions on federated grids.
type Gateway interface {
	LinkRegion(ctx context.Context, gridHost, regionName string) (*grid.Region, error)
}

// Resolver turns a location specifier plus presence state into the ordered
// candidate list.
type Resolver struct {
	catalog *grid.Catalog
	gateway Gateway // nil when federation is not configured
	log     *log.Logger
}

func NewResolver(catalog *grid.Catalog, gateway Gateway, logger *log.Logger) *Resolver {
	return &Resolver{catalog: catalog, gateway: gateway, log: logger}
}

// Resolve builds the candidate list for a specifier. The generic fallback
// chain (default, fallback-nearest, safe, any) always trails the primary
// candidate so the provisioner can advance through it uniformly.
func (r *Resolver) Resolve(ctx context.Context, spec string, pres *Presence) (*Candidates, *protocol.LoginFailure) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = "last"
	}

	var primary *Source
	switch spec {
	case "home":
		if pres.HomeRegion != "" {
			if reg, ok := r.catalog.ByID(pres.HomeRegion); ok {
				primary = &Source{
					Name:     "primary",
					Reason:   protocol.ReasonHome,
					Position: pres.HomePos,
					LookAt:   pres.HomeLookAt,
					Regions:  []*grid.Region{reg},
				}
			}
		}
	case "last":
		if pres.LastRegion != "" {
			if reg, ok := r.catalog.ByID(pres.LastRegion); ok {
				primary = &Source{
					Name:     "primary",
					Reason:   protocol.ReasonLast,
					Position: pres.LastPos,
					LookAt:   pres.LastLookAt,
					Regions:  []*grid.Region{reg},
				}
			}
		}
	default:
		primary = r.resolveURI(ctx, spec)
	}

	ax, ay := r.anchor(primary, pres)

	var sources []Source
	if primary != nil {
		sources = append(sources, *primary)
	}
	appendChain := func(name string, regions []*grid.Region) {
		if len(regions) == 0 {
			return
		}
		sources = append(sources, Source{
			Name:     name,
			Reason:   protocol.ReasonSafe,
			Position: centerPosition,
			LookAt:   defaultLookAt,
			Regions:  regions,
		})
	}
	appendChain("default", r.catalog.Defaults())
	appendChain("fallback", r.catalog.FallbacksNear(ax, ay))
	appendChain("safe", r.catalog.Safe())
	appendChain("any", r.catalog.Any())

	cand := &Candidates{Sources: sources}
	if cand.Empty() {
		return nil, protocol.Failf(protocol.ErrDeadRegion, "no destination region could be resolved")
	}
	return cand, nil
}

// resolveURI handles the region-name[@grid-host]&x&y&z specifier class.
// Unresolvable names fall through to the generic chain (nil primary).
func (r *Resolver) resolveURI(ctx context.Context, spec string) *Source {
	name, host, pos := parseLocationURI(spec)
	if name == "" {
		return nil
	}

	var reg *grid.Region
	if host == "" {
		if local, ok := r.catalog.ByName(name); ok {
			reg = local
		}
	} else if r.gateway != nil {
		linked, err := r.gateway.LinkRegion(ctx, host, name)
		if err != nil {
			r.log.Printf("link region %q@%s: %v", name, host, err)
		} else {
			reg = linked
		}
	}
	if reg == nil {
		return nil
	}
	return &Source{
		Name:        "primary",
		Reason:      protocol.ReasonURL,
		ViaLandmark: true,
		Position:    pos,
		LookAt:      defaultLookAt,
		Regions:     []*grid.Region{reg},
	}
}

// anchor picks the grid coordinates the nearest-fallback ordering centers on.
func (r *Resolver) anchor(primary *Source, pres *Presence) (int, int) {
	if primary != nil && len(primary.Regions) > 0 {
		return primary.Regions[0].GridX, primary.Regions[0].GridY
	}
	if pres.LastRegion != "" {
		if reg, ok := r.catalog.ByID(pres.LastRegion); ok {
			return reg.GridX, reg.GridY
		}
	}
	return 0, 0
}

// parseLocationURI splits "region-name[@grid-host]&x&y&z". Missing or
// malformed coordinates default to the region center.
func parseLocationURI(spec string) (name, host string, pos protocol.Vec3) {
	spec = strings.TrimPrefix(spec, "uri:")
	parts := strings.Split(spec, "&")
	target := strings.TrimSpace(parts[0])
	if at := strings.LastIndex(target, "@"); at >= 0 {
		host = strings.TrimSpace(target[at+1:])
		target = strings.TrimSpace(target[:at])
	}
	name = target

	pos = centerPosition
	coords := [3]float64{centerPosition.X, centerPosition.Y, centerPosition.Z}
	for i := 0; i < 3 && i+1 < len(parts); i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return name, host, pos
		}
		coords[i] = v
	}
	pos = protocol.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}
	return name, host, pos
}
