package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/followup/internal/facility/domain"
	"go.uber.org/fx"
)

// Registry resolves facility identifiers to drivers. It is built once and never
// mutated, so lookups need no locking.
type Registry struct {
	drivers map[string]domain.Driver
}

type Params struct {
	fx.In

	Drivers []domain.Driver `group:"facility_drivers"`
}

func Provide(p Params) (*Registry, error) {
	return New(p.Drivers...)
}

// New fails on a driver with an empty identifier or on two drivers that
// normalize to the same key.
func New(drivers ...domain.Driver) (*Registry, error) {
	registry := &Registry{drivers: make(map[string]domain.Driver, len(drivers))}
	for _, driver := range drivers {
		if driver == nil {
			continue
		}
		key := Normalize(driver.Facility())
		if key == "" {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidFacility, driver.Facility())
		}
		if _, exists := registry.drivers[key]; exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateFacility, key)
		}
		registry.drivers[key] = driver
	}
	return registry, nil
}

// Normalize maps a facility name to its registry key, so "Las Cumbres" and
// "las-cumbres" resolve to the same driver.
func Normalize(facility string) string {
	return slug.Make(strings.TrimSpace(facility))
}

func (r *Registry) Resolve(facility string) (domain.Driver, error) {
	if r == nil {
		return nil, &domain.UnknownFacilityError{Facility: facility}
	}
	driver, ok := r.drivers[Normalize(facility)]
	if !ok {
		return nil, &domain.UnknownFacilityError{Facility: facility}
	}
	return driver, nil
}

func (r *Registry) Exists(facility string) bool {
	_, err := r.Resolve(facility)
	return err == nil
}

// Facilities lists the registered keys in sorted order.
func (r *Registry) Facilities() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.drivers))
	for key := range r.drivers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
