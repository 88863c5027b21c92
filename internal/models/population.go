// internal/models/population.go
package models

import (
	"fmt"
	"sort"
	"strings"

	apperrors "iluma-intelligence/internal/common/errors"
)

// Population is an immutable, id-indexed snapshot of scored business profiles.
// Profiles are held in ascending id order.
type Population struct {
	profiles []BusinessProfile
	byID     map[string]int
}

// NewPopulation copies profiles into a snapshot. Empty and duplicate ids are rejected.
func NewPopulation(profiles []BusinessProfile) (*Population, error) {
	sorted := make([]BusinessProfile, len(profiles))
	copy(sorted, profiles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[string]int, len(sorted))
	for i, p := range sorted {
		if strings.TrimSpace(p.ID) == "" {
			return nil, apperrors.NewValidationError("id", fmt.Sprintf("profile at position %d has an empty id", i))
		}
		if _, dup := byID[p.ID]; dup {
			return nil, apperrors.NewValidationError("id", fmt.Sprintf("duplicate profile id %q", p.ID))
		}
		byID[p.ID] = i
	}

	return &Population{profiles: sorted, byID: byID}, nil
}

func (p *Population) Len() int {
	if p == nil {
		return 0
	}
	return len(p.profiles)
}

// Get returns the profile with the given id.
func (p *Population) Get(id string) (BusinessProfile, bool) {
	if p == nil {
		return BusinessProfile{}, false
	}
	i, ok := p.byID[id]
	if !ok {
		return BusinessProfile{}, false
	}
	return p.profiles[i], true
}

// Profiles returns a copy of the profiles in ascending id order.
func (p *Population) Profiles() []BusinessProfile {
	if p == nil {
		return nil
	}
	out := make([]BusinessProfile, len(p.profiles))
	copy(out, p.profiles)
	return out
}

// Each calls fn for every profile in ascending id order without copying the slice.
func (p *Population) Each(fn func(BusinessProfile)) {
	if p == nil {
		return
	}
	for _, profile := range p.profiles {
		fn(profile)
	}
}
