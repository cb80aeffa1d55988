package app

import (
	"context"

	"agrisahayak.in/agri-sahayak/internal/cache"
	"agrisahayak.in/agri-sahayak/internal/market"
	"agrisahayak.in/agri-sahayak/internal/session"
)

type ProfileView struct {
	app *App
}

type ProfileDetails struct {
	Username     string
	StateID      int
	StateName    string
	DistrictID   int
	DistrictName string
}

// Details returns the verified profile with state and district names
// resolved through the cached reference lists. Unknown names are empty.
func (v *ProfileView) Details(ctx context.Context) (ProfileDetails, error) {
	a := v.app
	p, ok := a.deps.Session.Profile()
	if !ok {
		return ProfileDetails{}, session.ErrNotAuthenticated
	}
	d := ProfileDetails{Username: p.Username, StateID: p.StateID, DistrictID: p.DistrictID}

	ctx, cancel := a.scope(ctx)
	defer cancel()

	if states, err := cache.Fetch(ctx, a.deps.Cache, cache.NamespaceReference, cache.KeyStates, a.deps.Market.States); err == nil {
		for _, s := range states {
			if s.ID == p.StateID {
				d.StateName = s.Name
			}
		}
	}
	districts, err := cache.Fetch(ctx, a.deps.Cache, cache.NamespaceDistricts, p.StateID,
		func(ctx context.Context) ([]market.District, error) {
			return a.deps.Market.Districts(ctx, p.StateID)
		})
	if err == nil {
		for _, dist := range districts {
			if dist.ID == p.DistrictID {
				d.DistrictName = dist.Name
			}
		}
	}
	return d, nil
}

func (v *ProfileView) Update(ctx context.Context, u session.ProfileUpdate) error {
	ctx, cancel := v.app.scope(ctx)
	defer cancel()
	return v.app.deps.Session.UpdateProfile(ctx, u)
}
