package loppet

import (
	"context"
	"fmt"
	"time"
)

// RaceService serves read-mostly race reference data.
type RaceService struct {
	store Store
	nowFn func() time.Time
}

// NewRaceService wires a RaceService.
func NewRaceService(store Store, now func() time.Time) (*RaceService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	return &RaceService{store: store, nowFn: now}, nil
}

// List returns the active races.
func (service *RaceService) List(ctx context.Context) ([]Race, error) {
	return service.store.ListRaces(ctx, true)
}

// Upcoming returns active races on or after today, soonest first.
func (service *RaceService) Upcoming(ctx context.Context) ([]Race, error) {
	return service.store.ListUpcomingRaces(ctx, service.nowFn())
}

// Get fetches a race by id.
func (service *RaceService) Get(ctx context.Context, raceID RaceID) (Race, error) {
	return service.store.GetRace(ctx, raceID)
}
