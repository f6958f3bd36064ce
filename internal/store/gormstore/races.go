package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (store *Store) ListRaces(ctx context.Context, activeOnly bool) ([]loppet.Race, error) {
	scope := store.db.WithContext(ctx).Model(&Race{})
	if activeOnly {
		scope = scope.Where("active = ?", true)
	}
	var rows []Race
	if err := scope.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectRace, errorCodeList, err)
	}
	return mapRaces(rows)
}

func (store *Store) ListUpcomingRaces(ctx context.Context, from time.Time) ([]loppet.Race, error) {
	var rows []Race
	err := store.db.WithContext(ctx).
		Where("active = ? AND date >= ?", true, from.UTC()).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectRace, errorCodeList, err)
	}
	return mapRaces(rows)
}

func (store *Store) GetRace(ctx context.Context, raceID loppet.RaceID) (loppet.Race, error) {
	var row Race
	err := store.db.WithContext(ctx).
		Where("race_id = ?", raceID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loppet.Race{}, wrapStoreError(errorSubjectRace, errorCodeGet, loppet.ErrRaceNotFound)
		}
		return loppet.Race{}, wrapStoreError(errorSubjectRace, errorCodeGet, err)
	}
	return mapRace(row)
}

// UpsertRace keys on (name, date) so reseeding stays idempotent.
func (store *Store) UpsertRace(ctx context.Context, race loppet.Race) error {
	row := Race{
		RaceID:      race.ID.String(),
		Name:        race.Name,
		Date:        race.Date.UTC(),
		Location:    race.Location,
		Description: race.Description,
		Active:      race.Active,
		CreatedAt:   time.Now().UTC(),
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"location", "description", "active"}),
		}).
		Create(&row).Error
	if err != nil {
		return wrapStoreError(errorSubjectRace, errorCodeUpsert, err)
	}
	return nil
}

func mapRaces(rows []Race) ([]loppet.Race, error) {
	races := make([]loppet.Race, 0, len(rows))
	for _, row := range rows {
		race, err := mapRace(row)
		if err != nil {
			return nil, err
		}
		races = append(races, race)
	}
	return races, nil
}

func mapRace(row Race) (loppet.Race, error) {
	raceID, err := loppet.NewRaceID(row.RaceID)
	if err != nil {
		return loppet.Race{}, wrapStoreError(errorSubjectRace, errorCodeInvalid, err)
	}
	return loppet.Race{
		ID:          raceID,
		Name:        row.Name,
		Date:        row.Date,
		Location:    row.Location,
		Description: row.Description,
		Active:      row.Active,
	}, nil
}
