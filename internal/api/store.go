package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/LoneStarCivic/LSC-Backend/internal/db"
)

// Store is the read surface the handlers depend on, kept narrow so tests
// can swap in a fake without a database.
type Store interface {
	Runs() ([]Run, error)
	LatestRun() (*Run, error)
	Compositions(runID uuid.UUID, districtType, boundary string, districts []int64) ([]DistrictComposition, error)
	Deltas(runID uuid.UUID, districtType string, districts []int64) ([]RedistrictingDelta, error)
	Turnout(runID uuid.UUID, districtType, boundary string) ([]DistrictTurnout, error)
	Voter(runID uuid.UUID, vuid int64) (*VoterAssignment, error)
}

// DBStore serves the Store interface from the shared gorm handle.
type DBStore struct{}

func (DBStore) Runs() ([]Run, error) {
	var runs []Run
	if err := db.DB.Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("fetching runs: %w", err)
	}
	return runs, nil
}

func (DBStore) LatestRun() (*Run, error) {
	var run Run
	if err := db.DB.Order("created_at DESC").First(&run).Error; err != nil {
		return nil, fmt.Errorf("fetching latest run: %w", err)
	}
	return &run, nil
}

func (DBStore) Compositions(runID uuid.UUID, districtType, boundary string, districts []int64) ([]DistrictComposition, error) {
	q := db.DB.Where("run_id = ? AND district_type = ?", runID, districtType)
	if boundary != "" {
		q = q.Where("boundary = ?", boundary)
	}
	if len(districts) > 0 {
		q = q.Where("district = ANY(?)", pq.Array(districts))
	}
	var rows []DistrictComposition
	if err := q.Order("boundary, district").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetching compositions: %w", err)
	}
	return rows, nil
}

func (DBStore) Deltas(runID uuid.UUID, districtType string, districts []int64) ([]RedistrictingDelta, error) {
	q := db.DB.Where("run_id = ? AND district_type = ?", runID, districtType)
	if len(districts) > 0 {
		q = q.Where("district = ANY(?)", pq.Array(districts))
	}
	var rows []RedistrictingDelta
	if err := q.Order("district").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetching deltas: %w", err)
	}
	return rows, nil
}

func (DBStore) Turnout(runID uuid.UUID, districtType, boundary string) ([]DistrictTurnout, error) {
	q := db.DB.Where("run_id = ? AND district_type = ?", runID, districtType)
	if boundary != "" {
		q = q.Where("boundary = ?", boundary)
	}
	var rows []DistrictTurnout
	if err := q.Order("boundary, district").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetching turnout: %w", err)
	}
	return rows, nil
}

func (DBStore) Voter(runID uuid.UUID, vuid int64) (*VoterAssignment, error) {
	var va VoterAssignment
	if err := db.DB.First(&va, "run_id = ? AND vuid = ?", runID, vuid).Error; err != nil {
		return nil, fmt.Errorf("fetching voter %d: %w", vuid, err)
	}
	return &va, nil
}
