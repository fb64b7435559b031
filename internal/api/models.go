package api

import (
	"time"

	"github.com/google/uuid"
)

// Run records one pipeline execution. All result tables hang off a run so
// repeated executions stay comparable.
type Run struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	VoterCount    int       `json:"voter_count"`
	MatchedPct    float64   `json:"matched_pct"`
	UsedML        bool      `json:"used_ml"`
	ModelAccuracy float64   `json:"model_accuracy"`
	ImputedVoters int       `json:"imputed_voters"`
	Notes         string    `json:"notes"`
}

func (Run) TableName() string {
	return "redistrict.runs"
}

// DistrictComposition is one district's party makeup under one boundary set,
// with its competitiveness rating.
type DistrictComposition struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	RunID        uuid.UUID `gorm:"type:uuid;not null;index:idx_comp_lookup" json:"run_id"`
	DistrictType string    `gorm:"not null;index:idx_comp_lookup" json:"district_type"` // cd, sd, hd
	Boundary     string    `gorm:"not null;index:idx_comp_lookup" json:"boundary"`      // old, new
	District     int       `gorm:"not null" json:"district"`
	Republicans  int       `json:"republicans"`
	Democrats    int       `json:"democrats"`
	Swing        int       `json:"swing"`
	Unknown      int       `json:"unknown"`
	Total        int       `json:"total"`
	RepPct       float64   `json:"rep_pct"`
	DemPct       float64   `json:"dem_pct"`
	Rating       string    `json:"rating"`
}

func (DistrictComposition) TableName() string {
	return "redistrict.district_compositions"
}

// RedistrictingDelta is one new district's actual-versus-expected party
// comparison.
type RedistrictingDelta struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	RunID        uuid.UUID `gorm:"type:uuid;not null;index:idx_delta_lookup" json:"run_id"`
	DistrictType string    `gorm:"not null;index:idx_delta_lookup" json:"district_type"`
	District     int       `gorm:"not null" json:"district"`
	ActualRep    int       `json:"actual_rep"`
	ActualDem    int       `json:"actual_dem"`
	ExpectedRep  float64   `json:"expected_rep"`
	ExpectedDem  float64   `json:"expected_dem"`
	NetRepChange float64   `json:"net_rep_change"`
	NetDemChange float64   `json:"net_dem_change"`
}

func (RedistrictingDelta) TableName() string {
	return "redistrict.redistricting_deltas"
}

// DistrictTurnout is early-voting participation for one district.
type DistrictTurnout struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	RunID        uuid.UUID `gorm:"type:uuid;not null;index:idx_turnout_lookup" json:"run_id"`
	DistrictType string    `gorm:"not null;index:idx_turnout_lookup" json:"district_type"`
	Boundary     string    `gorm:"not null;index:idx_turnout_lookup" json:"boundary"`
	District     int       `gorm:"not null" json:"district"`
	Registered   int       `json:"registered"`
	EarlyVoters  int       `json:"early_voters"`
	EarlyRep     int       `json:"early_rep"`
	EarlyDem     int       `json:"early_dem"`
	TurnoutPct   float64   `json:"turnout_pct"`
}

func (DistrictTurnout) TableName() string {
	return "redistrict.district_turnout"
}

// VoterAssignment is the compact per-voter mirror row: assignments and the
// unified party label, without any primary-history detail. Keyed by
// (vuid, run_id) so every run carries its own copy of each voter.
type VoterAssignment struct {
	VUID         int64     `gorm:"column:vuid;primaryKey" json:"vuid"`
	RunID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"run_id"`
	CountyName   string    `json:"county_name"`
	PrecinctCode string    `json:"precinct_code"`
	OldCD        *int      `json:"old_cd"`
	OldSD        *int      `json:"old_sd"`
	OldHD        *int      `json:"old_hd"`
	NewCD        *int      `json:"new_cd"`
	NewSD        *int      `json:"new_sd"`
	NewHD        *int      `json:"new_hd"`
	PartyFinal   string    `json:"party_final"`
}

func (VoterAssignment) TableName() string {
	return "redistrict.voter_assignments"
}
