package api

import (
	"log"

	"github.com/LoneStarCivic/LSC-Backend/internal/db"
)

func Init() {
	// Ensure the redistrict schema exists
	if err := db.EnsureSchema(db.DB, "redistrict"); err != nil {
		log.Fatal("Failed to ensure schema redistrict: ", err)
	}

	// Auto-migrate all result tables
	if err := db.DB.AutoMigrate(
		&Run{},
		&DistrictComposition{},
		&RedistrictingDelta{},
		&DistrictTurnout{},
		&VoterAssignment{},
	); err != nil {
		log.Fatal("Failed to auto-migrate redistrict tables: ", err)
	}

	log.Println("Redistrict module initialized")
}
