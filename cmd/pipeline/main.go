package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/LoneStarCivic/LSC-Backend/internal/api"
	"github.com/LoneStarCivic/LSC-Backend/internal/config"
	"github.com/LoneStarCivic/LSC-Backend/internal/db"
	"github.com/LoneStarCivic/LSC-Backend/internal/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to YAML config")
		skipMirror = flag.Bool("skip-mirror", false, "skip writing results to the database")
		modelOut   = flag.String("model-out", "", "override path for the saved model artifact")
		modelIn    = flag.String("model-in", "", "load a saved model artifact instead of training")
	)
	flag.Parse()

	_ = godotenv.Load(".env.local")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *modelOut != "" {
		cfg.ModelPath = *modelOut
	}
	if *modelIn != "" {
		cfg.ModelInPath = *modelIn
	}
	if err := cfg.ValidatePipeline(); err != nil {
		flag.Usage()
		log.Println(err)
		os.Exit(2)
	}

	res, err := pipeline.Run(cfg, log.Printf)
	if err != nil {
		log.Fatal(err)
	}

	// A freshly trained model is saved; a preloaded artifact is not
	// re-written.
	if res.Model != nil && cfg.ModelInPath == "" {
		if err := res.Model.Save(cfg.ModelPath); err != nil {
			log.Fatal(err)
		}
		log.Printf("[pipeline] saved model artifact to %s", cfg.ModelPath)
	}

	if err := pipeline.Export(res, cfg.OutputDir); err != nil {
		log.Fatal(err)
	}
	log.Printf("[pipeline] wrote artifacts to %s", cfg.OutputDir)

	if *skipMirror || cfg.DatabaseURL == "" {
		log.Println("[pipeline] skipping database mirror")
		return
	}
	if err := db.Connect(cfg.DatabaseURL); err != nil {
		log.Fatal(err)
	}
	api.Init()
	if err := pipeline.Mirror(res, db.DB); err != nil {
		log.Fatal(err)
	}
	log.Printf("[pipeline] mirrored run %s to database", res.RunID)
}
