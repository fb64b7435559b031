// Package config loads the pipeline and server configuration from a YAML
// file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Plan names one new-boundary shapefile and the DBF attribute holding the
// district number.
type Plan struct {
	Shapefile     string `yaml:"shapefile"`
	DistrictField string `yaml:"district_field"`
}

// Config is the full runtime configuration. Zero values fall back to the
// defaults applied in Load.
type Config struct {
	VoterFilePath   string `yaml:"voter_file"`
	EarlyVotingDir  string `yaml:"early_voting_dir"`
	PrecinctShapes  string `yaml:"precinct_shapefile"`
	LookupCachePath string `yaml:"lookup_cache"`
	OutputDir       string `yaml:"output_dir"`
	ModelPath       string `yaml:"model_path"`

	// ModelInPath, when set, loads a saved model artifact for inference
	// instead of training a fresh one.
	ModelInPath string `yaml:"model_in_path"`

	// Plans maps district type ("cd", "sd", "hd") to its new-boundary
	// shapefile.
	Plans map[string]Plan `yaml:"new_plans"`

	ReferenceDate string `yaml:"reference_date"`

	UseMLImputation                bool    `yaml:"use_ml_imputation"`
	ImputationProbabilityThreshold float64 `yaml:"imputation_probability_threshold"`
	CompetitivenessThreshold       float64 `yaml:"competitiveness_threshold"`
	InferenceChunkSize             int     `yaml:"inference_chunk_size"`
	TrainingSampleCap              int     `yaml:"training_sample_cap"`
	TrainingTrees                  int     `yaml:"training_trees"`

	DatabaseURL string `yaml:"database_url"`
	Port        string `yaml:"port"`
	APIKeyHash  string `yaml:"api_key_hash"`
}

// Load reads the YAML file at path (optional; a missing file is not an
// error), applies environment overrides, then defaults.
func Load(path string) (Config, error) {
	cfg := Config{UseMLImputation: true}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	envOverride(&cfg.VoterFilePath, "VOTER_FILE")
	envOverride(&cfg.EarlyVotingDir, "EARLY_VOTING_DIR")
	envOverride(&cfg.PrecinctShapes, "PRECINCT_SHAPEFILE")
	envOverride(&cfg.LookupCachePath, "LOOKUP_CACHE")
	envOverride(&cfg.OutputDir, "OUTPUT_DIR")
	envOverride(&cfg.ModelPath, "MODEL_PATH")
	envOverride(&cfg.ModelInPath, "MODEL_IN_PATH")
	envOverride(&cfg.ReferenceDate, "REFERENCE_DATE")
	envOverride(&cfg.DatabaseURL, "DATABASE_URL")
	envOverride(&cfg.Port, "PORT")
	envOverride(&cfg.APIKeyHash, "API_KEY_HASH")
	envOverrideFloat(&cfg.ImputationProbabilityThreshold, "IMPUTATION_PROBABILITY_THRESHOLD")
	envOverrideFloat(&cfg.CompetitivenessThreshold, "COMPETITIVENESS_THRESHOLD")
	envOverrideInt(&cfg.InferenceChunkSize, "INFERENCE_CHUNK_SIZE")
	envOverrideInt(&cfg.TrainingSampleCap, "TRAINING_SAMPLE_CAP")

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = "artifacts/party_model.json"
	}
	if cfg.ReferenceDate == "" {
		cfg.ReferenceDate = "2024-11-01"
	}
	if cfg.ImputationProbabilityThreshold == 0 {
		cfg.ImputationProbabilityThreshold = 0.65
	}
	if cfg.CompetitivenessThreshold == 0 {
		cfg.CompetitivenessThreshold = 57.0
	}
	if cfg.InferenceChunkSize == 0 {
		cfg.InferenceChunkSize = 200000
	}
	if cfg.TrainingSampleCap == 0 {
		cfg.TrainingSampleCap = 400000
	}
	if cfg.TrainingTrees == 0 {
		cfg.TrainingTrees = 200
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
}

// ReferenceTime parses the configured age reference date.
func (c Config) ReferenceTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing reference_date %q: %w", c.ReferenceDate, err)
	}
	return t, nil
}

// ValidatePipeline checks the fields a pipeline run cannot proceed without.
func (c Config) ValidatePipeline() error {
	if c.VoterFilePath == "" {
		return fmt.Errorf("voter_file is required")
	}
	if len(c.Plans) == 0 && c.LookupCachePath == "" {
		return fmt.Errorf("either new_plans or lookup_cache is required")
	}
	for name, plan := range c.Plans {
		if plan.Shapefile == "" {
			return fmt.Errorf("new_plans.%s: shapefile is required", name)
		}
	}
	if _, err := c.ReferenceTime(); err != nil {
		return err
	}
	return nil
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func envOverrideFloat(target *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}
