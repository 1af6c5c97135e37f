package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/entity"
)

type plansFile struct {
	Plans []entity.PlanMapping `yaml:"plans"`
}

// LoadPlanTable reads the price → plan mapping file.
func LoadPlanTable(path string) (*entity.PlanTable, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read plans file: %w", err)
	}

	var f plansFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plans file: %w", err)
	}
	if len(f.Plans) == 0 {
		return nil, fmt.Errorf("plans file %s defines no plans", path)
	}
	return entity.NewPlanTable(f.Plans)
}
