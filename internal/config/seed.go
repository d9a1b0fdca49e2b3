package config

import (
	"fmt"
	"os"

	"github.com/bcrosbie/noose/internal/domain"
	"gopkg.in/yaml.v3"
)

// LoadReferenceData parses the operator seed file holding the colleague
// profile, quotes and popups.
func LoadReferenceData(path string) (domain.ReferenceData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.ReferenceData{}, fmt.Errorf("read seed file %s: %w", path, err)
	}
	var data domain.ReferenceData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return domain.ReferenceData{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return data, nil
}
