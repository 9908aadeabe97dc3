package focus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vthunder/bud2/internal/models"
)

// categoryFile is the on-disk shape of a configurable app-to-category
// lookup, in the same style as the capture trigger's keyword-pattern file
// (internal/trigger/keywords.go).
type categoryFile struct {
	Apps map[string]string `yaml:"apps"`
}

// loadCategoryOverridesFromYAML reads an `apps: {name: category}` file and
// validates every category value against the known Category enum.
func loadCategoryOverridesFromYAML(path string) (map[string]models.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("focus: read category file: %w", err)
	}
	var cf categoryFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("focus: parse category file: %w", err)
	}
	out := make(map[string]models.Category, len(cf.Apps))
	for app, cat := range cf.Apps {
		c := models.Category(cat)
		if !validCategory(c) {
			return nil, fmt.Errorf("focus: category file: unknown category %q for app %q", cat, app)
		}
		out[app] = c
	}
	return out, nil
}

func validCategory(c models.Category) bool {
	switch c {
	case models.CategoryDevelopment, models.CategoryCommunication, models.CategoryDocumentation,
		models.CategoryBrowser, models.CategoryDesign, models.CategoryMedia, models.CategorySystem, models.CategoryOther:
		return true
	default:
		return false
	}
}
