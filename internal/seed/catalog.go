package seed

import (
	_ "embed"
	"fmt"
	"strings"

	"unitoku/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var defaultCatalogYAML []byte

// CategorySpec is one board category in the catalog.
type CategorySpec struct {
	Name        string `yaml:"name"`
	Icon        string `yaml:"icon"`
	Description string `yaml:"description"`
}

// CourseSpec is a course template used for fake timetables.
type CourseSpec struct {
	Name      string `yaml:"name"`
	Professor string `yaml:"professor"`
}

// Catalog is the fixture vocabulary: categories plus the word lists fake
// data is drawn from.
type Catalog struct {
	Categories  []CategorySpec `yaml:"categories"`
	Departments []string       `yaml:"departments"`
	Courses     []CourseSpec   `yaml:"courses"`
	Rooms       []string       `yaml:"rooms"`
	Semesters   []string       `yaml:"semesters"`
	Hashtags    []string       `yaml:"hashtags"`
}

// ParseCatalog decodes and checks a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("catalog has no categories")
	}
	seen := make(map[string]bool, len(c.Categories))
	hasDefault := false
	for i, cat := range c.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return fmt.Errorf("category %d has no name", i)
		}
		if seen[name] {
			return fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = true
		hasDefault = hasDefault || name == models.DefaultCategoryName
	}
	if !hasDefault {
		return fmt.Errorf("catalog must include the default category %q", models.DefaultCategoryName)
	}
	return nil
}

// CategoryModels converts the catalog categories to models, ordered as listed.
func (c *Catalog) CategoryModels() []models.Category {
	out := make([]models.Category, 0, len(c.Categories))
	for i, cat := range c.Categories {
		out = append(out, models.Category{
			Name:        strings.TrimSpace(cat.Name),
			Icon:        cat.Icon,
			Description: cat.Description,
			Order:       i,
		})
	}
	return out
}
