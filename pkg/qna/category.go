package qna

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is one value from the closed category set shared by the answer
// generator (validation) and the record store (filtering/display)
type Category string

const (
	CategoryGit     Category = "Git"
	CategoryLinux   Category = "Linux"
	CategoryDB      Category = "DB"
	CategoryPython  Category = "Python"
	CategoryFlask   Category = "Flask"
	CategoryDjango  Category = "Django"
	CategoryFastAPI Category = "FastAPI"
	CategoryGeneral Category = "General"
)

// CategorySet holds the allowed categories for a deployment. The default set
// matches the class curriculum; a YAML file can override it
type CategorySet struct {
	categories []Category
	lookup     map[string]Category
}

// DefaultCategories returns the built-in category set
func DefaultCategories() *CategorySet {
	return NewCategorySet([]Category{
		CategoryGit,
		CategoryLinux,
		CategoryDB,
		CategoryPython,
		CategoryFlask,
		CategoryDjango,
		CategoryFastAPI,
		CategoryGeneral,
	})
}

// NewCategorySet builds a category set from an explicit list
// General is always a member, it is the fallback for unknown values
func NewCategorySet(categories []Category) *CategorySet {
	set := &CategorySet{
		lookup: make(map[string]Category),
	}

	for _, c := range categories {
		set.add(c)
	}
	set.add(CategoryGeneral)

	return set
}

// LoadCategorySet reads a category list from a YAML file of the form:
//
//	categories:
//	  - Git
//	  - Python
func LoadCategorySet(path string) (*CategorySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category file %s: %w", path, err)
	}

	var file struct {
		Categories []string `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse category file %s: %w", path, err)
	}

	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("category file %s contains no categories", path)
	}

	categories := make([]Category, 0, len(file.Categories))
	for _, c := range file.Categories {
		categories = append(categories, Category(strings.TrimSpace(c)))
	}

	return NewCategorySet(categories), nil
}

func (s *CategorySet) add(c Category) {
	if c == "" {
		return
	}
	if _, exists := s.lookup[strings.ToLower(string(c))]; exists {
		return
	}
	s.categories = append(s.categories, c)
	s.lookup[strings.ToLower(string(c))] = c
}

// Parse maps raw generator output onto the category set
// Any value outside the set maps to General
func (s *CategorySet) Parse(raw string) Category {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if c, ok := s.lookup[strings.ToLower(trimmed)]; ok {
		return c
	}
	return CategoryGeneral
}

// Contains reports whether the value is a member of the set
func (s *CategorySet) Contains(raw string) bool {
	_, ok := s.lookup[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// List returns the categories in declaration order
func (s *CategorySet) List() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}
