package qna

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorySet_Parse(t *testing.T) {
	set := DefaultCategories()

	tests := []struct {
		name string
		raw  string
		want Category
	}{
		{"exact member", "Python", CategoryPython},
		{"case insensitive", "django", CategoryDjango},
		{"hash tag prefix", "#DB", CategoryDB},
		{"surrounding whitespace", "  FastAPI  ", CategoryFastAPI},
		{"unknown maps to General", "django-ish text not in enum", CategoryGeneral},
		{"empty maps to General", "", CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, set.Parse(tt.raw))
		})
	}
}

func TestCategorySet_AlwaysContainsGeneral(t *testing.T) {
	set := NewCategorySet([]Category{CategoryGit})

	assert.True(t, set.Contains("General"))
	assert.Equal(t, []Category{CategoryGit, CategoryGeneral}, set.List())
}

func TestLoadCategorySet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yml")
	content := "categories:\n  - Git\n  - Kubernetes\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	set, err := LoadCategorySet(path)
	require.NoError(t, err)

	assert.Equal(t, Category("Kubernetes"), set.Parse("kubernetes"))
	assert.Equal(t, CategoryGeneral, set.Parse("Python"))
}

func TestLoadCategorySet_Errors(t *testing.T) {
	_, err := LoadCategorySet("does-not-exist.yml")
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yml")
	require.NoError(t, os.WriteFile(path, []byte("categories: []\n"), 0644))

	_, err = LoadCategorySet(path)
	assert.Error(t, err)
}
