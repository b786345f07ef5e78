package core

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCategories []byte

// Registry is the fixed kind -> category taxonomy. It is never mutated
// after construction and is safe for concurrent use.
type Registry struct {
	income  []string
	expense []string
}

type registryDocument struct {
	Income  []string `yaml:"income"`
	Expense []string `yaml:"expense"`
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the built-in taxonomy, parsed on first use.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		reg, err := ParseRegistry(defaultCategories)
		if err != nil {
			panic(fmt.Sprintf("core: embedded categories are invalid: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// ParseRegistry reads a YAML document with "income" and "expense" lists.
func ParseRegistry(data []byte) (*Registry, error) {
	var doc registryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	if len(doc.Income) == 0 || len(doc.Expense) == 0 {
		return nil, fmt.Errorf("parse categories: both income and expense lists are required")
	}
	return &Registry{
		income:  slices.Clone(doc.Income),
		expense: slices.Clone(doc.Expense),
	}, nil
}

func (r *Registry) list(k Kind) []string {
	switch k {
	case Income:
		return r.income
	case Expense:
		return r.expense
	}
	return nil
}

// IsValidCategory is an exact, case-sensitive membership check.
// An unknown kind has no categories.
func (r *Registry) IsValidCategory(k Kind, category string) bool {
	return slices.Contains(r.list(k), category)
}

// CategoriesFor returns the display list for k, or an empty slice.
func (r *Registry) CategoriesFor(k Kind) []string {
	out := slices.Clone(r.list(k))
	if out == nil {
		out = []string{}
	}
	return out
}
