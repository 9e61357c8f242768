package database

import (
	_ "embed"
	"fmt"

	"globfam/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed.yaml
var seedYAML []byte

type seedCategory struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Color string `yaml:"color"`
}

type seedGroup struct {
	Name       string         `yaml:"name"`
	Categories []seedCategory `yaml:"categories"`
}

type seedFile struct {
	Groups []seedGroup `yaml:"groups"`
}

// DefaultTaxonomy 解析内置的默认预算分类
func DefaultTaxonomy() ([]seedGroup, error) {
	var f seedFile
	if err := yaml.Unmarshal(seedYAML, &f); err != nil {
		return nil, fmt.Errorf("parse seed taxonomy: %w", err)
	}
	for i, g := range f.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("seed group at index %d missing name", i)
		}
		for j, c := range g.Categories {
			if c.Name == "" {
				return nil, fmt.Errorf("seed category %d of group %q missing name", j, g.Name)
			}
			if c.Kind != models.BudgetKindIncome && c.Kind != models.BudgetKindExpense {
				return nil, fmt.Errorf("seed category %q has invalid kind %q", c.Name, c.Kind)
			}
		}
	}
	return f.Groups, nil
}

// SeedOrganization 为新组织写入默认预算分类，需在注册事务内调用
func SeedOrganization(tx *gorm.DB, orgID uint) error {
	groups, err := DefaultTaxonomy()
	if err != nil {
		return err
	}
	for gi, g := range groups {
		group := models.BudgetCategoryGroup{
			OrganizationID: orgID,
			Name:           g.Name,
			SortOrder:      (gi + 1) * 10,
		}
		if err := tx.Create(&group).Error; err != nil {
			return fmt.Errorf("seed group %q: %w", g.Name, err)
		}
		cats := make([]models.BudgetCategory, 0, len(g.Categories))
		for ci, c := range g.Categories {
			cats = append(cats, models.BudgetCategory{
				OrganizationID: orgID,
				GroupID:        group.ID,
				Name:           c.Name,
				Kind:           c.Kind,
				Color:          c.Color,
				MonthlyBudget:  decimal.Zero,
				SortOrder:      (ci + 1) * 10,
			})
		}
		if len(cats) > 0 {
			if err := tx.Create(&cats).Error; err != nil {
				return fmt.Errorf("seed categories of %q: %w", g.Name, err)
			}
		}
	}
	return nil
}
