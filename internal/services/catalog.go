package services

import (
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"gestifac/internal/models"
)

var (
	ErrCategoryDepth = errors.New("category_depth")
	ErrCategoryCycle = errors.New("category_cycle")
	ErrCategoryInUse = errors.New("category_in_use")
	ErrUnknownField  = errors.New("unknown_field_template")
	ErrFieldRequired = errors.New("field_required")
	ErrFieldBadValue = errors.New("field_bad_value")
)

// CatalogService owns the category tree (two levels max) and the
// custom-field templates attached to categories.
type CatalogService struct{ DB *gorm.DB }

func NewCatalogService(db *gorm.DB) *CatalogService { return &CatalogService{DB: db} }

// SaveCategory enforces the 2-level policy: a child's parent must be a
// root category, and a category with children cannot become a child.
func (s *CatalogService) SaveCategory(userID uint, cat *models.Category) error {
	if cat.ParentID != nil {
		if cat.ID != 0 && *cat.ParentID == cat.ID {
			return ErrCategoryCycle
		}
		var parent models.Category
		if err := s.DB.Where("company_id = ?", cat.CompanyID).First(&parent, *cat.ParentID).Error; err != nil {
			return err
		}
		if parent.ParentID != nil {
			return ErrCategoryDepth
		}
		if cat.ID != 0 {
			var children int64
			if err := s.DB.Model(&models.Category{}).Where("parent_id = ?", cat.ID).Count(&children).Error; err != nil {
				return err
			}
			if children > 0 {
				return ErrCategoryDepth
			}
		}
	}
	action := "update"
	if cat.ID == 0 {
		action = "create"
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(cat).Error; err != nil {
			return err
		}
		return audit(tx, userID, "Category", cat.ID, action, cat.Nom)
	})
}

// DeleteCategory refuses to drop a category still referenced by
// articles or holding children.
func (s *CatalogService) DeleteCategory(userID, companyID, id uint) error {
	var inUse int64
	if err := s.DB.Model(&models.Article{}).Where("category_id = ?", id).Count(&inUse).Error; err != nil {
		return err
	}
	if inUse > 0 {
		return ErrCategoryInUse
	}
	var children int64
	if err := s.DB.Model(&models.Category{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
		return err
	}
	if children > 0 {
		return ErrCategoryInUse
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", companyID).Delete(&models.Category{}, id).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.CustomFieldTemplate{}).Error; err != nil {
			return err
		}
		return audit(tx, userID, "Category", id, "delete", "")
	})
}

// Tree returns root categories with children and templates preloaded.
func (s *CatalogService) Tree(companyID uint) ([]models.Category, error) {
	var roots []models.Category
	err := s.DB.Where("company_id = ? AND parent_id IS NULL", companyID).
		Preload("Children", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		Preload("Children.Templates").
		Preload("Templates").
		Order("position asc, id asc").
		Find(&roots).Error
	return roots, err
}

// FieldValueInput is one custom-field value submitted for an article.
type FieldValueInput struct {
	TemplateID uint   `json:"template_id"`
	Valeur     string `json:"valeur"`
}

// ValidateFieldValues checks submitted values against the category's
// templates: required fields present, values parseable per type.
// Returns the rows ready to attach to the article.
func (s *CatalogService) ValidateFieldValues(categoryID *uint, inputs []FieldValueInput) ([]models.ArticleFieldValue, error) {
	if categoryID == nil {
		if len(inputs) > 0 {
			return nil, ErrUnknownField
		}
		return nil, nil
	}
	var templates []models.CustomFieldTemplate
	if err := s.DB.Where("category_id = ?", *categoryID).Find(&templates).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.CustomFieldTemplate, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	seen := make(map[uint]bool, len(inputs))
	values := make([]models.ArticleFieldValue, 0, len(inputs))
	for _, in := range inputs {
		tpl, ok := byID[in.TemplateID]
		if !ok {
			return nil, ErrUnknownField
		}
		if err := checkFieldValue(tpl.Type, in.Valeur); err != nil {
			return nil, err
		}
		seen[in.TemplateID] = true
		values = append(values, models.ArticleFieldValue{TemplateID: in.TemplateID, Valeur: in.Valeur})
	}
	for _, t := range templates {
		if t.Obligatoire && !seen[t.ID] {
			return nil, ErrFieldRequired
		}
	}
	return values, nil
}

func checkFieldValue(fieldType, value string) error {
	if value == "" {
		return nil
	}
	switch fieldType {
	case models.FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return ErrFieldBadValue
		}
	case models.FieldBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return ErrFieldBadValue
		}
	case models.FieldDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return ErrFieldBadValue
		}
	}
	return nil
}
