package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/logger"
	"ibooks/internal/models"
)

// categoryService handles the per-user category forests.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// GetTree returns the user's category forest, optionally for one type.
func (s *categoryService) GetTree(ctx context.Context, userID uint, categoryType *models.CategoryType) ([]*CategoryNode, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if categoryType != nil {
		q = q.Where("type = ?", *categoryType)
	}

	var rows []models.Category
	if err := q.Order("sort_order ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, internal(err)
	}
	return buildTree(rows), nil
}

// CreateCategory adds a category. Without an explicit sort order it is
// appended after its current siblings.
func (s *categoryService) CreateCategory(ctx context.Context, userID uint, in CreateCategoryInput) (*CategoryNode, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if in.Type != models.CategoryTypeIncome && in.Type != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid type")
	}

	var category models.Category
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if in.ParentID != nil {
			parent, err := loadOwnedCategory(tx, userID, *in.ParentID,
				apperrors.WithMessage(apperrors.ErrInvalidCategory, "Invalid parentId"))
			if err != nil {
				return err
			}
			if !parent.IsActive {
				return apperrors.WithMessage(apperrors.ErrInvalidCategory, "Parent category is inactive")
			}
			if parent.Type != in.Type {
				return apperrors.WithMessage(apperrors.ErrInvalidCategory, "Income/expense type mismatch")
			}
		}

		sortOrder := 0
		if in.SortOrder != nil {
			sortOrder = *in.SortOrder
		} else {
			var maxSort *int
			q := tx.Model(&models.Category{}).Where("user_id = ? AND type = ?", userID, in.Type)
			if err := whereParent(q, in.ParentID).Select("MAX(sort_order)").Scan(&maxSort).Error; err != nil {
				return internal(err)
			}
			if maxSort != nil {
				sortOrder = *maxSort + models.SortOrderStep
			}
		}

		category = models.Category{
			UserID:    userID,
			Type:      in.Type,
			Name:      name,
			ParentID:  in.ParentID,
			SortOrder: sortOrder,
			IsActive:  in.IsActive,
		}
		if err := tx.Create(&category).Error; err != nil {
			return internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newCategoryNode(&category), nil
}

// UpdateCategory changes name, sort order or active flag.
func (s *categoryService) UpdateCategory(ctx context.Context, userID, categoryID uint, in UpdateCategoryInput) (*CategoryNode, error) {
	var (
		category models.Category
		children int64
	)
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		row, err := loadOwnedCategory(tx, userID, categoryID, apperrors.ErrCategoryNotFound)
		if err != nil {
			return err
		}
		category = *row

		updates := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
			}
			updates["name"] = name
		}
		if in.SortOrder != nil {
			updates["sort_order"] = *in.SortOrder
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if len(updates) > 0 {
			if err := tx.Model(&category).Updates(updates).Error; err != nil {
				return internal(err)
			}
		}

		return tx.Model(&models.Category{}).
			Where("user_id = ? AND parent_id = ?", userID, category.ID).
			Count(&children).Error
	})
	if err != nil {
		return nil, err
	}

	node := newCategoryNode(&category)
	node.IsLeaf = children == 0
	return node, nil
}

// MoveCategory re-parents a category and places it at index among its new
// siblings. Sibling sort orders are rewritten as position*10 at the
// destination and, when the parent changed, at the origin.
func (s *categoryService) MoveCategory(ctx context.Context, userID, categoryID uint, parentID *uint, index int) error {
	if index < 0 {
		index = 0
	}
	return runInTx(ctx, s.db, func(tx *gorm.DB) error {
		row, err := loadOwnedCategory(tx, userID, categoryID, apperrors.ErrCategoryNotFound)
		if err != nil {
			return err
		}

		if parentID != nil {
			if *parentID == row.ID {
				return apperrors.WithMessage(apperrors.ErrInvalidCategory, "parentId must not be self")
			}
			parent, err := loadOwnedCategory(tx, userID, *parentID,
				apperrors.WithMessage(apperrors.ErrInvalidCategory, "Invalid parentId"))
			if err != nil {
				return err
			}
			if parent.Type != row.Type {
				return apperrors.WithMessage(apperrors.ErrInvalidCategory, "Income/expense type mismatch")
			}
			if !parent.IsActive {
				return apperrors.WithMessage(apperrors.ErrInvalidCategory, "Parent category is inactive")
			}
			if err := ensureNotDescendant(tx, userID, row.ID, parent); err != nil {
				return err
			}
		}

		oldParentID := row.ParentID
		siblings, err := s.siblings(tx, row, parentID)
		if err != nil {
			return err
		}

		ordered := make([]models.Category, 0, len(siblings)+1)
		for _, sib := range siblings {
			if sib.ID != row.ID {
				ordered = append(ordered, sib)
			}
		}
		if index > len(ordered) {
			index = len(ordered)
		}
		ordered = append(ordered[:index], append([]models.Category{*row}, ordered[index:]...)...)

		for i, sib := range ordered {
			updates := map[string]interface{}{"sort_order": i * models.SortOrderStep}
			if sib.ID == row.ID {
				if parentID == nil {
					updates["parent_id"] = gorm.Expr("NULL")
				} else {
					updates["parent_id"] = *parentID
				}
			}
			if err := tx.Model(&models.Category{}).Where("id = ?", sib.ID).Updates(updates).Error; err != nil {
				return internal(err)
			}
		}

		if !sameParent(oldParentID, parentID) {
			remaining, err := s.siblings(tx, row, oldParentID)
			if err != nil {
				return err
			}
			if err := repack(tx, remaining); err != nil {
				return err
			}
		}

		logger.Get().Debugw("category moved",
			"category_id", row.ID,
			"parent_id", parentID,
			"index", index,
		)
		return nil
	})
}

// DeleteCategory refuses while active children exist. A category still
// referenced by transactions, tags or inactive children is disabled;
// otherwise the row is removed.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, categoryID uint) (DeleteMode, error) {
	var mode DeleteMode
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		row, err := loadOwnedCategory(tx, userID, categoryID, apperrors.ErrCategoryNotFound)
		if err != nil {
			return err
		}

		var activeChildren int64
		if err := tx.Model(&models.Category{}).
			Where("user_id = ? AND parent_id = ? AND is_active = ?", userID, row.ID, true).
			Count(&activeChildren).Error; err != nil {
			return internal(err)
		}
		if activeChildren > 0 {
			return apperrors.ErrCategoryHasChildren
		}

		referenced, err := categoryReferenced(tx, userID, row.ID)
		if err != nil {
			return err
		}
		if referenced {
			mode = DeleteModeDisabled
			return tx.Model(row).Update("is_active", false).Error
		}
		mode = DeleteModeDeleted
		return tx.Delete(row).Error
	})
	if err != nil {
		return "", err
	}
	return mode, nil
}

// siblings returns the categories of row's type under parentID in display order.
func (s *categoryService) siblings(tx *gorm.DB, row *models.Category, parentID *uint) ([]models.Category, error) {
	var out []models.Category
	q := tx.Where("user_id = ? AND type = ?", row.UserID, row.Type)
	if err := whereParent(q, parentID).Order("sort_order ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, internal(err)
	}
	return out, nil
}

func repack(tx *gorm.DB, rows []models.Category) error {
	for i, r := range rows {
		if err := tx.Model(&models.Category{}).Where("id = ?", r.ID).
			Update("sort_order", i*models.SortOrderStep).Error; err != nil {
			return internal(err)
		}
	}
	return nil
}

func categoryReferenced(tx *gorm.DB, userID, categoryID uint) (bool, error) {
	checks := []*gorm.DB{
		tx.Model(&models.Transaction{}).Where("user_id = ? AND category_id = ?", userID, categoryID),
		tx.Model(&models.Category{}).Where("user_id = ? AND parent_id = ?", userID, categoryID),
		tx.Model(&models.CategoryTag{}).Where("user_id = ? AND category_id = ?", userID, categoryID),
	}
	for _, q := range checks {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return false, internal(err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

func sameParent(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
