package services

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/models"
)

// resolvedTag is a tag accepted for a transaction write.
type resolvedTag struct {
	ID   uint
	Name string
}

type tagService struct {
	db *gorm.DB
}

// NewTagService creates a new TagServicer.
func NewTagService(db *gorm.DB) TagServicer {
	return &tagService{db: db}
}

// ListTags returns the tags bound to a first-level expense category.
func (s *tagService) ListTags(ctx context.Context, userID, categoryID uint, activeOnly bool) ([]models.CategoryTag, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadTagCategory(db, userID, categoryID); err != nil {
		return nil, err
	}

	q := db.Where("user_id = ? AND category_id = ?", userID, categoryID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var tags []models.CategoryTag
	if err := q.Order("id ASC").Find(&tags).Error; err != nil {
		return nil, internal(err)
	}
	return tags, nil
}

// CreateTag binds a new tag to the category. An inactive tag with the same
// name is reactivated instead.
func (s *tagService) CreateTag(ctx context.Context, userID, categoryID uint, name string, isActive bool) (*models.CategoryTag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "tag name is required")
	}

	var tag models.CategoryTag
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := loadTagCategory(tx, userID, categoryID); err != nil {
			return err
		}

		var existing []models.CategoryTag
		if err := tx.Where("user_id = ? AND category_id = ? AND name = ?", userID, categoryID, name).
			Limit(1).Find(&existing).Error; err != nil {
			return internal(err)
		}
		if len(existing) > 0 {
			tag = existing[0]
			if tag.IsActive {
				return apperrors.ErrDuplicateTag
			}
			tag.IsActive = true
			return tx.Model(&tag).Update("is_active", true).Error
		}

		tag = models.CategoryTag{
			UserID:     userID,
			CategoryID: categoryID,
			Name:       name,
			IsActive:   isActive,
		}
		return tx.Create(&tag).Error
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// DeleteTag disables a tag still linked to transactions and removes it otherwise.
func (s *tagService) DeleteTag(ctx context.Context, userID, categoryID, tagID uint) (DeleteMode, error) {
	var mode DeleteMode
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		var tag models.CategoryTag
		if err := tx.Where("id = ? AND user_id = ? AND category_id = ?", tagID, userID, categoryID).
			First(&tag).Error; err != nil {
			return lookupError(err, apperrors.ErrTagNotFound)
		}

		var links int64
		if err := tx.Model(&models.TransactionTag{}).Where("tag_id = ?", tag.ID).Count(&links).Error; err != nil {
			return internal(err)
		}
		if links > 0 {
			mode = DeleteModeDisabled
			return tx.Model(&tag).Update("is_active", false).Error
		}
		mode = DeleteModeDeleted
		return tx.Delete(&tag).Error
	})
	if err != nil {
		return "", err
	}
	return mode, nil
}

// loadTagCategory fetches a category and checks it sits directly under an expense root.
func loadTagCategory(tx *gorm.DB, userID, categoryID uint) (*models.Category, error) {
	category, err := loadOwnedCategory(tx, userID, categoryID, apperrors.ErrCategoryNotFound)
	if err != nil {
		return nil, err
	}
	if category.Type != models.CategoryTypeExpense || category.IsRoot() {
		return nil, apperrors.ErrTagNotAllowed
	}
	parent, err := parentOf(tx, userID, category)
	if err != nil {
		return nil, err
	}
	if !parent.IsRoot() {
		return nil, apperrors.ErrTagNotAllowed
	}
	return category, nil
}

// resolveTags validates tagIDs for a transaction on category and returns
// them deduplicated in ascending id order.
func resolveTags(tx *gorm.DB, userID uint, category *models.Category, tagIDs []uint) ([]resolvedTag, error) {
	ids := dedupeIDs(tagIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	if category.Type != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrTagNotAllowed, "Tags are only supported on expense transactions")
	}

	var tags []models.CategoryTag
	if err := tx.Where("user_id = ? AND id IN ?", userID, ids).Order("id ASC").Find(&tags).Error; err != nil {
		return nil, internal(err)
	}
	if len(tags) != len(ids) {
		return nil, apperrors.ErrInvalidTagReference
	}
	for _, t := range tags {
		if !t.IsActive {
			return nil, apperrors.ErrInactiveTag
		}
	}

	firstLevel, err := firstLevelAncestor(tx, userID, category)
	if err != nil {
		return nil, err
	}
	out := make([]resolvedTag, 0, len(tags))
	for _, t := range tags {
		if t.CategoryID != firstLevel.ID {
			return nil, apperrors.ErrTagCategoryMismatch
		}
		out = append(out, resolvedTag{ID: t.ID, Name: t.Name})
	}
	return out, nil
}

// linkTags replaces the tag links of a transaction.
func linkTags(tx *gorm.DB, transactionID uint, tags []resolvedTag) error {
	if err := tx.Where("transaction_id = ?", transactionID).Delete(&models.TransactionTag{}).Error; err != nil {
		return internal(err)
	}
	if len(tags) == 0 {
		return nil
	}
	links := make([]models.TransactionTag, 0, len(tags))
	for _, t := range tags {
		links = append(links, models.TransactionTag{TransactionID: transactionID, TagID: t.ID})
	}
	if err := tx.Create(&links).Error; err != nil {
		return internal(err)
	}
	return nil
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
