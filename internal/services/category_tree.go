package services

import (
	"errors"
	"sort"

	"gorm.io/gorm"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/models"
)

// maxCategoryDepth bounds every ancestor walk.
const maxCategoryDepth = 64

var errInvalidAncestry = apperrors.WithMessage(apperrors.ErrInvalidCategory, "Invalid category ancestry")

// loadOwnedCategory fetches a category of the user; missing rows map to notFound.
func loadOwnedCategory(tx *gorm.DB, userID, categoryID uint, notFound *apperrors.AppError) (*models.Category, error) {
	var category models.Category
	if err := tx.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, internal(err)
	}
	return &category, nil
}

// parentOf loads the parent of c, failing when it vanished mid-walk.
func parentOf(tx *gorm.DB, userID uint, c *models.Category) (*models.Category, error) {
	return loadOwnedCategory(tx, userID, *c.ParentID, errInvalidAncestry)
}

// firstLevelAncestor walks up from c to the node whose parent is a root.
// A root has no first-level ancestor.
func firstLevelAncestor(tx *gorm.DB, userID uint, c *models.Category) (*models.Category, error) {
	cursor := c
	for depth := 0; cursor.ParentID != nil; depth++ {
		if depth >= maxCategoryDepth {
			return nil, errInvalidAncestry
		}
		parent, err := parentOf(tx, userID, cursor)
		if err != nil {
			return nil, err
		}
		if parent.IsRoot() {
			return cursor, nil
		}
		cursor = parent
	}
	return nil, apperrors.WithMessage(apperrors.ErrTagNotAllowed, "Invalid category for tags")
}

// ensureNotDescendant fails with ErrCategoryCycle when candidate is categoryID
// itself or sits anywhere below it.
func ensureNotDescendant(tx *gorm.DB, userID, categoryID uint, candidate *models.Category) error {
	cursor := candidate
	for depth := 0; ; depth++ {
		if cursor.ID == categoryID {
			return apperrors.ErrCategoryCycle
		}
		if cursor.IsRoot() {
			return nil
		}
		if depth >= maxCategoryDepth {
			return errInvalidAncestry
		}
		parent, err := parentOf(tx, userID, cursor)
		if err != nil {
			return err
		}
		cursor = parent
	}
}

// ensureLeafCategory checks that a transaction may reference categoryID.
func ensureLeafCategory(tx *gorm.DB, userID, categoryID uint, expected models.CategoryType) (*models.Category, error) {
	category, err := loadOwnedCategory(tx, userID, categoryID, apperrors.ErrInvalidCategory)
	if err != nil {
		return nil, err
	}
	if !category.IsActive {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCategory, "Category is inactive")
	}
	if category.Type != expected {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCategory, "Income/expense type mismatch")
	}

	var children int64
	if err := tx.Model(&models.Category{}).
		Where("user_id = ? AND parent_id = ? AND is_active = ?", userID, category.ID, true).
		Count(&children).Error; err != nil {
		return nil, internal(err)
	}
	if children > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCategory, "Category must be a leaf node")
	}
	return category, nil
}

// whereParent scopes a category query to the siblings under parentID.
func whereParent(q *gorm.DB, parentID *uint) *gorm.DB {
	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}
	return q.Where("parent_id = ?", *parentID)
}

// buildTree materializes a flat row set into sorted forests. Rows whose
// parent is absent from the set become roots.
func buildTree(rows []models.Category) []*CategoryNode {
	nodes := make(map[uint]*CategoryNode, len(rows))
	for i := range rows {
		nodes[rows[i].ID] = newCategoryNode(&rows[i])
	}

	var roots []*CategoryNode
	for _, r := range rows {
		node := nodes[r.ID]
		if r.ParentID != nil {
			if parent, ok := nodes[*r.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	finalizeNodes(roots)
	if roots == nil {
		roots = []*CategoryNode{}
	}
	return roots
}

func finalizeNodes(nodes []*CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		n.IsLeaf = len(n.Children) == 0
		finalizeNodes(n.Children)
	}
}

func newCategoryNode(c *models.Category) *CategoryNode {
	return &CategoryNode{
		ID:        c.ID,
		Type:      c.Type,
		Name:      c.Name,
		ParentID:  c.ParentID,
		SortOrder: c.SortOrder,
		IsActive:  c.IsActive,
		IsLeaf:    true,
		Children:  []*CategoryNode{},
	}
}
