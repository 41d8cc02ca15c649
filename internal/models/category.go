package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// SortOrderStep is the gap kept between sibling sort orders.
const SortOrderStep = 10

// Category is a node in a per-user income or expense forest.
type Category struct {
	Base
	UserID    uint         `gorm:"not null;index" json:"-"`
	Type      CategoryType `gorm:"size:10;not null;index" json:"type"`
	Name      string       `gorm:"size:100;not null" json:"name"`
	ParentID  *uint        `gorm:"index" json:"parentId"`
	SortOrder int          `gorm:"not null;default:0" json:"sortOrder"`
	IsActive  bool         `gorm:"not null" json:"isActive"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryTag is a label bound to a first-level expense category.
type CategoryTag struct {
	Base
	UserID     uint   `gorm:"not null;uniqueIndex:uq_category_tags_user_category_name" json:"-"`
	CategoryID uint   `gorm:"not null;index;uniqueIndex:uq_category_tags_user_category_name" json:"categoryId"`
	Name       string `gorm:"size:100;not null;uniqueIndex:uq_category_tags_user_category_name" json:"name"`
	IsActive   bool   `gorm:"not null" json:"isActive"`
}
