package services

import (
	"gorm.io/gorm"

	"ibooks/internal/models"
)

// Default category skeleton given to every new user.
const (
	defaultExpenseRoot  = "支出"
	defaultExpenseChild = "默认支出"
	defaultIncomeRoot   = "收入"
	defaultIncomeChild  = "默认收入"
)

func seedDefaultCategories(tx *gorm.DB, userID uint) error {
	pairs := []struct {
		categoryType models.CategoryType
		root, child  string
	}{
		{models.CategoryTypeExpense, defaultExpenseRoot, defaultExpenseChild},
		{models.CategoryTypeIncome, defaultIncomeRoot, defaultIncomeChild},
	}

	for i, p := range pairs {
		root := &models.Category{
			UserID:    userID,
			Type:      p.categoryType,
			Name:      p.root,
			SortOrder: i * models.SortOrderStep,
			IsActive:  true,
		}
		if err := tx.Create(root).Error; err != nil {
			return internal(err)
		}
		child := &models.Category{
			UserID:   userID,
			Type:     p.categoryType,
			Name:     p.child,
			ParentID: &root.ID,
			IsActive: true,
		}
		if err := tx.Create(child).Error; err != nil {
			return internal(err)
		}
	}
	return nil
}
