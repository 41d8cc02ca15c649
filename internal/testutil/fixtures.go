package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ibooks/internal/models"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active user with a unique username.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, fmt.Sprintf("user%d", nextID()), models.RoleUser)
}

// CreateTestAdmin creates an active admin with a unique username.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, fmt.Sprintf("admin%d", nextID()), models.RoleAdmin)
}

// CreateTestUserWithRole creates an active user with the given username and role.
func CreateTestUserWithRole(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     true,
		Role:         role,
		TimeZone:     models.DefaultTimeZone,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestDebitAccount creates an active debit account with the given balance (in cents).
func CreateTestDebitAccount(t *testing.T, db *gorm.DB, userID uint, balance int64) *models.BankAccount {
	t.Helper()

	account := &models.BankAccount{
		UserID:       userID,
		BankName:     "Test Bank",
		Alias:        fmt.Sprintf("Debit %d", nextID()),
		Kind:         models.BankAccountKindDebit,
		BalanceCents: balance,
		IsActive:     true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test debit account: %v", err)
	}
	return account
}

// CreateTestCreditAccount creates an active credit account with the given balance (in cents).
func CreateTestCreditAccount(t *testing.T, db *gorm.DB, userID uint, balance int64) *models.BankAccount {
	t.Helper()

	billing, repayment := 5, 25
	account := &models.BankAccount{
		UserID:       userID,
		BankName:     "Test Bank",
		Alias:        fmt.Sprintf("Credit %d", nextID()),
		Kind:         models.BankAccountKindCredit,
		BalanceCents: balance,
		BillingDay:   &billing,
		RepaymentDay: &repayment,
		IsActive:     true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test credit account: %v", err)
	}
	return account
}

// CreateTestCategory creates an active category under parentID (nil for a root).
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint, categoryType models.CategoryType, parentID *uint) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID:   userID,
		Type:     categoryType,
		Name:     fmt.Sprintf("Test Category %d", nextID()),
		ParentID: parentID,
		IsActive: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CategoryTree is a root with one first-level child and one leaf under it.
type CategoryTree struct {
	Root       *models.Category
	FirstLevel *models.Category
	Leaf       *models.Category
}

// CreateTestCategoryTree creates root > first level > leaf of the given type.
func CreateTestCategoryTree(t *testing.T, db *gorm.DB, userID uint, categoryType models.CategoryType) CategoryTree {
	t.Helper()

	root := CreateTestCategory(t, db, userID, categoryType, nil)
	first := CreateTestCategory(t, db, userID, categoryType, &root.ID)
	leaf := CreateTestCategory(t, db, userID, categoryType, &first.ID)
	return CategoryTree{Root: root, FirstLevel: first, Leaf: leaf}
}

// CreateTestTag creates an active tag bound to categoryID.
func CreateTestTag(t *testing.T, db *gorm.DB, userID, categoryID uint) *models.CategoryTag {
	t.Helper()

	tag := &models.CategoryTag{
		UserID:     userID,
		CategoryID: categoryID,
		Name:       fmt.Sprintf("tag%d", nextID()),
		IsActive:   true,
	}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create test tag: %v", err)
	}
	return tag
}

// CreateTestTransaction inserts a row directly, bypassing balance logic.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID uint, txType models.TransactionType, amount int64, categoryID *uint, occurredAt time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:        userID,
		Type:          txType,
		AmountCents:   amount,
		OccurredAt:    occurredAt.UTC(),
		CategoryID:    categoryID,
		FundingSource: models.FundingSourceCash,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
