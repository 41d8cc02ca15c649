package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibooks/internal/models"
	"ibooks/internal/testutil"
)

func TestStatsNetOfRefunds(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	stats := NewStatsService(f.db)
	account := testutil.CreateTestDebitAccount(t, f.db, f.user.ID, 10000)
	expense := f.bankExpense(t, account.ID, 10000)
	category := f.expense.Leaf.ID

	monthTotal := func() int64 {
		t.Helper()
		got, err := stats.MonthCategory(ctx, f.user.ID, "2024-03", models.CategoryTypeExpense)
		require.NoError(t, err)
		for _, b := range got.Breakdown {
			if b.CategoryID == category {
				return b.AmountCents
			}
		}
		return 0
	}

	assert.Equal(t, int64(10000), monthTotal())

	amount := int64(3000)
	// refunded a month later, still attributed to the March expense
	later := testNow.AddDate(0, 1, 0)
	_, err := f.svc.CreateRefund(ctx, f.user.ID, expense.ID, CreateRefundInput{
		Mode: RefundModePartial, AmountCents: &amount, OccurredAt: &later,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7000), monthTotal())

	_, err = f.svc.CreateRefund(ctx, f.user.ID, expense.ID, CreateRefundInput{Mode: RefundModeFull})
	require.NoError(t, err)
	assert.Equal(t, int64(0), monthTotal())

	april, err := stats.MonthCategory(ctx, f.user.ID, "2024-04", models.CategoryTypeExpense)
	require.NoError(t, err)
	assert.Zero(t, april.TotalCents)
	assert.Empty(t, april.Breakdown)
}

func TestYearCategory(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	stats := NewStatsService(f.db)
	food := f.expense.Leaf.ID
	rent := testutil.CreateTestCategory(t, f.db, f.user.ID, models.CategoryTypeExpense, &f.expense.FirstLevel.ID).ID

	jan := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeExpense, 100, &food, jan)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeExpense, 5000, &rent, jan)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeExpense, 200, &food, testNow)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeExpense, 999, &food, jan.AddDate(-1, 0, 0))

	got, err := stats.YearCategory(ctx, f.user.ID, 2024, models.CategoryTypeExpense)
	require.NoError(t, err)
	assert.Equal(t, int64(5300), got.TotalCents)
	assert.Equal(t, []CategoryAmount{{CategoryID: rent, AmountCents: 5000}, {CategoryID: food, AmountCents: 300}}, got.Breakdown)
	assert.Equal(t, []MonthAmount{{Month: "2024-01", AmountCents: 5100}, {Month: "2024-03", AmountCents: 200}}, got.MonthlyTotals)

	_, err = stats.YearCategory(ctx, f.user.ID, 1969, models.CategoryTypeExpense)
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	_, err = stats.YearCategory(ctx, f.user.ID, 2024, "transfer")
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}

func TestMonthlyRange(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	stats := NewStatsService(f.db)
	salary := f.income.Leaf.ID
	food := f.expense.Leaf.ID

	nov := time.Date(2023, time.November, 5, 0, 0, 0, 0, time.UTC)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeIncome, 8000, &salary, nov)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeExpense, 1200, &food, nov)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeIncome, 8000, &salary, testNow)

	got, err := stats.MonthlyRange(ctx, f.user.ID, "2023-11", "2024-03")
	require.NoError(t, err)
	require.Len(t, got.Series, 5)
	assert.Equal(t, MonthlyInOut{Month: "2023-11", IncomeCents: 8000, ExpenseCents: 1200}, got.Series[0])
	assert.Equal(t, MonthlyInOut{Month: "2024-01"}, got.Series[2])
	assert.Equal(t, MonthlyInOut{Month: "2024-03", IncomeCents: 8000}, got.Series[4])

	_, err = stats.MonthlyRange(ctx, f.user.ID, "2024-03", "2023-11")
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	_, err = stats.MonthlyRange(ctx, f.user.ID, "2024-13", "2024-12")
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}

func TestYoYMonthly(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	stats := NewStatsService(f.db)
	a := f.expense.Leaf.ID
	b := testutil.CreateTestCategory(t, f.db, f.user.ID, models.CategoryTypeExpense, &f.expense.FirstLevel.ID).ID
	c := testutil.CreateTestCategory(t, f.db, f.user.ID, models.CategoryTypeExpense, &f.expense.FirstLevel.ID).ID

	cur := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	prev := cur.AddDate(-1, 0, 0)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeExpense, 100, &a, cur)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeExpense, 400, &a, prev)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeExpense, 300, &b, cur)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeExpense, 200, &b, prev)
	testutil.CreateTestTransaction(t, f.db, f.user.ID, models.TransactionTypeExpense, 50, &c, cur)

	got, err := stats.YoYMonthly(ctx, f.user.ID, 2024, models.CategoryTypeExpense)
	require.NoError(t, err)
	assert.Equal(t, "2024", got.CurrentLabel)
	assert.Equal(t, "2023", got.PreviousLabel)
	require.Len(t, got.Series, 12)

	feb := got.Series[1]
	assert.Equal(t, "2024-02", feb.Month)
	assert.Equal(t, int64(450), feb.CurrentCents)
	assert.Equal(t, int64(600), feb.PreviousCents)
	// a and b tie on 500 combined; b wins on the current year.
	assert.Equal(t, []MonthCategoryCompare{
		{CategoryID: b, CurrentCents: 300, PreviousCents: 200},
		{CategoryID: a, CurrentCents: 100, PreviousCents: 400},
		{CategoryID: c, CurrentCents: 50},
	}, feb.Items)
	assert.Empty(t, got.Series[0].Items)

	_, err = stats.YoYMonthly(ctx, f.user.ID, 1970, models.CategoryTypeExpense)
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}
