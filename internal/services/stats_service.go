package services

import (
	"context"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/models"
	"ibooks/internal/timeutil"
)

// ledgerFact is one signed contribution to a stats bucket. Refunds appear
// as negative expense facts attributed to the category and month of the
// expense they refund.
type ledgerFact struct {
	Type        models.TransactionType
	CategoryID  *uint
	OccurredAt  time.Time
	AmountCents int64
}

func (f ledgerFact) month() timeutil.Month { return timeutil.MonthOf(f.OccurredAt) }

type statsService struct {
	db *gorm.DB
}

// NewStatsService creates a new StatsServicer.
func NewStatsService(db *gorm.DB) StatsServicer {
	return &statsService{db: db}
}

// YearCategory totals one year by category and by month.
func (s *statsService) YearCategory(ctx context.Context, userID uint, year int, categoryType models.CategoryType) (*YearCategoryStats, error) {
	if err := validateStatsType(categoryType); err != nil {
		return nil, err
	}
	start, end, err := timeutil.YearBounds(year)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid year")
	}

	facts, err := s.loadFacts(ctx, userID, categoryType, start, end)
	if err != nil {
		return nil, err
	}

	out := &YearCategoryStats{
		Year:          year,
		Type:          string(categoryType),
		Breakdown:     categoryBreakdown(facts, categoryType),
		MonthlyTotals: []MonthAmount{},
	}
	byMonth := sumBy(facts, categoryType, func(f ledgerFact) (timeutil.Month, bool) { return f.month(), true })
	months := make([]timeutil.Month, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	for _, m := range months {
		out.MonthlyTotals = append(out.MonthlyTotals, MonthAmount{Month: m.String(), AmountCents: byMonth[m]})
		out.TotalCents += byMonth[m]
	}
	return out, nil
}

// MonthCategory totals one month by category.
func (s *statsService) MonthCategory(ctx context.Context, userID uint, month string, categoryType models.CategoryType) (*MonthCategoryStats, error) {
	if err := validateStatsType(categoryType); err != nil {
		return nil, err
	}
	m, err := timeutil.ParseMonth(month)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid month format (YYYY-MM)")
	}

	facts, err := s.loadFacts(ctx, userID, categoryType, m.Start(), m.End())
	if err != nil {
		return nil, err
	}

	out := &MonthCategoryStats{
		Month:     m.String(),
		Type:      string(categoryType),
		Breakdown: categoryBreakdown(facts, categoryType),
	}
	for _, b := range out.Breakdown {
		out.TotalCents += b.AmountCents
	}
	return out, nil
}

// MonthlyRange returns income and net expense for every month from
// startMonth to endMonth inclusive, including months without activity.
func (s *statsService) MonthlyRange(ctx context.Context, userID uint, startMonth, endMonth string) (*MonthlyRangeStats, error) {
	first, err := timeutil.ParseMonth(startMonth)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid month format (YYYY-MM)")
	}
	last, err := timeutil.ParseMonth(endMonth)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid month format (YYYY-MM)")
	}
	if last.Before(first) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid month range")
	}

	income, err := s.loadFacts(ctx, userID, models.CategoryTypeIncome, first.Start(), last.End())
	if err != nil {
		return nil, err
	}
	expense, err := s.loadFacts(ctx, userID, models.CategoryTypeExpense, first.Start(), last.End())
	if err != nil {
		return nil, err
	}
	byMonth := func(f ledgerFact) (timeutil.Month, bool) { return f.month(), true }
	incomeByMonth := sumBy(income, models.CategoryTypeIncome, byMonth)
	expenseByMonth := sumBy(expense, models.CategoryTypeExpense, byMonth)

	out := &MonthlyRangeStats{StartMonth: first.String(), EndMonth: last.String(), Series: []MonthlyInOut{}}
	for m := first; !last.Before(m); m = m.Next() {
		out.Series = append(out.Series, MonthlyInOut{
			Month:        m.String(),
			IncomeCents:  incomeByMonth[m],
			ExpenseCents: expenseByMonth[m],
		})
	}
	return out, nil
}

type yoyKey struct {
	year       int
	month      time.Month
	categoryID uint
}

// YoYMonthly compares each month of year with the same month of the year
// before, broken down by category.
func (s *statsService) YoYMonthly(ctx context.Context, userID uint, year int, categoryType models.CategoryType) (*YoYMonthlyStats, error) {
	if err := validateStatsType(categoryType); err != nil {
		return nil, err
	}
	prevStart, _, err := timeutil.YearBounds(year - 1)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid year")
	}
	_, curEnd, err := timeutil.YearBounds(year)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid year")
	}

	facts, err := s.loadFacts(ctx, userID, categoryType, prevStart, curEnd)
	if err != nil {
		return nil, err
	}
	sums := sumBy(facts, categoryType, func(f ledgerFact) (yoyKey, bool) {
		if f.CategoryID == nil {
			return yoyKey{}, false
		}
		m := f.month()
		return yoyKey{year: m.Year, month: m.Month, categoryID: *f.CategoryID}, true
	})

	perMonth := make(map[time.Month]map[uint]*MonthCategoryCompare, 12)
	for k, amount := range sums {
		items, ok := perMonth[k.month]
		if !ok {
			items = make(map[uint]*MonthCategoryCompare)
			perMonth[k.month] = items
		}
		item, ok := items[k.categoryID]
		if !ok {
			item = &MonthCategoryCompare{CategoryID: k.categoryID}
			items[k.categoryID] = item
		}
		if k.year == year {
			item.CurrentCents += amount
		} else {
			item.PreviousCents += amount
		}
	}

	out := &YoYMonthlyStats{
		Type:          string(categoryType),
		CurrentLabel:  strconv.Itoa(year),
		PreviousLabel: strconv.Itoa(year - 1),
		Series:        make([]YoYMonthlyPoint, 0, 12),
	}
	for mm := time.January; mm <= time.December; mm++ {
		point := YoYMonthlyPoint{
			Month: timeutil.Month{Year: year, Month: mm}.String(),
			Items: []MonthCategoryCompare{},
		}
		for _, item := range perMonth[mm] {
			point.Items = append(point.Items, *item)
			point.CurrentCents += item.CurrentCents
			point.PreviousCents += item.PreviousCents
		}
		sort.Slice(point.Items, func(i, j int) bool {
			a, b := point.Items[i], point.Items[j]
			if a.CurrentCents+a.PreviousCents != b.CurrentCents+b.PreviousCents {
				return a.CurrentCents+a.PreviousCents > b.CurrentCents+b.PreviousCents
			}
			if a.CurrentCents != b.CurrentCents {
				return a.CurrentCents > b.CurrentCents
			}
			return a.CategoryID < b.CategoryID
		})
		out.Series = append(out.Series, point)
	}
	return out, nil
}

// loadFacts returns the income or expense rows in [start, end). For
// expenses it adds the refunds of those rows as negative facts.
func (s *statsService) loadFacts(ctx context.Context, userID uint, categoryType models.CategoryType, start, end time.Time) ([]ledgerFact, error) {
	db := s.db.WithContext(ctx)
	txType := models.TransactionType(categoryType)

	var facts []ledgerFact
	if err := db.Model(&models.Transaction{}).
		Select("type, category_id, occurred_at, amount_cents").
		Where("user_id = ? AND type = ? AND occurred_at >= ? AND occurred_at < ?", userID, txType, start.UTC(), end.UTC()).
		Scan(&facts).Error; err != nil {
		return nil, internal(err)
	}
	if txType != models.TransactionTypeExpense {
		return facts, nil
	}

	var refunds []ledgerFact
	if err := db.Table("transactions AS r").
		Select("o.type AS type, o.category_id AS category_id, o.occurred_at AS occurred_at, r.amount_cents AS amount_cents").
		Joins("JOIN transactions AS o ON o.id = r.refund_of_transaction_id").
		Where("r.user_id = ? AND r.type = ? AND o.type = ? AND o.occurred_at >= ? AND o.occurred_at < ?",
			userID, models.TransactionTypeRefund, models.TransactionTypeExpense, start.UTC(), end.UTC()).
		Scan(&refunds).Error; err != nil {
		return nil, internal(err)
	}
	for _, r := range refunds {
		r.AmountCents = -r.AmountCents
		facts = append(facts, r)
	}
	return facts, nil
}

// sumBy groups facts by key. Expense groups never go below zero.
func sumBy[K comparable](facts []ledgerFact, categoryType models.CategoryType, key func(ledgerFact) (K, bool)) map[K]int64 {
	out := make(map[K]int64)
	for _, f := range facts {
		k, ok := key(f)
		if !ok {
			continue
		}
		out[k] += f.AmountCents
	}
	if categoryType == models.CategoryTypeExpense {
		for k, v := range out {
			if v < 0 {
				out[k] = 0
			}
		}
	}
	return out
}

// categoryBreakdown totals facts per category, largest first.
func categoryBreakdown(facts []ledgerFact, categoryType models.CategoryType) []CategoryAmount {
	sums := sumBy(facts, categoryType, func(f ledgerFact) (uint, bool) {
		if f.CategoryID == nil {
			return 0, false
		}
		return *f.CategoryID, true
	})
	out := make([]CategoryAmount, 0, len(sums))
	for id, amount := range sums {
		out = append(out, CategoryAmount{CategoryID: id, AmountCents: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AmountCents != out[j].AmountCents {
			return out[i].AmountCents > out[j].AmountCents
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

func validateStatsType(t models.CategoryType) error {
	if t != models.CategoryTypeIncome && t != models.CategoryTypeExpense {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid type")
	}
	return nil
}
