package core

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	Checking   AccountType = "CHECKING"
	Savings    AccountType = "SAVINGS"
	CreditCard AccountType = "CREDIT_CARD"
	Investment AccountType = "INVESTMENT"
	Cash       AccountType = "CASH"

	Income   TransactionType = "INCOME"
	Expense  TransactionType = "EXPENSE"
	Transfer TransactionType = "TRANSFER"

	Daily   BudgetPeriod = "DAILY"
	Weekly  BudgetPeriod = "WEEKLY"
	Monthly BudgetPeriod = "MONTHLY"
	Yearly  BudgetPeriod = "YEARLY"

	GoalInProgress GoalStatus = "IN_PROGRESS"
	GoalCompleted  GoalStatus = "COMPLETED"
	GoalCancelled  GoalStatus = "CANCELLED"

	PriorityLow    GoalPriority = "LOW"
	PriorityMedium GoalPriority = "MEDIUM"
	PriorityHigh   GoalPriority = "HIGH"

	OnTrack  ProgressStatus = "ON_TRACK"
	AtRisk   ProgressStatus = "AT_RISK"
	Achieved ProgressStatus = "ACHIEVED"
)

type (
	AccountType     string
	TransactionType string
	BudgetPeriod    string
	GoalStatus      string
	GoalPriority    string
	ProgressStatus  string

	// CategoryType reuses the transaction vocabulary; only INCOME and EXPENSE are valid.
	CategoryType = TransactionType

	Date struct {
		time.Time
	}

	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role,omitempty"`
	}

	Account struct {
		ID        int64       `json:"id"`
		Name      string      `json:"name"`
		Type      AccountType `json:"type"`
		Balance   Money       `json:"balance"`
		Currency  string      `json:"currency"`
		UserID    int64       `json:"userId,omitempty"`
		CreatedAt Date        `json:"createdAt,omitempty"`
		UpdatedAt Date        `json:"updatedAt,omitempty"`
	}

	Category struct {
		ID        int64        `json:"id"`
		Name      string       `json:"name"`
		Type      CategoryType `json:"type"`
		Color     string       `json:"color,omitempty"`
		Icon      string       `json:"icon,omitempty"`
		UserID    int64        `json:"userId,omitempty"`
		CreatedAt Date         `json:"createdAt,omitempty"`
		UpdatedAt Date         `json:"updatedAt,omitempty"`
	}

	// Transaction belongs to exactly one account and at most one category.
	// Account and Category are only set when the backend embeds them.
	Transaction struct {
		ID          int64           `json:"id"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Description string          `json:"description"`
		Date        Date            `json:"transactionDate"`
		AccountID   int64           `json:"accountId"`
		CategoryID  *int64          `json:"categoryId,omitempty"`
		UserID      int64           `json:"userId,omitempty"`
		CreatedAt   Date            `json:"createdAt,omitempty"`
		UpdatedAt   Date            `json:"updatedAt,omitempty"`
		Account     *Account        `json:"account,omitempty"`
		Category    *Category       `json:"category,omitempty"`
	}

	// Budget.Spent is computed by the backend and must never be derived locally.
	Budget struct {
		ID         int64        `json:"id"`
		Name       string       `json:"name"`
		Amount     Money        `json:"amount"`
		Spent      Money        `json:"spent"`
		Period     BudgetPeriod `json:"period"`
		StartDate  Date         `json:"startDate"`
		EndDate    Date         `json:"endDate,omitempty"`
		CategoryID *int64       `json:"categoryId,omitempty"`
		UserID     int64        `json:"userId,omitempty"`
		CreatedAt  Date         `json:"createdAt,omitempty"`
		UpdatedAt  Date         `json:"updatedAt,omitempty"`
		Category   *Category    `json:"category,omitempty"`
	}

	Goal struct {
		ID            int64        `json:"id"`
		Name          string       `json:"name"`
		Description   string       `json:"description,omitempty"`
		TargetAmount  Money        `json:"targetAmount"`
		CurrentAmount Money        `json:"currentAmount"`
		TargetDate    Date         `json:"targetDate"`
		Status        GoalStatus   `json:"status"`
		Priority      GoalPriority `json:"priority"`
		Category      string       `json:"category,omitempty"`
		UserID        int64        `json:"userId,omitempty"`
		CreatedAt     Date         `json:"createdAt,omitempty"`
		UpdatedAt     Date         `json:"updatedAt,omitempty"`
	}

	// GoalProgress is a server-derived view of a goal.
	GoalProgress struct {
		GoalID                 int64          `json:"goalId"`
		Percentage             float64        `json:"percentage"`
		RemainingAmount        Money          `json:"remainingAmount"`
		RequiredMonthlySavings Money          `json:"requiredMonthlySavings"`
		DaysRemaining          int            `json:"daysRemaining"`
		Status                 ProgressStatus `json:"status"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidType        = errors.New("invalid type")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrMissingAccount     = errors.New("missing account")
	ErrMissingDate        = errors.New("missing date")
	ErrInvalidDateRange   = errors.New("end date must not be before start date")
	ErrEmptyCredentials   = errors.New("username or email and password are required")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, CreditCard, Investment, Cash:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

// ValidCategoryType reports whether t can classify a category.
func ValidCategoryType(t CategoryType) bool {
	return t == Income || t == Expense
}

func (p BudgetPeriod) Valid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (p GoalPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// CategoryKey returns the category id a transaction is classified under,
// falling back to the embedded category. ok is false for uncategorised ones.
func (t Transaction) CategoryKey() (id int64, ok bool) {
	if t.CategoryID != nil {
		return *t.CategoryID, true
	}
	if t.Category != nil {
		return t.Category.ID, true
	}
	return 0, false
}

// ID returns a pointer to v, for the optional id fields.
func ID(v int64) *int64 {
	return &v
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

var dateLayouts = []string{
	dateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	dateTimeLayout,
	"2006-01-02 15:04:05",
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a date-only value or a backend timestamp.
func ParseDate(s string) (Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("parse date %q: unsupported format", s)
}

// IsDateOnly reports whether the value carries no time of day.
func (d Date) IsDateOnly() bool {
	h, m, s := d.Clock()
	return h == 0 && m == 0 && s == 0 && d.Nanosecond() == 0
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	if d.IsDateOnly() {
		return d.Format(dateLayout)
	}
	return d.Format(dateTimeLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
