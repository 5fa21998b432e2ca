package core

import (
	"regexp"
	"strings"

	"github.com/badoux/checkmail"
)

type (
	LoginRequest struct {
		UsernameOrEmail string `json:"usernameOrEmail"`
		Password        string `json:"password"`
	}

	RegisterRequest struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName,omitempty"`
		LastName  string `json:"lastName,omitempty"`
	}

	// AuthResponse accepts both the flat identity shape and a nested user object.
	AuthResponse struct {
		Token    string `json:"token"`
		Type     string `json:"type,omitempty"`
		ID       int64  `json:"id,omitempty"`
		Username string `json:"username,omitempty"`
		Email    string `json:"email,omitempty"`
		Role     string `json:"role,omitempty"`
		User     *User  `json:"user,omitempty"`
	}

	CreateAccountRequest struct {
		Name     string      `json:"name"`
		Type     AccountType `json:"type"`
		Balance  Money       `json:"balance"`
		Currency string      `json:"currency"`
	}

	CreateTransactionRequest struct {
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Description string          `json:"description"`
		Date        Date            `json:"transactionDate"`
		AccountID   int64           `json:"accountId"`
		CategoryID  *int64          `json:"categoryId,omitempty"`
	}

	CreateBudgetRequest struct {
		Name       string       `json:"name"`
		Amount     Money        `json:"amount"`
		Period     BudgetPeriod `json:"period"`
		StartDate  Date         `json:"startDate"`
		EndDate    *Date        `json:"endDate,omitempty"`
		CategoryID *int64       `json:"categoryId,omitempty"`
	}

	CreateCategoryRequest struct {
		Name  string       `json:"name"`
		Type  CategoryType `json:"type"`
		Color string       `json:"color,omitempty"`
		Icon  string       `json:"icon,omitempty"`
	}

	CreateGoalRequest struct {
		Name          string       `json:"name"`
		Description   string       `json:"description,omitempty"`
		TargetAmount  Money        `json:"targetAmount"`
		CurrentAmount Money        `json:"currentAmount"`
		TargetDate    Date         `json:"targetDate"`
		Priority      GoalPriority `json:"priority"`
		Category      string       `json:"category,omitempty"`
	}

	UpdateGoalProgressRequest struct {
		Amount Money `json:"amount"`
	}

	// Patch payloads: nil fields are left untouched by the backend.

	AccountPatch struct {
		Name     *string      `json:"name,omitempty"`
		Type     *AccountType `json:"type,omitempty"`
		Balance  *Money       `json:"balance,omitempty"`
		Currency *string      `json:"currency,omitempty"`
	}

	TransactionPatch struct {
		Amount      *Money           `json:"amount,omitempty"`
		Type        *TransactionType `json:"type,omitempty"`
		Description *string          `json:"description,omitempty"`
		Date        *Date            `json:"transactionDate,omitempty"`
		AccountID   *int64           `json:"accountId,omitempty"`
		CategoryID  *int64           `json:"categoryId,omitempty"`
	}

	BudgetPatch struct {
		Name       *string       `json:"name,omitempty"`
		Amount     *Money        `json:"amount,omitempty"`
		Period     *BudgetPeriod `json:"period,omitempty"`
		StartDate  *Date         `json:"startDate,omitempty"`
		EndDate    *Date         `json:"endDate,omitempty"`
		CategoryID *int64        `json:"categoryId,omitempty"`
	}

	CategoryPatch struct {
		Name  *string       `json:"name,omitempty"`
		Type  *CategoryType `json:"type,omitempty"`
		Color *string       `json:"color,omitempty"`
		Icon  *string       `json:"icon,omitempty"`
	}

	GoalPatch struct {
		Name          *string       `json:"name,omitempty"`
		Description   *string       `json:"description,omitempty"`
		TargetAmount  *Money        `json:"targetAmount,omitempty"`
		CurrentAmount *Money        `json:"currentAmount,omitempty"`
		TargetDate    *Date         `json:"targetDate,omitempty"`
		Priority      *GoalPriority `json:"priority,omitempty"`
		Category      *string       `json:"category,omitempty"`
	}
)

const minPasswordLength = 6

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Identity returns the user carried by the response, whichever shape was used.
func (r AuthResponse) Identity() User {
	if r.User != nil {
		return *r.User
	}
	return User{ID: r.ID, Username: r.Username, Email: r.Email, Role: r.Role}
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.UsernameOrEmail) == "" || r.Password == "" {
		return ErrEmptyCredentials
	}
	return nil
}

func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return ErrEmptyName
	}
	if err := checkmail.ValidateFormat(r.Email); err != nil {
		return ErrInvalidEmail
	}
	if len(r.Password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func (r CreateAccountRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	if !ValidCurrency(r.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

func (r CreateTransactionRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(r.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if r.Date.IsZero() {
		return ErrMissingDate
	}
	if r.AccountID <= 0 {
		return ErrMissingAccount
	}
	return nil
}

func (r CreateBudgetRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !r.Period.Valid() {
		return ErrInvalidPeriod
	}
	if r.StartDate.IsZero() {
		return ErrMissingDate
	}
	if r.EndDate != nil && !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate.Time) {
		return ErrInvalidDateRange
	}
	return nil
}

func (r CreateCategoryRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !ValidCategoryType(r.Type) {
		return ErrInvalidType
	}
	return nil
}

func (r CreateGoalRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !r.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if r.TargetDate.IsZero() {
		return ErrMissingDate
	}
	if !r.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

func (r UpdateGoalProgressRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidCurrency reports whether code is a three-letter upper-case currency code.
func ValidCurrency(code string) bool {
	return currencyCode.MatchString(code)
}
