package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// DayLayout is the calendar-day format used for recharge and validity dates.
	DayLayout = "2006-01-02"
	// ClockLayout is the time-of-day format used for recharges.
	ClockLayout = "15:04"

	DefaultUser1Label = "User 1"
	DefaultUser2Label = "User 2"

	MinUsernameLength = 2
)

type (
	SimCard struct {
		ID        string `json:"id"`
		Number    string `json:"number"`
		Name      string `json:"name"`
		CreatedAt string `json:"createdAt"`
		// Persisted under the historical userNNumber keys.
		User1Label string `json:"user1Number,omitempty"`
		User2Label string `json:"user2Number,omitempty"`
	}

	Recharge struct {
		ID          string  `json:"id"`
		SimID       string  `json:"simId"`
		Time        string  `json:"time"`
		OperationID string  `json:"operationId"`
		Amount      float64 `json:"amount"`
		ForUser1    bool    `json:"forUser1"`
		ForUser2    bool    `json:"forUser2"`
		Date        string  `json:"date"`
		CreatedAt   string  `json:"createdAt"`
	}

	// NewRecharge carries the caller-supplied fields of a recharge; the store
	// assigns ID and CreatedAt.
	NewRecharge struct {
		SimID       string
		Date        string
		Time        string
		OperationID string
		Amount      float64
		ForUser1    bool
		ForUser2    bool
	}

	SimService struct {
		Name       string `json:"name"`
		Minutes    *int   `json:"minutes,omitempty"`
		Data       *int   `json:"data,omitempty"`
		SMS        *int   `json:"sms,omitempty"`
		Details    string `json:"details"`
		ExpiryDate string `json:"expiryDate"`
	}

	SimBalance struct {
		Credit       float64      `json:"credit"`
		ValidityDate string       `json:"validityDate"`
		Services     []SimService `json:"services"`
	}

	User struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		IsLoggedIn bool   `json:"isLoggedIn"`
	}

	// DailyTotals splits one day's recharges of a SIM between its two users.
	// A recharge flagged for both users counts in both user totals.
	DailyTotals struct {
		Total      float64 `json:"total"`
		User1Total float64 `json:"user1Total"`
		User2Total float64 `json:"user2Total"`
		User1Label string  `json:"user1Label"`
		User2Label string  `json:"user2Label"`
	}

	// SimCardPatch lists the SIM fields to overwrite; nil fields are kept.
	SimCardPatch struct {
		Number     *string `json:"number,omitempty"`
		Name       *string `json:"name,omitempty"`
		User1Label *string `json:"user1Label,omitempty"`
		User2Label *string `json:"user2Label,omitempty"`
	}

	// RechargePatch lists the recharge fields to overwrite; nil fields are kept.
	RechargePatch struct {
		SimID       *string  `json:"simId,omitempty"`
		Date        *string  `json:"date,omitempty"`
		Time        *string  `json:"time,omitempty"`
		OperationID *string  `json:"operationId,omitempty"`
		Amount      *float64 `json:"amount,omitempty"`
		ForUser1    *bool    `json:"forUser1,omitempty"`
		ForUser2    *bool    `json:"forUser2,omitempty"`
	}
)

var (
	ErrEmptyNumber     = errors.New("empty SIM number")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTime     = errors.New("invalid time")
	ErrSimNotFound     = errors.New("SIM card not found")
	ErrInvalidUsername = errors.New("username must be at least 2 characters")
	ErrEmptyService    = errors.New("service name and expiry date are required")
)

// Labels returns the configured user labels, falling back to the defaults.
func (s SimCard) Labels() (string, string) {
	l1, l2 := s.User1Label, s.User2Label
	if strings.TrimSpace(l1) == "" {
		l1 = DefaultUser1Label
	}
	if strings.TrimSpace(l2) == "" {
		l2 = DefaultUser2Label
	}
	return l1, l2
}

// Apply returns a copy of s with the patch merged in.
func (p SimCardPatch) Apply(s SimCard) SimCard {
	if p.Number != nil {
		s.Number = *p.Number
	}
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.User1Label != nil {
		s.User1Label = *p.User1Label
	}
	if p.User2Label != nil {
		s.User2Label = *p.User2Label
	}
	return s
}

// Apply returns a copy of r with the patch merged in.
func (p RechargePatch) Apply(r Recharge) Recharge {
	if p.SimID != nil {
		r.SimID = *p.SimID
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.OperationID != nil {
		r.OperationID = *p.OperationID
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.ForUser1 != nil {
		r.ForUser1 = *p.ForUser1
	}
	if p.ForUser2 != nil {
		r.ForUser2 = *p.ForUser2
	}
	return r
}

func (r NewRecharge) Validate() error {
	if strings.TrimSpace(r.SimID) == "" {
		return ErrSimNotFound
	}
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	if err := ValidateDay(r.Date); err != nil {
		return err
	}
	if err := ValidateClock(r.Time); err != nil {
		return err
	}
	return nil
}

func (s SimService) Validate() error {
	if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.ExpiryDate) == "" {
		return ErrEmptyService
	}
	return ValidateDay(s.ExpiryDate)
}

func (b SimBalance) Validate() error {
	if err := ValidateDay(b.ValidityDate); err != nil {
		return errors.New("invalid validity date: " + err.Error())
	}
	for _, s := range b.Services {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDay checks a yyyy-mm-dd calendar day.
func ValidateDay(s string) error {
	if _, err := time.Parse(DayLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateClock checks an HH:mm time of day.
func ValidateClock(s string) error {
	if _, err := time.Parse(ClockLayout, s); err != nil {
		return ErrInvalidTime
	}
	return nil
}

func ValidateUsername(username string) error {
	if len([]rune(strings.TrimSpace(username))) < MinUsernameLength {
		return ErrInvalidUsername
	}
	return nil
}

// FormatDay renders t as a calendar day in t's location.
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// FormatClock renders t as HH:mm in t's location.
func FormatClock(t time.Time) string {
	return t.Format(ClockLayout)
}
