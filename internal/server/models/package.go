package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/timex"
)

// Category classifies a package's service level.
type Category string

const (
	CategoryLuxury   Category = "Luxury"
	CategoryStandard Category = "Standard"
	CategoryEconomy  Category = "Economy"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryLuxury, CategoryStandard, CategoryEconomy:
		return true
	}
	return false
}

const (
	maxDestinationLen = 100
	minDestinationLen = 3
	maxFreeTextLen    = 500
)

// PackageFields is the full set of admin-editable package attributes.
// Updates replace every field.
type PackageFields struct {
	Destination        string
	StartDate          time.Time
	EndDate            time.Time
	Price              float64
	MinSlots           int
	MaxSlots           int
	Category           Category
	Description        string
	CancellationPolicy string
}

// Normalize trims surrounding whitespace and drops the time of day from
// both dates.
func (f *PackageFields) Normalize() {
	f.Destination = strings.TrimSpace(f.Destination)
	f.Description = strings.TrimSpace(f.Description)
	f.CancellationPolicy = strings.TrimSpace(f.CancellationPolicy)
	f.StartDate = timex.DateOf(f.StartDate)
	f.EndDate = timex.DateOf(f.EndDate)
}

// Validate checks the package business rules. Dates compare by calendar
// day: package dates in their own zone, today in now's zone. When
// requireFuture is set the start date must fall strictly after today.
func (f PackageFields) Validate(now time.Time, requireFuture bool) error {
	verr := &common.ValidationError{}

	n := utf8.RuneCountInString(f.Destination)
	if n < minDestinationLen || n > maxDestinationLen {
		verr.Add("destination", "must be between 3 and 100 characters")
	}

	switch {
	case f.StartDate.IsZero():
		verr.Add("start_date", "is required")
	case requireFuture && !timex.DateOf(f.StartDate).After(timex.DateOf(now)):
		verr.Add("start_date", "must be in the future")
	}

	switch {
	case f.EndDate.IsZero():
		verr.Add("end_date", "is required")
	case !f.StartDate.IsZero() && !timex.DateOf(f.EndDate).After(timex.DateOf(f.StartDate)):
		verr.Add("end_date", "must be after start date")
	}

	if f.Price <= 0 {
		verr.Add("price", "must be greater than zero")
	}
	if f.MinSlots < 1 {
		verr.Add("min_slots", "must be at least 1")
	}
	if f.MaxSlots < 1 {
		verr.Add("max_slots", "must be at least 1")
	} else if f.MaxSlots < f.MinSlots {
		verr.Add("max_slots", "must be greater than or equal to min slots")
	}
	if !f.Category.Valid() {
		verr.Add("category", "must be one of Luxury, Standard, Economy")
	}
	if utf8.RuneCountInString(f.Description) > maxFreeTextLen {
		verr.Add("description", "must be at most 500 characters")
	}
	if utf8.RuneCountInString(f.CancellationPolicy) > maxFreeTextLen {
		verr.Add("cancellation_policy", "must be at most 500 characters")
	}

	return verr.OrNil()
}

// Package is a sellable travel offering.
type Package struct {
	ID int64
	PackageFields
	CreatedAt time.Time
}

// PackageDetail is a package together with its live availability.
type PackageDetail struct {
	Package
	AvailableSlots int
}
