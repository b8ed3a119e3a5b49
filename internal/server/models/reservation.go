package models

import "time"

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	ID         int64
	ClientID   int64
	PackageID  int64
	ReservedAt time.Time
	Status     ReservationStatus
}

// ReservationView is a reservation joined with the names a listing shows.
type ReservationView struct {
	Reservation
	ClientName   string
	ClientEmail  string
	Destination  string
	PackageStart time.Time
}

// CancelOutcome reports what a cancellation request did.
type CancelOutcome string

const (
	CancelOutcomeCancelled        CancelOutcome = "cancelled"
	CancelOutcomeAlreadyCancelled CancelOutcome = "already_cancelled"
)
