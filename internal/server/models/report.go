package models

import "fmt"

// PackageLoad is one row of the capacity report: a package and how many
// active reservations it holds.
type PackageLoad struct {
	PackageID   int64
	Destination string
	MinSlots    int
	MaxSlots    int
	Active      int
}

// AlertKind distinguishes the two capacity alerts.
type AlertKind string

const (
	AlertInsufficient AlertKind = "insufficient"
	AlertOverbooking  AlertKind = "overbooking"
)

type Alert struct {
	PackageID int64
	Kind      AlertKind
	Message   string
}

// Alerts derives the capacity alerts for l. A load inside [min, max] yields
// none.
func (l PackageLoad) Alerts() []Alert {
	var alerts []Alert
	if l.Active < l.MinSlots {
		alerts = append(alerts, Alert{
			PackageID: l.PackageID,
			Kind:      AlertInsufficient,
			Message:   fmt.Sprintf("Insufficient (%d/%d) at %s", l.Active, l.MinSlots, l.Destination),
		})
	}
	if l.Active > l.MaxSlots {
		alerts = append(alerts, Alert{
			PackageID: l.PackageID,
			Kind:      AlertOverbooking,
			Message:   fmt.Sprintf("Overbooking at %s (exceeds %d slots)", l.Destination, l.MaxSlots),
		})
	}
	return alerts
}

// Dashboard summarises the current state of the agency.
type Dashboard struct {
	UpcomingPackages   int
	ActiveReservations int
	Alerts             []Alert
}
