package common

// Default page sizes, matching what the back office screens show.
const (
	DefaultPackagesPageSize     = 10
	DefaultReservationsPageSize = 10
	DefaultAuditPageSize        = 20
	MaxPageSize                 = 100
)
