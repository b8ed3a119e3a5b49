package httpapi

import (
	"time"

	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/services"
)

const dateLayout = "2006-01-02"

type pageQuery struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

func (q pageQuery) request() models.PageRequest {
	return models.PageRequest{Page: q.Page, PageSize: q.PageSize}
}

type pageResponse[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
}

func newPageResponse[M, T any](p models.Page[M], conv func(M) T) pageResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, m := range p.Items {
		items = append(items, conv(m))
	}
	return pageResponse[T]{Items: items, Page: p.Page, PageSize: p.PageSize, Total: p.Total, Pages: p.Pages()}
}

// --- auth ---

type registerRequest struct {
	UserName   string `json:"username" validate:"required"`
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	SecretCode string `json:"secret_code"`
}

type loginRequest struct {
	UserName string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID        int64       `json:"id"`
	UserName  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

func toUserResponse(u *models.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, UserName: u.UserName, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	User         *userResponse `json:"user,omitempty"`
}

func toTokenResponse(p *services.TokenPair, u *models.User) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		User:         toUserResponse(u),
	}
}

// --- packages ---

type packageRequest struct {
	Destination        string  `json:"destination" validate:"required"`
	StartDate          string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Price              float64 `json:"price" validate:"gt=0"`
	MinSlots           int     `json:"min_slots" validate:"gte=1"`
	MaxSlots           int     `json:"max_slots" validate:"gte=1"`
	Category           string  `json:"category" validate:"required,oneof=Luxury Standard Economy"`
	Description        string  `json:"description"`
	CancellationPolicy string  `json:"cancellation_policy"`
}

// fields converts a validated request. Dates were checked by the
// validator, so parse errors cannot occur here.
func (r packageRequest) fields() models.PackageFields {
	start, _ := time.Parse(dateLayout, r.StartDate)
	end, _ := time.Parse(dateLayout, r.EndDate)
	return models.PackageFields{
		Destination:        r.Destination,
		StartDate:          start,
		EndDate:            end,
		Price:              r.Price,
		MinSlots:           r.MinSlots,
		MaxSlots:           r.MaxSlots,
		Category:           models.Category(r.Category),
		Description:        r.Description,
		CancellationPolicy: r.CancellationPolicy,
	}
}

type packageResponse struct {
	ID                 int64           `json:"id"`
	Destination        string          `json:"destination"`
	StartDate          string          `json:"start_date"`
	EndDate            string          `json:"end_date"`
	Price              float64         `json:"price"`
	MinSlots           int             `json:"min_slots"`
	MaxSlots           int             `json:"max_slots"`
	Category           models.Category `json:"category"`
	Description        string          `json:"description"`
	CancellationPolicy string          `json:"cancellation_policy"`
	CreatedAt          time.Time       `json:"created_at"`
	AvailableSlots     *int            `json:"available_slots,omitempty"`
}

func toPackageResponse(p models.Package) packageResponse {
	return packageResponse{
		ID:                 p.ID,
		Destination:        p.Destination,
		StartDate:          p.StartDate.Format(dateLayout),
		EndDate:            p.EndDate.Format(dateLayout),
		Price:              p.Price,
		MinSlots:           p.MinSlots,
		MaxSlots:           p.MaxSlots,
		Category:           p.Category,
		Description:        p.Description,
		CancellationPolicy: p.CancellationPolicy,
		CreatedAt:          p.CreatedAt,
	}
}

func toPackageDetailResponse(d *models.PackageDetail) packageResponse {
	r := toPackageResponse(d.Package)
	slots := d.AvailableSlots
	r.AvailableSlots = &slots
	return r
}

// --- reservations and clients ---

type reservationRequest struct {
	PackageID   int64  `json:"package_id" validate:"gt=0"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

type cancelResponse struct {
	Outcome models.CancelOutcome `json:"outcome"`
}

type reservationResponse struct {
	ID         int64                    `json:"id"`
	ClientID   int64                    `json:"client_id"`
	PackageID  int64                    `json:"package_id"`
	ReservedAt time.Time                `json:"reserved_at"`
	Status     models.ReservationStatus `json:"status"`
}

func toReservationResponse(r models.Reservation) reservationResponse {
	return reservationResponse{
		ID:         r.ID,
		ClientID:   r.ClientID,
		PackageID:  r.PackageID,
		ReservedAt: r.ReservedAt,
		Status:     r.Status,
	}
}

type reservationViewResponse struct {
	reservationResponse
	ClientName   string `json:"client_name"`
	ClientEmail  string `json:"client_email"`
	Destination  string `json:"destination"`
	PackageStart string `json:"package_start"`
}

func toReservationViewResponse(v models.ReservationView) reservationViewResponse {
	return reservationViewResponse{
		reservationResponse: toReservationResponse(v.Reservation),
		ClientName:          v.ClientName,
		ClientEmail:         v.ClientEmail,
		Destination:         v.Destination,
		PackageStart:        v.PackageStart.Format(dateLayout),
	}
}

type clientResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toClientResponse(c *models.Client) clientResponse {
	return clientResponse{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, CreatedAt: c.CreatedAt}
}

// --- reports and audit ---

type alertResponse struct {
	PackageID int64            `json:"package_id"`
	Kind      models.AlertKind `json:"kind"`
	Message   string           `json:"message"`
}

func toAlertResponses(alerts []models.Alert) []alertResponse {
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertResponse{PackageID: a.PackageID, Kind: a.Kind, Message: a.Message})
	}
	return out
}

type dashboardResponse struct {
	UpcomingPackages   int             `json:"upcoming_packages"`
	ActiveReservations int             `json:"active_reservations"`
	Alerts             []alertResponse `json:"alerts"`
}

type archiveResponse struct {
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
	Entries int    `json:"entries"`
}
