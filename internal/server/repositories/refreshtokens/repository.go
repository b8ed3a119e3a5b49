// Package refreshtokens stores the opaque refresh tokens issued at login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.RefreshToken) error

	// Consume deletes the token and returns the row it held, so a token can
	// be exchanged at most once. Unknown tokens yield common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a token. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired drops the user's tokens that expired before the given time.
	DeleteExpired(ctx context.Context, userID int64, before time.Time) (int64, error)
}
