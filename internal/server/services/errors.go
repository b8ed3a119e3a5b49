package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/logging"
)

// known are the errors callers are expected to branch on. Anything else
// leaving a service is reported as common.ErrorPersistence.
var known = []error{
	common.ErrorNotFound,
	common.ErrorConflict,
	common.ErrorValidation,
	common.ErrorUnauthorized,
	common.ErrorForbidden,
	common.ErrorCapacityExceeded,
	common.ErrInvalidToken,
	common.ErrTokenExpired,
	common.ErrTokenRevoked,
	common.ErrRefreshTokenExpired,
}

// classify passes domain errors through and turns everything else into
// common.ErrorPersistence, logging the underlying cause.
func classify(ctx context.Context, logger logging.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	logger.Error(ctx, "operation failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, common.ErrorPersistence)
}
