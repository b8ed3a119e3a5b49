package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/tourdesk/internal/common"
)

func TestClassify(t *testing.T) {
	ctx := context.Background()
	log := nopLogger()

	assert.NoError(t, classify(ctx, log, "op", nil))

	wrapped := fmt.Errorf("%w: email taken", common.ErrorConflict)
	assert.Same(t, wrapped, classify(ctx, log, "op", wrapped))

	verr := common.NewValidationError("name", "is required")
	assert.Equal(t, verr, classify(ctx, log, "op", verr))

	err := classify(ctx, log, "load thing", errors.New("pq: connection refused"))
	assert.ErrorIs(t, err, common.ErrorPersistence)
	assert.Equal(t, "load thing: persistence error", err.Error())
}
