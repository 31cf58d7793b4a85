package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RunIDFromContext(ctx))
	assert.Empty(t, CorrelationIDFromContext(ctx))

	ctx = WithRunID(ctx, "run-1")
	ctx = WithCorrelationID(ctx, "abcd1234")
	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Equal(t, "abcd1234", CorrelationIDFromContext(ctx))
}
