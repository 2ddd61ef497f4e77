package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithAgentIDRoundTrip(t *testing.T) {
	ctx := WithAgentID(context.Background(), "agent-a")
	assert.Equal(t, "agent-a", GetAgentID(ctx))
}

func TestGetAgentIDMissingReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", GetAgentID(context.Background()))
}
