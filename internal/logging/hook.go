package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts the agent id from an event's context and adds it
// to the emitted log line.
type ContextHook struct{}

func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil || ctx == context.Background() {
		return
	}
	if agentID := GetAgentID(ctx); agentID != "" {
		e.Str("agent_id", agentID)
	}
}
