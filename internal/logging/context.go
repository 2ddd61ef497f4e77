package logging

import "context"

type contextKey string

const agentIDKey contextKey = "agent_id"

// WithAgentID stamps ctx with the calling agent's name, so any log event
// issued with this context carries it via ContextHook.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentIDKey, agentID)
}

// GetAgentID retrieves the agent name stamped by WithAgentID, or "" if
// none was set.
func GetAgentID(ctx context.Context) string {
	if id, ok := ctx.Value(agentIDKey).(string); ok {
		return id
	}
	return ""
}
