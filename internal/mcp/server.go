package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/repcoach/internal/cache"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/session"
)

// CacheStore abstracts the local state database for MCP tools. Satisfied by
// *cache.StateDB.
type CacheStore interface {
	AddLog(set models.LoggedSet) error
	Logs() ([]models.LoggedSet, error)
	HasUnsynced() (bool, error)
	OfflineMode() (bool, error)
	AutoSync() (bool, error)
}

// Compile-time check: *cache.StateDB satisfies CacheStore.
var _ CacheStore = (*cache.StateDB)(nil)

// New creates an MCP server with all tools and resources registered. The
// server drives the live Session, so a coach can read state, log sets and run
// the rest timer on the user's behalf.
func New(sess *session.Session, store CacheStore, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepCoach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepCoach workout session server. Inspect the active workout session, log completed sets, control the rest timer, and check the offline cache and sync status."),
	)

	h := &handlers{sess: sess, store: store, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetSessionState, Handler: h.getSessionState},
		server.ServerTool{Tool: toolGetNextTarget, Handler: h.getNextTarget},
		server.ServerTool{Tool: toolLogSet, Handler: h.logSet},
		server.ServerTool{Tool: toolStartRest, Handler: h.startRest},
		server.ServerTool{Tool: toolGetCachedLogs, Handler: h.getCachedLogs},
		server.ServerTool{Tool: toolGetSyncStatus, Handler: h.getSyncStatus},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resSession, Handler: h.sessionResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	sess  *session.Session
	store CacheStore
	log   *slog.Logger
}

// --- Resource definitions ---

var resSession = mcp.NewResource(
	"repcoach://session",
	"Active Session",
	mcp.WithResourceDescription("The active workout session: plan, cursor position, input values, logged sets and rest timer state"),
	mcp.WithMIMEType("application/json"),
)
