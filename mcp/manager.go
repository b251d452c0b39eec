// MCP Server Manager.
//
// Tracks connected servers and exposes their tools as namespaced agent
// tools. Before each call, the manager runs a cheap liveness check with
// a short timeout; on failure it invokes the configured refresher, which
// may return a replacement client, and retries.

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// livenessTimeout bounds the pre-call health probe.
	livenessTimeout = 2 * time.Second
	// maxCallAttempts is how many times a call is tried across refreshes.
	maxCallAttempts = 3
)

// Refresher is invoked when a server fails its liveness check. It may
// return a replacement client (e.g. after restarting the process) or an
// error to give up.
type Refresher func(ctx context.Context, serverID string) (*Client, error)

// Manager holds the clients of all configured MCP servers.
type Manager struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	refresher Refresher
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]*Client)}
}

// WithRefresher sets the callback used to replace dead servers.
func (m *Manager) WithRefresher(refresher Refresher) *Manager {
	m.refresher = refresher
	return m
}

// AddClient registers an already-connected client under a server id.
func (m *Manager) AddClient(id string, client *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.clients[id]; exists {
		return fmt.Errorf("MCP server %q already exists", id)
	}
	m.clients[id] = client
	slog.Info("added MCP server", "server_id", id)
	return nil
}

// AddServer launches a server from its config and registers it.
// Disabled configs are skipped without error.
func (m *Manager) AddServer(ctx context.Context, config ServerConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if !config.Enabled {
		slog.Info("skipping disabled MCP server", "server_id", config.ID)
		return nil
	}

	client, err := NewClient(ctx, config.Command, config.Args, config.Env)
	if err != nil {
		return fmt.Errorf("connect MCP server %q: %w", config.ID, err)
	}
	return m.AddClient(config.ID, client)
}

// Client returns the client of a server.
func (m *Manager) Client(id string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, ok := m.clients[id]
	return client, ok
}

// ServerIDs returns all registered server ids.
func (m *Manager) ServerIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	return ids
}

// ServerCount returns the number of registered servers.
func (m *Manager) ServerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Close shuts down all servers.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, client := range m.clients {
		if err := client.Close(); err != nil {
			slog.Warn("closing MCP server failed", "server_id", id, "error", err)
		}
		delete(m.clients, id)
	}
}

func (m *Manager) replaceClient(id string, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.clients[id]; ok {
		_ = old.Close()
	}
	m.clients[id] = client
}

// ensureAlive probes a server and, when the probe fails, asks the
// refresher for a replacement client.
func (m *Manager) ensureAlive(ctx context.Context, id string) (*Client, error) {
	client, ok := m.Client(id)
	if ok {
		probeCtx, cancel := context.WithTimeout(ctx, livenessTimeout)
		err := client.Ping(probeCtx)
		cancel()
		if err == nil {
			return client, nil
		}
		slog.Warn("MCP server failed liveness check", "server_id", id, "error", err)
	}

	if m.refresher == nil {
		return nil, fmt.Errorf("MCP server %q is not responding", id)
	}

	replacement, err := m.refresher(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refresh MCP server %q: %w", id, err)
	}
	m.replaceClient(id, replacement)
	slog.Info("refreshed MCP server", "server_id", id)
	return replacement, nil
}

// Call invokes a tool on a server, checking liveness first and retrying
// through the refresher up to maxCallAttempts times.
func (m *Manager) Call(ctx context.Context, serverID, toolName string, arguments []byte) (*CallResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxCallAttempts; attempt++ {
		client, err := m.ensureAlive(ctx, serverID)
		if err != nil {
			lastErr = err
			continue
		}

		result, err := client.CallTool(ctx, toolName, arguments)
		if err == nil {
			return result, nil
		}
		lastErr = err
		slog.Warn("MCP tool call failed", "server_id", serverID, "tool", toolName,
			"attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("MCP call %s on %q failed after %d attempts: %w",
		toolName, serverID, maxCallAttempts, lastErr)
}

// ListAllTools returns the tools of every server, tagged with their
// server id. A failing server is logged and skipped so one dead server
// does not hide the others.
func (m *Manager) ListAllTools(ctx context.Context) []ServerTool {
	var all []ServerTool
	for _, id := range m.ServerIDs() {
		client, ok := m.Client(id)
		if !ok {
			continue
		}
		tools, err := client.ListTools(ctx)
		if err != nil {
			slog.Warn("listing MCP tools failed", "server_id", id, "error", err)
			continue
		}
		for _, tool := range tools {
			all = append(all, ServerTool{ServerID: id, Info: tool})
		}
	}
	return all
}

// ServerTool is a tool together with the server it belongs to.
type ServerTool struct {
	ServerID string
	Info     ToolInfo
}
