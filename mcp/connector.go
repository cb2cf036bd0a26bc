package mcp

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"

	globalconfig "agentflow/config"
	"agentflow/model"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"
)

// DialFunc creates a started client for server. Tests inject in-process
// clients through it.
type DialFunc func(ctx context.Context, server globalconfig.ServerConfig) (*client.Client, error)

// Connector opens MCP servers and adapts their tools.
type Connector struct {
	// ConnectTimeout bounds dialing, initializing and listing one server.
	ConnectTimeout time.Duration
	// CallTimeout bounds each remote tool invocation.
	CallTimeout time.Duration
	// Strict fails Connect when any server fails.
	Strict bool
	// Dial replaces the stdio/SSE/HTTP dialer when set.
	Dial DialFunc
}

func NewConnector(cfg globalconfig.MCPConfig) *Connector {
	return &Connector{
		ConnectTimeout: cfg.ConnectTimeout.Duration,
		CallTimeout:    cfg.CallTimeout.Duration,
		Strict:         cfg.Strict,
	}
}

// Session holds the connections opened by one Connect call. Close must be
// called once the tools are no longer needed.
type Session struct {
	conns []*Connection
	tools []model.Tool
	// Failures holds one *ProviderConnectionError per server that failed.
	Failures []error

	closeOnce sync.Once
	closeErr  error
}

// Connect opens every server concurrently, then lists and adapts their tools.
// A server that fails is recorded in Session.Failures and contributes no
// tools. In strict mode any failure closes the servers that did connect and
// returns the failures joined.
func (c *Connector) Connect(ctx context.Context, servers []globalconfig.ServerConfig) (*Session, error) {
	conns := make([]*Connection, len(servers))
	errs := make([]error, len(servers))

	var g errgroup.Group
	for i, server := range servers {
		g.Go(func() error {
			conns[i], errs[i] = c.open(ctx, server)
			return nil
		})
	}
	_ = g.Wait()

	s := &Session{}
	for i := range servers {
		if errs[i] != nil {
			s.Failures = append(s.Failures, errs[i])
			if globalconfig.DebugLog != nil {
				globalconfig.DebugLog.Printf("[MCP] Skipping server: %v", errs[i])
			}
			continue
		}
		s.conns = append(s.conns, conns[i])
	}

	if c.Strict && len(s.Failures) > 0 {
		if err := s.Close(); err != nil && globalconfig.DebugLog != nil {
			globalconfig.DebugLog.Printf("[MCP] Cleanup after strict failure: %v", err)
		}
		return nil, errors.Join(s.Failures...)
	}

	for _, conn := range s.conns {
		for _, def := range conn.Tools {
			s.tools = append(s.tools, newRemoteTool(conn, def, c.CallTimeout))
		}
	}

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Connected %d/%d servers, %d tools", len(s.conns), len(servers), len(s.tools))
	}
	return s, nil
}

// Scope connects, runs fn with the session and always closes it afterwards.
func (c *Connector) Scope(ctx context.Context, servers []globalconfig.ServerConfig, fn func(ctx context.Context, s *Session) error) error {
	s, err := c.Connect(ctx, servers)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && globalconfig.DebugLog != nil {
			globalconfig.DebugLog.Printf("[MCP] Scope cleanup: %v", cerr)
		}
	}()
	return fn(ctx, s)
}

func (c *Connector) open(ctx context.Context, server globalconfig.ServerConfig) (*Connection, error) {
	opCtx := ctx
	if c.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, c.ConnectTimeout)
		defer cancel()
	}

	// Transports are started with ctx rather than opCtx: an SSE stream lives
	// as long as its start context, which must outlast the connect timeout.
	type dialed struct {
		client *client.Client
		proc   *exec.Cmd
		err    error
	}
	ch := make(chan dialed, 1)
	go func() {
		var d dialed
		if c.Dial != nil {
			d.client, d.err = c.Dial(ctx, server)
		} else {
			d.client, d.proc, d.err = dialServer(ctx, server)
		}
		ch <- d
	}()

	var d dialed
	select {
	case d = <-ch:
	case <-opCtx.Done():
		go func() {
			if late := <-ch; late.client != nil {
				_ = closeConnection(server.Name, late.client, late.proc)
			}
		}()
		return nil, &ProviderConnectionError{Server: server.Name, Stage: StageConnect, Err: opCtx.Err()}
	}
	if d.err != nil {
		if d.client != nil {
			_ = closeConnection(server.Name, d.client, d.proc)
		}
		return nil, &ProviderConnectionError{Server: server.Name, Stage: StageConnect, Err: d.err}
	}

	conn := &Connection{Server: server, Client: d.client, Process: d.proc}

	if _, err := d.client.Initialize(opCtx, initializeRequest()); err != nil {
		_ = conn.close()
		return nil, &ProviderConnectionError{Server: server.Name, Stage: StageInitialize, Err: err}
	}

	listed, err := d.client.ListTools(opCtx, mcptypes.ListToolsRequest{})
	if err != nil {
		_ = conn.close()
		return nil, &ProviderConnectionError{Server: server.Name, Stage: StageListTools, Err: err}
	}
	conn.Tools = listed.Tools

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Server '%s' ready with %d tools", server.Name, len(conn.Tools))
	}
	return conn, nil
}

func (conn *Connection) close() error {
	return closeConnection(conn.Server.Name, conn.Client, conn.Process)
}

// Tools returns the adapted tools of every connected server, in server order
// and then catalog order.
func (s *Session) Tools() []model.Tool {
	if s == nil {
		return nil
	}
	return append([]model.Tool(nil), s.tools...)
}

// Connections returns the live connections in server order.
func (s *Session) Connections() []*Connection {
	if s == nil {
		return nil
	}
	return append([]*Connection(nil), s.conns...)
}

// Close closes every connection concurrently. It is safe to call more than
// once and on a nil session.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		errs := make([]error, len(s.conns))
		var g errgroup.Group
		for i, conn := range s.conns {
			g.Go(func() error {
				errs[i] = conn.close()
				return nil
			})
		}
		_ = g.Wait()
		s.closeErr = errors.Join(errs...)

		if globalconfig.DebugLog != nil {
			globalconfig.DebugLog.Printf("[MCP] Closed %d connections", len(s.conns))
		}
	})
	return s.closeErr
}
