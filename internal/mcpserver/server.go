// Package mcpserver exposes transaction categorization as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// ErrMissingCategorizer is returned when no categorizer is provided.
var ErrMissingCategorizer = errors.New("mcpserver: categorizer is required")

// Categorizer decides the category of one transaction.
type Categorizer interface {
	Categorize(ctx context.Context, txn model.NormalizedTransaction, cfg model.CategorizationConfig) (model.CategorizationResult, error)
}

// ConfigResolver returns an organization's categorization settings.
type ConfigResolver interface {
	Get(ctx context.Context, orgID string) model.CategorizationConfig
}

// Deps are the services the tools call.
type Deps struct {
	Categorizer Categorizer
	Resolver    ConfigResolver // optional, ecommerce defaults when nil
	Taxonomy    *taxonomy.Taxonomy
	Logger      *slog.Logger
}

// Server is the MCP server.
type Server struct {
	deps   Deps
	server *mcp.Server
	logger *slog.Logger
}

// NewServer creates a server with the categorization tools registered.
func NewServer(deps Deps, version string) (*Server, error) {
	if deps.Categorizer == nil {
		return nil, ErrMissingCategorizer
	}
	if deps.Taxonomy == nil {
		deps.Taxonomy = taxonomy.Ecommerce()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		deps:   deps,
		server: mcp.NewServer(&mcp.Implementation{Name: "pnlcat", Version: version}, nil),
		logger: common.ComponentLogger(logger, "mcp"),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is canceled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("Serving MCP over HTTP", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}

// Connect attaches the server to an already established transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}
