// payu-mcp is an MCP server exposing the PayU One API as agent tools.
// It speaks stdio by default, or HTTP/SSE with --sse for remote clients.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ginfw "github.com/gin-gonic/gin"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/payu-labs/payu-mcp-server/internal/config"
	"github.com/payu-labs/payu-mcp-server/internal/payu"
	"github.com/payu-labs/payu-mcp-server/internal/tools"
)

const serverVersion = "1.0.0"

func main() {
	useSSE := flag.Bool("sse", false, "Serve MCP over HTTP/SSE instead of stdio")
	port := flag.String("port", "", "HTTP port for SSE mode (defaults to PORT env)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// stdout carries the stdio transport; all logs go to stderr.
	logrus.SetOutput(os.Stderr)
	if *debug || os.Getenv("MCP_DEBUG") != "" {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logger := logrus.WithField("component", "payu-mcp")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("configuration error")
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	tokenSource := payu.NewTokenSource(httpClient, cfg.TokenURL, cfg.Credentials,
		payu.WithExpiryMargin(cfg.ExpiryMargin),
	)
	client := payu.NewClient(tokenSource, cfg.Credentials,
		payu.WithHTTPClient(httpClient),
		payu.WithBaseURL(cfg.BaseURL),
		payu.WithRetryPolicy(cfg.Retry),
	)

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "payu-mcp-server",
		Version: serverVersion,
	}, nil)
	tools.NewRegistry(client, logrus.WithField("component", "tools")).Install(server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *useSSE {
		listenPort := *port
		if listenPort == "" {
			listenPort = cfg.Port
		}
		runSSE(ctx, logger, server, listenPort)
		return
	}

	logger.Info("serving MCP over stdio")
	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		logger.WithError(err).Fatal("stdio server terminated")
	}
}

// runSSE hosts the SSE transport behind a gin router with a health probe.
func runSSE(ctx context.Context, logger *logrus.Entry, server *mcpsdk.Server, port string) {
	sseHandler := mcpsdk.NewSSEHandler(func(req *http.Request) *mcpsdk.Server {
		return server
	}, &mcpsdk.SSEOptions{})

	ginfw.SetMode(ginfw.ReleaseMode)
	router := ginfw.New()
	router.Use(ginfw.Recovery())
	router.GET("/healthz", func(c *ginfw.Context) {
		c.JSON(http.StatusOK, ginfw.H{"status": "ok", "version": serverVersion})
	})
	router.Any("/sse", ginfw.WrapH(sseHandler))
	router.Any("/messages", ginfw.WrapH(sseHandler))

	httpServer := &http.Server{
		Addr:              ":" + strings.TrimPrefix(port, ":"),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("serving MCP over HTTP/SSE")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.WithError(err).Fatal("http server terminated")
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown incomplete")
		}
	}
}
