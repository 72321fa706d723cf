package commands

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gitlab-pulse/internal/proxy"
	"gitlab-pulse/internal/server"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API, the GitLab proxy and metrics over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}
		if err := cfg.Validate(); err != nil {
			// The proxy reports this per request; views fail upstream.
			log.Warn().Err(err).Msg("Serving without GitLab credentials")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := build(cfg)
		go c.store.Run(ctx, cfg.SweepInterval)
		if cfg.Refresh > 0 {
			go c.dashboard.Warm(ctx, cfg.Refresh)
		}

		srv := server.New(c.dashboard, c.client, proxy.New(cfg.GitLab, server.ProxyPrefix))

		if serveOpen {
			go openBrowser(ctx, cfg.Addr)
		}
		return srv.Run(ctx, cfg.Addr)
	},
}

// openBrowser points the default browser at the overview once the listener
// has had a moment to come up.
func openBrowser(ctx context.Context, addr string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(500 * time.Millisecond):
	}
	url := "http://" + localAddr(addr) + "/api/dashboard/overview"
	if err := browser.OpenURL(url); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to open browser")
	}
}

func localAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || strings.Contains(host, ":") {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides PULSE_ADDR)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "open the overview in a browser")
}
