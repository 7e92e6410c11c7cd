// Command menuboard shows the available canteen menu in a terminal and keeps
// it current by polling the API or following its event stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/erazemk/menza/internal/client"
	"github.com/erazemk/menza/internal/config"
	"github.com/erazemk/menza/internal/model"
)

func main() {
	fs := flag.NewFlagSet("menuboard", flag.ContinueOnError)

	var envFile string
	fs.StringVar(&envFile, "env", ".env", "")
	fs.StringVar(&envFile, "e", ".env", "")

	var apiURL string
	fs.StringVar(&apiURL, "api", "", "")

	var mode string
	fs.StringVar(&mode, "mode", "live", "")
	fs.StringVar(&mode, "m", "live", "")

	var interval time.Duration
	fs.DurationVar(&interval, "interval", 0, "")
	fs.DurationVar(&interval, "i", 0, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: menuboard [flags]

Flags:
  -e, -env <path>          dotenv file to load (default: .env, optional)
      -api <url>           API base URL (env API_BASE_URL, default: http://localhost:3001/api)
  -m, -mode <poll|live>    follow the event stream or poll (default: live)
  -i, -interval <dur>      poll interval (env POLL_INTERVAL, default: 30s)
  -h, -help                show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if apiURL != "" {
		cfg.APIBaseURL = strings.TrimRight(apiURL, "/")
	}
	if interval != 0 {
		cfg.PollInterval = interval
	}
	if cfg.PollInterval <= 0 {
		fmt.Fprintf(os.Stderr, "error: poll interval must be positive, got %s\n", cfg.PollInterval)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncer := client.NewSyncer(client.New(cfg.APIBaseURL), cfg.PollInterval)
	show := func(u client.Update) { render(os.Stdout, u) }

	switch mode {
	case "poll":
		err = syncer.Poll(ctx, show)
	case "live":
		err = syncer.Subscribe(ctx, show)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want poll or live)\n", mode)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("menu board stopped", "error", err)
		os.Exit(1)
	}
}

// render redraws the board.
func render(w io.Writer, u client.Update) {
	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	b.WriteString("Today's Available Menu\n")

	if md := u.Snapshot.Metadata; md != nil {
		fmt.Fprintf(&b, "Last updated %s by %s\n",
			md.Timestamp.Local().Format("Mon Jan 2 15:04"), md.UpdatedBy)
	}
	if u.Stale {
		fmt.Fprintf(&b, "! Offline, showing saved menu: %v\n", u.Err)
	}

	groups := model.GroupByCategory(model.Available(u.Snapshot.Items))
	if len(groups) == 0 {
		b.WriteString("\nNo items available.\n")
	}
	for _, g := range groups {
		fmt.Fprintf(&b, "\n%s\n", model.CategoryLabel(g.Category))
		for _, item := range g.Items {
			price := "₹" + strconv.FormatFloat(item.Price, 'f', -1, 64)
			fmt.Fprintf(&b, "  %-32s %8s\n", item.Name, price)
		}
	}

	io.WriteString(w, b.String())
}
