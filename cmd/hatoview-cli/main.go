package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"hatoview/internal/config"
	"hatoview/internal/dashboard"
	"hatoview/internal/database"
	"hatoview/internal/session"
	"hatoview/internal/transport"
	"hatoview/internal/view"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	kindName := flag.String("view", string(view.KindTriggers), "View to show: events, triggers or items")
	page := flag.Int("page", 0, "Page to open, starting at 0")
	once := flag.Bool("once", false, "Print one page and exit")
	filters := flag.String("filters", "", "Initial filters as a query string, e.g. serverId=1&hostId=10")
	flag.Parse()

	if err := run(*configFile, *kindName, *page, *once, *filters); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(configFile, kindName string, page int, once bool, filters string) error {
	kind, ok := view.ParseKind(kindName)
	if !ok {
		return fmt.Errorf("unknown view %q", kindName)
	}
	seed, err := url.ParseQuery(filters)
	if err != nil {
		return fmt.Errorf("invalid filters: %w", err)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	// Log lines would tear the terminal UI apart.
	logrus.SetLevel(logrus.WarnLevel)
	if !once {
		logrus.SetLevel(logrus.PanicLevel)
	}

	var store *database.BoltStore
	if cfg.UserConfig.Store == config.StoreBolt {
		store, err = database.NewBoltStore(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	creds := session.StaticCredentials{User: cfg.Backend.User, Password: cfg.Backend.Password}
	if creds.User != "" && creds.Password == "" {
		// Asked up front; the interactive pager owns the terminal later.
		if creds.Password, err = promptPassword(creds.User); err != nil {
			return err
		}
	}

	client, err := transport.New(transport.Options{
		BaseURL:           cfg.Backend.URL,
		Timeout:           cfg.Backend.Timeout,
		Credentials:       creds,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	})
	if err != nil {
		return err
	}

	userConfig, err := dashboard.NewUserConfigStore(cfg, client, store, nil)
	if err != nil {
		return err
	}

	deps := view.Deps{
		Client:         client,
		Config:         userConfig,
		ReloadInterval: cfg.Views.ReloadInterval,
		AutoRefresh:    cfg.Views.AutoRefreshEnabled() && !once,
		MaxPagesToShow: cfg.Views.MaxPagesToShow,
		RecordsPerPage: cfg.Views.RecordsPerPage,
		URL:            seed,
	}

	ctx := context.Background()

	if once {
		v, err := view.New(kind, deps)
		if err != nil {
			return err
		}
		defer v.Stop()
		if err := openPage(ctx, v, page); err != nil {
			return err
		}
		m, _ := v.Model()
		fmt.Println(renderModel(m, 0))
		return nil
	}

	renders := make(chan view.Model, 16)
	deps.OnRender = func(m view.Model) {
		select {
		case renders <- m:
		default:
		}
	}
	v, err := view.New(kind, deps)
	if err != nil {
		return err
	}
	defer v.Stop()

	p := tea.NewProgram(newUI(ctx, v, page, renders), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// openPage loads the saved state and then the requested page.
func openPage(ctx context.Context, v view.View, page int) error {
	if err := v.Start(ctx); err != nil {
		return err
	}
	if page > 0 {
		return v.SelectPage(ctx, page)
	}
	return nil
}

// promptPassword reads a password without echo. When stdin is not a
// terminal (piped input) it reads one line instead.
func promptPassword(user string) (string, error) {
	return readPassword(os.Stdin, user)
}

func readPassword(in *os.File, user string) (string, error) {
	fmt.Fprintf(os.Stderr, "Password for %s: ", user)

	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
