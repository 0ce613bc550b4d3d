// Package cli implements the storekeeper-admin subcommands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dmitrijs2005/storekeeper/internal/admin/client"
	"github.com/dmitrijs2005/storekeeper/internal/admin/config"
	"github.com/dmitrijs2005/storekeeper/internal/common"
	"github.com/dmitrijs2005/storekeeper/internal/filex"
	"github.com/dmitrijs2005/storekeeper/internal/flagx"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// ErrUsage is returned for unknown commands and bad arguments.
var ErrUsage = errors.New("usage error")

const usage = `Usage: storekeeper-admin [-a server-url] [-i timeout-seconds] [-c config.json] <command> [flags]

Commands:
  status                              show whether secrets have been stored
  health                              check server and store health
  setup -f secrets.json [-t token]    store secrets (once)
  audit -action name [-d key=value]   record an audit entry
  audit-logs                          list recent audit entries
  oauth-status -p provider             show whether a provider is connected
  grant -item ref [-buyer ref]        issue a delivery link for an item
  deliver -s session-id               show the delivery link for a session
`

type App struct {
	config *config.Config
	client *client.Client
	out    io.Writer
}

func NewApp(cfg *config.Config, out io.Writer) *App {
	return &App{
		config: cfg,
		client: client.New(cfg.ServerURL, cfg.Timeout),
		out:    out,
	}
}

// Run dispatches args (os.Args[1:]) to a subcommand.
func (a *App) Run(ctx context.Context, args []string) error {
	cmd, rest := splitCommand(args)

	switch cmd {
	case "status":
		return a.status(ctx)
	case "health":
		return a.health(ctx)
	case "setup":
		return a.setup(ctx, rest)
	case "audit":
		return a.audit(ctx, rest)
	case "audit-logs":
		return a.auditLogs(ctx)
	case "oauth-status":
		return a.oauthStatus(ctx, rest)
	case "grant":
		return a.grant(ctx, rest)
	case "deliver":
		return a.deliver(ctx, rest)
	case "", "help":
		fmt.Fprint(a.out, usage)
		if cmd == "" {
			return ErrUsage
		}
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

// splitCommand skips the global flags and returns the subcommand with its
// own arguments.
func splitCommand(args []string) (string, []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return arg, args[i+1:]
		}
		if strings.Contains(arg, "=") {
			continue
		}
		if slices.Contains(config.GlobalFlags, arg) {
			i++
		}
	}
	return "", nil
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func (a *App) status(ctx context.Context) error {
	ok, err := a.client.SetupStatus(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(a.out, "secrets: initialized")
	} else {
		fmt.Fprintln(a.out, "secrets: not initialized")
	}
	return nil
}

func (a *App) health(ctx context.Context) error {
	if err := a.client.Health(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func (a *App) setup(ctx context.Context, args []string) error {
	fs := newFlagSet("setup", a.out)
	file := fs.String("f", "", "JSON file with secret names and values")
	token := fs.String("t", "", "setup token")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *file == "" {
		return fmt.Errorf("%w: setup requires -f", ErrUsage)
	}

	var secrets map[string]string
	if err := filex.ReadJSONFile(*file, &secrets); err != nil {
		return err
	}

	tok := *token
	if tok == "" {
		tok = a.config.SetupToken
	}
	if tok == "" {
		b, err := a.promptToken()
		if err != nil {
			return err
		}
		defer common.WipeByteArray(b)
		tok = string(b)
	}

	keys, err := a.client.StoreSecrets(ctx, tok, secrets)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "stored %d secret(s): %s\n", len(keys), strings.Join(keys, ", "))
	return nil
}

func (a *App) promptToken() ([]byte, error) {
	fmt.Fprint(a.out, "Enter setup token: ")
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	return b, nil
}

func (a *App) audit(ctx context.Context, args []string) error {
	fs := newFlagSet("audit", a.out)
	action := fs.String("action", "", "audit action name")
	var details flagx.StringSlice
	fs.Var(&details, "d", "detail as key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *action == "" {
		return fmt.Errorf("%w: audit requires -action", ErrUsage)
	}

	var d map[string]any
	if len(details) > 0 {
		d = make(map[string]any, len(details))
		for k, v := range details.Pairs() {
			d[k] = v
		}
	}

	entry, err := a.client.RecordAudit(ctx, *action, d)
	if err != nil {
		return err
	}
	return a.printJSON(entry)
}

func (a *App) auditLogs(ctx context.Context) error {
	logs, err := a.client.AuditLogs(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(logs)
}

func (a *App) oauthStatus(ctx context.Context, args []string) error {
	fs := newFlagSet("oauth-status", a.out)
	provider := fs.String("p", "", "provider name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *provider == "" {
		return fmt.Errorf("%w: oauth-status requires -p", ErrUsage)
	}

	resp, err := a.client.OAuthStatus(ctx, *provider)
	if err != nil {
		return err
	}
	if resp.Connected {
		fmt.Fprintf(a.out, "%s: connected\n", resp.Provider)
	} else {
		fmt.Fprintf(a.out, "%s: not connected\n", resp.Provider)
	}
	return nil
}

func (a *App) grant(ctx context.Context, args []string) error {
	fs := newFlagSet("grant", a.out)
	item := fs.String("item", "", "catalog item reference")
	buyer := fs.String("buyer", "", "buyer reference")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *item == "" {
		return fmt.Errorf("%w: grant requires -item", ErrUsage)
	}

	resp, err := a.client.Grant(ctx, *item, *buyer)
	if err != nil {
		return err
	}
	return a.printJSON(resp)
}

func (a *App) deliver(ctx context.Context, args []string) error {
	fs := newFlagSet("deliver", a.out)
	session := fs.String("s", "", "checkout session id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *session == "" {
		return fmt.Errorf("%w: deliver requires -s", ErrUsage)
	}

	resp, err := a.client.Deliver(ctx, *session)
	if err != nil {
		return err
	}
	return a.printJSON(resp)
}
