package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ai-textassist-be/internal/client/entitlement"
	"ai-textassist-be/internal/client/optimistic"
	"ai-textassist-be/internal/client/session"
	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/tier"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var readPassword = term.ReadPassword

// skipStartupReplay marks commands that manage the session or replay on their own.
const skipStartupReplay = "skip-startup-replay"

var ownsReplay = map[string]string{skipStartupReplay: "true"}

func newRootCmd() *cobra.Command {
	opts := options{home: defaultHome(), baseURL: defaultBaseURL()}

	root := &cobra.Command{
		Use:           "textassist",
		Short:         "AI text correction and translation from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.home, "home", opts.home, "directory for session and cache files")
	root.PersistentFlags().StringVar(&opts.baseURL, "api", opts.baseURL, "backend base URL")

	root.AddCommand(
		newLoginCmd(&opts),
		newLogoutCmd(&opts),
		newStatusCmd(&opts),
		newCorrectCmd(&opts),
		newTranslateCmd(&opts),
		newPurchaseCmd(&opts),
		newRestoreCmd(&opts),
		newSyncCmd(&opts),
		newRenewCmd(&opts),
		newHistoryCmd(&opts),
		newFavoriteCmd(&opts),
		newDeleteCmd(&opts),
	)
	return root
}

// withApp runs fn with a wired app and a context cancelled on Ctrl-C. The
// purchase-update listener runs alongside fn and queued purchases are replayed
// first unless the command opts out.
func withApp(cmd *cobra.Command, opts *options, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(*opts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.start(ctx)
	if cmd.Annotations[skipStartupReplay] != "true" {
		a.replayOnStart(ctx, cmd.OutOrStdout())
	}

	err = fn(ctx, a)
	if err != nil {
		renderError(cmd.ErrOrStderr(), err)
	}
	return err
}

func newLoginCmd(opts *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Log in and load your plan",
		Annotations: ownsReplay,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if email == "" {
					line, err := prompt(cmd, "Email: ")
					if err != nil {
						return err
					}
					email = line
				}
				if password == "" {
					fmt.Fprint(cmd.OutOrStdout(), "Password: ")
					raw, err := readPassword(int(os.Stdin.Fd()))
					fmt.Fprintln(cmd.OutOrStdout())
					if err != nil {
						return fmt.Errorf("read password: %w", err)
					}
					password = string(raw)
				}

				res, err := a.client.Login(ctx, email, password)
				if err != nil {
					return err
				}
				success.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", res.User.Email)
				renderEntitlement(cmd.OutOrStdout(), &res.Entitlement)

				if n, err := a.bridge.ReplayUnsynced(ctx); err == nil && n > 0 {
					info.Fprintf(cmd.OutOrStdout(), "Synced %d pending purchase(s)\n", n)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Forget the session on this machine",
		Annotations: ownsReplay,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.client.Logout(); err != nil {
					return err
				}
				success.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your plan and remaining actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				status, err := a.client.SubscriptionStatus(ctx)
				if err == nil {
					renderEntitlement(cmd.OutOrStdout(), status)
					renderPending(cmd.OutOrStdout(), a)
					return nil
				}
				if !isOffline(err) {
					return err
				}
				warn.Fprintln(cmd.OutOrStdout(), "Backend unreachable, showing cached plan")
				renderSnapshot(cmd.OutOrStdout(), a.cache.Snapshot())
				renderPending(cmd.OutOrStdout(), a)
				return nil
			})
		},
	}
}

func newCorrectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "correct [text | -]",
		Short: "Fix grammar and spelling",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				text, err := inputText(cmd, args)
				if err != nil {
					return err
				}
				preflight(cmd, a)
				res, err := session.Run(ctx, a.runner, func(ctx context.Context) (*dto.ActionResponse, error) {
					return a.client.Correct(ctx, text)
				})
				if err != nil {
					return err
				}
				renderAction(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func newTranslateCmd(opts *options) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "translate --to <language> [text | -]",
		Short: "Translate text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				text, err := inputText(cmd, args)
				if err != nil {
					return err
				}
				preflight(cmd, a)
				res, err := session.Run(ctx, a.runner, func(ctx context.Context) (*dto.ActionResponse, error) {
					return a.client.Translate(ctx, text, target)
				})
				if err != nil {
					return err
				}
				renderAction(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "target language code, e.g. ja or pt-BR")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newPurchaseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "purchase <starter|pro>",
		Short:     "Buy a plan through the sandbox store",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"starter", "pro"},
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := productFor(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				tx, res, err := a.bridge.Purchase(ctx, productID)
				switch {
				case err != nil && isQueued(err):
					warn.Fprintf(cmd.OutOrStdout(), "Purchase %s recorded; it will sync on the next run while logged in\n", tx.ID)
					return nil
				case err != nil:
					return err
				case res == nil:
					warn.Fprintln(cmd.OutOrStdout(), "Purchase not completed")
					return nil
				}
				success.Fprintf(cmd.OutOrStdout(), "Purchased %s\n", res.Plan)
				renderSnapshot(cmd.OutOrStdout(), a.cache.Snapshot())
				return nil
			})
		},
	}
}

func newRestoreCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore purchases from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				restored, err := a.bridge.Restore(ctx)
				if err != nil && !isQueued(err) {
					return err
				}
				info.Fprintf(cmd.OutOrStdout(), "Restored %d transaction(s)\n", len(restored))
				renderSnapshot(cmd.OutOrStdout(), a.cache.Snapshot())
				renderPending(cmd.OutOrStdout(), a)
				return nil
			})
		},
	}
}

func newSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:         "sync",
		Short:       "Send pending purchases to the backend",
		Annotations: ownsReplay,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if !a.client.HasToken() {
					return errors.New("log in first")
				}
				n, err := a.bridge.ReplayUnsynced(ctx)
				if err != nil {
					return err
				}
				info.Fprintf(cmd.OutOrStdout(), "Synced %d purchase(s)\n", n)
				renderPending(cmd.OutOrStdout(), a)
				return nil
			})
		},
	}
}

func newRenewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "renew <starter|pro>",
		Short:     "Simulate a sandbox renewal delivered by the store in the background",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"starter", "pro"},
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := productFor(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				tx, err := a.sandbox.Renew(productID)
				if err != nil {
					return err
				}
				// The listener picks the renewal up; stopping it waits for the sync.
				a.stop()

				queued, err := a.ledger.Contains(tx.ID)
				if err != nil {
					return err
				}
				if queued {
					warn.Fprintf(cmd.OutOrStdout(), "Renewal %s recorded; it will sync on the next run while logged in\n", tx.ID)
					return nil
				}
				success.Fprintf(cmd.OutOrStdout(), "Renewal %s processed\n", tx.ID)
				renderSnapshot(cmd.OutOrStdout(), a.cache.Snapshot())
				return nil
			})
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		limit, offset int
		favorites     bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				res, err := a.client.History(ctx, limit, offset, favorites)
				if err != nil {
					return err
				}
				renderHistory(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "items per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "items to skip")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only favorites")
	return cmd
}

func newFavoriteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <history-id>",
		Short: "Toggle the favorite flag of a history item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid history id: %w", err)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				h, err := loadHistory(ctx, a)
				if err != nil {
					return err
				}
				if err := h.ToggleFavorite(ctx, id); err != nil {
					return err
				}
				for _, item := range h.Items() {
					if item.Id == id {
						success.Fprintf(cmd.OutOrStdout(), "Favorite: %t\n", item.IsFavorite)
						return nil
					}
				}
				return fmt.Errorf("history item %s not found", id)
			})
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <history-id>",
		Short: "Delete a history item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid history id: %w", err)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				h, err := loadHistory(ctx, a)
				if err != nil {
					return err
				}
				if err := h.Delete(ctx, id); err != nil {
					return err
				}
				success.Fprintln(cmd.OutOrStdout(), "Deleted")
				return nil
			})
		},
	}
}

func loadHistory(ctx context.Context, a *app) (*optimistic.History, error) {
	page, err := a.client.History(ctx, 100, 0, false)
	if err != nil {
		return nil, err
	}
	return optimistic.NewHistory(a.client, page.Items), nil
}

// preflight warns when the cached count says the quota is spent. The count
// may be stale, so the request is still sent.
func preflight(cmd *cobra.Command, a *app) {
	snap := a.cache.Snapshot()
	if snap.State != entitlement.StateUninitialized && !a.cache.CanPerformAction() {
		warn.Fprintln(cmd.ErrOrStderr(), "No actions left according to the last sync, checking with the server")
	}
}

func productFor(name string) (string, error) {
	switch strings.ToLower(name) {
	case "starter":
		return tier.ProductStarterMonthly, nil
	case "pro":
		return tier.ProductProMonthly, nil
	}
	if _, ok := tier.TierForProduct(name); ok {
		return name, nil
	}
	return "", fmt.Errorf("unknown plan %q", name)
}

func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return strings.Join(args, " "), nil
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
