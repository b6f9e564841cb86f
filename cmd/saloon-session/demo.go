package main

import (
	"context"
	"fmt"
	"io"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	auth "github.com/sandunudayakantha/saloon-auth"
	"github.com/sandunudayakantha/saloon-auth/tenant"
	"github.com/spf13/cobra"
)

type demoOptions struct {
	email    string
	password string
	owner    bool
	shops    []string
	timeout  time.Duration
}

func newDemoCmd(root *rootOptions) *cobra.Command {
	opts := &demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a sign up, sign in and sign out cycle and print each state",
		Long: `demo seeds shops, optionally pre-seeds a team member for the email, then
signs up and signs in through the session manager. The session and shop
snapshots are printed after every step.

Examples:
  # New staff member
  saloon-session demo --email jane@example.com --password secret1

  # Owner record seeded before the first login
  saloon-session demo --email jane@example.com --password secret1 --owner
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), cmd.OutOrStdout(), root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "jane@example.com", "account email")
	cmd.Flags().StringVar(&opts.password, "password", "secret1", "account password")
	cmd.Flags().BoolVar(&opts.owner, "owner", false, "seed an owner team member before signing in")
	cmd.Flags().StringSliceVar(&opts.shops, "shop", []string{"Downtown", "Uptown"}, "shop names to seed")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "how long to wait for each state change")

	return cmd
}

func runDemo(ctx context.Context, out io.Writer, root *rootOptions, opts *demoOptions) error {
	a, err := newApp(root)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.start(ctx); err != nil {
		return err
	}
	printState(out, "bootstrap", a)

	for _, name := range opts.shops {
		if _, err := a.repos.Shops().Create(ctx, &tenant.Shop{Name: name}); err != nil {
			return err
		}
	}

	if opts.owner {
		if _, err := a.repos.TeamMembers().Create(ctx, &auth.TeamMember{
			Email: opts.email,
			Role:  auth.RoleOwner,
			Name:  "Seeded Owner",
		}); err != nil {
			return err
		}
	}

	creds, err := a.sessions.SignUp(ctx, opts.email, opts.password)
	if err != nil {
		return err
	}

	if creds.Session == nil {
		redirect, err := a.provider.Confirm(opts.email)
		if err != nil {
			return err
		}
		a.logger.Info("email confirmed", "email", opts.email, "redirect_to", redirect)

		if _, err := a.sessions.SignIn(ctx, opts.email, opts.password); err != nil {
			return err
		}
	}

	if err := waitFor(ctx, opts.timeout, func() bool {
		shops := a.registry.Snapshot()
		return a.sessions.Snapshot().Authenticated() && !shops.Loading && len(shops.Tenants) >= len(opts.shops)
	}); err != nil {
		return err
	}
	printState(out, "signed in", a)

	if err := a.sessions.SignOut(ctx); err != nil {
		return err
	}

	if err := waitFor(ctx, opts.timeout, func() bool {
		return a.sessions.State() == auth.StateUnauthenticated && a.registry.Snapshot().Active == nil
	}); err != nil {
		return err
	}
	printState(out, "signed out", a)

	return nil
}

func printState(out io.Writer, step string, a *app) {
	fmt.Fprintln(out, print.MaybePrettyJSON(map[string]any{
		"step":    step,
		"session": a.sessions.Snapshot(),
		"tenants": a.registry.Snapshot(),
	}))
}

func waitFor(ctx context.Context, timeout time.Duration, cond func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "timed out waiting for state change")
		case <-ticker.C:
		}
	}
}
