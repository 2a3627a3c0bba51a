package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/engine"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/remote"
)

// NewFamilyCommand creates the family command and its subcommands.
func NewFamilyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "family",
		Short: "Show and manage the family sharing this list",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the family and its invite code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				session := a.engine.Session()
				if session == nil {
					return engine.ErrNotConnected
				}
				return a.emit(session.Family, func(w io.Writer) {
					printFamily(w, session.Family)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "join <invite-code>",
		Short: "Join another family with its invite code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				family, err := a.engine.JoinFamily(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if family == nil {
					return fmt.Errorf("no family has invite code %q", args[0])
				}
				return a.emit(family, func(w io.Writer) {
					printFamily(w, *family)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "leave",
		Short: "Leave the family and start a new one of your own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				family, err := a.engine.LeaveFamily(cmd.Context())
				if err != nil {
					return err
				}
				if family == nil {
					return fmt.Errorf("could not leave the family")
				}
				return a.emit(family, func(w io.Writer) {
					printFamily(w, *family)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <member>",
		Short: "Remove a member by email or id (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				session := a.engine.Session()
				if session == nil {
					return engine.ErrNotConnected
				}
				target, ok := findMember(session.Family, args[0])
				if !ok {
					return fmt.Errorf("%q is not in the family", args[0])
				}
				family, err := a.engine.RemoveMember(cmd.Context(), target.UserID)
				if errors.Is(err, remote.ErrNotOwner) {
					return fmt.Errorf("only the family owner can remove members")
				}
				if err != nil {
					return err
				}
				if family == nil {
					return fmt.Errorf("%q is not in the family", args[0])
				}
				return a.emit(family, func(w io.Writer) {
					printFamily(w, *family)
				})
			})
		},
	})

	return cmd
}

func findMember(f model.Family, who string) (model.Member, bool) {
	who = strings.TrimSpace(who)
	for _, m := range f.Members {
		if m.UserID == who || strings.EqualFold(m.Email, who) {
			return m, true
		}
	}
	return model.Member{}, false
}
