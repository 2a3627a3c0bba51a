package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/config"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Server string
	Email  string
	Name   string
	Secret string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the config file used to sign in",
		Long: `Write the config file used to sign in. Values not given keep what the
file already has.

Example:
  basket init --server https://basket.example.com --email alice@example.com --name Alice --secret hunter2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "", "datastore URL")
	cmd.Flags().StringVar(&opts.Email, "email", "", "your email")
	cmd.Flags().StringVar(&opts.Name, "name", "", "your display name")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "your secret")

	return cmd
}

func runInit(cmd *cobra.Command, opts *InitOptions) error {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if opts.Server != "" {
		cfg.Server = opts.Server
	}
	if opts.Email != "" {
		cfg.Identity.Email = opts.Email
	}
	if opts.Name != "" {
		cfg.Identity.Name = opts.Name
	}
	if opts.Secret != "" {
		cfg.Identity.Secret = opts.Secret
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
