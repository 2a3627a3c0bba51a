package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/localstore"
)

// NewPrefsCommand creates the prefs command.
func NewPrefsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prefs [key value]",
		Short: "Show or change preferences saved on this device",
		Long: `Show or change preferences saved on this device.

Keys: theme (system|light|dark), ai_enabled, confirm_delete_item,
confirm_delete_category, confirm_delete_set.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or a key and a value")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := *rootOpts
			opts.Offline = true
			return withApp(cmd, &opts, func(a *app) error {
				if len(args) == 2 {
					if err := a.settings.SetPreference(args[0], args[1]); err != nil {
						return err
					}
				}
				all, err := a.settings.GetAll()
				if err != nil {
					return err
				}
				prefs := make(map[string]string, len(localstore.PreferenceKeys))
				for _, k := range localstore.PreferenceKeys {
					prefs[k] = all[k]
				}
				return a.emit(prefs, func(w io.Writer) {
					for _, k := range localstore.PreferenceKeys {
						fmt.Fprintf(w, "%-24s %s\n", k, prefs[k])
					}
				})
			})
		},
	}
}
