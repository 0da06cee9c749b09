package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/demo"
)

// ConstantInfo describes one action constant and the stores handling it.
type ConstantInfo struct {
	Name     string   `json:"name"`
	Constant string   `json:"constant"`
	Stores   []string `json:"stores"`
}

// NewConstantsCommand creates the constants command.
func NewConstantsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "constants",
		Short: "List the action constants of the demo application",
		Long: `List every action constant the demo application dispatches, with the
stores that register a handler for it, in registration order.

Example:
  reflux constants
  reflux constants --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConstants(rootOpts, cmd)
		},
	}
	return cmd
}

func runConstants(opts *RootOptions, cmd *cobra.Command) error {
	app, err := demo.New(demo.WithLogger(newLogger(opts, cmd.ErrOrStderr())))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build application", err)
	}

	infos := make([]ConstantInfo, 0, len(demo.Actions))
	for _, name := range demo.Actions.Names() {
		c := demo.Actions[name]
		info := ConstantInfo{Name: name, Constant: string(c), Stores: []string{}}
		for _, s := range app.Stores() {
			if s.Handles(c) {
				info.Stores = append(info.Stores, s.Name())
			}
		}
		infos = append(infos, info)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: infos})
	}

	w := cmd.OutOrStdout()
	for _, info := range infos {
		fmt.Fprintf(w, "%-8s %-12s %v\n", info.Name, info.Constant, info.Stores)
	}
	return nil
}
