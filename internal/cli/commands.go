package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vk/caniput/internal/app"
)

func newValueCommand(o *options) *cobra.Command {
	var syntax string
	cmd := &cobra.Command{
		Use:   "value PUT_PATH LITERAL",
		Short: "Put a value there, expressed here as a literal",
		Example: `  caniput value docs/answer '(42 : nat8)'
  caniput value docs/user 'record { name = "alice"; admin = false }'
  caniput value --syntax hcl docs/user '{ name = "alice", tags = ["a", "b"] }'`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.ParseSyntax(syntax)
			if err != nil {
				return usageError("%v", err)
			}
			return o.runApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.PutValue(ctx, args[0], args[1], s)
				if err != nil {
					return err
				}
				return reportPut(cmd, out.Stored)
			})
		},
	}
	cmd.Flags().StringVar(&syntax, "syntax", string(app.SyntaxCandid), "Literal syntax: candid or hcl")
	return cmd
}

func newTextCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "text PUT_PATH TEXT",
		Short: "Put a text value there, expressed here as a text arg",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.PutText(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return reportPut(cmd, out.Stored)
			})
		},
	}
}

func newFileCommand(o *options) *cobra.Command {
	var sortEntries bool
	cmd := &cobra.Command{
		Use:   "file PUT_PATH FS_PATH",
		Short: "Put a local file or directory tree there",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.PutFile(ctx, args[0], args[1], sortEntries)
				if err != nil {
					return err
				}
				return reportPut(cmd, out.Stored)
			})
		},
	}
	cmd.Flags().BoolVar(&sortEntries, "sort", false, "Sort directory entries by name")
	return cmd
}

func newInspectCommand(o *options) *cobra.Command {
	var sortEntries bool
	cmd := &cobra.Command{
		Use:   "inspect FS_PATH",
		Short: "Show how a local file or directory would be classified, without sending it",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Inspect(ctx, args[0], sortEntries)
			})
		},
	}
	cmd.Flags().BoolVar(&sortEntries, "sort", false, "Sort directory entries by name")
	return cmd
}
