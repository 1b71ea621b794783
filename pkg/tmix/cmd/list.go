package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stalexteam/tmix/pkg/tmix"
	"github.com/stalexteam/tmix/pkg/tmix/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every sink and its streams once, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, named, err := newTmix(cmd)
		if err != nil {
			return err
		}

		if err := t.Config().Load(); err != nil {
			return err
		}

		values := t.Config().Values()

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout+values.QueryTimeout)
		defer cancel()

		snapshot, err := tmix.TakeSnapshot(ctx, named, tmix.ConnectionOptions{
			Server:          values.Server,
			ApplicationName: values.ApplicationName,
			StepWait:        values.StepWait,
		})
		if err != nil {
			named.Errorw("Failed to take snapshot", "error", err)
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), ui.RenderText(snapshot, values.HiddenStreams...))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
