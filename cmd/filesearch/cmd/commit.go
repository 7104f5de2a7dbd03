package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/filesearch/internal/output"
)

func newCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Make pending backend writes visible to queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.indexer.Commit(cmd.Context()); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Committed %s backend", a.adapter.Name())
			return nil
		},
	}
}
