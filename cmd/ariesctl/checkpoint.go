package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "checkpoint",
		Short: "Take a fuzzy checkpoint and store the new master record",
		Long: `checkpoint brackets a snapshot of the transaction and dirty-page
tables between BEGIN_CKPT and END_CKPT, flushes the log tail through
END_CKPT, and stores the BEGIN_CKPT LSN as the master record so the
next recovery's Analyze pass can resume from it instead of the start
of the log.

Because each ariesctl invocation starts with empty in-memory tables,
checkpoint first runs recovery against the persisted log. Snapshotting
the fresh process's empty tables instead would advance the master
record past history Analyze still needs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lm, engine, err := openManager()
			if err != nil {
				return err
			}
			defer engine.Close()

			ok, err := lm.Recover()
			if err != nil {
				return fmt.Errorf("checkpoint: recover: %w", err)
			}
			if !ok {
				return fmt.Errorf("checkpoint: storage engine rejected a redo write; rerun once it is healthy")
			}
			if err := lm.FlushTail(); err != nil {
				return fmt.Errorf("checkpoint: flush tail: %w", err)
			}
			if err := lm.Checkpoint(); err != nil {
				return fmt.Errorf("checkpoint: %w", err)
			}
			fmt.Println("checkpoint complete")
			return nil
		},
	})
}
