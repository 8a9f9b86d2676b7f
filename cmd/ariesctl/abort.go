package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ariesdb/logmgr/internal/logmgr"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "abort <txid>",
		Short: "Roll a transaction back via compensation records",
		Long: `abort appends an ABORT record for txid, then undoes every one of its
updates, writing a CLR for each and restoring the before-image to the
page file, until the transaction's chain is exhausted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse txid: %w", err)
			}

			lm, engine, err := openManager()
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := lm.Abort(logmgr.TxID(tx)); err != nil {
				return fmt.Errorf("abort: %w", err)
			}
			if err := lm.FlushTail(); err != nil {
				return fmt.Errorf("abort: flush tail: %w", err)
			}
			fmt.Printf("tx %d aborted\n", tx)
			return nil
		},
	})
}
