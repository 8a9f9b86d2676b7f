package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ariesdb/logmgr/internal/logmgr"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "commit <txid>",
		Short: "Force a transaction's commit record durable and end it",
		Long: `commit appends a COMMIT record, flushes the log tail through it (the
durability point), then appends an END record. A no-op if txid has no
table entry or is not in progress.`,
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

			if err := lm.Commit(logmgr.TxID(tx)); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			fmt.Printf("tx %d committed\n", tx)
			return nil
		},
	})
}
