package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ariesdb/logmgr/internal/logmgr"
)

func init() {
	rootCmd.AddCommand(newWriteCmd())
}

func newWriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <txid> <page> <offset> <before-hex> <after-hex>",
		Short: "Append an UPDATE record and return its LSN",
		Long: `write appends a transactional page update to the log tail, creating
the transaction's table entry on first use and the page's dirty-page
entry on first write, exactly as logmgr.LogManager.Write does. It does
not touch the storage engine's page file: recovery is what replays
the update.

Example:
  ariesctl --data-dir ./data write 1 5 0 4142 4243`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(args)
		},
	}
	return cmd
}

func runWrite(args []string) error {
	tx, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse txid: %w", err)
	}
	page, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	offset, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return fmt.Errorf("parse offset: %w", err)
	}
	before, err := hex.DecodeString(args[3])
	if err != nil {
		return fmt.Errorf("parse before-image: %w", err)
	}
	after, err := hex.DecodeString(args[4])
	if err != nil {
		return fmt.Errorf("parse after-image: %w", err)
	}

	lm, engine, err := openManager()
	if err != nil {
		return err
	}
	defer engine.Close()

	lsn, err := lm.Write(logmgr.TxID(tx), logmgr.PageID(page), uint32(offset), before, after)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	// A library caller would leave the record in the tail until a later
	// durability point; a one-shot process has no later, so force it now.
	if err := lm.FlushTail(); err != nil {
		return fmt.Errorf("write: flush tail: %w", err)
	}

	if jsonOutput {
		return printJSON(map[string]any{"lsn": int64(lsn)})
	}
	fmt.Printf("lsn=%d\n", lsn)
	return nil
}
