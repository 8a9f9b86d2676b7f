package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ariesdb/logmgr/internal/logmgr"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "Dump the in-memory transaction and dirty-page tables",
		Long: `inspect recovers the log manager's tables by running recovery
against the persisted log (recovery itself makes no page writes it
wouldn't already make on a real crash-restart), then prints the
reconstructed transaction table, dirty-page table, master record, and
engine statistics. It never stores a new master record. It does not
keep the persisted log unchanged: closing the engine flushes the pages
recovery wrote, and each such flush first forces the log tail through
that page's PageLSN, so CLR and END records recovery appended can be
persisted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lm, engine, err := openManager()
			if err != nil {
				return err
			}
			defer engine.Close()

			if _, err := lm.Recover(); err != nil {
				return fmt.Errorf("inspect: recover: %w", err)
			}

			txSnap := lm.TransactionTableSnapshot()
			dirtySnap := lm.DirtyPageTableSnapshot()
			stats, err := engine.Stats()
			if err != nil {
				return fmt.Errorf("inspect: engine stats: %w", err)
			}

			if jsonOutput {
				return printJSON(map[string]any{
					"transactions": txSnap,
					"dirty_pages":  dirtySnap,
					"tail_len":     lm.TailLen(),
					"master_lsn":   int64(stats.MasterLSN),
					"next_lsn":     stats.NextLSN,
				})
			}

			fmt.Println("transaction table:")
			printTxTable(txSnap)
			fmt.Println("dirty-page table:")
			printDirtyTable(dirtySnap)
			fmt.Printf("tail length: %d\n", lm.TailLen())
			fmt.Printf("master lsn:  %d\n", stats.MasterLSN)
			fmt.Printf("next lsn:    %d\n", stats.NextLSN)
			return nil
		},
	})
}

func printTxTable(tx map[logmgr.TxID]logmgr.TxTableEntry) {
	ids := make([]logmgr.TxID, 0, len(tx))
	for id := range tx {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := tx[id]
		fmt.Printf("  tx=%d last_lsn=%d status=%s\n", id, e.LastLSN, e.Status)
	}
}

func printDirtyTable(dirty map[logmgr.PageID]logmgr.LSN) {
	pages := make([]logmgr.PageID, 0, len(dirty))
	for p := range dirty {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	for _, p := range pages {
		fmt.Printf("  page=%d rec_lsn=%d\n", p, dirty[p])
	}
}
