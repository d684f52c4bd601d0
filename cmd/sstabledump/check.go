package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"keelson/internal/base"
	"keelson/internal/compare"
	"keelson/internal/sstable"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <sstables>",
		Short: "open each sstable and verify the checksums of its index, meta-index and data blocks",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		if err := checkOne(cmd, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func checkOne(cmd *cobra.Command, path string) error {
	raf, size, err := openForRead(path)
	if err != nil {
		return err
	}
	defer raf.Close()

	cmp := *base.NewInternalKeyComparator(compare.Bytewise)
	r, err := sstable.Open(raf, size, sstable.ReaderOptions{Comparator: cmp}, 0)
	if err != nil {
		return err
	}

	n := 0
	it := r.NewIterator()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		n++
	}
	if err := it.Error(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d records, %d bytes\n", path, n, r.Size())
	return nil
}
