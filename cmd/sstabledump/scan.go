package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keelson/internal/base"
	"keelson/internal/compare"
	"keelson/internal/sstable"
	"keelson/internal/storage"
)

func newScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <sstables>",
		Short: "print every record in the given sstables, in file order",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScan,
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		if err := scanOne(cmd, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func scanOne(cmd *cobra.Command, path string) error {
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

	it := r.NewIterator()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		key := base.DecodeInternalKey(it.Key())
		fmt.Fprintf(cmd.OutOrStdout(), "%s => %q\n", key.DebugString(), it.Value())
	}
	return it.Error()
}

func openForRead(path string) (storage.RandomAccessFile, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	raf, err := storage.OpenRandomAccess(path)
	if err != nil {
		return nil, 0, err
	}
	return raf, info.Size(), nil
}
