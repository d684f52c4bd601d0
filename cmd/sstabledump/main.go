// Command sstabledump is a small introspection tool in the shape of
// pebble's own cmd/pebble tool package: one cobra root with "scan" and
// "check" subcommands operating directly on the sstable.Reader, with no
// dependency on the keelson façade or a database directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "sstabledump",
		Short: "inspect keelson sstable files",
	}
	root.AddCommand(newScanCommand(), newCheckCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
