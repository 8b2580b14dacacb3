package main

import (
	"encoding/hex"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marmos91/pldmfs/pkg/config"
)

var tableHex bool

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Show the file table the responder would serve",
	Long: `table loads the configured file table descriptor and lists every entry
with the size the responder would report. With --hex the encoded file
attribute table returned by GET_FILE_TABLE is dumped instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		table, err := config.LoadFileTable(&cfg.FileTable)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if tableHex {
			encoded := table.AttributeTable()
			if len(encoded) == 0 {
				return fmt.Errorf("file table is empty: GET_FILE_TABLE answers FILE_TABLE_UNAVAILABLE")
			}
			fmt.Fprint(out, hex.Dump(encoded))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "HANDLE\tTRAITS\tSIZE\tPATH")
		for _, e := range table.Entries() {
			size := "missing"
			if n, err := table.Stat(e); err == nil {
				size = fmt.Sprintf("%d", n)
			}
			fmt.Fprintf(w, "0x%08X\t0x%08X\t%s\t%s\n", e.Handle, e.Traits, size, e.Path)
		}
		return w.Flush()
	},
}

func init() {
	tableCmd.Flags().BoolVar(&tableHex, "hex", false, "dump the encoded attribute table")
}
