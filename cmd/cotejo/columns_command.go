package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cotejo/importer"
)

func newColumnsCommand() *cobra.Command {
	var sheet string
	var samples int

	cmd := &cobra.Command{
		Use:         "columns <file>",
		Short:       "List sheets and columns of a dataset",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format, err := importer.DetectFormat(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == importer.FormatXLSX {
				names, err := importer.SheetNames(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Sheets: %v\n", names)
			}

			data, err := importer.ReadFile(path, importer.ReadOptions{Sheet: sheet})
			if err != nil {
				return err
			}
			if data.Name != "" {
				fmt.Fprintf(out, "Sheet %q, %d rows\n", data.Name, len(data.Records))
			} else {
				fmt.Fprintf(out, "%d rows\n", len(data.Records))
			}

			rows := make([][]string, len(data.Columns))
			for i, column := range data.Columns {
				row := []string{strconv.Itoa(i + 1), column}
				for j := 0; j < samples && j < len(data.Records); j++ {
					row = append(row, truncateText(data.Records[j].String(column), 30))
				}
				rows[i] = row
			}
			headers := []string{"#", "Column"}
			for j := 0; j < samples && j < len(data.Records); j++ {
				headers = append(headers, fmt.Sprintf("Row %d", j+1))
			}
			fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: first sheet)")
	cmd.Flags().IntVar(&samples, "samples", 2, "Sample values to show per column")
	return cmd
}
