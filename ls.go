package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fendintridena/qiwigg-go/internal/qiwi"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder-id]",
		Short: "List files in a folder",
		Long:  "List the files in a folder, or in the main folder when no ID is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func runLs(cmd *cobra.Command, args []string) error {
	var folder qiwi.FolderID
	if len(args) > 0 {
		folder = qiwi.RawFolderID(args[0])
	}

	client := newServiceClient()

	files, err := client.Files(cmd.Context(), folder)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(files)
	}

	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{
			f.ID,
			f.Name,
			formatSize(f.Size),
			f.CreatedAt,
			f.URL(),
		})
	}

	printTable(os.Stdout, []string{"ID", "NAME", "SIZE", "UPLOADED", "URL"}, rows)

	return nil
}
