package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <file-id>...",
		Short: "Move files to a folder",
		Long: `Move files into the folder given by --to, or into the main folder when
--to is omitted. With --all the arguments are folder IDs instead, and
every file inside them is moved.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMv,
	}

	cmd.Flags().String("to", "", "destination folder ID (defaults to the main folder)")
	cmd.Flags().Bool("all", false, "treat arguments as folder IDs and move their entire contents")

	return cmd
}

// mvResult is the JSON shape of a move: what moved and where to.
type mvResult struct {
	Moved []string `json:"moved"`
	To    string   `json:"to"`
}

func runMv(cmd *cobra.Command, args []string) error {
	flagTo, _ := cmd.Flags().GetString("to")
	flagAll, _ := cmd.Flags().GetBool("all")

	client := newServiceClient()
	dest := destinationFolder(flagTo)

	result := mvResult{Moved: []string{}, To: flagTo}
	if flagTo == "" {
		result.To = "nullFolder"
	}

	if !flagAll {
		for _, id := range args {
			if err := client.MoveFile(cmd.Context(), id, dest); err != nil {
				return err
			}

			result.Moved = append(result.Moved, id)

			if !flagJSON {
				fmt.Printf("%s moved\n", id)
			}
		}
	} else {
		for _, folderID := range args {
			// Moving a folder onto itself would be a no-op round trip.
			if folderID == flagTo {
				continue
			}

			contents, err := client.Files(cmd.Context(), destinationFolder(folderID))
			if err != nil {
				return err
			}

			for _, file := range contents {
				if err := client.MoveFile(cmd.Context(), file.ID, dest); err != nil {
					return err
				}

				result.Moved = append(result.Moved, file.ID)

				if !flagJSON {
					fmt.Printf("%s moved\n", file)
				}
			}
		}
	}

	if flagJSON {
		return printJSON(result)
	}

	return nil
}
