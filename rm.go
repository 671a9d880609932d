package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file-id>...",
		Short: "Delete files",
		Long:  "Delete files permanently. There is no recycle bin on the service side.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRm,
	}
}

func runRm(cmd *cobra.Command, args []string) error {
	client := newServiceClient()

	for _, id := range args {
		if err := client.DeleteFile(cmd.Context(), id); err != nil {
			return err
		}

		if !flagJSON {
			fmt.Printf("%s deleted\n", id)
		}
	}

	if flagJSON {
		return printJSON(args)
	}

	return nil
}
