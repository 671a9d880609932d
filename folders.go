package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fendintridena/qiwigg-go/internal/qiwi"
)

func newFoldersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List folders as a tree",
		Args:  cobra.NoArgs,
		RunE:  runFolders,
	}
}

func runFolders(cmd *cobra.Command, _ []string) error {
	client := newServiceClient()

	folders, err := client.Folders(cmd.Context())
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(folders)
	}

	printFolderTree(os.Stdout, folders)

	return nil
}

// printFolderTree renders folders with children indented under their
// parents, root folders first.
func printFolderTree(w io.Writer, folders []qiwi.Folder) {
	children := make(map[string][]qiwi.Folder)

	for _, f := range folders {
		parent := f.ParentID
		if f.Root {
			parent = ""
		}

		children[parent] = append(children[parent], f)
	}

	var walk func(parent string, depth int)

	walk = func(parent string, depth int) {
		for _, f := range children[parent] {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", depth*4), f)
			walk(f.ID, depth+1)
		}
	}

	walk("", 0)
}

func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <name>...",
		Short: "Create folders",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMkdir,
	}

	cmd.Flags().String("to", "", "parent folder ID (defaults to the main folder)")

	return cmd
}

func runMkdir(cmd *cobra.Command, args []string) error {
	flagTo, _ := cmd.Flags().GetString("to")

	client := newServiceClient()
	parent := destinationFolder(flagTo)

	created := make([]*qiwi.Folder, 0, len(args))

	for _, name := range args {
		folder, err := client.CreateFolder(cmd.Context(), name, parent)
		if err != nil {
			return err
		}

		created = append(created, folder)

		if !flagJSON {
			fmt.Println(folder)
		}
	}

	if flagJSON {
		return printJSON(created)
	}

	return nil
}

func newRmdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir <folder-id>...",
		Short: "Delete folders",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRmdir,
	}
}

func runRmdir(cmd *cobra.Command, args []string) error {
	client := newServiceClient()

	for _, id := range args {
		if err := client.DeleteFolder(cmd.Context(), id); err != nil {
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
