package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fendintridena/qiwigg-go/internal/config"
	"github.com/fendintridena/qiwigg-go/internal/qiwi"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files",
		Long: `Upload one or more files as resumable chunked uploads.

Progress is checkpointed next to each source file (a .qiwi_upload
sidecar); rerunning the command after an interruption resumes from the
last completed chunk.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().String("to", "", "destination folder ID (defaults to the main folder)")
	cmd.Flags().String("chunk-size", "", `chunk size, e.g. "50MB" (defaults to 100MB)`)

	return cmd
}

// uploadResult is the JSON shape of one uploaded file: the file record
// with the local path it came from merged in.
type uploadResult struct {
	File *qiwi.File
	Path string
}

func (r uploadResult) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(r.File)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	m["path"] = r.Path

	return json.Marshal(m)
}

func parseChunkSizeFlag(s string) (int64, error) {
	n, err := config.ParseSize(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --chunk-size: %w", err)
	}

	return n, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	flagTo, _ := cmd.Flags().GetString("to")
	flagChunkSize, _ := cmd.Flags().GetString("chunk-size")

	chunkSize := resolvedCfg.ChunkSize

	if flagChunkSize != "" {
		parsed, err := parseChunkSizeFlag(flagChunkSize)
		if err != nil {
			return err
		}

		chunkSize = parsed
	}

	client := newServiceClient()
	dest := destinationFolder(flagTo)

	results := make([]uploadResult, 0, len(args))

	for _, path := range args {
		statusf("uploading %s\n", path)

		progress := newProgressPrinter()

		opts := qiwi.UploadOptions{ChunkSize: chunkSize}
		if !flagQuiet {
			opts.Progress = progress.report
		}

		file, err := client.UploadFile(cmd.Context(), path, opts)

		progress.finish()

		if err != nil {
			return err
		}

		if dest != nil {
			if err := client.MoveFile(cmd.Context(), file.ID, dest); err != nil {
				return err
			}

			file.FolderID = flagTo
		}

		results = append(results, uploadResult{File: file, Path: path})

		if !flagJSON {
			fmt.Printf("%s %s\n", file.URL(), file.Name)
		}
	}

	if flagJSON {
		return printJSON(results)
	}

	return nil
}
