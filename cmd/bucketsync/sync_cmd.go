package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/openmined/bucketsync/internal/client/sync"
	"github.com/spf13/cobra"
)

var errSyncUnsuccessful = errors.New("sync finished with errors")

func init() {
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newPushCmd())
}

func newPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Make the workspace an exact mirror of the remote prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, sync.DirectionPull)
		},
	}
	addSyncFlags(cmd)
	return cmd
}

func newPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload new and changed workspace files to the remote prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, sync.DirectionPush)
		},
	}
	addSyncFlags(cmd)
	cmd.Flags().Bool("delete-remote", false, "delete remote objects that no longer exist locally")
	return cmd
}

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "list and diff only, change nothing")
	cmd.Flags().Bool("json", false, "print the result as JSON")
}

func runSync(cmd *cobra.Command, direction sync.Direction) error {
	cfg, err := loadValidConfig(cmd)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	asJSON, _ := cmd.Flags().GetBool("json")

	var opts engineOptions
	if !asJSON {
		opts.progress = progressOutput()
	}

	engine, closeEngine, err := openEngine(cmd.Context(), cfg, opts)
	if err != nil {
		return err
	}
	defer closeEngine()

	var runOpts []sync.RunOption
	if dryRun {
		runOpts = append(runOpts, sync.WithDryRun())
	}

	var result *sync.SyncResult
	if direction == sync.DirectionPull {
		result, err = engine.Pull(cmd.Context(), runOpts...)
	} else {
		result, err = engine.Push(cmd.Context(), runOpts...)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if jerr := printJSON(out, result); jerr != nil {
			return jerr
		}
	} else {
		printSummary(out, result)
	}

	if err != nil {
		return err
	}
	if !result.Success {
		return errSyncUnsuccessful
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printSummary(w io.Writer, r *sync.SyncResult) {
	if r == nil {
		return
	}

	status := green("ok")
	if !r.Success {
		status = red("failed")
	}
	title := string(r.Direction)
	if r.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(w, "%s %s  %s\n", cyan(title), status, r.RunID)

	if r.DryRun {
		printPlan(w, "transfer", r.PlannedTransfers)
		printPlan(w, "delete", r.PlannedDeletes)
	} else {
		switch r.Direction {
		case sync.DirectionPull:
			fmt.Fprintf(w, "  downloaded  %d\n", r.DownloadedFiles)
		case sync.DirectionPush:
			fmt.Fprintf(w, "  uploaded    %d\n", r.UploadedFiles)
		}
		fmt.Fprintf(w, "  deleted     %d\n", r.DeletedFiles)
	}
	fmt.Fprintf(w, "  unchanged   %d\n", r.UnchangedFiles)
	fmt.Fprintf(w, "  transferred %s in %s\n",
		humanize.Bytes(uint64(max(r.BytesTransferred, 0))),
		(time.Duration(r.DurationMs) * time.Millisecond).String(),
	)

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "  %s\n", red(fmt.Sprintf("%d error(s)", len(r.Errors))))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
}

func printPlan(w io.Writer, label string, paths []string) {
	fmt.Fprintf(w, "  would %s %d\n", label, len(paths))
	for _, p := range paths {
		fmt.Fprintf(w, "    %s\n", strings.TrimSpace(p))
	}
}
