package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/SecurityWorks/ente/internal/client/upload"
	"github.com/spf13/cobra"
)

func (r *root) uploadCmd() *cobra.Command {
	var progress bool

	cmd := &cobra.Command{
		Use:   "upload <collection-id> <path>...",
		Short: "Encrypt and upload files, folders or zip archives",
		Long: "Upload walks the given paths, pairs live photos, applies Takeout\n" +
			"JSON sidecars and uploads every asset into the collection. Files\n" +
			"already in the collection are skipped, files from other collections\n" +
			"are linked without uploading them again.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID, err := parseID("collection id", args[0])
			if err != nil {
				return err
			}

			a := r.app
			ctx := cmd.Context()
			if err := a.unlock(ctx); err != nil {
				return err
			}

			c := newCollector(a, collectionID)
			for _, p := range args[1:] {
				if err := c.add(ctx, p); err != nil {
					return err
				}
			}
			jobs := c.sortedJobs()
			if len(jobs) == 0 {
				fmt.Fprintln(a.out, "nothing to upload")
				return nil
			}
			a.log.Info(ctx, "collected", "jobs", len(jobs), "sidecars", c.sidecars.Len())

			var onProgress upload.BatchProgressFunc
			if progress {
				onProgress = func(job upload.Job, percent int) {
					fmt.Fprintf(a.errOut, "%3d%% %s\n", percent, job.Item.Name())
				}
			}

			results := a.newUploader(c.sidecars).Run(ctx, jobs, onProgress)
			return a.printResults(results)
		},
	}
	cmd.Flags().BoolVarP(&progress, "progress", "p", false, "print per file progress to stderr")
	return cmd
}

// printResults writes one line per result and fails when any asset did not
// make it into the collection.
func (a *App) printResults(results []upload.Result) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tNAME\tFILE\tERROR")

	failed := 0
	for _, res := range results {
		id, msg := "-", ""
		if res.File != nil {
			id = strconv.FormatInt(res.File.ID, 10)
		}
		if res.Err != nil {
			msg = res.Err.Error()
		}
		if !res.Status.Succeeded() {
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Status, res.Job.Item.Name(), id, msg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads did not succeed", failed, len(results))
	}
	return nil
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}
