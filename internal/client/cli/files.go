package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/spf13/cobra"
)

func (r *root) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <collection-id>",
		Short: "Pull remote changes of a collection into the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID, err := parseID("collection id", args[0])
			if err != nil {
				return err
			}
			a := r.app
			if err := a.unlock(cmd.Context()); err != nil {
				return err
			}
			n, err := a.sync.Sync(cmd.Context(), collectionID)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "synced %d files\n", n)
			return nil
		},
	}
}

func (r *root) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <collection-id>",
		Aliases: []string{"ls"},
		Short:   "List cached files of a collection, newest first",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID, err := parseID("collection id", args[0])
			if err != nil {
				return err
			}
			a := r.app
			if err := a.unlock(cmd.Context()); err != nil {
				return err
			}
			list, err := a.files.List(cmd.Context(), collectionID)
			if err != nil {
				return err
			}
			return a.printFiles(list)
		},
	}
}

func (a *App) printFiles(list []*models.File) error {
	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTAKEN\tVISIBILITY\tCAPTION")
	for _, f := range list {
		d := f.DisplayMetadata()
		taken := time.UnixMicro(d.CreationTime).In(loc).Format(time.DateTime)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", f.ID, d.Title, taken, visibilityName(d.Visibility), d.Caption)
	}
	return tw.Flush()
}

var visibilities = map[string]models.Visibility{
	"visible":  models.VisibilityVisible,
	"archived": models.VisibilityArchived,
	"hidden":   models.VisibilityHidden,
}

func visibilityName(v models.Visibility) string {
	for name, x := range visibilities {
		if x == v {
			return name
		}
	}
	return fmt.Sprintf("unknown(%d)", v)
}

// editFunc applies one magic metadata edit to a file.
type editFunc func(ctx context.Context, a *App, id, collectionID int64, value string) (*models.MagicMetadata, error)

// editCmd builds the commands of the form
// "<name> <collection-id> <file-id> <value>".
func (r *root) editCmd(use, short string, edit editFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <collection-id> <file-id> <value>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID, err := parseID("collection id", args[0])
			if err != nil {
				return err
			}
			id, err := parseID("file id", args[1])
			if err != nil {
				return err
			}
			a := r.app
			if err := a.unlock(cmd.Context()); err != nil {
				return err
			}
			m, err := edit(cmd.Context(), a, id, collectionID, args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "file %d updated, version %d\n", id, m.Version)
			return nil
		},
	}
}

func (r *root) visibilityCmd() *cobra.Command {
	return r.editCmd("visibility", "Set a file visible, archived or hidden",
		func(ctx context.Context, a *App, id, collectionID int64, value string) (*models.MagicMetadata, error) {
			v, ok := visibilities[strings.ToLower(value)]
			if !ok {
				return nil, fmt.Errorf("unknown visibility %q, want visible, archived or hidden", value)
			}
			return a.files.SetVisibility(ctx, id, collectionID, v)
		})
}

func (r *root) captionCmd() *cobra.Command {
	return r.editCmd("caption", "Set the caption of a file",
		func(ctx context.Context, a *App, id, collectionID int64, value string) (*models.MagicMetadata, error) {
			return a.files.SetCaption(ctx, id, collectionID, value)
		})
}

func (r *root) renameCmd() *cobra.Command {
	return r.editCmd("rename", "Change the display name of a file",
		func(ctx context.Context, a *App, id, collectionID int64, value string) (*models.MagicMetadata, error) {
			if strings.TrimSpace(value) == "" {
				return nil, fmt.Errorf("name must not be empty")
			}
			return a.files.Rename(ctx, id, collectionID, value)
		})
}

var dateLayouts = []string{time.RFC3339, time.DateTime, time.DateOnly}

func (r *root) dateCmd() *cobra.Command {
	return r.editCmd("date", "Change the creation date of a file",
		func(ctx context.Context, a *App, id, collectionID int64, value string) (*models.MagicMetadata, error) {
			t, err := a.parseDate(value)
			if err != nil {
				return nil, err
			}
			return a.files.SetDate(ctx, id, collectionID, t)
		})
}

// parseDate accepts RFC 3339 or a local date/time in the configured zone.
func (a *App) parseDate(value string) (time.Time, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
