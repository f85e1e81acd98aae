package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inkwell-press/inkwell/internal/profile"
	"github.com/inkwell-press/inkwell/server/service/tag"
	"github.com/inkwell-press/inkwell/store"
	"github.com/inkwell-press/inkwell/store/db"
)

var version = "dev"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Tag administration for the inkwell publishing platform",
	}

	pf := rootCmd.PersistentFlags()
	pf.String("mode", "dev", `mode of the engine, can be "prod" or "dev" or "demo"`)
	pf.String("data", "", "data directory (sqlite)")
	pf.String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	pf.String("dsn", "", "database source name")

	v := viper.New()
	v.SetEnvPrefix("inkwell")
	v.AutomaticEnv()
	for _, key := range []string{"mode", "data", "driver", "dsn"} {
		if err := v.BindPFlag(key, pf.Lookup(key)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(
		newCreateCmd(v),
		newBulkCreateCmd(v),
		newUpdateCmd(v),
		newDeleteCmd(v),
		newMergeCmd(v),
		newSimilarCmd(v),
		newListCmd(v),
		newGetCmd(v),
		newCheckSlugCmd(v),
	)
	return rootCmd
}

// newEngine builds profile, driver, store and service for one command run.
// The returned closer must be called before exit.
func newEngine(v *viper.Viper) (*store.Store, tag.Service, func(), error) {
	p := &profile.Profile{
		Mode:    v.GetString("mode"),
		Data:    v.GetString("data"),
		Driver:  v.GetString("driver"),
		DSN:     v.GetString("dsn"),
		Version: version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, nil, nil, err
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, nil, nil, err
	}

	st := store.New(driver, p)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(p),
	}))
	svc := tag.NewService(st, logger)

	return st, svc, func() { _ = st.Close() }, nil
}

func logLevel(p *profile.Profile) slog.Level {
	if p.IsDev() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func printJSON(value any) error {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// resultErr maps a failed operation result to a command error so the process
// exits non-zero.
func resultErr(success bool, errs []string) error {
	if success {
		return nil
	}
	return fmt.Errorf("operation failed: %s", strings.Join(errs, "; "))
}

func newCreateCmd(v *viper.Viper) *cobra.Command {
	var slug string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tag, rejecting near-duplicate names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, closer, err := newEngine(v)
			if err != nil {
				return err
			}
			defer closer()

			result := svc.CreateTag(context.Background(), &tag.CreateTagRequest{Name: args[0], Slug: slug})
			if err := printJSON(result); err != nil {
				return err
			}
			return resultErr(result.Success, result.Errors)
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "explicit slug (derived from name when empty)")
	return cmd
}

func newBulkCreateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-create <name>...",
		Short: "Create or resolve a batch of tags atomically",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, closer, err := newEngine(v)
			if err != nil {
				return err
			}
			defer closer()

			result := svc.BulkCreateTags(context.Background(), &tag.BulkCreateTagsRequest{Names: args})
			if err := printJSON(result); err != nil {
				return err
			}
			return resultErr(result.Success, result.Errors)
		},
	}
}

func newUpdateCmd(v *viper.Viper) *cobra.Command {
	var slug string
	cmd := &cobra.Command{
		Use:   "update <id> <name>",
		Short: "Rename a tag, regenerating its slug when the name changed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, svc, closer, err := newEngine(v)
			if err != nil {
				return err
			}
			defer closer()

			result := svc.UpdateTag(context.Background(), &tag.UpdateTagRequest{ID: id, Name: args[1], Slug: slug})
			if err := printJSON(result); err != nil {
				return err
			}
			return resultErr(result.Success, result.Errors)
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "explicit slug override")
	return cmd
}

func newDeleteCmd(v *viper.Viper) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tag with no post references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, svc, closer, err := newEngine(v)
			if err != nil {
				return err
			}
			defer closer()

			result := svc.DeleteTag(context.Background(), &tag.DeleteTagRequest{ID: id, Force: force})
			if err := printJSON(result); err != nil {
				return err
			}
			return resultErr(result.Success, result.Errors)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "accepted for compatibility; referenced tags are still not deleted")
	return cmd
}

func newMergeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <source-id> <target-id>",
		Short: "Merge the source tag into the target tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceID, err := parseID(args[0])
			if err != nil {
				return err
			}
			targetID, err := parseID(args[1])
			if err != nil {
				return err
			}
			_, svc, closer, err := newEngine(v)
			if err != nil {
				return err
			}
			defer closer()

			result := svc.MergeTags(context.Background(), &tag.MergeTagsRequest{SourceID: sourceID, TargetID: targetID})
			if err := printJSON(result); err != nil {
				return err
			}
			return resultErr(result.Success, result.Errors)
		},
	}
}

func newSimilarCmd(v *viper.Viper) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "similar <name>",
		Short: "Score existing tags against a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, closer, err := newEngine(v)
			if err != nil {
				return err
			}
			defer closer()

			result := svc.FindSimilarTags(context.Background(), args[0], limit)
			if err := printJSON(result); err != nil {
				return err
			}
			return resultErr(result.Success, result.Errors)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum number of matches")
	return cmd
}

func newListCmd(v *viper.Viper) *cobra.Command {
	var (
		term     string
		orderBy  string
		desc     bool
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tags with paging, filtering and sorting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, closer, err := newEngine(v)
			if err != nil {
				return err
			}
			defer closer()

			if page < 1 {
				page = 1
			}
			limit := pageSize
			offset := (page - 1) * pageSize
			find := &store.FindTag{
				OrderBy:   store.TagOrderBy(orderBy),
				OrderDesc: desc,
				Limit:     &limit,
				Offset:    &offset,
			}
			if term != "" {
				find.Term = &term
			}

			tags, total, err := st.SearchTags(context.Background(), find)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"tags":  tags,
				"total": total,
				"page":  page,
			})
		},
	}
	cmd.Flags().StringVar(&term, "term", "", "filter by substring match on name or slug")
	cmd.Flags().StringVar(&orderBy, "order-by", "name", "sort column: name, slug, created_ts, post_count")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	return cmd
}

func newGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get <slug>",
		Short: "Fetch a tag by slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, closer, err := newEngine(v)
			if err != nil {
				return err
			}
			defer closer()

			found, err := st.GetTagBySlug(context.Background(), args[0])
			if err != nil {
				return err
			}
			if found == nil {
				return fmt.Errorf("no tag with slug %q", args[0])
			}
			return printJSON(found)
		},
	}
}

func newCheckSlugCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check-slug <slug>",
		Short: "Report whether a slug is already taken",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, closer, err := newEngine(v)
			if err != nil {
				return err
			}
			defer closer()

			result := svc.CheckSlugExists(context.Background(), args[0])
			if err := printJSON(result); err != nil {
				return err
			}
			return resultErr(result.Success, result.Errors)
		},
	}
}

func parseID(arg string) (int32, error) {
	var id int32
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid tag id %q", arg)
	}
	return id, nil
}
