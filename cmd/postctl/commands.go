package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/ButyrinIA/postboard/internal/client"
	"github.com/ButyrinIA/postboard/internal/config"
	"github.com/ButyrinIA/postboard/internal/models"
	"github.com/ButyrinIA/postboard/internal/postsync"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	baseURL    string
	jsonOutput bool
	offline    bool

	cfg *config.Config
	api *client.Client
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "postctl",
		Short:         "Manage posts on a post board server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.baseURL != "" {
				cfg.Client.BaseURL = opts.baseURL
			}
			opts.cfg = cfg
			opts.api = client.New(cfg.Client.BaseURL, client.WithTimeout(cfg.Client.Timeout))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "path to the config file")
	root.PersistentFlags().StringVar(&opts.baseURL, "url", "", "API base URL (overrides client.base_url)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of tables")
	root.PersistentFlags().BoolVar(&opts.offline, "offline", false, "simulate offline mode; mutations are refused")

	root.AddCommand(
		newListCmd(opts),
		newFeedCmd(opts),
		newCreateCmd(opts),
		newEditCmd(opts),
		newDeleteCmd(opts),
		newUsersCmd(opts),
		newHealthCmd(opts),
		newDevCmd(opts),
	)
	return root
}

// store builds a sync store whose mutations respect the connectivity monitor.
func (o *options) store() *postsync.Store {
	monitor := postsync.NewMonitor(o.api, 0)
	monitor.SetSimulateOffline(o.offline)
	return postsync.NewStore(o.api,
		postsync.WithMonitor(monitor),
		postsync.WithPageSize(o.cfg.Client.PageSize),
	)
}

func newListCmd(opts *options) *cobra.Command {
	var (
		page, limit, userID int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			listOpts := client.ListOptions{Page: page, Limit: limit}
			if cmd.Flags().Changed("user") {
				listOpts.UserID = &userID
			}
			result, err := opts.api.ListPosts(cmd.Context(), listOpts)
			if err != nil {
				return describe(err)
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printPosts(cmd.OutOrStdout(), result.Data)
			p := result.Pagination
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d, %d total\n", p.Page, p.TotalPages, p.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "posts per page (1-100)")
	cmd.Flags().IntVar(&userID, "user", 0, "only posts by this author id")
	return cmd
}

func newFeedCmd(opts *options) *cobra.Command {
	var (
		userID int
		pages  int
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Scroll through posts page by page",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := opts.store()

			var filter *int
			if cmd.Flags().Changed("user") {
				filter = &userID
			}
			if err := store.SetFilter(ctx, filter); err != nil {
				return describe(err)
			}
			for loaded := 1; pages <= 0 || loaded < pages; loaded++ {
				more, err := store.LoadMore(ctx)
				if err != nil {
					return describe(err)
				}
				if !more {
					break
				}
			}

			snap := store.Snapshot()
			data := make([]models.PostWithAuthor, len(snap.Items))
			for i, it := range snap.Items {
				data[i] = it.Post
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), data)
			}
			printPosts(cmd.OutOrStdout(), data)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d posts loaded\n", len(data), snap.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&userID, "user", 0, "only posts by this author id")
	cmd.Flags().IntVar(&pages, "pages", 0, "stop after this many pages (0 loads everything)")
	return cmd
}

func newCreateCmd(opts *options) *cobra.Command {
	var input models.CreatePostInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		RunE: func(cmd *cobra.Command, args []string) error {
			post, err := opts.store().Create(cmd.Context(), input)
			if err != nil {
				return describe(err)
			}
			return printPost(cmd.OutOrStdout(), opts, "created", post)
		},
	}
	cmd.Flags().StringVar(&input.Title, "title", "", "post title")
	cmd.Flags().StringVar(&input.Body, "body", "", "post body")
	cmd.Flags().IntVar(&input.UserID, "user", 0, "author id")
	return cmd
}

func newEditCmd(opts *options) *cobra.Command {
	var input models.EditPostInput
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the title and body of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			post, err := opts.store().Edit(cmd.Context(), id, input)
			if err != nil {
				return describe(err)
			}
			return printPost(cmd.OutOrStdout(), opts, "updated", post)
		},
	}
	cmd.Flags().StringVar(&input.Title, "title", "", "new title")
	cmd.Flags().StringVar(&input.Body, "body", "", "new body")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			if err := opts.store().Delete(cmd.Context(), id); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "post %d deleted\n", id)
			return nil
		},
	}
}

func newUsersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List authors",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := opts.api.ListUsers(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), users)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tUSERNAME\tEMAIL")
			for _, u := range users {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Username, u.Email)
			}
			return tw.Flush()
		},
	}
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			monitor := postsync.NewMonitor(opts.api, 0)
			monitor.SetSimulateOffline(opts.offline)
			if !monitor.Check(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), "offline")
				return errors.New("API is not reachable")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "online")
			return nil
		},
	}
}

func newDevCmd(opts *options) *cobra.Command {
	dev := &cobra.Command{
		Use:   "dev",
		Short: "Development data helpers",
	}
	dev.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every post",
			RunE: func(cmd *cobra.Command, args []string) error {
				result, err := opts.api.ClearPosts(cmd.Context())
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", result.Message, result.Count)
				return nil
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Replace all posts with sample data",
			RunE: func(cmd *cobra.Command, args []string) error {
				result, err := opts.api.SeedPosts(cmd.Context())
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", result.Message, result.Count)
				return nil
			},
		},
	)
	return dev
}

func parsePostID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid post id %q", raw)
	}
	return id, nil
}

// describe turns API errors into the message a person should see, keeping
// field errors.
func describe(err error) error {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := apiErr.UserMessage()
	for field, fieldMsg := range apiErr.Fields {
		msg += fmt.Sprintf("\n  %s: %s", field, fieldMsg)
	}
	return errors.New(msg)
}

func printPost(w io.Writer, opts *options, verb string, post *models.PostWithAuthor) error {
	if opts.jsonOutput {
		return printJSON(w, post)
	}
	fmt.Fprintf(w, "post %d %s by @%s: %s\n", post.ID, verb, post.Author.Username, post.Title)
	return nil
}

func printPosts(w io.Writer, data []models.PostWithAuthor) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAUTHOR\tTITLE")
	for _, p := range data {
		fmt.Fprintf(tw, "%d\t@%s\t%s\n", p.ID, p.Author.Username, p.Title)
	}
	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
