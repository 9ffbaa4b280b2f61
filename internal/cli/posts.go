package cli

import (
	"context"
	"os"
	"strings"

	"campusfeed/internal/models"

	"github.com/spf13/cobra"
)

func newPostCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create, edit, delete, like and comment on posts",
	}
	cmd.AddCommand(
		newPostCreateCommand(rt),
		newPostEditCommand(rt),
		newPostDeleteCommand(rt),
		newPostLikeCommand(rt),
		newPostCommentCommand(rt),
		newPostShowCommand(rt),
	)
	return cmd
}

// createWithImage encodes the image off the command goroutine and creates
// the post from the continuation.
func (rt *runtime) createWithImage(ctx context.Context, text, path string) (*models.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewIOError("failed to open image", err)
	}
	defer f.Close()

	type result struct {
		post *models.Post
		err  error
	}
	done := make(chan result, 1)
	rt.out.Muted("Encoding %s...", path)
	rt.app.Images.EncodeAsync(ctx, f, func(dataURL string, err error) {
		if err != nil {
			done <- result{err: err}
			return
		}
		post, err := rt.app.Posts.CreatePost(ctx, text, dataURL)
		done <- result{post: post, err: err}
	})
	r := <-done
	return r.post, r.err
}

func newPostCreateCommand(rt *runtime) *cobra.Command {
	var imagePath string
	cmd := &cobra.Command{
		Use:   "create [text...]",
		Short: "Publish a post; with no text the saved draft is used",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := rt.session(); err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				draft, err := rt.app.Posts.LoadDraft(ctx)
				if err != nil {
					return err
				}
				text = draft
			}

			var post *models.Post
			var err error
			if imagePath != "" {
				post, err = rt.createWithImage(ctx, text, imagePath)
			} else {
				post, err = rt.app.Posts.CreatePost(ctx, text, "")
			}
			if err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(post)
			}
			rt.out.Success("Posted #%d", post.ID)
			rt.out.Feed(rt.app.Posts.ListPosts(""), post.User, "")
			return nil
		},
	}
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Attach an image file (png, jpeg, gif or webp)")
	return cmd
}

func newPostEditCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text...>",
		Short: "Replace the text of one of your posts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			post, err := rt.app.Posts.EditPost(cmd.Context(), id, strings.Join(args[1:], " "), rt.app.Auth.CurrentUser())
			if err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(post)
			}
			rt.out.Success("Edited #%d", post.ID)
			rt.out.Post(post, post.User)
			return nil
		},
	}
}

func newPostDeleteCommand(rt *runtime) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			if !yes && !rt.confirm("Delete this post?") {
				rt.out.Muted("Kept #%d", id)
				return nil
			}
			if err := rt.app.Posts.DeletePost(cmd.Context(), id, rt.app.Auth.CurrentUser()); err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(map[string]int64{"deleted": id})
			}
			rt.out.Success("Deleted #%d", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newPostLikeCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Like a post, or unlike it if already liked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			viewer := rt.app.Auth.CurrentUser()
			liked, err := rt.app.Posts.ToggleLike(cmd.Context(), id, viewer)
			if err != nil {
				return err
			}
			post, err := rt.app.Posts.GetPost(id)
			if err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(map[string]interface{}{"liked": liked, "post": post})
			}
			rt.out.Post(post, viewer)
			return nil
		},
	}
}

func newPostCommentCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text...>",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			viewer := rt.app.Auth.CurrentUser()
			comment, err := rt.app.Posts.AddComment(cmd.Context(), id, viewer, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if comment == nil {
				rt.out.Muted("Nothing to add")
				return nil
			}
			post, err := rt.app.Posts.GetPost(id)
			if err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(comment)
			}
			rt.out.PostDetail(post, viewer)
			return nil
		},
	}
}

func newPostShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			post, err := rt.app.Posts.GetPost(id)
			if err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(post)
			}
			rt.out.PostDetail(post, rt.app.Auth.CurrentUser())
			return nil
		},
	}
}

func newFeedCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "feed [query...]",
		Aliases: []string{"search", "explore"},
		Short:   "List posts, filtered by author or text",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			posts := rt.app.Posts.Search(query)
			if rt.jsonOutput {
				return rt.out.JSON(posts)
			}
			empty := "No posts yet. Be the first!"
			if query != "" {
				empty = "No posts match " + query
			}
			rt.out.Feed(posts, rt.app.Auth.CurrentUser(), empty)
			return nil
		},
	}
}

func newDraftCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Keep unsent post text between commands",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save <text...>",
			Short: "Save draft text",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := rt.app.Posts.SaveDraft(cmd.Context(), strings.Join(args, " ")); err != nil {
					return err
				}
				rt.out.Success("Draft saved")
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the saved draft",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				draft, err := rt.app.Posts.LoadDraft(cmd.Context())
				if err != nil {
					return err
				}
				if rt.jsonOutput {
					return rt.out.JSON(map[string]string{"draft": draft})
				}
				if draft == "" {
					rt.out.Muted("No draft")
					return nil
				}
				rt.out.Info("%s", draft)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Discard the saved draft",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := rt.app.Posts.ClearDraft(cmd.Context()); err != nil {
					return err
				}
				rt.out.Success("Draft cleared")
				return nil
			},
		},
	)
	return cmd
}

func newStatsCommand(rt *runtime) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "stats [username]",
		Short: "Rebuild profile counters from the posts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if all {
				if err := rt.app.Posts.RecomputeAll(ctx); err != nil {
					return err
				}
				rt.out.Success("Recomputed stats for every user")
				return nil
			}
			username := rt.app.Auth.CurrentUser()
			if len(args) == 1 {
				username = args[0]
			}
			if username == "" {
				_, err := rt.session()
				return err
			}
			stats, err := rt.app.Posts.RecomputeStats(ctx, username)
			if err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(stats)
			}
			rt.out.Primary("@%s", username)
			rt.out.Stats(stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Recompute every user")
	return cmd
}
