package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newProfileCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View profiles and edit your bio and avatar",
	}

	show := &cobra.Command{
		Use:   "show [username]",
		Short: "Show a profile; defaults to yours",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := ""
			if len(args) == 1 {
				username = args[0]
			} else if _, err := rt.session(); err != nil {
				return err
			}
			view, err := rt.app.Profiles.GetProfileView(username)
			if err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(view)
			}
			title := "@" + view.Username
			if view.IsCurrent {
				title += " (you)"
			}
			rt.out.Section(title)
			if view.Bio != "" {
				rt.out.Info("%s", view.Bio)
			} else {
				rt.out.Muted("No bio yet")
			}
			rt.out.Muted("avatar: %s", shortenDataURL(view.AvatarURL))
			rt.out.Stats(view.Stats)
			rt.out.Feed(view.Posts, rt.app.Auth.CurrentUser(), "No posts yet")
			return nil
		},
	}

	bio := &cobra.Command{
		Use:   "bio <text...>",
		Short: "Set your bio",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := rt.session()
			if err != nil {
				return err
			}
			if err := rt.app.Profiles.UpdateBio(cmd.Context(), username, strings.Join(args, " ")); err != nil {
				return err
			}
			rt.out.Success("Bio updated")
			return nil
		},
	}

	var clearAvatar bool
	avatar := &cobra.Command{
		Use:   "avatar [image-path]",
		Short: "Set your avatar from an image file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			username, err := rt.session()
			if err != nil {
				return err
			}
			image := ""
			if !clearAvatar {
				if len(args) == 0 {
					return cmd.Usage()
				}
				if image, err = rt.app.Avatars.EncodeFile(ctx, args[0]); err != nil {
					return err
				}
			}
			if err := rt.app.Profiles.UpdateAvatar(ctx, username, image); err != nil {
				return err
			}
			if clearAvatar {
				rt.out.Success("Avatar reset")
			} else {
				rt.out.Success("Avatar updated")
			}
			return nil
		},
	}
	avatar.Flags().BoolVar(&clearAvatar, "clear", false, "Go back to the generated placeholder")

	cmd.AddCommand(show, bio, avatar)
	return cmd
}

// shortenDataURL keeps avatar lines readable.
func shortenDataURL(url string) string {
	if strings.HasPrefix(url, "data:") {
		if i := strings.Index(url, ","); i > 0 {
			return url[:i] + ",…"
		}
	}
	return url
}
