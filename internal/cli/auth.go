package cli

import (
	"github.com/spf13/cobra"
)

// password returns the --password flag or prompts for it.
func (rt *runtime) password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return rt.readLine("Password:")
}

func newRegisterCommand(rt *runtime) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := rt.password(password)
			if err != nil {
				return err
			}
			user, err := rt.app.Auth.RegisterUser(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(map[string]string{"username": user.Username})
			}
			rt.out.Success("Registered %s. Log in with: campusfeed login %s", user.Username, user.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLoginCommand(rt *runtime) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and make the account the active session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := rt.password(password)
			if err != nil {
				return err
			}
			if err := rt.app.Auth.LoginUser(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(map[string]string{"username": rt.app.Auth.CurrentUser()})
			}
			rt.out.Feed(rt.app.Posts.ListPosts(""), rt.app.Auth.CurrentUser(), "No posts yet. Be the first!")
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm := func() bool { return yes || rt.confirm("Log out?") }
			done, err := rt.app.Auth.Logout(cmd.Context(), confirm)
			if err != nil {
				return err
			}
			if rt.jsonOutput {
				return rt.out.JSON(map[string]bool{"logged_out": done})
			}
			if done {
				rt.out.Success("Logged out")
			} else {
				rt.out.Muted("Still logged in")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current := rt.app.Auth.CurrentUser()
			if rt.jsonOutput {
				return rt.out.JSON(map[string]string{"username": current})
			}
			if current == "" {
				rt.out.Muted("Not logged in")
				return nil
			}
			rt.out.Primary("@%s", current)
			return nil
		},
	}
}
