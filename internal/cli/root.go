// Package cli is the command-line front end. Commands call the services
// and print the refreshed views.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"campusfeed/internal/bootstrap"
	"campusfeed/internal/cli/output"
	"campusfeed/internal/config"
	"campusfeed/internal/models"

	"github.com/spf13/cobra"
)

// Version is reported by --version.
var Version = "0.3.0"

// AppFactory builds the application for one command invocation.
type AppFactory func(ctx context.Context) (*bootstrap.App, error)

// LoadApp reads the configuration and builds the application from it.
func LoadApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return bootstrap.NewApp(ctx, cfg)
}

// runtime is shared by the commands of one invocation.
type runtime struct {
	newApp     AppFactory
	app        *bootstrap.App
	out        *output.Printer
	in         *bufio.Reader
	verbose    bool
	jsonOutput bool
}

// NewRootCommand builds the command tree. The application is created
// before the first command runs and closed by Execute.
func NewRootCommand(newApp AppFactory) (*cobra.Command, func(ctx context.Context) error) {
	rt := &runtime{newApp: newApp}

	rootCmd := &cobra.Command{
		Use:   "campusfeed",
		Short: "Campus social feed - posts, profiles and a student marketplace",
		Long: `campusfeed is a small campus social feed run from the terminal.

Register and log in, share posts with optional images, like and comment,
search the feed, keep a profile, and browse the student marketplace.
State lives in the configured store (sqlite file by default).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.open(cmd)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&rt.jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(
		newRegisterCommand(rt),
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newPostCommand(rt),
		newFeedCommand(rt),
		newDraftCommand(rt),
		newStatsCommand(rt),
		newProfileCommand(rt),
		newMarketCommand(rt),
	)

	return rootCmd, rt.close
}

func (rt *runtime) open(cmd *cobra.Command) error {
	rt.out = output.New(cmd.OutOrStdout())
	rt.in = bufio.NewReader(cmd.InOrStdin())

	log.SetFlags(0)
	if rt.verbose {
		log.SetOutput(cmd.ErrOrStderr())
	} else {
		log.SetOutput(io.Discard)
	}

	app, err := rt.newApp(cmd.Context())
	if err != nil {
		return err
	}
	rt.app = app
	rt.app.Auth.OnLogin(func(username string) {
		if !rt.jsonOutput {
			rt.out.Success("Welcome back, %s", username)
		}
	})
	return nil
}

func (rt *runtime) close(ctx context.Context) error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close(ctx)
	rt.app = nil
	return err
}

// Execute runs args against a fresh command tree and returns the exit code.
func Execute(ctx context.Context, args []string, newApp AppFactory, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd, closeApp := NewRootCommand(newApp)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	runErr := rootCmd.ExecuteContext(ctx)
	closeErr := closeApp(ctx)

	errOut := output.New(stderr)
	if runErr != nil {
		errOut.Error("%s", describe(runErr))
		return 1
	}
	if closeErr != nil {
		errOut.Error("%v", closeErr)
		return 1
	}
	return 0
}

// describe turns domain errors into the short messages shown to users.
func describe(err error) string {
	if models.CodeOf(err) == models.CodeUnauthenticated {
		return err.Error() + " (run: campusfeed login <username>)"
	}
	return err.Error()
}

// session returns the logged-in username or UNAUTHENTICATED.
func (rt *runtime) session() (string, error) {
	return rt.app.Auth.RequireSession()
}

// readLine prompts and reads one line from the command input.
func (rt *runtime) readLine(prompt string) (string, error) {
	rt.out.Info("%s", prompt)
	line, err := rt.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", models.NewIOError("failed to read input", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question; anything but y/yes declines.
func (rt *runtime) confirm(question string) bool {
	answer, err := rt.readLine(question + " [y/N]")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func parsePostID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewInvalidInputError(fmt.Sprintf("invalid post id %q", arg))
	}
	return id, nil
}
