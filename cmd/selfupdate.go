package cmd

import (
	"context"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// githubRepoSlug is the GitHub repository (owner/repo) releases are pulled from.
const (
	githubRepoSlug = "mend-sh/mend"
)

var selfUpdateCheckOnly bool

// newSelfUpdateCmd creates the command that replaces the running binary with
// the latest GitHub release.
func newSelfUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update mend to the latest version",
		Long: `Checks for the latest release of mend on GitHub and replaces the
current binary when a newer version is available.

With --check, only reports whether an update exists.`,
		RunE: runSelfUpdate,
	}

	cmd.Flags().BoolVar(&selfUpdateCheckOnly, "check", false, "Check for a newer version without installing it")

	return cmd
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	current := rootCmd.Version
	// Development builds carry no release version to compare against.
	if current == "" || current == "dev" {
		return fmt.Errorf("cannot self-update a development version")
	}

	fmt.Printf("Current version: %s\n", current)
	fmt.Println("Checking for updates...")

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create updater: %w", err)
	}

	ctx := context.Background()
	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(githubRepoSlug))
	if err != nil {
		return fmt.Errorf("error detecting latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest release for %s could not be found", githubRepoSlug)
	}
	if !latest.GreaterThan(current) {
		fmt.Println("Current version is the latest.")
		return nil
	}

	fmt.Printf("Newer version available: %s (published %s)\n", latest.Version(), latest.PublishedAt)
	if latest.ReleaseNotes != "" {
		fmt.Printf("Release notes:\n%s\n", latest.ReleaseNotes)
	}

	if selfUpdateCheckOnly {
		fmt.Println("Run self-update without --check to install it.")
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	fmt.Printf("Updating %s to version %s...\n", exe, latest.Version())
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Printf("Successfully updated to version %s\n", latest.Version())
	return nil
}
