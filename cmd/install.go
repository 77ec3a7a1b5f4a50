package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mend/internal/browser"
	"mend/internal/cli"
)

var installBrowserName string

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download the playwright driver and browser engine",
	Long: `The install command downloads the playwright driver and the configured
browser engine. Run it once on a fresh machine or CI image before the first
'mend run'; afterwards the downloads are cached and the command is a no-op.

Example usage:
  mend install
  mend install --browser=firefox
  mend install --browser=webkit`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().StringVar(&installBrowserName, "browser", browser.BrowserChromium, "Browser engine to install (chromium, firefox, webkit)")

	_ = installCmd.RegisterFlagCompletionFunc("browser", completeBrowserFlag)
}

func runInstall(cmd *cobra.Command, args []string) error {
	name := browser.NormalizeBrowser(installBrowserName)

	progress := cli.NewProgress(fmt.Sprintf("Installing %s (this can take a few minutes on first run)...", name))
	if err := browser.Install(installBrowserName); err != nil {
		progress.Fail(fmt.Sprintf("Install failed: %v", err))
		return fmt.Errorf("failed to install %s: %w", name, err)
	}
	progress.Done()

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s is ready", name)))
	return nil
}
