package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// client is the D-Bus RPC client, initialized in PersistentPreRunE.
	client *busClient

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// busName is the daemon's well-known D-Bus name.
	busName string

	// sessionBus selects the session bus instead of the system bus.
	sessionBus bool
)

// rootCmd is the top-level cobra command for btmgrctl.
var rootCmd = &cobra.Command{
	Use:   "btmgrctl",
	Short: "CLI client for the btmgrd daemon",
	Long:  "btmgrctl communicates with the btmgrd daemon over D-Bus to manage Bluetooth adapters, devices, and profiles.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		c, err := newBusClient(busName, !sessionBus)
		if err != nil {
			return err
		}
		client = c
		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&busName, "bus-name", "org.anttech.btmgr",
		"btmgrd well-known D-Bus name")
	rootCmd.PersistentFlags().BoolVar(&sessionBus, "session-bus", false,
		"connect to the session bus instead of the system bus")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(adapterCmd())
	rootCmd.AddCommand(deviceCmd())
	rootCmd.AddCommand(leCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
