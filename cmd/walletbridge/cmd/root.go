package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "walletbridge",
	Short: "walletbridge is the WalletConnect session bridge of the Kestrel wallet",
	Long: `A relay-backed bridge between Aleo dApps and the local wallet engine:
it pairs with dApps over WalletConnect, routes their requests through the
user's approval window and answers from the engine.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
