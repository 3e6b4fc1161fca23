/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wallet-rest serves the wallet operations over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/cmd/wallet-rest/startcmd"
)

var logger = log.New("wallet-rest")

// Set during the build.
var (
	Version     string
	GitRevision string
	BuildTime   string
)

func main() {
	rootCmd := &cobra.Command{
		Use: "wallet-rest",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	rootCmd.AddCommand(startcmd.GetStartCmd(
		startcmd.WithVersion(Version),
		startcmd.WithBuildInfo(GitRevision, BuildTime),
		startcmd.WithServerVersion(os.Getenv("WALLET_SERVER_VERSION")),
	))

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("Failed to run wallet-rest", log.WithError(err))
	}
}
