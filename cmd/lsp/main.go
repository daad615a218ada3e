// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command lsp is the CLI front-end: symbol lookup, hover, rename,
// find-references, outline, and workspace search against whatever language
// server covers a given file, brokered through the auto-starting manager
// daemon (cmd/lspmand) and its managed children (cmd/lspchild).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lspctl/lspman/internal/logging"
	"github.com/lspctl/lspman/internal/runtime"
)

var (
	debugFlag bool
	logger    *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:           "lsp",
	Short:         "Query language servers from the command line",
	Long:          `lsp routes symbol lookup, hover, rename, references, outline, and search requests to a warm, auto-managed language server process.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "elevate log verbosity and print full diagnostics on error")

	rootCmd.AddCommand(serverCmd, outlineCmd, definitionCmd, referenceCmd, docCmd, symbolCmd, locateCmd, searchCmd, renameCmd)

	cobra.OnInitialize(initLogger)

	if err := rootCmd.Execute(); err != nil {
		failWith(err)
	}
}

func initLogger() {
	level := logging.LevelInfo
	if debugFlag {
		level = logging.LevelDebug
	}
	logDir, err := runtime.LogsDir()
	if err != nil {
		logDir = ""
	}
	logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "cli",
		Quiet:   !debugFlag,
	})
	slog.SetDefault(logger.Slog())
}

// failWith reports err per spec §7: full diagnostics under --debug, a
// terse message plus a log-file pointer otherwise. Always exits 1.
func failWith(err error) {
	if debugFlag {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "error: %s (run with --debug, or see log files, for details)\n", err.Error())
	}
	if logger != nil {
		logger.Error("command failed", slog.String("error", err.Error()))
		logger.Close()
	}
	os.Exit(1)
}
