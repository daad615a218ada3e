// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lspctl/lspman/internal/capability"
)

var renameCmd = &cobra.Command{
	Use:   "rename",
	Short: "Preview and execute project-wide symbol renames",
}

var renameNewNameFlag string

var renamePreviewCmd = &cobra.Command{
	Use:   "preview <new-name>",
	Short: "Preview the edits a rename would make, without applying them",
	Args:  cobra.ExactArgs(1),
	RunE:  runRenamePreview,
}

var renameExcludeFlag []string

var renameExecuteCmd = &cobra.Command{
	Use:   "execute <rename-id>",
	Short: "Apply a previously previewed rename",
	Args:  cobra.ExactArgs(1),
	RunE:  runRenameExecute,
}

func init() {
	renameCmd.AddCommand(renamePreviewCmd, renameExecuteCmd)

	addLocateFlags(renamePreviewCmd)

	renameExecuteCmd.Flags().StringSliceVar(&renameExcludeFlag, "exclude", nil, "file path or glob to exclude from the applied rename (repeatable)")
	renameExecuteCmd.Flags().StringVar(&projectFlag, "project", "", "explicit project root override")
}

func runRenamePreview(cmd *cobra.Command, args []string) error {
	loc, err := resolveLocate()
	if err != nil {
		return err
	}
	sockPath, _, err := ensureChild(cmd.Context(), loc.FilePath, projectFlag)
	if err != nil {
		return err
	}

	req := capability.RenamePreviewRequest{LocateRequest: toLocateRequest(loc), NewName: args[0]}
	var resp capability.RenamePreviewResponse
	if err := postCapability(cmd.Context(), sockPath, "/capability/rename/preview", req, &resp); err != nil {
		return err
	}

	if resp.RenameID == "" {
		fmt.Println("Warning: No rename possibilities found")
		return nil
	}

	fmt.Printf("Rename ID: %s\n", resp.RenameID)
	for _, f := range resp.Files {
		fmt.Printf("  %s (+%d -%d)\n", f.FilePath, f.Added, f.Removed)
		printDiff(f.Diff)
	}
	fmt.Printf("Run `lsp rename execute %s` to apply.\n", resp.RenameID)
	return nil
}

func runRenameExecute(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	// Relative exclude entries resolve against the CLI's working directory
	// before forwarding (spec §4.4); the façade only ever sees absolute paths.
	excludes := make([]string, len(renameExcludeFlag))
	for i, e := range renameExcludeFlag {
		if filepath.IsAbs(e) {
			excludes[i] = e
		} else {
			excludes[i] = filepath.Join(cwd, e)
		}
	}

	sockPath, _, err := ensureChild(cmd.Context(), cwd, projectFlag)
	if err != nil {
		return err
	}

	req := capability.RenameExecuteRequest{RenameID: args[0], ExcludeFiles: excludes}
	var resp capability.RenameExecuteResponse
	if err := postCapability(cmd.Context(), sockPath, "/capability/rename/execute", req, &resp); err != nil {
		return err
	}

	if len(resp.AppliedFiles) == 0 {
		return fmt.Errorf("rename %s applied no files", args[0])
	}

	fmt.Printf("Applied %d edits across %d files:\n", resp.EditCount, len(resp.AppliedFiles))
	for _, f := range resp.AppliedFiles {
		fmt.Printf("  %s\n", f)
	}
	if len(resp.SkippedFiles) > 0 {
		fmt.Println("Skipped (excluded):")
		for _, f := range resp.SkippedFiles {
			fmt.Printf("  %s\n", f)
		}
	}
	return nil
}
