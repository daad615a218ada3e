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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage managed language server child processes",
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List running managed servers",
	RunE:  runServerList,
}

var serverProjectFlag string

var serverStartCmd = &cobra.Command{
	Use:   "start <path>",
	Short: "Start (or reuse) a managed server covering path",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerStart,
}

var serverStopCmd = &cobra.Command{
	Use:   "stop <path>",
	Short: "Stop the managed server covering path",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerStop,
}

func init() {
	serverCmd.AddCommand(serverListCmd, serverStartCmd, serverStopCmd)
	serverStartCmd.Flags().StringVar(&serverProjectFlag, "project", "", "explicit project root override")
	serverStopCmd.Flags().StringVar(&serverProjectFlag, "project", "", "explicit project root override")
}

func runServerList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := connectManager(ctx)
	if err != nil {
		return err
	}

	resp, err := client.List(ctx)
	if err != nil {
		return err
	}

	if len(resp.Clients) == 0 {
		fmt.Println("No managed servers running.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLANGUAGE\tPROJECT ROOT\tSTATE\tREMAINING")
	for _, c := range resp.Clients {
		remaining := time.Duration(c.RemainingTime * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Language, c.ProjectRoot, c.State, remaining)
	}
	return w.Flush()
}

func runServerStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sockPath, info, err := ensureChild(ctx, args[0], serverProjectFlag)
	if err != nil {
		return err
	}
	fmt.Printf("Success: server ready for %s (%s)\n", info.ProjectRoot, info.Language)
	fmt.Printf("  socket: %s\n", sockPath)
	return nil
}

func runServerStop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	abs, err := absPath(args[0])
	if err != nil {
		return err
	}

	client, err := connectManager(ctx)
	if err != nil {
		return err
	}

	resp, err := client.Delete(ctx, abs, serverProjectFlag)
	if err != nil {
		return err
	}
	if resp.Info == nil {
		fmt.Println("No managed server found for that path.")
		return nil
	}
	fmt.Printf("Stopped server %s (%s, %s)\n", resp.Info.ID, resp.Info.Language, resp.Info.ProjectRoot)
	return nil
}
