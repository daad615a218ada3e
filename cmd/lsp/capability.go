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
	"strings"

	"github.com/spf13/cobra"

	"github.com/lspctl/lspman/internal/capability"
	"github.com/lspctl/lspman/internal/locate"
)

var (
	locateFlag string
	projectFlag string
)

func addLocateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&locateFlag, "locate", "l", "", "cursor location: path:line[:col] or path:line-line")
	cmd.Flags().StringVar(&projectFlag, "project", "", "explicit project root override")
	_ = cmd.MarkFlagRequired("locate")
}

func resolveLocate() (locate.Locate, error) {
	if locateFlag == "" {
		return locate.Locate{}, fmt.Errorf("--locate is required")
	}
	loc, err := locate.Parse(locateFlag)
	if err != nil {
		return locate.Locate{}, err
	}
	if _, err := os.Stat(loc.FilePath); err != nil {
		return locate.Locate{}, fmt.Errorf("path not found: %s", loc.FilePath)
	}
	return loc, nil
}

func toLocateRequest(loc locate.Locate) capability.LocateRequest {
	return capability.LocateRequest{
		FilePath: loc.FilePath,
		Line:     loc.Scope.StartLine,
		EndLine:  loc.Scope.EndLine,
		Col:      loc.Scope.Col,
		HasCol:   loc.Scope.HasCol(),
		Symbol:   loc.Symbol,
	}
}

var definitionCmd = &cobra.Command{
	Use:   "definition",
	Short: "Find the definition of the symbol at a location",
	RunE:  runDefinition,
}

var referenceCmd = &cobra.Command{
	Use:   "reference",
	Short: "Find references to the symbol at a location",
	RunE:  runReference,
}

var includeDeclFlag bool

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Show hover documentation for the symbol at a location",
	RunE:  runDoc,
}

var symbolCmd = &cobra.Command{
	Use:   "symbol",
	Short: "Show the structural symbol enclosing a location",
	RunE:  runSymbol,
}

var outlineAllFlag bool

var outlineCmd = &cobra.Command{
	Use:   "outline <file>",
	Short: "Show the document outline for a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutline,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search workspace symbols by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var checkFlag bool

var locateCmd = &cobra.Command{
	Use:   "locate <locate>",
	Short: "Resolve a locate string and show its surrounding context",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocate,
}

func init() {
	addLocateFlags(definitionCmd)
	addLocateFlags(referenceCmd)
	referenceCmd.Flags().BoolVar(&includeDeclFlag, "include-declaration", false, "include the declaration site among the references")
	addLocateFlags(docCmd)
	addLocateFlags(symbolCmd)

	outlineCmd.Flags().BoolVar(&outlineAllFlag, "all", false, "include non-structural symbols")
	outlineCmd.Flags().StringVar(&projectFlag, "project", "", "explicit project root override")

	searchCmd.Flags().StringVar(&projectFlag, "project", "", "explicit project root override")

	locateCmd.Flags().BoolVarP(&checkFlag, "check", "c", false, "exit non-zero if the target does not exist")
	locateCmd.Flags().StringVar(&projectFlag, "project", "", "explicit project root override")
}

func runDefinition(cmd *cobra.Command, args []string) error {
	loc, err := resolveLocate()
	if err != nil {
		return err
	}
	sockPath, _, err := ensureChild(cmd.Context(), loc.FilePath, projectFlag)
	if err != nil {
		return err
	}
	var resp capability.DefinitionResponse
	if err := postCapability(cmd.Context(), sockPath, "/capability/definition", toLocateRequest(loc), &resp); err != nil {
		return err
	}
	if len(resp.Locations) == 0 {
		fmt.Println("No definition found.")
		return nil
	}
	for _, l := range resp.Locations {
		fmt.Printf("%s:%d:%d\n", l.FilePath, l.Line, l.Col)
	}
	return nil
}

func runReference(cmd *cobra.Command, args []string) error {
	loc, err := resolveLocate()
	if err != nil {
		return err
	}
	sockPath, _, err := ensureChild(cmd.Context(), loc.FilePath, projectFlag)
	if err != nil {
		return err
	}
	req := capability.ReferenceRequest{LocateRequest: toLocateRequest(loc), IncludeDeclaration: includeDeclFlag}
	var resp capability.ReferenceResponse
	if err := postCapability(cmd.Context(), sockPath, "/capability/reference", req, &resp); err != nil {
		return err
	}
	if len(resp.Locations) == 0 {
		fmt.Println("No references found.")
		return nil
	}
	for _, l := range resp.Locations {
		fmt.Printf("%s:%d:%d\n", l.FilePath, l.Line, l.Col)
	}
	return nil
}

func runDoc(cmd *cobra.Command, args []string) error {
	loc, err := resolveLocate()
	if err != nil {
		return err
	}
	sockPath, _, err := ensureChild(cmd.Context(), loc.FilePath, projectFlag)
	if err != nil {
		return err
	}
	var resp capability.HoverResponse
	if err := postCapability(cmd.Context(), sockPath, "/capability/hover", toLocateRequest(loc), &resp); err != nil {
		return err
	}
	if resp.Content == "" {
		fmt.Println("Warning: No documentation found")
		return nil
	}
	fmt.Println(resp.Content)
	return nil
}

func runSymbol(cmd *cobra.Command, args []string) error {
	loc, err := resolveLocate()
	if err != nil {
		return err
	}
	sockPath, _, err := ensureChild(cmd.Context(), loc.FilePath, projectFlag)
	if err != nil {
		return err
	}
	var resp capability.SymbolResponse
	if err := postCapability(cmd.Context(), sockPath, "/capability/symbol", toLocateRequest(loc), &resp); err != nil {
		return err
	}
	if resp.Name == "" {
		fmt.Println("Warning: No symbol information found")
		return nil
	}
	fmt.Printf("%s (%s) at %s:%d:%d\n", resp.Name, resp.Kind, loc.FilePath, resp.Line, resp.Col)
	if resp.Detail != "" {
		fmt.Println("  " + resp.Detail)
	}
	return nil
}

func runOutline(cmd *cobra.Command, args []string) error {
	path, err := absPath(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("path not found: %s", path)
	}

	sockPath, _, err := ensureChild(cmd.Context(), path, projectFlag)
	if err != nil {
		return err
	}
	req := capability.OutlineRequest{FilePath: path, All: outlineAllFlag}
	var resp capability.OutlineResponse
	if err := postCapability(cmd.Context(), sockPath, "/capability/outline", req, &resp); err != nil {
		return err
	}
	printOutline(resp.Items, 0)
	return nil
}

func printOutline(items []capability.OutlineItem, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, item := range items {
		fmt.Printf("%s%s %s (line %d)\n", indent, item.Kind, item.Name, item.Line)
		printOutline(item.Children, depth+1)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	sockPath, _, err := ensureChild(cmd.Context(), cwd, projectFlag)
	if err != nil {
		return err
	}
	var resp capability.SearchResponse
	if err := postCapability(cmd.Context(), sockPath, "/capability/search", capability.SearchRequest{Query: args[0]}, &resp); err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		fmt.Println("No matching symbols.")
		return nil
	}
	for _, r := range resp.Results {
		fmt.Printf("%s (%s) %s:%d\n", r.Name, r.Kind, r.FilePath, r.Line)
	}
	return nil
}

func runLocate(cmd *cobra.Command, args []string) error {
	loc, err := locate.Parse(args[0])
	if err != nil {
		return err
	}
	sockPath, _, err := ensureChild(cmd.Context(), loc.FilePath, projectFlag)
	if err != nil {
		return err
	}
	var resp capability.CapLocateResponse
	if err := postCapability(cmd.Context(), sockPath, "/capability/locate", toLocateRequest(loc), &resp); err != nil {
		return err
	}
	if !resp.Found {
		if checkFlag {
			return fmt.Errorf("target %q not found", loc.String())
		}
		fmt.Printf("Target %q not found\n", loc.String())
		return nil
	}
	fmt.Println(loc.String())
	if resp.Context != "" {
		fmt.Println(resp.Context)
	}
	return nil
}
