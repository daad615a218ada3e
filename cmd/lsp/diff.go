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

	"github.com/mattn/go-isatty"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiCyan  = "\x1b[36m"
	ansiReset = "\x1b[0m"
)

// colorDiffEnabled reports whether stdout is an interactive terminal — the
// only case worth spending ANSI codes on.
func colorDiffEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// printDiff writes a unified diff to stdout, colorizing +/- lines when
// stdout is a terminal and leaving it plain otherwise (redirected to a
// file or piped into another tool).
func printDiff(diff string) {
	if !colorDiffEnabled() {
		fmt.Print(diff)
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			fmt.Println(line)
		case strings.HasPrefix(line, "+"):
			fmt.Println(ansiGreen + line + ansiReset)
		case strings.HasPrefix(line, "-"):
			fmt.Println(ansiRed + line + ansiReset)
		case strings.HasPrefix(line, "@@"):
			fmt.Println(ansiCyan + line + ansiReset)
		default:
			fmt.Println(line)
		}
	}
}
