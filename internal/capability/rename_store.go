// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package capability

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/lspctl/lspman/internal/langserver"
	"github.com/lspctl/lspman/internal/lspproto"
)

// renamePreviewTTL bounds how long a preview id stays redeemable; rename
// execute beyond this window must be re-previewed.
const renamePreviewTTL = 10 * time.Minute

// pendingRename is a rename preview awaiting execute, keyed by its id.
type pendingRename struct {
	createdAt time.Time
	edits     map[string][]lspproto.TextEdit // absolute file path -> edits
}

// renameStore holds in-flight rename previews. One exists per Facade; it
// does not persist across process restarts — a rename id is only valid
// within the lspchild process that issued it.
type renameStore struct {
	mu      sync.Mutex
	pending map[string]*pendingRename
}

func newRenameStore() *renameStore {
	return &renameStore{pending: make(map[string]*pendingRename)}
}

// store converts a WorkspaceEdit into per-file diffs, records it under a
// fresh rename id, and returns both.
func (s *renameStore) store(ops *langserver.Operations, edit *lspproto.WorkspaceEdit) (string, []FileDiffSummary, error) {
	byFile := make(map[string][]lspproto.TextEdit)
	for uri, edits := range edit.Changes {
		byFile[ops.URIToPath(uri)] = edits
	}
	for _, dc := range edit.DocumentChanges {
		path := ops.URIToPath(dc.TextDocument.URI)
		if _, exists := byFile[path]; !exists {
			byFile[path] = dc.Edits
		}
	}

	summaries := make([]FileDiffSummary, 0, len(byFile))
	for path, edits := range byFile {
		summary, err := buildFileDiff(path, edits)
		if err != nil {
			return "", nil, err
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].FilePath < summaries[j].FilePath })

	id := uuid.NewString()
	s.mu.Lock()
	s.prune()
	s.pending[id] = &pendingRename{createdAt: time.Now(), edits: byFile}
	s.mu.Unlock()

	return id, summaries, nil
}

// apply redeems a rename id, applying its edits to disk except for files
// matching excludeFiles (absolute paths or glob patterns).
func (s *renameStore) apply(id string, excludeFiles []string) (applied, skipped []string, editCount int, err error) {
	s.mu.Lock()
	pending, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
		if time.Since(pending.createdAt) > renamePreviewTTL {
			ok = false
		}
	}
	s.mu.Unlock()

	if !ok {
		return nil, nil, 0, fmt.Errorf("unknown or expired rename id: %s", id)
	}

	paths := make([]string, 0, len(pending.edits))
	for path := range pending.edits {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if matchesAny(path, excludeFiles) {
			skipped = append(skipped, path)
			continue
		}
		n, err := applyEditsToFile(path, pending.edits[path])
		if err != nil {
			return applied, skipped, editCount, fmt.Errorf("apply edits to %s: %w", path, err)
		}
		applied = append(applied, path)
		editCount += n
	}
	return applied, skipped, editCount, nil
}

func (s *renameStore) prune() {
	cutoff := time.Now().Add(-renamePreviewTTL)
	for id, p := range s.pending {
		if p.createdAt.Before(cutoff) {
			delete(s.pending, id)
		}
	}
}

func matchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == path {
			return true
		}
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// applyEditsToFile rewrites path on disk with edits applied, latest
// range first so earlier offsets stay valid while later ones are spliced.
func applyEditsToFile(path string, edits []lspproto.TextEdit) (int, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	lines := strings.Split(string(contents), "\n")

	sorted := make([]lspproto.TextEdit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		return rangeLess(sorted[j].Range, sorted[i].Range)
	})

	for _, edit := range sorted {
		lines = spliceEdit(lines, edit)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), info.Mode()); err != nil {
		return 0, err
	}
	return len(edits), nil
}

func rangeLess(a, b lspproto.Range) bool {
	if a.Start.Line != b.Start.Line {
		return a.Start.Line < b.Start.Line
	}
	return a.Start.Character < b.Start.Character
}

// spliceEdit replaces the text spanned by edit.Range with edit.NewText,
// preserving the untouched prefix/suffix on the boundary lines.
func spliceEdit(lines []string, edit lspproto.TextEdit) []string {
	start, end := edit.Range.Start, edit.Range.End
	if start.Line < 0 || end.Line >= len(lines) {
		return lines
	}

	prefix := lines[start.Line][:clamp(start.Character, len(lines[start.Line]))]
	suffix := lines[end.Line][clamp(end.Character, len(lines[end.Line])):]
	replaced := prefix + edit.NewText + suffix
	newLines := strings.Split(replaced, "\n")

	out := make([]string, 0, len(lines)-(end.Line-start.Line)+len(newLines))
	out = append(out, lines[:start.Line]...)
	out = append(out, newLines...)
	out = append(out, lines[end.Line+1:]...)
	return out
}

func clamp(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

// buildFileDiff renders a unified diff for the effect of edits on path's
// current on-disk content, without mutating it, then re-parses that diff
// with go-diff to confirm it's well-formed and to count added/removed
// lines for the preview summary.
func buildFileDiff(path string, edits []lspproto.TextEdit) (FileDiffSummary, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return FileDiffSummary{}, err
	}
	oldLines := strings.Split(string(contents), "\n")
	newLines := applyEditsInMemory(oldLines, edits)

	minLine, maxLine := editBounds(edits, len(oldLines))
	oldSpan := oldLines[minLine:maxLine]
	newSpan := newLinesSpan(oldLines, newLines, minLine, maxLine)

	var body strings.Builder
	fmt.Fprintf(&body, "--- a/%s\n", path)
	fmt.Fprintf(&body, "+++ b/%s\n", path)
	fmt.Fprintf(&body, "@@ -%d,%d +%d,%d @@\n", minLine+1, len(oldSpan), minLine+1, len(newSpan))
	for _, l := range oldSpan {
		body.WriteString("-" + l + "\n")
	}
	for _, l := range newSpan {
		body.WriteString("+" + l + "\n")
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(body.String()))
	if err != nil {
		return FileDiffSummary{}, fmt.Errorf("parse generated diff: %w", err)
	}

	added, removed := 0, 0
	for _, fd := range fileDiffs {
		for _, h := range fd.Hunks {
			for _, line := range strings.Split(string(h.Body), "\n") {
				switch {
				case strings.HasPrefix(line, "+"):
					added++
				case strings.HasPrefix(line, "-"):
					removed++
				}
			}
		}
	}

	return FileDiffSummary{FilePath: path, Added: added, Removed: removed, Diff: body.String()}, nil
}

func applyEditsInMemory(lines []string, edits []lspproto.TextEdit) []string {
	sorted := make([]lspproto.TextEdit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return rangeLess(sorted[j].Range, sorted[i].Range) })
	for _, edit := range sorted {
		lines = spliceEdit(lines, edit)
	}
	return lines
}

func editBounds(edits []lspproto.TextEdit, numLines int) (min, max int) {
	min, max = numLines, 0
	for _, e := range edits {
		if e.Range.Start.Line < min {
			min = e.Range.Start.Line
		}
		if e.Range.End.Line+1 > max {
			max = e.Range.End.Line + 1
		}
	}
	if min > max {
		min, max = 0, 0
	}
	return min, max
}

// newLinesSpan approximates the post-edit span corresponding to
// oldLines[minLine:maxLine] by taking the same index range out of the
// fully-edited buffer. Accurate when edits don't change the overall line
// count outside the span, which holds for the common single-hunk rename.
func newLinesSpan(oldLines, newLines []string, minLine, maxLine int) []string {
	delta := len(newLines) - len(oldLines)
	end := maxLine + delta
	if end > len(newLines) {
		end = len(newLines)
	}
	if minLine > end {
		return nil
	}
	return newLines[minLine:end]
}
