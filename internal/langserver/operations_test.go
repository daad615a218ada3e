// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package langserver

import (
	"encoding/json"
	"testing"

	"github.com/lspctl/lspman/internal/lspproto"
)

func TestPathToURI_And_URIToPath_RoundTrip(t *testing.T) {
	path := "/tmp/project/main.go"
	uri := pathToURI(path)
	if got := uriToPath(uri); got != path {
		t.Errorf("round trip = %q, want %q", got, path)
	}
}

func TestURIToPath_FileScheme(t *testing.T) {
	if got := uriToPath("file:///a/b.go"); got != "/a/b.go" {
		t.Errorf("uriToPath = %q, want /a/b.go", got)
	}
}

func TestIsRetryableError(t *testing.T) {
	if isRetryableError(nil) {
		t.Error("nil error should not be retryable")
	}
	if !isRetryableError(lspproto.ErrServerCrashed) {
		t.Error("ErrServerCrashed should be retryable")
	}
	if !isRetryableError(lspproto.ErrServerNotRunning) {
		t.Error("ErrServerNotRunning should be retryable")
	}
	if isRetryableError(lspproto.ErrInvalidResponse) {
		t.Error("ErrInvalidResponse should not be retryable")
	}

	transient := &lspproto.LSPError{Code: -32050}
	if !isRetryableError(transient) {
		t.Error("transient server-error-range LSPError should be retryable")
	}
	permanent := &lspproto.LSPError{Code: -32601}
	if isRetryableError(permanent) {
		t.Error("method-not-found LSPError should not be retryable")
	}
}

func TestParseLocationResponse_SingleLocation(t *testing.T) {
	data := json.RawMessage(`{"uri":"file:///a.go","range":{"start":{"line":1,"character":2},"end":{"line":1,"character":5}}}`)
	locations, err := parseLocationResponse(data)
	if err != nil {
		t.Fatalf("parseLocationResponse returned error: %v", err)
	}
	if len(locations) != 1 || locations[0].URI != "file:///a.go" {
		t.Errorf("locations = %+v, want one location at file:///a.go", locations)
	}
}

func TestParseLocationResponse_ArrayOfLocations(t *testing.T) {
	data := json.RawMessage(`[{"uri":"file:///a.go","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}}},{"uri":"file:///b.go","range":{"start":{"line":2,"character":0},"end":{"line":2,"character":1}}}]`)
	locations, err := parseLocationResponse(data)
	if err != nil {
		t.Fatalf("parseLocationResponse returned error: %v", err)
	}
	if len(locations) != 2 {
		t.Fatalf("len(locations) = %d, want 2", len(locations))
	}
}

func TestParseLocationResponse_LocationLinks(t *testing.T) {
	data := json.RawMessage(`[{"targetUri":"file:///a.go","targetRange":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}},"targetSelectionRange":{"start":{"line":3,"character":1},"end":{"line":3,"character":4}}}]`)
	locations, err := parseLocationResponse(data)
	if err != nil {
		t.Fatalf("parseLocationResponse returned error: %v", err)
	}
	if len(locations) != 1 || locations[0].URI != "file:///a.go" {
		t.Errorf("locations = %+v, want target file:///a.go", locations)
	}
	if locations[0].Range.Start.Line != 3 {
		t.Errorf("Range.Start.Line = %d, want 3 (from targetSelectionRange)", locations[0].Range.Start.Line)
	}
}

func TestParseLocationResponse_Null(t *testing.T) {
	locations, err := parseLocationResponse(json.RawMessage(`null`))
	if err != nil {
		t.Fatalf("parseLocationResponse returned error: %v", err)
	}
	if locations != nil {
		t.Errorf("locations = %+v, want nil", locations)
	}
}

func TestParseLocationResponse_Garbage(t *testing.T) {
	_, err := parseLocationResponse(json.RawMessage(`{"foo":"bar"}`))
	if err != lspproto.ErrInvalidResponse {
		t.Errorf("err = %v, want ErrInvalidResponse", err)
	}
}
