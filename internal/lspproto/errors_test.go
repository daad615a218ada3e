// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lspproto

import "testing"

func TestLSPError_Error(t *testing.T) {
	plain := &LSPError{Code: -32601, Message: "method not found"}
	if got, want := plain.Error(), "lsp error -32601: method not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	withData := &LSPError{Code: -32602, Message: "invalid params", Data: "foo"}
	if got, want := withData.Error(), "lsp error -32602: invalid params (data: foo)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLSPError_Classifiers(t *testing.T) {
	tests := []struct {
		name string
		err  *LSPError
		is   func(*LSPError) bool
		want bool
	}{
		{"method not found matches", &LSPError{Code: -32601}, (*LSPError).IsMethodNotFound, true},
		{"method not found rejects other code", &LSPError{Code: -32602}, (*LSPError).IsMethodNotFound, false},
		{"request cancelled matches", &LSPError{Code: -32800}, (*LSPError).IsRequestCancelled, true},
		{"server not initialized matches", &LSPError{Code: -32802}, (*LSPError).IsServerNotInitialized, true},
		{"transient range lower bound", &LSPError{Code: -32099}, (*LSPError).IsTransientServerError, true},
		{"transient range upper bound", &LSPError{Code: -32000}, (*LSPError).IsTransientServerError, true},
		{"transient range excludes below", &LSPError{Code: -32100}, (*LSPError).IsTransientServerError, false},
		{"transient range excludes above", &LSPError{Code: -31999}, (*LSPError).IsTransientServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.is(tt.err); got != tt.want {
				t.Errorf("classifier(%+v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
