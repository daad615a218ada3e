// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package manager

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDaemon() *Daemon {
	return NewDaemon("/nonexistent/lspchild", DefaultIdleTimeout)
}

func doJSON(t *testing.T, d *Daemon, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)
	return w
}

func TestHandleCreate_MissingPathIsBadRequest(t *testing.T) {
	d := newTestDaemon()

	w := doJSON(t, d, http.MethodPost, "/create", CreateClientRequest{})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestHandleCreate_NoProjectMarkersIsNotFound(t *testing.T) {
	d := newTestDaemon()

	w := doJSON(t, d, http.MethodPost, "/create", CreateClientRequest{Path: t.TempDir()})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDelete_NoMatchReturnsNilInfo(t *testing.T) {
	d := newTestDaemon()

	w := doJSON(t, d, http.MethodDelete, "/delete", DeleteClientRequest{Path: t.TempDir()})

	require.Equal(t, http.StatusOK, w.Code)

	var resp DeleteClientResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Info)
}

func TestHandleList_EmptyRegistry(t *testing.T) {
	d := newTestDaemon()

	w := doJSON(t, d, http.MethodGet, "/list", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ListClientsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Clients)
}

func TestHandleCreate_MalformedJSONIsBadRequest(t *testing.T) {
	d := newTestDaemon()

	req := httptest.NewRequest(http.MethodPost, "/create", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMetrics_ServesPrometheusFormat(t *testing.T) {
	d := newTestDaemon()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}
