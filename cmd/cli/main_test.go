package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"item", "list"}, "item list"},
		{[]string{"customer", "Nok Shop"}, `customer "Nok Shop"`},
		{[]string{"item", "add", "Box", "receiver=Somchai K"}, `item add Box receiver="Somchai K"`},
		{[]string{"customer", ""}, `customer ""`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, joinArgs(tt.args))
	}
}

func TestExecuteCommand(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/command", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = req["command"]
		_ = json.NewEncoder(w).Encode(CommandResult{
			Success: true,
			Message: "Receipt queued",
			Data:    map[string]any{"job_id": "job-1", "receipt_number": "S36_20240115_01"},
		})
	}))
	defer srv.Close()

	res := executeCommand(srv.Client(), srv.URL+"/", "print counter")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "print counter", got)

	var out bytes.Buffer
	printSuccess(&out, "print counter", res)
	assert.Contains(t, out.String(), "Receipt queued")
	assert.Contains(t, out.String(), "S36_20240115_01")
	assert.Contains(t, out.String(), "job-1")
}

func TestExecuteCommand_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	url := srv.URL
	res := executeCommand(srv.Client(), url, "help")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "HTTP 502")

	srv.Close()
	res = executeCommand(http.DefaultClient, url, "help")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "failed to connect")

	var out bytes.Buffer
	printError(&out, res)
	assert.Contains(t, out.String(), "failed to connect")
}
