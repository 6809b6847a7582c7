package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aghostraa/oli-frontend/internal/chains"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		code   int
		stdout string
	}{
		{"chain alias", []string{"chain", "arb"}, 0, "eip155:42161\n"},
		{"chain numeric", []string{"chain", "8453"}, 0, "eip155:8453\n"},
		{"unknown chain", []string{"chain", "atlantis"}, 1, ""},
		{"build", []string{"build", "1", "0xd8da6bf26964af9d7eed9e03e53415d37aa96045"}, 0, "eip155:1:0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045\n"},
		{"bad parse", []string{"parse", "0xabc"}, 1, ""},
		{"no args", nil, 2, ""},
		{"wrong arity", []string{"build", "1"}, 2, ""},
		{"unknown command", []string{"explode"}, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.stdout, stdout.String())
			if tt.code != 0 {
				assert.NotEmpty(t, stderr.String())
			}
		})
	}
}

func TestRun_Parse(t *testing.T) {
	var stdout bytes.Buffer
	require.Equal(t, 0, run([]string{"parse", "eip155:10:0xabc"}, &stdout, &bytes.Buffer{}))

	var parsed chains.Caip10
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &parsed))
	assert.Equal(t, chains.Caip10{ChainID: "eip155:10", Address: "0xabc", IsKnownChain: true}, parsed)
}

func TestRun_List(t *testing.T) {
	var stdout bytes.Buffer
	require.Equal(t, 0, run([]string{"list"}, &stdout, &bytes.Buffer{}))

	var list []chains.Descriptor
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &list))
	assert.Len(t, list, chains.DefaultRegistry().Len())
}
