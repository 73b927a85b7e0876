package vaultops

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRootCmd(t *testing.T) {
	t.Parallel()

	cmd := BuildRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"gas-price", "send", "migrate", "execute-scheduled", "upgrade-vaults"}, names)
}

func TestRootCmd_Errors(t *testing.T) {
	t.Parallel()

	missingEnv := filepath.Join(t.TempDir(), "missing.env")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "invalid tier", args: []string{"gas-price", "--tier", "urgent"}, wantErr: "invalid fee tier"},
		{name: "send needs a target", args: []string{"send"}, wantErr: `required flag(s) "to" not set`},
		{name: "send rejects bad value", args: []string{"send", "--to", "0x01", "--value", "ten"}, wantErr: "invalid value"},
		{name: "execute needs the proposal", args: []string{"execute-scheduled"}, wantErr: `required flag(s) "tx" not set`},
		{name: "missing env file", args: []string{"--env", missingEnv, "migrate"}, wantErr: "read " + missingEnv},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := BuildRootCmd()
			cmd.SetArgs(tt.args)
			require.ErrorContains(t, cmd.Execute(), tt.wantErr)
		})
	}
}
