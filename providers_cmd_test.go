package main

import (
	"bytes"
	"testing"

	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderFromFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want gateway.Provider
	}{
		{
			name: "none",
			args: nil,
			want: gateway.Provider{},
		},
		{
			name: "create",
			args: []string{"--name", " qwen ", "--type", "qwen", "--access-key", "ak", "--metadata", `{"region":"cn"}`},
			want: gateway.Provider{Name: "qwen", ProviderType: "QWEN", AccessKey: "ak", Metadata: `{"region":"cn"}`},
		},
		{
			name: "disable",
			args: []string{"--active=false"},
			want: gateway.Provider{IsActive: new(bool)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &cobra.Command{}
			addProviderFlags(c)
			require.NoError(t, c.Flags().Parse(tt.args))
			assert.Equal(t, tt.want, providerFromFlags(c))
		})
	}
}

func TestRenderProviderMasksKeys(t *testing.T) {
	var buf bytes.Buffer
	renderProvider(&buf, gateway.Provider{
		ID:           "0b6f",
		Name:         "aliyun",
		ProviderType: "ALIYUN",
		AccessKey:    "LTAI5tAbCdEf",
		SecretKey:    "abc",
	})
	out := buf.String()

	assert.Contains(t, out, "aliyun")
	assert.Contains(t, out, "****CdEf")
	assert.NotContains(t, out, "LTAI5t")
	assert.NotContains(t, out, "abc")
}

func TestProvidersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range providersCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"get", "add", "update", "delete"} {
		assert.True(t, names[want], "missing providers %s", want)
	}
}
