package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveInterface(t *testing.T) {
	cases := map[string]string{
		"if1sec_eth0":                "eth0",
		"/usr/lib/munin/if1sec_wlo1": "wlo1",
		"if1sec_br_lan":              "lan",
	}
	for argv0, want := range cases {
		got, err := deriveInterface(argv0)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := deriveInterface("if1sec")
	require.Error(t, err)

	_, err = deriveInterface("if1sec_")
	require.Error(t, err)
}
