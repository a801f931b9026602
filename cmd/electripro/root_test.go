package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	groups := map[string]bool{}
	for _, g := range rootCmd.Groups() {
		groups[g.ID] = true
	}
	for _, c := range rootCmd.Commands() {
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		assert.True(t, groups[c.GroupID], "%s has unknown group %q", c.Name(), c.GroupID)
	}

	for _, path := range [][]string{
		{"price", "list"},
		{"budget", "from-conteo"},
		{"obra", "profit"},
		{"conteo", "set"},
		{"plan", "show"},
		{"config", "set"},
		{"sync", "push"},
		{"backup", "import"},
		{"stats"},
		{"serve"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestBudgetAlias(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"presupuesto", "list"})
	require.NoError(t, err)
	assert.Equal(t, budgetListCmd, cmd)
}
