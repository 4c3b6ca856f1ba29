package cmd

import (
	"flag"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletion(t *testing.T) {
	commander := subcommands.NewCommander(flag.NewFlagSet("cv", flag.ContinueOnError), "cv")
	Register(commander)

	root := Completion(commander)
	assert.Contains(t, root.Flags, "store")
	assert.Empty(t, root.Flags["v"].Predict(""))

	add, ok := root.Sub["add"]
	require.True(t, ok, "add is not completed")
	assert.ElementsMatch(t, []string{"NM", "LP", "MP", "HP", "DMG"}, add.Flags["cond"].Predict(""))
	assert.NotNil(t, add.Flags["k"])

	search := root.Sub["search"]
	require.NotNil(t, search)
	assert.ElementsMatch(t, []string{"lorcast", "justtcg", "cardtrader"}, search.Flags["p"].Predict(""))

	topic := root.Sub["topic"]
	require.NotNil(t, topic)
	assert.Contains(t, topic.Args.Predict(""), "keys")
	assert.Empty(t, topic.Flags["l"].Predict(""))
}
