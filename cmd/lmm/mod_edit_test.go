package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modstage/modstage/internal/installer"
	"github.com/modstage/modstage/internal/staging"
)

func TestGroupCmd_Structure(t *testing.T) {
	assert.Equal(t, "group", groupCmd.Use)
	assert.NotEmpty(t, groupCreateCmd.Use)
}

func TestTagCmd_Structure(t *testing.T) {
	assert.Equal(t, "tag", tagCmd.Use)
}

func TestParseIntsRejectsNonNumeric(t *testing.T) {
	_, err := parseInts([]string{"abc"})
	assert.Error(t, err)
}

func TestGroupLifecycle(t *testing.T) {
	c := staging.New(t.TempDir(), installer.New())

	require.NoError(t, c.CreateGroup(0, 1))
	assert.Equal(t, 0, c.GroupOf(0))
	assert.Equal(t, 0, c.GroupOf(1))

	require.NoError(t, c.AddModToGroup(0, 2))
	assert.Equal(t, 0, c.GroupOf(2))

	require.NoError(t, c.ChangeActiveGroupMember(0, 2))
	assert.Equal(t, 2, c.Groups[0].ActiveMember)

	require.NoError(t, c.RemoveModFromGroup(0))
	assert.Equal(t, -1, c.GroupOf(0))
}

func TestManualTagLifecycle(t *testing.T) {
	c := staging.New(t.TempDir(), installer.New())

	require.NoError(t, c.EditManualTags([]staging.TagAction{{Op: "add", Name: "favorites", ModIDs: []int{1, 2}}}))
	require.Len(t, c.ManualTags, 1)
	assert.Equal(t, "favorites", c.ManualTags[0].Name)

	require.NoError(t, c.EditManualTags([]staging.TagAction{{Op: "rename", Name: "favorites", NewName: "essentials"}}))
	assert.Equal(t, "essentials", c.ManualTags[0].Name)

	require.NoError(t, c.EditManualTags([]staging.TagAction{{Op: "remove", Name: "essentials"}}))
	assert.Empty(t, c.ManualTags)
}
