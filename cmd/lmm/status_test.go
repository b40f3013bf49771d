package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modstage/modstage/internal/installer"
	"github.com/modstage/modstage/internal/staging"
)

func TestStatusCmd_Structure(t *testing.T) {
	assert.Equal(t, "status", statusCmd.Use)
	assert.NotEmpty(t, statusCmd.Short)
	assert.NotEmpty(t, statusCmd.Long)
	assert.NotNil(t, statusCmd.RunE)
}

func TestStatusOutputReflectsController(t *testing.T) {
	stagingRoot := t.TempDir()
	c := staging.New(stagingRoot, installer.New())

	out := statusOutput{
		App:           "Test App",
		StagingRoot:   c.StagingRoot,
		ActiveProfile: c.CurrentProfile(),
		Profiles:      []string{"Default"},
		ModCount:      len(c.Mods),
	}

	data, err := json.Marshal(out)
	require.NoError(t, err)

	var decoded statusOutput
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Default", decoded.ActiveProfile)
	assert.Equal(t, 0, decoded.ModCount)
}
