package settings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumsParseCaseInsensitively(t *testing.T) {
	p, err := ParsePolicy("release")
	require.NoError(t, err)
	assert.Equal(t, Release, p)

	v, err := ParseVisibility("HIDDEN")
	require.NoError(t, err)
	assert.Equal(t, Hidden, v)

	rt, err := ParseRepositoryType("npm")
	require.NoError(t, err)
	assert.Equal(t, NPM, rt)

	_, err = ParsePolicy("nightly")
	assert.Error(t, err)
}

func TestRepositoryConfigJSON(t *testing.T) {
	raw := `{"name":"libs","repository_type":"maven","storage":"main","visibility":"private","active":true,"policy":"snapshot","created":1}`
	var cfg RepositoryConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))
	assert.Equal(t, Maven, cfg.RepositoryType)
	assert.Equal(t, Private, cfg.Visibility)
	assert.Equal(t, Snapshot, cfg.Policy)

	var bad RepositoryConfig
	assert.Error(t, json.Unmarshal([]byte(`{"visibility":"secret"}`), &bad))
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := RepositoryConfig{Name: "libs", Storage: "main", RepositoryType: Generic}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Public, cfg.Visibility)
	assert.Equal(t, Mixed, cfg.Policy)

	for _, name := range []string{"", "../etc", ".hidden", "a/b"} {
		cfg := RepositoryConfig{Name: name, Storage: "main", RepositoryType: Generic}
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestPolicyAccepts(t *testing.T) {
	assert.True(t, Release.Accepts("1.0.0"))
	assert.False(t, Release.Accepts("1.0.0-SNAPSHOT"))
	assert.True(t, Snapshot.Accepts("1.0.0-SNAPSHOT"))
	assert.False(t, Snapshot.Accepts("1.0.0"))
	assert.True(t, Mixed.Accepts("1.0.0-SNAPSHOT"))
}
