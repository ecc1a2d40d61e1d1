package hpformula_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/diceengine/internal/hpformula"
)

const ogreYAML = `
id: ogre
name: Ogre
formula:
  expr: "{level}d10 + {level} * {con}"
  params:
    level: 7
    con: 3
  min: 20
  max: 120
`

func TestLoadPresetFromBytes(t *testing.T) {
	p, err := hpformula.LoadPresetFromBytes([]byte(ogreYAML))
	require.NoError(t, err)
	assert.Equal(t, "ogre", p.ID)
	assert.Equal(t, "Ogre", p.Name)
	assert.Equal(t, 7.0, p.Formula.Params["level"])
	require.NotNil(t, p.Formula.Min)
	assert.Equal(t, 20.0, *p.Formula.Min)

	expr, err := p.Formula.Substitute()
	require.NoError(t, err)
	assert.Equal(t, "7d10 + 7 * 3", expr)
}

func TestPreset_Validate(t *testing.T) {
	cases := map[string]string{
		"missing id":        "formula:\n  expr: 1d6\n",
		"missing expr":      "id: x\n",
		"missing parameter": "id: x\nformula:\n  expr: '{level}d6'\n",
		"min above max":     "id: x\nformula:\n  expr: 1d6\n  min: 5\n  max: 2\n",
	}
	for name, doc := range cases {
		_, err := hpformula.LoadPresetFromBytes([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadPresets_Dir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ogre.yaml"), []byte(ogreYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "goblin.yaml"), []byte("id: goblin\nformula:\n  expr: 2d6\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644))

	presets, err := hpformula.LoadPresets(dir)
	require.NoError(t, err)
	require.Len(t, presets, 2)

	cat, err := hpformula.NewCatalog(presets)
	require.NoError(t, err)
	assert.Equal(t, []string{"goblin", "ogre"}, cat.IDs())
	p, ok := cat.Get("goblin")
	require.True(t, ok)
	assert.Equal(t, "2d6", p.Formula.Expr)
	_, ok = cat.Get("dragon")
	assert.False(t, ok)
}

func TestLoadPresets_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: [unclosed"), 0644))
	_, err := hpformula.LoadPresets(dir)
	assert.Error(t, err)

	_, err = hpformula.LoadPresets(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoadPresets_ShippedConfigs(t *testing.T) {
	presets, err := hpformula.LoadPresets(filepath.Join("..", "..", "configs", "hp"))
	require.NoError(t, err)
	cat, err := hpformula.NewCatalog(presets)
	require.NoError(t, err)
	assert.Equal(t, []string{"goblin", "ogre", "wisp"}, cat.IDs())
}

func TestNewCatalog_DuplicateID(t *testing.T) {
	p := &hpformula.Preset{ID: "x", Formula: hpformula.Formula{Expr: "1d6"}}
	_, err := hpformula.NewCatalog([]*hpformula.Preset{p, p})
	assert.Error(t, err)
}
