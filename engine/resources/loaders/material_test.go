package loaders

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/resources"
)

func TestGenerateMaterialNameIsDeterministic(t *testing.T) {
	a := metadata.Macros{"SKELETAL": "1", "ALPHA": "0"}
	b := metadata.Macros{"ALPHA": "0", "SKELETAL": "1"}

	id := uuid.NewMD5(uuid.NameSpaceDNS, []byte("ALPHA_0_SKELETAL_1"))
	expected := "default_" + strings.ReplaceAll(id.String(), "-", "_")
	assert.Equal(t, expected, GenerateMaterialName("default", a))
	assert.Equal(t, GenerateMaterialName("default", a), GenerateMaterialName("default", b))
	assert.Equal(t, "default", GenerateMaterialName("default", nil))
	assert.NotEqual(t, GenerateMaterialName("default", a), GenerateMaterialName("default", metadata.Macros{"SKELETAL": "1"}))
}

func TestGetMaterialGeneratesOnce(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	env := newTestEnv(t, root)
	compiles := env.renderer.compiles

	macros := metadata.Macros{"SKELETAL": "1"}
	first := env.reg.Materials.GetMaterial("default", macros)
	require.NotNil(t, first)
	second := env.reg.Materials.GetMaterial("default", metadata.Macros{"SKELETAL": "1"})
	assert.Same(t, first, second)
	assert.Equal(t, compiles+1, env.renderer.compiles)

	material, ok := resources.DataAs[*metadata.Material](first)
	require.True(t, ok)
	assert.True(t, material.Valid)
	assert.Equal(t, "1", material.Macros["SKELETAL"])
	assert.Equal(t, []byte(first.Name), material.BinaryData)
	assert.FileExists(t, filepath.Join(root, "Materials", first.Name+".mat"))

	var names []string
	for _, component := range material.MaterialComponents {
		names = append(names, component.Name)
	}
	assert.Equal(t, []string{"base_color", "roughness"}, names)
}

func TestGetMaterialRejectsEmptyShaderName(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	assert.Nil(t, env.reg.Materials.GetMaterial("", nil))
}

func TestGetMaterialFailsForMissingShader(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	env := newTestEnv(t, root)

	assert.Nil(t, env.reg.Materials.GetMaterial("missing", nil))
	assert.Nil(t, env.reg.Materials.FindResource("missing"))
	assert.NoFileExists(t, filepath.Join(root, "Materials", "missing.mat"))
}

func TestGetMaterialFailsWithoutCompiledProgram(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	env := newTestEnv(t, root)
	env.renderer.fail = true

	failures := env.metrics.Snapshot().Failures
	assert.Nil(t, env.reg.Materials.GetMaterial("default", metadata.Macros{"BROKEN": "1"}))
	assert.Greater(t, env.metrics.Snapshot().Failures, failures)
	assert.Nil(t, env.reg.Materials.FindResource(GenerateMaterialName("default", metadata.Macros{"BROKEN": "1"})))
}

func TestGeneratedNameFollowsEffectiveMacros(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Shaders", "skinned.glsl"), `#ifndef SKELETAL
#define SKELETAL 0
#endif
#ifdef GL_VERTEX_SHADER
void main() {}
#endif
`)
	env := newTestEnv(t, root)

	resource := env.reg.Materials.GetMaterial("skinned", nil)
	require.NotNil(t, resource)
	expected := GenerateMaterialName("skinned", metadata.Macros{"SKELETAL": "0"})
	assert.Equal(t, expected, resource.Name)
	assert.Equal(t, expected, env.reg.Materials.LinkedMaterialName("skinned"))
	assert.Nil(t, env.reg.Materials.FindResource("skinned"))

	compiles := env.renderer.compiles
	assert.Same(t, resource, env.reg.Materials.GetMaterial("skinned", nil))
	assert.Equal(t, compiles, env.renderer.compiles)
}

func TestShaderChangeReloadsDependentsOnce(t *testing.T) {
	root := t.TempDir()
	shaderPath, _ := writeShaders(t, root)
	env := newTestEnv(t, root)

	instance := env.reg.MaterialInstances.GetMaterialInstance("default", "default", nil)
	require.NotNil(t, instance)
	material := env.reg.Materials.FindResource("default")
	require.NotNil(t, material)
	before, ok := resources.DataAs[*metadata.Material](material)
	require.True(t, ok)

	compiles := env.renderer.compiles
	reloads := env.metrics.Reloads()
	touch(t, shaderPath, time.Hour)
	require.True(t, env.reg.Shaders.LoadResource("default"))

	assert.Equal(t, compiles+1, env.renderer.compiles)
	assert.Equal(t, reloads+2, env.metrics.Reloads())

	after, ok := resources.DataAs[*metadata.Material](material)
	require.True(t, ok)
	assert.NotSame(t, before, after)
	assert.True(t, before.Program.(*fakeProgram).released)

	payload, ok := resources.DataAs[*metadata.MaterialInstance](instance)
	require.True(t, ok)
	assert.Same(t, after, payload.GetMaterial())
}

func TestIncludeChangeRegeneratesMaterial(t *testing.T) {
	root := t.TempDir()
	_, commonPath := writeShaders(t, root)
	env := newTestEnv(t, root)

	material := env.reg.Materials.GetMaterial("default", nil)
	require.NotNil(t, material)
	assert.Contains(t, material.MetaData.IncludeFiles, resources.NormalizeResourcePath(commonPath))

	compiles := env.renderer.compiles
	touch(t, commonPath, time.Hour)
	env.reg.Materials.ReloadMaterials(commonPath)
	assert.Equal(t, compiles+1, env.renderer.compiles)
	assert.False(t, material.MetaData.IsIncludeFileChanged())
}

func TestMaterialLoadsFromSavedFile(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	first := newTestEnv(t, root)
	require.NotNil(t, first.reg.Materials.GetMaterial("default", nil))

	second := newTestEnv(t, root)
	material, ok := resources.DataAs[*metadata.Material](second.reg.Materials.FindResource("default"))
	require.True(t, ok)
	assert.True(t, material.Valid)
	assert.Equal(t, "default", material.ShaderName)
	assert.NotEmpty(t, material.ShaderCodes[metadata.VertexShader])
	assert.Equal(t, []byte("default"), material.BinaryData)
}

func TestMaterialInstanceFillsMissingComponents(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	path := filepath.Join(root, "MaterialInstances", "brick.matinst")
	writeFile(t, path, "shader_name: default\ncomponents:\n  roughness: \"0.5\"\n")
	env := newTestEnv(t, root)

	instance, ok := resources.DataAs[*metadata.MaterialInstance](env.reg.MaterialInstances.FindResource("brick"))
	require.True(t, ok)
	assert.Equal(t, "0.5", instance.Components["roughness"])
	assert.Equal(t, "vec4(1.0, 1.0, 1.0, 1.0)", instance.Components["base_color"])
	assert.False(t, instance.NeedToSave)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "base_color")
}

func TestGetMaterialInstanceRebindsMacros(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	env := newTestEnv(t, root)

	macros := metadata.Macros{"SKELETAL": "1"}
	resource := env.reg.MaterialInstances.GetMaterialInstance("default", "default", macros)
	require.NotNil(t, resource)
	instance, ok := resources.DataAs[*metadata.MaterialInstance](resource)
	require.True(t, ok)
	assert.Equal(t, "1", instance.Macros["SKELETAL"])
	assert.Equal(t, GenerateMaterialName("default", macros), instance.GetMaterial().Name)
}

func TestGetMaterialInstanceFallsBackToDefault(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	env := newTestEnv(t, root)

	resource := env.reg.MaterialInstances.GetMaterialInstance("glass", "missing", nil)
	require.NotNil(t, resource)
	assert.Equal(t, metadata.DefaultMaterialInstanceName, resource.Name)
	assert.Nil(t, env.reg.MaterialInstances.FindResource("glass"))
}

func TestDuplicateMaterialInstance(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	env := newTestEnv(t, root)

	require.True(t, env.reg.MaterialInstances.DuplicateResource("default"))
	duplicate, ok := resources.DataAs[*metadata.MaterialInstance](env.reg.MaterialInstances.FindResource("default_0"))
	require.True(t, ok)
	original, ok := resources.DataAs[*metadata.MaterialInstance](env.reg.MaterialInstances.FindResource("default"))
	require.True(t, ok)
	assert.Equal(t, original.Components, duplicate.Components)
	assert.Equal(t, "default_0", duplicate.Name)
	assert.FileExists(t, filepath.Join(root, "MaterialInstances", "default_0.matinst"))
}

func TestOpenShaderCreatesMaterialInstance(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	env := newTestEnv(t, root)

	require.True(t, env.reg.Shaders.OpenResource("default"))
	assert.NotNil(t, env.reg.MaterialInstances.FindResource("default_0"))
}

func TestDefaultSkeletalMaterialInstance(t *testing.T) {
	root := t.TempDir()
	writeShaders(t, root)
	env := newTestEnv(t, root)

	ref := env.reg.DefaultMaterialInstance(true)
	instance, ok := resources.RefAs[*metadata.MaterialInstance](ref)
	require.True(t, ok)
	assert.Equal(t, metadata.DefaultSkeletalMaterialInstanceName, instance.Name)
	assert.Equal(t, "1", instance.Macros["SKELETAL"])
}
