package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "fields.json"))
	require.NoError(t, err)
	assert.Empty(t, s.Keys())
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.json")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, s.Keys())
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "failed to parse column mapping "+path, userErr.UserMessage)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fields.json")

	s, err := Load(path)
	require.NoError(t, err)
	s.Set("gene", model.FieldInfo{DisplayName: "Gene", Description: "Gene symbol"})
	s.Set("count", model.FieldInfo{DisplayName: "Count"})
	require.NoError(t, s.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "{\n" +
		"    \"count\": {\n" +
		"        \"name\": \"Count\",\n" +
		"        \"desc\": \"\"\n" +
		"    },\n" +
		"    \"gene\": {\n" +
		"        \"name\": \"Gene\",\n" +
		"        \"desc\": \"Gene symbol\"\n" +
		"    }\n" +
		"}\n"
	assert.Equal(t, want, string(data))

	reloaded, err := Load(path)
	require.NoError(t, err)
	info, ok := reloaded.Get("gene")
	require.True(t, ok)
	assert.Equal(t, "Gene symbol", info.Description)
	assert.Empty(t, reloaded.Added())
}

func TestEnsure(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "fields.json"))
	require.NoError(t, err)

	got := s.Ensure("gene_id", model.FieldInfo{DisplayName: "Gene ID"})
	assert.Equal(t, "Gene ID", got.DisplayName)

	got = s.Ensure("gene_id", model.FieldInfo{DisplayName: "ignored"})
	assert.Equal(t, "Gene ID", got.DisplayName)
	assert.Equal(t, []string{"gene_id"}, s.Added())
}

func TestMissingAndMapping(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "fields.json"))
	require.NoError(t, err)
	s.Set("gene", model.FieldInfo{DisplayName: "Gene"})

	assert.Equal(t, []string{"count", "lfc"}, s.Missing([]string{"gene", "count", "lfc"}))
	assert.Equal(t, model.ColumnMapping{"gene": {DisplayName: "Gene"}}, s.Mapping([]string{"gene", "count"}))
}
