package config

import (
	"testing"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "full", s.Annotate.TemplateMatch)
	assert.Equal(t, []string{".csv", ".tsv", ".txt"}, s.Annotate.Extensions)
	assert.Equal(t, DefaultFieldsFile, s.Annotate.FieldsFile)
	assert.Equal(t, DefaultTermsFile, s.Infer.TermsFile)
	assert.Equal(t, DefaultMaxRows, s.Infer.MaxRows)
	assert.Equal(t, DefaultLoginTimeout, s.Portal.LoginTimeout)
	assert.Len(t, s.Infer.Processes, len(DefaultInferProcesses))
}

func TestLoad_Overrides(t *testing.T) {
	v := newViper()
	v.Set("annotate.template_match", "PREFIX")
	v.Set("annotate.extensions", []string{"CSV", " .tsv ", ""})
	v.Set("portal.base_url", "https://portal.example/api/")
	v.Set("portal.login_timeout", 30*time.Second)
	v.Set("infer.max_rows", -1)

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "prefix", s.Annotate.TemplateMatch)
	assert.Equal(t, []string{".csv", ".tsv"}, s.Annotate.Extensions)
	assert.Equal(t, "https://portal.example/api", s.Portal.BaseURL)
	assert.Equal(t, 30*time.Second, s.Portal.LoginTimeout)
	assert.Equal(t, DefaultMaxRows, s.Infer.MaxRows)
}

func TestLoad_InvalidTemplateMatch(t *testing.T) {
	v := newViper()
	v.Set("annotate.template_match", "fuzzy")

	_, err := Load(v)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestPortalSettings_Validate(t *testing.T) {
	local := PortalSettings{LocalRoot: "/tmp/portal"}
	assert.NoError(t, local.Validate())

	remote := PortalSettings{BaseURL: "https://x", ClientID: "abc"}
	err := remote.Validate()
	require.ErrorIs(t, err, common.ErrMissingConfig)
	assert.Contains(t, err.Error(), "portal.auth_endpoint")
	assert.Contains(t, err.Error(), "portal.token_endpoint")
	assert.NotContains(t, err.Error(), "portal.client_id")
}
