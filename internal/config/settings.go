package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/spf13/viper"
)

// Default values for settings that are not configured.
const (
	DefaultFieldsFile      = "fields.json"
	DefaultTermsFile       = "terms.json"
	DefaultDataDir         = "."
	DefaultDatabasePath    = "$HOME/.local/share/cirro/observations.db"
	DefaultTokenFile       = "$HOME/.config/cirro/token.json"
	DefaultSheetsTokenFile = "$HOME/.config/cirro/sheets-token.json"
	DefaultLoginTimeout    = 5 * time.Minute
	DefaultMaxRows         = 10
)

// DefaultExtensions are the file extensions read during column discovery.
var DefaultExtensions = []string{".csv", ".tsv", ".txt"}

// DefaultInferProcesses is the process allow-list sampled by schema inference.
var DefaultInferProcesses = []string{
	"Somatic Variant Calling (DRAGEN)",
	"Variant Calling (nf-core/sarek)",
	"Gene Expression (nf-core/rnaseq)",
	"MAGeCK Count",
	"MAGeCK Flute",
	"Immune Clonotypes",
	"Differential Expression",
	"Gene Set Enrichment Analysis",
	"Lymphocyte Quantification",
}

// PortalSettings configures access to the data portal.
type PortalSettings struct {
	BaseURL       string
	ClientID      string
	AuthEndpoint  string
	TokenEndpoint string
	Region        string
	TokenFile     string
	LocalRoot     string
	LoginTimeout  time.Duration
	CacheToken    bool
}

// AnnotateSettings configures the annotate command.
type AnnotateSettings struct {
	DataDir       string
	FieldsFile    string
	TemplateMatch string
	Extensions    []string
}

// InferSettings configures schema inference.
type InferSettings struct {
	TermsFile string
	Processes []string
	Projects  []string
	MaxRows   int
}

// Settings is the typed view of the viper configuration.
type Settings struct {
	Portal       PortalSettings
	Annotate     AnnotateSettings
	Infer        InferSettings
	DatabasePath string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("portal.base_url", "https://cirro.bio/api")
	v.SetDefault("portal.region", "us-west-2")
	v.SetDefault("portal.token_file", DefaultTokenFile)
	v.SetDefault("portal.cache_token", true)
	v.SetDefault("portal.login_timeout", DefaultLoginTimeout)
	v.SetDefault("annotate.data_dir", DefaultDataDir)
	v.SetDefault("annotate.fields_file", DefaultFieldsFile)
	v.SetDefault("annotate.extensions", DefaultExtensions)
	v.SetDefault("annotate.template_match", "full")
	v.SetDefault("infer.terms_file", DefaultTermsFile)
	v.SetDefault("infer.processes", DefaultInferProcesses)
	v.SetDefault("infer.projects", []string{"Data Core Development", "BTC-Pilot-POC"})
	v.SetDefault("infer.max_rows", DefaultMaxRows)
	v.SetDefault("database.path", DefaultDatabasePath)
}

// Load reads Settings from v, expanding paths and validating enumerations.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Portal: PortalSettings{
			BaseURL:       strings.TrimRight(v.GetString("portal.base_url"), "/"),
			ClientID:      v.GetString("portal.client_id"),
			AuthEndpoint:  v.GetString("portal.auth_endpoint"),
			TokenEndpoint: v.GetString("portal.token_endpoint"),
			Region:        v.GetString("portal.region"),
			TokenFile:     ExpandPath(v.GetString("portal.token_file")),
			LocalRoot:     ExpandPath(v.GetString("portal.local_root")),
			LoginTimeout:  v.GetDuration("portal.login_timeout"),
			CacheToken:    v.GetBool("portal.cache_token"),
		},
		Annotate: AnnotateSettings{
			DataDir:       ExpandPath(v.GetString("annotate.data_dir")),
			FieldsFile:    ExpandPath(v.GetString("annotate.fields_file")),
			TemplateMatch: strings.ToLower(v.GetString("annotate.template_match")),
			Extensions:    normalizeExtensions(v.GetStringSlice("annotate.extensions")),
		},
		Infer: InferSettings{
			TermsFile: ExpandPath(v.GetString("infer.terms_file")),
			Processes: v.GetStringSlice("infer.processes"),
			Projects:  v.GetStringSlice("infer.projects"),
			MaxRows:   v.GetInt("infer.max_rows"),
		},
		DatabasePath: ExpandPath(v.GetString("database.path")),
	}

	if s.Portal.LoginTimeout <= 0 {
		s.Portal.LoginTimeout = DefaultLoginTimeout
	}
	if s.Infer.MaxRows <= 0 {
		s.Infer.MaxRows = DefaultMaxRows
	}

	switch s.Annotate.TemplateMatch {
	case "", "full":
		s.Annotate.TemplateMatch = "full"
	case "prefix":
	default:
		return Settings{}, fmt.Errorf("%w: annotate.template_match must be full or prefix, got %q",
			common.ErrInvalidConfig, s.Annotate.TemplateMatch)
	}

	return s, nil
}

// UseLocalPortal reports whether the portal should be served from disk.
func (p PortalSettings) UseLocalPortal() bool {
	return p.LocalRoot != ""
}

// Validate checks that remote portal access is fully configured.
func (p PortalSettings) Validate() error {
	if p.UseLocalPortal() {
		return nil
	}
	var missing []string
	if p.BaseURL == "" {
		missing = append(missing, "portal.base_url")
	}
	if p.ClientID == "" {
		missing = append(missing, "portal.client_id")
	}
	if p.AuthEndpoint == "" {
		missing = append(missing, "portal.auth_endpoint")
	}
	if p.TokenEndpoint == "" {
		missing = append(missing, "portal.token_endpoint")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
