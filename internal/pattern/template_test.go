package pattern

import (
	"strings"
	"testing"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name       string
		template   string
		mode       Mode
		wantRegex  string
		wantTokens []string
	}{
		{
			name:       "single token",
			template:   "data/[SAMPLE]/counts.txt",
			mode:       MatchFull,
			wantRegex:  `^data/(?P<SAMPLE>[^/]*)/counts\.txt$`,
			wantTokens: []string{"SAMPLE"},
		},
		{
			name:       "prefix mode drops end anchor",
			template:   "data/[SAMPLE]",
			mode:       MatchPrefix,
			wantRegex:  `^data/(?P<SAMPLE>[^/]*)`,
			wantTokens: []string{"SAMPLE"},
		},
		{
			name:       "repeated token",
			template:   "[RUN]/[LANE]_[RUN].csv",
			mode:       MatchFull,
			wantRegex:  `^(?P<RUN>[^/]*)/(?P<LANE>[^/]*)_([^/]*)\.csv$`,
			wantTokens: []string{"RUN", "LANE"},
		},
		{
			name:       "no tokens",
			template:   "data/summary.tsv",
			mode:       "",
			wantRegex:  `^data/summary\.tsv$`,
			wantTokens: nil,
		},
		{
			name:       "brackets without a valid name stay literal",
			template:   "data/[a-b]/x+y.txt",
			mode:       MatchFull,
			wantRegex:  `^data/\[a-b\]/x\+y\.txt$`,
			wantTokens: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Compile(tt.template, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRegex, tmpl.Regex())
			assert.Equal(t, tt.wantTokens, tmpl.Tokens())
			assert.Equal(t, tt.template, tmpl.Source())
		})
	}
}

func TestCompile_Empty(t *testing.T) {
	_, err := Compile("  ", MatchFull)
	assert.ErrorIs(t, err, common.ErrInvalidTemplate)
}

func TestTemplate_MatchExtractsTokenValues(t *testing.T) {
	tmpl, err := Compile("data/[SAMPLE]/[LANE]_counts.txt", MatchFull)
	require.NoError(t, err)

	values := []struct{ sample, lane string }{
		{"sample1", "L001"},
		{"a.b+c", "(x)"},
		{"", "L2"},
		{"with space", "^$"},
	}

	for _, v := range values {
		p := strings.NewReplacer("[SAMPLE]", v.sample, "[LANE]", v.lane).Replace(tmpl.Source())
		got, ok := tmpl.Match(p)
		require.True(t, ok, p)
		assert.Equal(t, map[string]string{"SAMPLE": v.sample, "LANE": v.lane}, got)
	}
}

func TestTemplate_MatchModes(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		path string
		want bool
	}{
		{name: "full exact", mode: MatchFull, path: "data/s1/counts.txt", want: true},
		{name: "full rejects longer path", mode: MatchFull, path: "data/s1/counts.txt.bak", want: false},
		{name: "prefix accepts longer path", mode: MatchPrefix, path: "data/s1/counts.txt.bak", want: true},
		{name: "token never crosses a separator", mode: MatchFull, path: "data/a/b/counts.txt", want: false},
		{name: "literal dot is not a wildcard", mode: MatchFull, path: "data/s1/countsXtxt", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Compile("data/[SAMPLE]/counts.txt", tt.mode)
			require.NoError(t, err)
			_, ok := tmpl.Match(tt.path)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestTemplate_RepeatedTokenMustAgree(t *testing.T) {
	tmpl, err := Compile("[RUN]/[RUN].csv", MatchFull)
	require.NoError(t, err)
	assert.Equal(t, []string{"RUN"}, tmpl.Tokens())

	got, ok := tmpl.Match("r1/r1.csv")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"RUN": "r1"}, got)

	got, ok = tmpl.Match("r1/r2.csv")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestLiteral(t *testing.T) {
	tmpl := Literal("data/[odd] name.txt")
	_, ok := tmpl.Match("data/[odd] name.txt")
	assert.True(t, ok)
	_, ok = tmpl.Match("data/o name.txt")
	assert.False(t, ok)
	assert.Empty(t, tmpl.Tokens())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: MatchFull},
		{in: "full", want: MatchFull},
		{in: " Prefix ", want: MatchPrefix},
		{in: "fuzzy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
