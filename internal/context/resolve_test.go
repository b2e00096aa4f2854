package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv_ResolveURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		env      Env
		explicit string
		want     string
		wantErr  bool
	}{
		{
			name:     "explicit absolute url passes through",
			env:      Env{Ctx: &Stored{}},
			explicit: "https://example.com/a",
			want:     "https://example.com/a",
		},
		{
			name:     "explicit relative url is prefixed with base url",
			env:      Env{Ctx: &Stored{BaseURL: "https://example.com"}},
			explicit: "/a/b",
			want:     "https://example.com/a/b",
		},
		{
			name:     "cdp session with no explicit url resolves to current page sentinel",
			env:      Env{Ctx: &Stored{}, HasCDP: true},
			explicit: "",
			want:     CurrentPageSentinel,
		},
		{
			name:     "falls back to last url when not refreshed",
			env:      Env{Ctx: &Stored{BaseURL: "https://example.com", LastURL: "/b"}},
			explicit: "",
			want:     "https://example.com/b",
		},
		{
			name:     "falls back to base url when no last url",
			env:      Env{Ctx: &Stored{BaseURL: "https://example.com"}},
			explicit: "",
			want:     "https://example.com",
		},
		{
			name:     "refreshed context skips last url and base url fallbacks",
			env:      Env{Ctx: &Stored{BaseURL: "https://example.com", LastURL: "/b"}, Refreshed: true},
			explicit: "",
			wantErr:  true,
		},
		{
			name:     "no url anywhere is an error",
			env:      Env{Ctx: &Stored{}, CommandName: "navigate"},
			explicit: "",
			wantErr:  true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := tc.env.ResolveURL(tc.explicit)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEnv_ResolveSelector(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		env      Env
		explicit string
		fallback string
		want     string
		wantErr  bool
	}{
		{"explicit selector wins", Env{Ctx: &Stored{LastSelector: "#old"}}, "#new", "", "#new", false},
		{"falls back to last selector", Env{Ctx: &Stored{LastSelector: "#old"}}, "", "", "#old", false},
		{"refreshed context skips last selector", Env{Ctx: &Stored{LastSelector: "#old"}, Refreshed: true}, "", "#default", "#default", false},
		{"falls back to caller default", Env{Ctx: &Stored{}}, "", "#default", "#default", false},
		{"no selector anywhere is an error", Env{Ctx: &Stored{}, CommandName: "click"}, "", "", "", true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := tc.env.ResolveSelector(tc.explicit, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEnv_ResolveOutputPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		env          Env
		explicit     string
		defaultName  string
		artifactsDir string
		want         string
	}{
		{"explicit path passes through unjoined when absolute", Env{Ctx: &Stored{}}, "/tmp/out.png", "default.png", "/artifacts", "/tmp/out.png"},
		{"explicit relative path joins artifacts dir", Env{Ctx: &Stored{}}, "out.png", "default.png", "/artifacts", "/artifacts/out.png"},
		{"falls back to last output when not refreshed", Env{Ctx: &Stored{LastOutput: "last.png"}}, "", "default.png", "/artifacts", "/artifacts/last.png"},
		{"refreshed context skips last output", Env{Ctx: &Stored{LastOutput: "last.png"}, Refreshed: true}, "", "default.png", "/artifacts", "/artifacts/default.png"},
		{"falls back to default name with no artifacts dir", Env{Ctx: &Stored{}}, "", "default.png", "", "default.png"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.env.ResolveOutputPath(tc.explicit, tc.defaultName, tc.artifactsDir)
			assert.Equal(t, tc.want, got)
		})
	}
}
