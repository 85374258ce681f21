package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almostacms/almostacms/internal/config"
	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/drafts"
	"github.com/almostacms/almostacms/internal/sections/catalog"
	"github.com/almostacms/almostacms/internal/site"
)

func TestSetDefaults_FileOverridesSomeKeys(t *testing.T) {
	v := viper.New()
	setDefaults(v, config.Defaults())
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
site:
  root: ./public
relay:
  rate_limit:
    rps: 3
ui:
  confirm_remove: false
`)))

	var c config.Config
	require.NoError(t, v.Unmarshal(&c))

	assert.Equal(t, "./public", c.Site.Root)
	assert.Equal(t, "/", c.Site.BasePath)
	assert.Equal(t, 3.0, c.Relay.RateLimit.RPS)
	assert.Equal(t, 5, c.Relay.RateLimit.Burst, "unset keys keep their defaults")
	assert.Equal(t, config.DefaultRelayAddr, c.Relay.Addr)
	assert.Equal(t, 30*time.Second, c.Relay.ReadTimeout)
	assert.False(t, c.UI.ConfirmRemove)
	assert.True(t, c.UI.ShowDescriptions)
	assert.True(t, c.AutoRefresh)
}

func TestSetDefaults_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ALMOSTACMS_GITHUB_OWNER", "octo")
	t.Setenv("ALMOSTACMS_SITE_BASE_PATH", "/admin/")

	v := viper.New()
	setDefaults(v, config.Defaults())
	v.SetEnvPrefix("ALMOSTACMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c config.Config
	require.NoError(t, v.Unmarshal(&c))
	assert.Equal(t, "octo", c.GitHub.Owner)
	assert.Equal(t, "/admin/", c.Site.BasePath)
	assert.Equal(t, "main", c.GitHub.Branch)
}

func clearRelayEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "ALLOWED_ORIGINS", "PORT"} {
		t.Setenv(k, "")
	}
}

func TestRelayConfig_EnvironmentWins(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("GITHUB_CLIENT_ID", "env-id")
	t.Setenv("GITHUB_CLIENT_SECRET", "env-secret")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PORT", "4000")

	c := config.Defaults()
	c.GitHub.ClientID = "config-id"
	c.Relay.AllowedOrigins = []string{"https://config.example"}

	rc := relayConfig(c, relayEnv())
	assert.Equal(t, "env-id", rc.ClientID)
	assert.Equal(t, "env-secret", rc.ClientSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, rc.AllowedOrigins)
	assert.Equal(t, ":4000", rc.Addr)
	assert.True(t, rc.HasCredentials())
	assert.False(t, rc.DeviceProxy)
}

func TestRelayConfig_FallsBackToConfig(t *testing.T) {
	clearRelayEnv(t)

	c := config.Defaults()
	c.GitHub.ClientID = "config-id"
	c.Relay.AllowedOrigins = []string{"https://config.example"}
	c.Flags = map[string]bool{"device-proxy": true}

	rc := relayConfig(c, relayEnv())
	assert.Equal(t, "config-id", rc.ClientID)
	assert.Empty(t, rc.ClientSecret)
	assert.False(t, rc.HasCredentials())
	assert.Equal(t, []string{"https://config.example"}, rc.AllowedOrigins)
	assert.Equal(t, config.DefaultRelayAddr, rc.Addr)
	assert.Equal(t, 1.0, rc.RPS)
	assert.Equal(t, 5, rc.Burst)
	assert.True(t, rc.DeviceProxy)
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
		require.NoError(t, loadEnvFile(""))
	})

	t.Run("existing environment wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte(
			"ALMOSTACMS_TEST_FROM_FILE=file\nALMOSTACMS_TEST_PRESET=file\n"), 0o600))
		t.Setenv("ALMOSTACMS_TEST_PRESET", "env")
		t.Cleanup(func() { _ = os.Unsetenv("ALMOSTACMS_TEST_FROM_FILE") })

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "file", os.Getenv("ALMOSTACMS_TEST_FROM_FILE"))
		assert.Equal(t, "env", os.Getenv("ALMOSTACMS_TEST_PRESET"))
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("KEY='unterminated\n"), 0o600))
		require.Error(t, loadEnvFile(path))
	})
}

func TestWriteJSONPath(t *testing.T) {
	doc := content.MustParse(`{
		"hero": {"cta": {"url": "https://example.com"}},
		"links": [{"title": "a"}, {"title": "b"}]
	}`)

	var buf bytes.Buffer
	require.NoError(t, writeJSONPath(&buf, doc, "$.hero.cta.url"))
	assert.Equal(t, "\"https://example.com\"\n", buf.String())

	buf.Reset()
	require.NoError(t, writeJSONPath(&buf, doc, " $.links[*].title "))
	got := content.MustParse(buf.String())
	assert.True(t, content.Equal(content.MustParse(`["a","b"]`), got), buf.String())

	require.Error(t, writeJSONPath(&buf, doc, "  "))
	require.Error(t, writeJSONPath(&buf, doc, "$.missing"))
}

func TestWriteCatalog(t *testing.T) {
	svc, err := catalog.NewService("")
	require.NoError(t, err)

	var text bytes.Buffer
	writeCatalog(&text, svc.Grouped())
	out := text.String()
	assert.Contains(t, out, "hero")
	assert.Contains(t, out, "Main headline with CTA buttons")
	assert.NotContains(t, out, "[built-in]")

	var raw bytes.Buffer
	require.NoError(t, writeCatalogJSON(&raw, svc.Grouped()))
	var groups []groupDTO
	require.NoError(t, json.Unmarshal(raw.Bytes(), &groups))
	require.NotEmpty(t, groups)

	byID := map[string]sectionDTO{}
	for _, g := range groups {
		assert.NotEmpty(t, g.Category)
		for _, s := range g.Sections {
			byID[s.ID] = s
		}
	}
	assert.Equal(t, "bespoke", byID["hero"].Editor)
	assert.Equal(t, "generic", byID["faq"].Editor)
	assert.Equal(t, "built-in", byID["faq"].Source)
}

const heroJSON = `{"headline":"Ship faster","subheadline":"","cta":{"primary":{"text":"Go","url":"https://example.com"}}}`

// newLocalSite writes a site with a manifest and returns a config pointing
// at it. HOME is moved so user sections and default paths stay in the test.
func newLocalSite(t *testing.T, files map[string]string) config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := t.TempDir()
	manifest := `{"generator":"almostacms","sections":[{"id":"hero","order":1},{"id":"faq","order":2}]}`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".almostacms.json"), []byte(manifest), 0o644))
	for name, body := range files {
		p := filepath.Join(root, "data", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}

	c := config.Defaults()
	c.Site.Root = root
	c.Drafts.Path = filepath.Join(t.TempDir(), "drafts.db")
	return c
}

func TestOpenWorkspace_LocalSite(t *testing.T) {
	c := newLocalSite(t, map[string]string{"hero.json": heroJSON})
	ctx := context.Background()

	ws, err := openWorkspace(ctx, c)
	require.NoError(t, err)
	defer ws.Close()

	assert.Nil(t, ws.drafts, "drafts stay closed unless enabled")
	assert.Equal(t, "local:"+absPath(c.Site.Root), ws.siteKey)
	assert.Equal(t, c.Site.Root, ws.localRoot)

	loaded, warnings, err := ws.loadSections(ctx)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, loaded, 2)
	assert.Equal(t, "hero", loaded[0].ID)
	assert.Equal(t, "faq", loaded[1].ID)

	file, err := ws.dataFileFor(ctx, "faq")
	require.NoError(t, err)
	assert.Equal(t, "faq.json", file)
	file, err = ws.dataFileFor(ctx, "retired")
	require.NoError(t, err)
	assert.Equal(t, "retired.json", file)
}

func TestOpenWorkspace_PublishedSiteIsReadOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.almostacms.json":
			_, _ = w.Write([]byte(`{"sections":[{"id":"hero"}]}`))
		case "/data/hero.json":
			_, _ = w.Write([]byte(heroJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newLocalSite(t, nil)
	c.Site.URL = srv.URL + "/"
	ctx := context.Background()

	ws, err := openWorkspace(ctx, c)
	require.NoError(t, err)
	defer ws.Close()
	assert.Equal(t, "url:"+srv.URL, ws.siteKey)
	assert.Empty(t, ws.localRoot, "published sites are not watched")

	loaded, _, err := ws.loadSections(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	s := ws.loader.Session(loaded[0])
	defer s.Close()
	require.NoError(t, s.Open(ctx))
	require.NoError(t, s.Edit(content.MustParse(`{"headline":"Changed"}`)))
	require.ErrorIs(t, s.Save(ctx), site.ErrReadOnly)
	assert.True(t, s.Dirty(), "the draft survives a failed save")
}

func TestOpenWorkspace_GitHubNeedsRepo(t *testing.T) {
	c := newLocalSite(t, nil)
	c.Flags = map[string]bool{"github-persistence": true}

	_, err := openWorkspace(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github.owner")
}

func TestRestoreRevision(t *testing.T) {
	c := newLocalSite(t, map[string]string{"hero.json": heroJSON})
	c.Drafts.Enabled = true
	ctx := context.Background()

	ws, err := openWorkspace(ctx, c)
	require.NoError(t, err)
	defer ws.Close()
	require.NotNil(t, ws.drafts)

	old := content.MustParse(`{"headline":"Older headline","subheadline":"","cta":{"primary":{"text":"Go","url":"https://example.com"}}}`)
	rev, err := ws.drafts.AddRevision(ctx, ws.siteKey, "hero", old, "Update hero.json")
	require.NoError(t, err)

	require.NoError(t, restoreRevision(ctx, ws, rev))

	data, err := os.ReadFile(filepath.Join(c.Site.Root, "data", "hero.json"))
	require.NoError(t, err)
	assert.True(t, content.Equal(old, content.MustParse(string(data))))

	revs, err := ws.drafts.History(ctx, ws.siteKey, "hero", 0)
	require.NoError(t, err)
	assert.Len(t, revs, 2, "the restore is recorded as a new revision")

	var buf bytes.Buffer
	writeHistory(&buf, revs)
	assert.Contains(t, buf.String(), rev.ShortID())
	assert.Contains(t, buf.String(), "Update hero.json")
}

func TestRestoreRevision_SeedsMissingFile(t *testing.T) {
	c := newLocalSite(t, nil)
	c.Drafts.Enabled = true
	ctx := context.Background()

	ws, err := openWorkspace(ctx, c)
	require.NoError(t, err)
	defer ws.Close()

	doc := content.MustParse(`{"title":"FAQ","items":[{"question":"Why?","answer":"Because."}]}`)
	rev, err := ws.drafts.AddRevision(ctx, ws.siteKey, "faq", doc, "Update faq.json")
	require.NoError(t, err)

	require.NoError(t, restoreRevision(ctx, ws, rev))
	data, err := os.ReadFile(filepath.Join(c.Site.Root, "data", "faq.json"))
	require.NoError(t, err)
	assert.True(t, content.Equal(doc, content.MustParse(string(data))))
}

func TestRestoreRevision_UnknownSection(t *testing.T) {
	c := newLocalSite(t, nil)
	ctx := context.Background()

	ws, err := openWorkspace(ctx, c)
	require.NoError(t, err)
	defer ws.Close()

	err = restoreRevision(ctx, ws, drafts.Revision{ID: "abc", SectionID: "pricing", Document: content.MustParse(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the site manifest")
}

func TestWriteDrafts_Empty(t *testing.T) {
	var buf bytes.Buffer
	writeDrafts(&buf, nil)
	assert.Contains(t, buf.String(), "no drafts")

	buf.Reset()
	writeDrafts(&buf, []drafts.Draft{{SectionID: "hero", UpdatedAt: time.Now()}})
	assert.Contains(t, buf.String(), "SECTION")
	assert.Contains(t, buf.String(), "hero")
}
