package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almostacms/almostacms/internal/content"
)

const linksDoc = `{
  "title": "My links",
  "links": [
    {"title": "Site", "url": "https://a.test", "featured": true},
    {"title": "Blog", "url": "https://b.test", "featured": false},
    {"title": "Shop", "url": "https://c.test", "featured": false}
  ],
  "theme": {"primaryColor": "#3B82F6", "darkMode": false},
  "avatar": null
}`

func render(t *testing.T, doc string) (*Form, *[]content.Value) {
	t.Helper()
	var changes []content.Value
	f := Render(content.MustParse(doc), func(v content.Value) { changes = append(changes, v) })
	return f, &changes
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"ogImage":             "Og Image",
		"google_analytics_id": "Google analytics id",
		"url":                 "Url",
		"site_title":          "Site title",
		"heroImage":           "Hero Image",
		"URL":                 "U R L",
		"":                    "",
		"_private":            "private",
		"émoji":               "Émoji",
	}
	for in, want := range cases {
		assert.Equal(t, want, Label(in), "Label(%q)", in)
	}
}

func TestInferKind(t *testing.T) {
	str := content.StringValue("x")
	num := content.IntValue(3)

	assert.Equal(t, KindEmail, InferKind("email", str))
	assert.Equal(t, KindNumber, InferKind("count", num))
	assert.Equal(t, KindText, InferKind("bio", str))
	assert.Equal(t, KindURL, InferKind("homepage_url", str))
	assert.Equal(t, KindURL, InferKind("LinkedIn", str))
	assert.Equal(t, KindURL, InferKind("href", str))
	assert.Equal(t, KindMultiline, InferKind("siteDescription", str))
	assert.Equal(t, KindMultiline, InferKind("bodyText", str))
	assert.Equal(t, KindMultiline, InferKind("content", str))
	assert.Equal(t, KindText, InferKind("headline", str))

	// Value-type rules win over key-name rules.
	assert.Equal(t, KindNumber, InferKind("linkCount", num))
	assert.Equal(t, KindToggle, InferKind("showEmail", content.BoolValue(true)))

	// url beats email beats textarea when several match.
	assert.Equal(t, KindURL, InferKind("emailLink", str))
	assert.Equal(t, KindEmail, InferKind("emailText", str))

	assert.Equal(t, KindGroup, InferKind("cta", content.ObjectValue()))
	assert.Equal(t, KindList, InferKind("links", content.ArrayValue()))
}

func TestFields_Structure(t *testing.T) {
	f, _ := render(t, linksDoc)
	fields := f.Fields()

	require.Len(t, fields, 3, "null avatar is skipped")
	assert.Equal(t, "Title", fields[0].Label)
	assert.Equal(t, KindText, fields[0].Kind)

	links := fields[1]
	assert.Equal(t, KindList, links.Kind)
	assert.Equal(t, "Link", links.ItemLabel)
	require.Len(t, links.Children, 3)
	assert.Equal(t, "Link #2", links.Children[1].Label)
	assert.Equal(t, 1, links.Children[1].Index)
	assert.Equal(t, "links.1", links.Children[1].Path.String())

	item := links.Children[0]
	require.Len(t, item.Children, 3)
	assert.Equal(t, KindURL, item.Children[1].Kind)
	assert.Equal(t, KindToggle, item.Children[2].Kind)

	theme := fields[2]
	assert.Equal(t, KindGroup, theme.Kind)
	assert.Equal(t, "Primary Color", theme.Children[0].Label)
}

func TestFields_PrimitiveListItemsUseParentKey(t *testing.T) {
	f, _ := render(t, `{"imageUrls":["a.png","b.png"],"scores":[1,2],"tags":["x",null]}`)
	fields := f.Fields()

	assert.Equal(t, KindURL, fields[0].Children[0].Kind)
	assert.Equal(t, "Image Url #1", fields[0].Children[0].Label)
	assert.Equal(t, KindNumber, fields[1].Children[1].Kind)
	require.Len(t, fields[2].Children, 1, "null items are skipped")
}

func TestFields_NonObjectRoots(t *testing.T) {
	arr := Render(content.MustParse(`[{"name":"a"}]`), nil)
	require.Len(t, arr.Fields(), 1)
	assert.Equal(t, "Items", arr.Fields()[0].Label)
	assert.Equal(t, "Item #1", arr.Fields()[0].Children[0].Label)
	require.NoError(t, arr.Add(content.Root))
	assert.Equal(t, `[{"name":"a"},{"name":"a"}]`, arr.Value().String())

	prim := Render(content.StringValue("hello"), nil)
	require.Len(t, prim.Fields(), 1)
	require.NoError(t, prim.SetText(content.Root, "bye"))
	assert.Equal(t, `"bye"`, prim.Value().String())

	assert.Empty(t, Render(content.NullValue(), nil).Fields())
}

func TestSetText_WritesStringsAndNotifies(t *testing.T) {
	f, changes := render(t, linksDoc)

	require.NoError(t, f.SetText(content.P("links", 1, "url"), "https://blog.test"))

	require.Len(t, *changes, 1)
	got, err := (*changes)[0].At(content.P("links", 1, "url"))
	require.NoError(t, err)
	assert.Equal(t, "https://blog.test", got.Str())
	assert.True(t, content.Equal(f.Value(), (*changes)[0]), "onChange receives the whole document")
}

func TestSetText_NumberCoercion(t *testing.T) {
	f, changes := render(t, `{"count":3,"label":"x"}`)

	require.NoError(t, f.SetText(content.P("count"), " 12.5 "))
	assert.Equal(t, `{"count":12.5,"label":"x"}`, f.Value().String())

	require.NoError(t, f.SetText(content.P("count"), ""))
	assert.Equal(t, `{"count":0,"label":"x"}`, f.Value().String())

	err := f.SetText(content.P("count"), "twelve")
	require.ErrorIs(t, err, content.ErrInvalidNumber)
	assert.Equal(t, `{"count":0,"label":"x"}`, f.Value().String(), "rejected input leaves the document alone")
	assert.Len(t, *changes, 2)
}

func TestSetText_Rejections(t *testing.T) {
	f, changes := render(t, linksDoc)

	require.ErrorIs(t, f.SetText(content.P("links"), "x"), ErrNotEditable)
	require.ErrorIs(t, f.SetText(content.P("theme", "darkMode"), "true"), ErrNotEditable)
	require.ErrorIs(t, f.SetText(content.P("avatar"), "x"), content.ErrInvalidPath, "null keys are not targets")
	require.ErrorIs(t, f.SetText(content.P("nope"), "x"), content.ErrInvalidPath)
	assert.Empty(t, *changes)
}

func TestToggle(t *testing.T) {
	f, changes := render(t, linksDoc)

	require.NoError(t, f.Toggle(content.P("theme", "darkMode")))
	v, _ := f.Value().At(content.P("theme", "darkMode"))
	assert.True(t, v.Bool())

	require.ErrorIs(t, f.SetBool(content.P("title"), true), ErrNotEditable)
	assert.Len(t, *changes, 1)
}

func TestAdd_CopiesFirstElement(t *testing.T) {
	f, _ := render(t, linksDoc)

	require.NoError(t, f.Add(content.P("links")))
	links, _ := f.Value().At(content.P("links"))
	require.Equal(t, 4, links.Len())

	first, _ := links.Item(0)
	added, _ := links.Item(3)
	assert.True(t, content.Equal(first, added))

	// Editing the copy must not reach element 0.
	require.NoError(t, f.SetText(content.P("links", 3, "title"), "New"))
	first, _ = f.Value().At(content.P("links", 0, "title"))
	assert.Equal(t, "Site", first.Str())
}

func TestAdd_EmptyListGetsEmptyObject(t *testing.T) {
	f, changes := render(t, `{"faq":[]}`)

	require.NoError(t, f.Add(content.P("faq")))
	assert.Equal(t, `{"faq":[{}]}`, f.Value().String())
	assert.Len(t, *changes, 1)
}

func TestRemove(t *testing.T) {
	f, _ := render(t, linksDoc)

	require.NoError(t, f.Remove(content.P("links"), 1))
	titles := titlesOf(t, f.Value())
	assert.Equal(t, []string{"Site", "Shop"}, titles)

	require.ErrorIs(t, f.Remove(content.P("links"), 5), content.ErrInvalidPath)
	require.ErrorIs(t, f.Remove(content.P("title"), 0), ErrNotList)
}

func TestMove(t *testing.T) {
	f, changes := render(t, linksDoc)

	require.NoError(t, f.Move(content.P("links"), 0, Up))
	require.NoError(t, f.Move(content.P("links"), 2, Down))
	assert.Empty(t, *changes, "edge moves are silent no-ops")
	assert.Equal(t, []string{"Site", "Blog", "Shop"}, titlesOf(t, f.Value()))

	require.NoError(t, f.Move(content.P("links"), 0, Down))
	assert.Equal(t, []string{"Blog", "Site", "Shop"}, titlesOf(t, f.Value()))

	require.NoError(t, f.Move(content.P("links"), 2, Up))
	assert.Equal(t, []string{"Blog", "Shop", "Site"}, titlesOf(t, f.Value()))
	assert.Len(t, *changes, 2)
}

func TestCollapse_IsViewState(t *testing.T) {
	f, changes := render(t, linksDoc)
	before := f.Value().String()

	f.ToggleCollapse(content.P("links", 1))
	f.ToggleCollapse(content.P("theme"))

	assert.True(t, f.IsCollapsed(content.ParsePath("links.1")))
	assert.Equal(t, before, f.Value().String())
	assert.Empty(t, *changes)

	flat := Flatten(f.Fields())
	for _, fd := range flat {
		assert.False(t, fd.Path.HasPrefix(content.P("theme")) && len(fd.Path) > 1, "children of a collapsed group are hidden: %s", fd.Path)
		assert.NotEqual(t, "links.1.title", fd.Path.String())
	}

	f.ToggleCollapse(content.P("theme"))
	assert.False(t, f.IsCollapsed(content.P("theme")))
}

func TestReset_DoesNotNotify(t *testing.T) {
	f, changes := render(t, `{"a":"b"}`)
	f.Reset(content.MustParse(`{"a":"c"}`))
	assert.Equal(t, `{"a":"c"}`, f.Value().String())
	assert.Empty(t, *changes)
}

func titlesOf(t *testing.T, doc content.Value) []string {
	t.Helper()
	links, err := doc.At(content.P("links"))
	require.NoError(t, err)
	var out []string
	for _, it := range links.Items() {
		title, _ := it.Get("title")
		out = append(out, title.Str())
	}
	return out
}
