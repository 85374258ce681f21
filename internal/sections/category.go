package sections

// Category groups section types by the kind of site they are meant for.
type Category string

const (
	CategoryLinkInBio   Category = "link-in-bio"
	CategoryLandingPage Category = "landing-page"
	CategoryPortfolio   Category = "portfolio"
	CategoryBlog        Category = "blog"
	CategoryShared      Category = "shared"
)

// CategoryInfo is the display metadata for a Category.
type CategoryInfo struct {
	ID          Category
	Name        string
	Description string
}

var categories = []CategoryInfo{
	{CategoryLinkInBio, "Link-in-Bio", "Sections for link-in-bio style templates (Linktree-like)"},
	{CategoryLandingPage, "Landing Page", "Sections for marketing landing pages and product pages"},
	{CategoryPortfolio, "Portfolio", "Sections for portfolio and showcase websites"},
	{CategoryBlog, "Blog", "Sections for blog and content-focused websites"},
	{CategoryShared, "Shared", "Universal sections usable across all template types"},
}

// Categories returns every known category in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	copy(out, categories)
	return out
}

// Info returns the display metadata for c.
func (c Category) Info() (CategoryInfo, bool) {
	for _, info := range categories {
		if info.ID == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := c.Info()
	return ok
}

func (c Category) String() string { return string(c) }
