package category

// Category groups products in the storefront menu.
type Category struct {
	ID       int    `json:"categoryId"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Position int    `json:"position"`
}
