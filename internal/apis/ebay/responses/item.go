package responses

// Item is one entry of itemSummaries, kept raw: price, condition and
// category show up in several shapes and the mapper resolves them.
type Item struct {
	Raw map[string]any
}

type SearchPage struct {
	Total int
	Items []Item
}
