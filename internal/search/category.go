package search

import (
	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

// Category is one of the independent search result partitions.
type Category string

const (
	CategoryAll         Category = "all"
	CategoryMovies      Category = "movies"
	CategoryTVShows     Category = "tvShows"
	CategoryPeople      Category = "people"
	CategoryCollections Category = "collections"
	CategoryCompanies   Category = "companies"
	CategoryKeywords    Category = "keywords"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAll,
	CategoryMovies,
	CategoryTVShows,
	CategoryPeople,
	CategoryCollections,
	CategoryCompanies,
	CategoryKeywords,
}

var categorySearch = map[Category]struct {
	kind     tmdb.SearchKind
	itemKind metadata.Kind
}{
	CategoryAll:         {tmdb.SearchMulti, ""},
	CategoryMovies:      {tmdb.SearchMovie, metadata.KindMovie},
	CategoryTVShows:     {tmdb.SearchTV, metadata.KindTV},
	CategoryPeople:      {tmdb.SearchPerson, metadata.KindPerson},
	CategoryCollections: {tmdb.SearchCollection, metadata.KindCollection},
	CategoryCompanies:   {tmdb.SearchCompany, metadata.KindCompany},
	CategoryKeywords:    {tmdb.SearchKeyword, metadata.KindKeyword},
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categorySearch[c]
	return ok
}

// SearchKind returns the TMDB search endpoint backing c.
func (c Category) SearchKind() tmdb.SearchKind {
	return categorySearch[c].kind
}

// tag converts raw results of this category into tagged items. Single-kind
// categories tag every item with their kind; the mixed category relies on
// media_type and shape.
func (c Category) tag(items []tmdb.Item) []metadata.ResultItem {
	kind := categorySearch[c].itemKind
	if kind == "" {
		return metadata.FromItems(items, "")
	}

	out := make([]metadata.ResultItem, 0, len(items))
	for _, it := range items {
		it.MediaType = string(kind)
		out = append(out, metadata.FromItem(it, kind))
	}
	return out
}
