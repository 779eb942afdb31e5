package metadata

import (
	"strconv"

	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

// Kind discriminates the variants of a ResultItem.
type Kind string

const (
	KindMovie      Kind = "movie"
	KindTV         Kind = "tv"
	KindPerson     Kind = "person"
	KindCollection Kind = "collection"
	KindCompany    Kind = "company"
	KindKeyword    Kind = "keyword"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMovie, KindTV, KindPerson, KindCollection, KindCompany, KindKeyword:
		return true
	}
	return false
}

// ResultItem is a catalog entry of any kind, tagged when it enters the system.
// Title carries the movie title, tv name, or the name of a person,
// collection, company or keyword.
type ResultItem struct {
	ID                 int      `json:"id"`
	Kind               Kind     `json:"kind"`
	Title              string   `json:"title"`
	OriginalTitle      string   `json:"originalTitle,omitempty"`
	Overview           string   `json:"overview,omitempty"`
	ReleaseDate        string   `json:"releaseDate,omitempty"`
	PosterPath         string   `json:"posterPath,omitempty"`
	BackdropPath       string   `json:"backdropPath,omitempty"`
	ProfilePath        string   `json:"profilePath,omitempty"`
	LogoPath           string   `json:"logoPath,omitempty"`
	OriginCountry      []string `json:"originCountry,omitempty"`
	KnownForDepartment string   `json:"knownForDepartment,omitempty"`
	VoteAverage        float64  `json:"voteAverage"`
	VoteCount          int      `json:"voteCount"`
	Popularity         float64  `json:"popularity"`
	GenreIDs           []int    `json:"genreIds,omitempty"`
	Adult              bool     `json:"adult,omitempty"`
	Character          string   `json:"character,omitempty"`
	Job                string   `json:"job,omitempty"`
}

// Key identifies an item across kinds.
func (r ResultItem) Key() string {
	return string(r.Kind) + ":" + strconv.Itoa(r.ID)
}

// FromItem tags a raw TMDB entry. The media_type field wins when TMDB sends
// one; otherwise the kind is inferred from the fields present, and fallback
// is used when nothing identifies the entry.
func FromItem(item tmdb.Item, fallback Kind) ResultItem {
	kind := Kind(item.MediaType)
	if !kind.Valid() {
		kind = InferKind(item, fallback)
	}

	r := ResultItem{
		ID:                 item.ID,
		Kind:               kind,
		Overview:           item.Overview,
		PosterPath:         deref(item.PosterPath),
		BackdropPath:       deref(item.BackdropPath),
		ProfilePath:        deref(item.ProfilePath),
		LogoPath:           deref(item.LogoPath),
		OriginCountry:      []string(item.OriginCountry),
		KnownForDepartment: item.KnownForDepartment,
		VoteAverage:        item.VoteAverage,
		VoteCount:          item.VoteCount,
		Popularity:         item.Popularity,
		GenreIDs:           item.GenreIDs,
		Adult:              item.Adult,
		Character:          item.Character,
		Job:                item.Job,
	}

	switch kind {
	case KindMovie:
		r.Title = item.Title
		r.OriginalTitle = item.OriginalTitle
		r.ReleaseDate = item.ReleaseDate
	case KindTV:
		r.Title = item.Name
		r.OriginalTitle = item.OriginalName
		r.ReleaseDate = item.FirstAirDate
	default:
		r.Title = item.Name
	}
	if r.Title == "" {
		r.Title = firstNonEmpty(item.Title, item.Name)
	}

	return r
}

// FromItems tags every entry of a list with FromItem.
func FromItems(items []tmdb.Item, fallback Kind) []ResultItem {
	out := make([]ResultItem, 0, len(items))
	for _, it := range items {
		out = append(out, FromItem(it, fallback))
	}
	return out
}

// InferKind classifies an untagged entry by shape: a title means movie, a
// name with a first air date means tv, a profile or department means person.
func InferKind(item tmdb.Item, fallback Kind) Kind {
	switch {
	case item.Title != "":
		return KindMovie
	case item.Name != "" && item.FirstAirDate != "":
		return KindTV
	case item.ProfilePath != nil || item.KnownForDepartment != "":
		return KindPerson
	case fallback.Valid():
		return fallback
	default:
		return KindMovie
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
