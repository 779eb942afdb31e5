package tmdb

import (
	"bytes"
	"encoding/json"
)

// MediaType is the TMDB media type used in path segments.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Valid reports whether t is movie or tv.
func (t MediaType) Valid() bool {
	return t == MediaMovie || t == MediaTV
}

// SearchKind is the path segment of a /search endpoint.
type SearchKind string

const (
	SearchMulti      SearchKind = "multi"
	SearchMovie      SearchKind = "movie"
	SearchTV         SearchKind = "tv"
	SearchPerson     SearchKind = "person"
	SearchCollection SearchKind = "collection"
	SearchCompany    SearchKind = "company"
	SearchKeyword    SearchKind = "keyword"
)

// Strings decodes a JSON field that TMDB sends either as a single string
// (companies) or as an array of strings (tv shows).
type Strings []string

func (s *Strings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		if one == "" {
			*s = nil
		} else {
			*s = Strings{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// Item is one entry of any TMDB list, search, trending or credits response.
// Fields not present for a given media type are left zero.
type Item struct {
	ID                 int     `json:"id"`
	MediaType          string  `json:"media_type,omitempty"`
	Title              string  `json:"title,omitempty"`
	OriginalTitle      string  `json:"original_title,omitempty"`
	Name               string  `json:"name,omitempty"`
	OriginalName       string  `json:"original_name,omitempty"`
	Overview           string  `json:"overview,omitempty"`
	ReleaseDate        string  `json:"release_date,omitempty"`
	FirstAirDate       string  `json:"first_air_date,omitempty"`
	PosterPath         *string `json:"poster_path,omitempty"`
	BackdropPath       *string `json:"backdrop_path,omitempty"`
	ProfilePath        *string `json:"profile_path,omitempty"`
	LogoPath           *string `json:"logo_path,omitempty"`
	OriginCountry      Strings `json:"origin_country,omitempty"`
	KnownForDepartment string  `json:"known_for_department,omitempty"`
	GenreIDs           []int   `json:"genre_ids,omitempty"`
	VoteAverage        float64 `json:"vote_average,omitempty"`
	VoteCount          int     `json:"vote_count,omitempty"`
	Popularity         float64 `json:"popularity,omitempty"`
	Adult              bool    `json:"adult,omitempty"`
	Character          string  `json:"character,omitempty"`
	Job                string  `json:"job,omitempty"`
	Department         string  `json:"department,omitempty"`
	KnownFor           []Item  `json:"known_for,omitempty"`
	EpisodeCount       int     `json:"episode_count,omitempty"`
	CreditID           string  `json:"credit_id,omitempty"`
	Order              *int    `json:"order,omitempty"`
	Gender             int     `json:"gender,omitempty"`
	Iso6391            string  `json:"iso_639_1,omitempty"`
}

// Page is a normalized paginated list response.
type Page struct {
	Page         int    `json:"page"`
	Results      []Item `json:"results"`
	TotalPages   int    `json:"total_pages"`
	TotalResults int    `json:"total_results"`
}

// UnmarshalJSON accepts both the paginated envelope and a bare array. A bare
// array is treated as a single page with no known total.
func (p *Page) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []Item
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*p = Page{Page: 1, Results: items}
		return nil
	}

	type envelope Page
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*p = Page(env)
	return nil
}

// Genre represents a TMDB genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Company represents a production company.
type Company struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	LogoPath      *string `json:"logo_path"`
	OriginCountry string  `json:"origin_country"`
}

// SpokenLanguage represents a spoken language entry.
type SpokenLanguage struct {
	Iso6391     string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}

// Network represents a TV network.
type Network struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	LogoPath      *string `json:"logo_path"`
	OriginCountry string  `json:"origin_country"`
}

// Creator is a TV show creator.
type Creator struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	ProfilePath *string `json:"profile_path"`
}

// MovieDetails is the raw /movie/{id} response.
type MovieDetails struct {
	ID                  int              `json:"id"`
	Title               string           `json:"title"`
	OriginalTitle       string           `json:"original_title"`
	Overview            string           `json:"overview"`
	Tagline             string           `json:"tagline"`
	ReleaseDate         string           `json:"release_date"`
	Runtime             int              `json:"runtime"`
	Status              string           `json:"status"`
	Genres              []Genre          `json:"genres"`
	VoteAverage         float64          `json:"vote_average"`
	VoteCount           int              `json:"vote_count"`
	Popularity          float64          `json:"popularity"`
	PosterPath          *string          `json:"poster_path"`
	BackdropPath        *string          `json:"backdrop_path"`
	Homepage            string           `json:"homepage"`
	OriginalLanguage    string           `json:"original_language"`
	ImdbID              string           `json:"imdb_id"`
	Budget              int64            `json:"budget"`
	Revenue             int64            `json:"revenue"`
	ProductionCompanies []Company        `json:"production_companies"`
	SpokenLanguages     []SpokenLanguage `json:"spoken_languages"`
}

// TVDetails is the raw /tv/{id} response.
type TVDetails struct {
	ID                  int              `json:"id"`
	Name                string           `json:"name"`
	OriginalName        string           `json:"original_name"`
	Overview            string           `json:"overview"`
	Tagline             string           `json:"tagline"`
	FirstAirDate        string           `json:"first_air_date"`
	LastAirDate         string           `json:"last_air_date"`
	EpisodeRunTime      []int            `json:"episode_run_time"`
	Status              string           `json:"status"`
	Genres              []Genre          `json:"genres"`
	VoteAverage         float64          `json:"vote_average"`
	VoteCount           int              `json:"vote_count"`
	Popularity          float64          `json:"popularity"`
	PosterPath          *string          `json:"poster_path"`
	BackdropPath        *string          `json:"backdrop_path"`
	Homepage            string           `json:"homepage"`
	OriginalLanguage    string           `json:"original_language"`
	NumberOfSeasons     int              `json:"number_of_seasons"`
	NumberOfEpisodes    int              `json:"number_of_episodes"`
	Networks            []Network        `json:"networks"`
	CreatedBy           []Creator        `json:"created_by"`
	ProductionCompanies []Company        `json:"production_companies"`
	SpokenLanguages     []SpokenLanguage `json:"spoken_languages"`
}

// Video represents a video entry from /{type}/{id}/videos.
type Video struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Site        string `json:"site"`
	Type        string `json:"type"`
	Official    bool   `json:"official"`
	Size        int    `json:"size"`
	PublishedAt string `json:"published_at"`
	Iso6391     string `json:"iso_639_1"`
}

// VideosResponse is the /{type}/{id}/videos response.
type VideosResponse struct {
	ID      int     `json:"id"`
	Results []Video `json:"results"`
}

// Credits is the /{type}/{id}/credits response.
type Credits struct {
	ID   int    `json:"id"`
	Cast []Item `json:"cast"`
	Crew []Item `json:"crew"`
}

// ReviewAuthor holds review author details.
type ReviewAuthor struct {
	Name       string   `json:"name"`
	Username   string   `json:"username"`
	AvatarPath *string  `json:"avatar_path"`
	Rating     *float64 `json:"rating"`
}

// Review is a single user review.
type Review struct {
	ID            string       `json:"id"`
	Author        string       `json:"author"`
	AuthorDetails ReviewAuthor `json:"author_details"`
	Content       string       `json:"content"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
	URL           string       `json:"url"`
}

// ReviewPage is the /{type}/{id}/reviews response.
type ReviewPage struct {
	ID           int      `json:"id"`
	Page         int      `json:"page"`
	Results      []Review `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// PersonDetails is the /person/{id} response.
type PersonDetails struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Biography          string   `json:"biography"`
	Birthday           string   `json:"birthday"`
	Deathday           string   `json:"deathday"`
	PlaceOfBirth       string   `json:"place_of_birth"`
	ProfilePath        *string  `json:"profile_path"`
	KnownForDepartment string   `json:"known_for_department"`
	AlsoKnownAs        []string `json:"also_known_as"`
	Popularity         float64  `json:"popularity"`
	Gender             int      `json:"gender"`
	Homepage           string   `json:"homepage"`
	ImdbID             string   `json:"imdb_id"`
}

// CombinedCredits is the /person/{id}/combined_credits response.
type CombinedCredits struct {
	ID   int    `json:"id"`
	Cast []Item `json:"cast"`
	Crew []Item `json:"crew"`
}

// ErrorResponse represents a TMDB API error.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}
