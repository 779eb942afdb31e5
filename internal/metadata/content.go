package metadata

import (
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

// ContentDetail is a movie or tv record in one uniform shape. For tv the
// name, first air date and first episode runtime populate Title,
// ReleaseDate and Runtime.
type ContentDetail struct {
	ID                  int            `json:"id"`
	ContentType         tmdb.MediaType `json:"contentType"`
	Title               string         `json:"title"`
	OriginalTitle       string         `json:"originalTitle,omitempty"`
	Overview            string         `json:"overview"`
	Tagline             string         `json:"tagline,omitempty"`
	ReleaseDate         string         `json:"releaseDate"`
	Runtime             int            `json:"runtime"`
	Status              string         `json:"status,omitempty"`
	Genres              []Genre        `json:"genres"`
	VoteAverage         float64        `json:"voteAverage"`
	VoteCount           int            `json:"voteCount"`
	Popularity          float64        `json:"popularity"`
	PosterPath          string         `json:"posterPath,omitempty"`
	BackdropPath        string         `json:"backdropPath,omitempty"`
	Homepage            string         `json:"homepage,omitempty"`
	OriginalLanguage    string         `json:"originalLanguage,omitempty"`
	ImdbID              string         `json:"imdbId,omitempty"`
	Budget              int64          `json:"budget,omitempty"`
	Revenue             int64          `json:"revenue,omitempty"`
	ProductionCompanies []Company      `json:"productionCompanies,omitempty"`
	SpokenLanguages     []string       `json:"spokenLanguages,omitempty"`
	NumberOfSeasons     int            `json:"numberOfSeasons,omitempty"`
	NumberOfEpisodes    int            `json:"numberOfEpisodes,omitempty"`
	LastAirDate         string         `json:"lastAirDate,omitempty"`
	Networks            []Company      `json:"networks,omitempty"`
	CreatedBy           []CreditPerson `json:"createdBy,omitempty"`
}

// Usable reports whether the record identifies a title.
func (d *ContentDetail) Usable() bool {
	return d != nil && d.ID > 0
}

// Genre is a named genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Company is a production company or tv network.
type Company struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logoPath,omitempty"`
	OriginCountry string `json:"originCountry,omitempty"`
}

// CreditPerson is a cast or crew entry.
type CreditPerson struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	Job         string `json:"job,omitempty"`
	Department  string `json:"department,omitempty"`
	ProfilePath string `json:"profilePath,omitempty"`
}

// Credits holds cast and crew in API order.
type Credits struct {
	Cast []CreditPerson `json:"cast"`
	Crew []CreditPerson `json:"crew"`
}

// EmptyCredits returns credits with non-nil empty slices.
func EmptyCredits() Credits {
	return Credits{Cast: []CreditPerson{}, Crew: []CreditPerson{}}
}

// NormalizeMovie converts a raw movie record.
func NormalizeMovie(m *tmdb.MovieDetails) *ContentDetail {
	if m == nil {
		return nil
	}
	return &ContentDetail{
		ID:                  m.ID,
		ContentType:         tmdb.MediaMovie,
		Title:               m.Title,
		OriginalTitle:       m.OriginalTitle,
		Overview:            m.Overview,
		Tagline:             m.Tagline,
		ReleaseDate:         m.ReleaseDate,
		Runtime:             m.Runtime,
		Status:              m.Status,
		Genres:              convertGenres(m.Genres),
		VoteAverage:         m.VoteAverage,
		VoteCount:           m.VoteCount,
		Popularity:          m.Popularity,
		PosterPath:          deref(m.PosterPath),
		BackdropPath:        deref(m.BackdropPath),
		Homepage:            m.Homepage,
		OriginalLanguage:    m.OriginalLanguage,
		ImdbID:              m.ImdbID,
		Budget:              m.Budget,
		Revenue:             m.Revenue,
		ProductionCompanies: convertCompanies(m.ProductionCompanies),
		SpokenLanguages:     convertLanguages(m.SpokenLanguages),
	}
}

// NormalizeTV converts a raw tv record into the movie-compatible shape.
func NormalizeTV(t *tmdb.TVDetails) *ContentDetail {
	if t == nil {
		return nil
	}

	runtime := 0
	if len(t.EpisodeRunTime) > 0 {
		runtime = t.EpisodeRunTime[0]
	}

	networks := make([]Company, 0, len(t.Networks))
	for _, n := range t.Networks {
		networks = append(networks, Company{ID: n.ID, Name: n.Name, LogoPath: deref(n.LogoPath), OriginCountry: n.OriginCountry})
	}

	creators := make([]CreditPerson, 0, len(t.CreatedBy))
	for _, c := range t.CreatedBy {
		creators = append(creators, CreditPerson{ID: c.ID, Name: c.Name, Job: "Creator", ProfilePath: deref(c.ProfilePath)})
	}

	return &ContentDetail{
		ID:                  t.ID,
		ContentType:         tmdb.MediaTV,
		Title:               t.Name,
		OriginalTitle:       t.OriginalName,
		Overview:            t.Overview,
		Tagline:             t.Tagline,
		ReleaseDate:         t.FirstAirDate,
		Runtime:             runtime,
		Status:              t.Status,
		Genres:              convertGenres(t.Genres),
		VoteAverage:         t.VoteAverage,
		VoteCount:           t.VoteCount,
		Popularity:          t.Popularity,
		PosterPath:          deref(t.PosterPath),
		BackdropPath:        deref(t.BackdropPath),
		Homepage:            t.Homepage,
		OriginalLanguage:    t.OriginalLanguage,
		ProductionCompanies: convertCompanies(t.ProductionCompanies),
		SpokenLanguages:     convertLanguages(t.SpokenLanguages),
		NumberOfSeasons:     t.NumberOfSeasons,
		NumberOfEpisodes:    t.NumberOfEpisodes,
		LastAirDate:         t.LastAirDate,
		Networks:            networks,
		CreatedBy:           creators,
	}
}

// NormalizeCredits converts raw credits, keeping API order.
func NormalizeCredits(c *tmdb.Credits) Credits {
	out := EmptyCredits()
	if c == nil {
		return out
	}
	for _, p := range c.Cast {
		out.Cast = append(out.Cast, CreditPerson{ID: p.ID, Name: p.Name, Character: p.Character, ProfilePath: deref(p.ProfilePath)})
	}
	for _, p := range c.Crew {
		out.Crew = append(out.Crew, CreditPerson{ID: p.ID, Name: p.Name, Job: p.Job, Department: p.Department, ProfilePath: deref(p.ProfilePath)})
	}
	return out
}

func convertGenres(in []tmdb.Genre) []Genre {
	out := make([]Genre, 0, len(in))
	for _, g := range in {
		out = append(out, Genre{ID: g.ID, Name: g.Name})
	}
	return out
}

func convertCompanies(in []tmdb.Company) []Company {
	out := make([]Company, 0, len(in))
	for _, c := range in {
		out = append(out, Company{ID: c.ID, Name: c.Name, LogoPath: deref(c.LogoPath), OriginCountry: c.OriginCountry})
	}
	return out
}

func convertLanguages(in []tmdb.SpokenLanguage) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		out = append(out, firstNonEmpty(l.EnglishName, l.Name, l.Iso6391))
	}
	return out
}
