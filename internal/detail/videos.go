package detail

import (
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

const siteYouTube = "YouTube"

// SelectTrailer picks the trailer to embed: the first official YouTube
// trailer, else the first YouTube trailer, else the first YouTube teaser.
// Each tier is scanned in API order. It returns nil when nothing matches.
func SelectTrailer(videos []tmdb.Video) *tmdb.Video {
	tiers := []func(v tmdb.Video) bool{
		func(v tmdb.Video) bool { return v.Type == "Trailer" && v.Site == siteYouTube && v.Official },
		func(v tmdb.Video) bool { return v.Type == "Trailer" && v.Site == siteYouTube },
		func(v tmdb.Video) bool { return v.Type == "Teaser" && v.Site == siteYouTube },
	}

	for _, match := range tiers {
		for i := range videos {
			if match(videos[i]) {
				v := videos[i]
				return &v
			}
		}
	}
	return nil
}

// OfficialVideos keeps the official YouTube videos, in API order.
func OfficialVideos(videos []tmdb.Video) []tmdb.Video {
	out := make([]tmdb.Video, 0, len(videos))
	for _, v := range videos {
		if v.Site == siteYouTube && v.Official {
			out = append(out, v)
		}
	}
	return out
}
