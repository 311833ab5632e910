package internal

import (
	"errors"
	"regexp"
)

var ErrInvalidURL = errors.New("invalid URL")

var (
	youtubeMarker    = regexp.MustCompile(`(?i)(youtube\.|youtu\.be)`)
	youtubePlaylist  = regexp.MustCompile(`(?i)[?&]list=[^&#]+`)
	soundcloudMarker = regexp.MustCompile(`(?i)soundcloud`)
	soundcloudSet    = regexp.MustCompile(`(?i)/sets/`)
)

// Classify maps a URL to the kind of request it describes.
//
// Playlist markers take precedence: a YouTube watch URL that also carries a
// list parameter is a playlist.
func Classify(url string) (Kind, error) {
	switch {
	case youtubeMarker.MatchString(url) && youtubePlaylist.MatchString(url):
		return KindPlaylistYouTube, nil
	case youtubeMarker.MatchString(url):
		return KindSingleYouTube, nil
	case soundcloudMarker.MatchString(url) && soundcloudSet.MatchString(url):
		return KindPlaylistSoundCloud, nil
	case soundcloudMarker.MatchString(url):
		return KindSingleSoundCloud, nil
	}
	return "", ErrInvalidURL
}
