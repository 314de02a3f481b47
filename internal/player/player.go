package player

import (
	"errors"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Camel-bot/Spotilife/pkg/music"
)

// metadataFormat separates fields with tabs, which titles do not contain.
const metadataFormat = "{{title}}\t{{artist}}\t{{mpris:trackid}}"

// ErrNoPlayer is returned when playerctl reports no usable metadata.
var ErrNoPlayer = errors.New("no music playing")

// GetCurrentTrack 获取当前播放的歌曲
func GetCurrentTrack() (music.Track, error) {
	cmd := exec.Command("playerctl", "metadata", "--format", metadataFormat)
	output, err := cmd.Output()
	if err != nil {
		return music.Track{}, ErrNoPlayer
	}
	return ParseMetadata(string(output))
}

// ParseMetadata parses one line of playerctl output in metadataFormat.
func ParseMetadata(output string) (music.Track, error) {
	fields := strings.Split(strings.TrimRight(output, "\r\n"), "\t")
	for len(fields) < 3 {
		fields = append(fields, "")
	}

	track := music.Track{
		Title:   strings.TrimSpace(fields[0]),
		Artist:  strings.TrimSpace(fields[1]),
		TrackID: TrackID(fields[2]),
	}
	if track.Title == "" && track.TrackID == "" {
		return music.Track{}, ErrNoPlayer
	}
	return track, nil
}

// TrackID extracts the Spotify track id from an MPRIS track id, which is
// either an object path (/com/spotify/track/<id>) or a URI (spotify:track:<id>).
// Ids of other players are returned unchanged.
func TrackID(mprisID string) string {
	id := strings.TrimSpace(mprisID)
	switch {
	case strings.HasPrefix(id, "/com/spotify/track/"):
		return strings.TrimPrefix(id, "/com/spotify/track/")
	case strings.HasPrefix(id, "spotify:track:"):
		return strings.TrimPrefix(id, "spotify:track:")
	case strings.HasPrefix(id, "/org/mpris/MediaPlayer2/TrackList/NoTrack"):
		return ""
	}
	return id
}

// GetCurrentPlayTime 获取当前播放进度（秒）
func GetCurrentPlayTime() float64 {
	out, err := exec.Command("playerctl", "position").Output()
	if err != nil {
		return 0
	}
	s := strings.TrimSpace(string(out))
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return seconds
}
