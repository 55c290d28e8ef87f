// Package tagging reads embedded tags from downloaded audio files.
package tagging

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"

	"github.com/cesargomez89/archivebackup/internal/constants"
	"github.com/cesargomez89/archivebackup/internal/domain"
)

// ErrUnsupportedFormat is returned for extensions without a tag reader.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Tags is what the probe could read from the file.
type Tags struct {
	Title      string
	Artist     string
	Album      string
	Track      string
	Date       string
	HasArtwork bool
}

// ReadTags dispatches on the file extension.
func ReadTags(filePath string) (*Tags, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case constants.ExtMP3:
		return readMP3(filePath)
	case constants.ExtFLAC:
		return readFLAC(filePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// Apply fills the listing fields the archive left blank. Existing values win.
func (t *Tags) Apply(f *domain.File) {
	if f.Title == "" {
		f.Title = t.Title
	}
	if f.Artist == "" {
		f.Artist = t.Artist
	}
	if f.Album == "" {
		f.Album = t.Album
	}
	if f.Track == "" {
		f.Track = t.Track
	}
	f.HasArtwork = f.HasArtwork || t.HasArtwork
}

func readMP3(filePath string) (*Tags, error) {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 tags: %w", err)
	}
	defer tag.Close()

	tags := &Tags{
		Title:  tag.Title(),
		Artist: tag.Artist(),
		Album:  tag.Album(),
		Date:   tag.Year(),
		Track:  tag.GetTextFrame(tag.CommonID("Track number/Position in set")).Text,
	}
	tags.HasArtwork = len(tag.GetFrames(tag.CommonID("Attached picture"))) > 0
	return tags, nil
}

func readFLAC(filePath string) (*Tags, error) {
	f, err := flac.ParseFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac: %w", err)
	}

	tags := &Tags{}
	for _, meta := range f.Meta {
		switch meta.Type {
		case flac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return nil, fmt.Errorf("failed to parse vorbis comment: %w", err)
			}
			tags.Title = firstComment(cmt, flacvorbis.FIELD_TITLE)
			tags.Artist = firstComment(cmt, flacvorbis.FIELD_ARTIST)
			tags.Album = firstComment(cmt, flacvorbis.FIELD_ALBUM)
			tags.Track = firstComment(cmt, flacvorbis.FIELD_TRACKNUMBER)
			tags.Date = firstComment(cmt, flacvorbis.FIELD_DATE)
		case flac.Picture:
			if _, err := flacpicture.ParseFromMetaDataBlock(*meta); err == nil {
				tags.HasArtwork = true
			}
		}
	}
	return tags, nil
}

func firstComment(cmt *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := cmt.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}
	return values[0]
}
