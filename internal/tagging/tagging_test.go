package tagging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacvorbis"

	"github.com/cesargomez89/archivebackup/internal/domain"
)

func writeMP3(t *testing.T, path string) {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	tag.SetTitle("Scarlet Begonias")
	tag.SetArtist("Grateful Dead")
	tag.SetAlbum("Cornell 5/8/77")
	tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, "3")
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Front cover",
		Picture:     []byte{0xff, 0xd8, 0xff, 0xd9},
	})

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	defer f.Close()
	if _, err := tag.WriteTo(f); err != nil {
		t.Fatalf("Failed to write tag: %v", err)
	}
}

func TestReadTagsMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d1t03.mp3")
	writeMP3(t, path)

	tags, err := ReadTags(path)
	if err != nil {
		t.Fatalf("ReadTags failed: %v", err)
	}
	if tags.Title != "Scarlet Begonias" {
		t.Errorf("Expected title 'Scarlet Begonias', got %q", tags.Title)
	}
	if tags.Artist != "Grateful Dead" {
		t.Errorf("Expected artist 'Grateful Dead', got %q", tags.Artist)
	}
	if tags.Track != "3" {
		t.Errorf("Expected track '3', got %q", tags.Track)
	}
	if !tags.HasArtwork {
		t.Error("Expected embedded artwork to be detected")
	}
}

func TestReadTagsFLAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d1t01.flac")

	cmt := flacvorbis.New()
	if err := cmt.Add(flacvorbis.FIELD_TITLE, "Minglewood Blues"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := cmt.Add(flacvorbis.FIELD_TRACKNUMBER, "1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	block := cmt.Marshal()
	f := &flac.File{
		Meta: []*flac.MetaDataBlock{
			{Type: flac.StreamInfo, Data: make([]byte, 34)},
			&block,
		},
	}
	if err := f.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tags, err := ReadTags(path)
	if err != nil {
		t.Fatalf("ReadTags failed: %v", err)
	}
	if tags.Title != "Minglewood Blues" {
		t.Errorf("Expected title 'Minglewood Blues', got %q", tags.Title)
	}
	if tags.Track != "1" {
		t.Errorf("Expected track '1', got %q", tags.Track)
	}
	if tags.HasArtwork {
		t.Error("Expected no artwork")
	}
}

func TestReadTagsUnsupported(t *testing.T) {
	_, err := ReadTags("notes.txt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestApplyKeepsListingValues(t *testing.T) {
	file := &domain.File{Title: "From listing"}
	tags := &Tags{Title: "From tags", Artist: "Grateful Dead", Track: "2", HasArtwork: true}

	tags.Apply(file)

	if file.Title != "From listing" {
		t.Errorf("Expected listing title to win, got %q", file.Title)
	}
	if file.Artist != "Grateful Dead" || file.Track != "2" {
		t.Errorf("Expected blanks to be filled, got %+v", file)
	}
	if !file.HasArtwork {
		t.Error("Expected artwork flag to be set")
	}
}
