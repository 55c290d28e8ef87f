package catalog

import (
	"bytes"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/cesargomez89/archivebackup/internal/domain"
)

// decodeFields parses the nested metadata object once at ingest.
func (m *ItemMetadata) decodeFields() error {
	if len(bytes.TrimSpace(m.Metadata)) == 0 {
		return nil
	}
	return json.Unmarshal(m.Metadata, &m.Fields)
}

// compactMetadata stores the nested object without insignificant whitespace
// so substring filters see one stable layout.
func (m *ItemMetadata) compactMetadata() domain.RawJSON {
	trimmed := bytes.TrimSpace(m.Metadata)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return domain.RawJSON("{}")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return domain.RawJSON(trimmed)
	}
	return domain.RawJSON(buf.Bytes())
}

// ToItem maps the document onto the remote-origin columns of an Item.
func (m *ItemMetadata) ToItem(identifier string, now time.Time) *domain.Item {
	f := m.Fields
	item := &domain.Item{
		Identifier:      identifier,
		Created:         m.Created.Value,
		D1:              string(m.D1),
		D2:              string(m.D2),
		Dir:             string(m.Dir),
		FilesCount:      int(m.FilesCount.Value),
		ItemLastUpdated: m.ItemLastUpdated.Value,
		ItemSize:        m.ItemSize.Value,
		Server:          string(m.Server),
		Uniq:            m.Uniq.Value,
		WorkableServers: domain.StringSlice(m.WorkableServers),
		Metadata:        m.compactMetadata(),
		Title:           f.Title.First(),
		Creator:         f.Creator.First(),
		Date:            string(f.Date),
		Venue:           string(f.Venue),
		Year:            string(f.Year),
		Collection:      domain.StringSlice(f.Collection),
		AvgRating:       f.AvgRating.Ptr(),
		NumReviews:      f.NumReviews.Ptr(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if item.Year == "" && len(item.Date) >= 4 {
		item.Year = item.Date[:4]
	}
	return item
}

// ReviewList returns the embedded reviews. The top-level list wins over the
// copy nested in metadata.
func (m *ItemMetadata) ReviewList(identifier string, now time.Time) []*domain.Review {
	src := m.Reviews
	if len(src) == 0 {
		src = m.Fields.Reviews
	}
	reviews := make([]*domain.Review, 0, len(src))
	for _, r := range src {
		reviews = append(reviews, &domain.Review{
			ItemIdentifier:   identifier,
			ReviewBody:       string(r.ReviewBody),
			ReviewTitle:      string(r.ReviewTitle),
			Reviewer:         string(r.Reviewer),
			ReviewDate:       string(r.ReviewDate),
			CreateDate:       string(r.CreateDate),
			Stars:            string(r.Stars),
			ReviewerItemName: string(r.ReviewerItemName),
			CreatedAt:        now,
		})
	}
	return reviews
}

// FileList converts every named listing entry. Order follows the listing.
func (m *ItemMetadata) FileList(identifier string, now time.Time) []*domain.File {
	files := make([]*domain.File, 0, len(m.Files))
	for i := range m.Files {
		if strings.TrimSpace(string(m.Files[i].Name)) == "" {
			continue
		}
		files = append(files, m.Files[i].ToFile(identifier, now))
	}
	return files
}

// FileNames lists every name in the listing, blank ones excluded.
func (m *ItemMetadata) FileNames() []string {
	names := make([]string, 0, len(m.Files))
	for i := range m.Files {
		if name := string(m.Files[i].Name); strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	return names
}

func (r *RemoteFile) ToFile(identifier string, now time.Time) *domain.File {
	return &domain.File{
		ItemIdentifier: identifier,
		Name:           string(r.Name),
		Source:         string(r.Source),
		Format:         string(r.Format),
		Mtime:          string(r.Mtime),
		Size:           string(r.Size),
		MD5:            string(r.MD5),
		CRC32:          string(r.CRC32),
		SHA1:           string(r.SHA1),
		Length:         string(r.Length),
		Height:         string(r.Height),
		Width:          string(r.Width),
		Track:          string(r.Track),
		Album:          string(r.Album),
		Artist:         string(r.Artist),
		Title:          string(r.Title),
		Bitrate:        string(r.Bitrate),
		Creator:        string(r.Creator),
		Private:        bool(r.Private),
		Rotation:       string(r.Rotation),
		Summation:      string(r.Summation),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *statsItem) toStats(identifier string, now time.Time) *domain.Stats {
	stats := &domain.Stats{
		ItemIdentifier: identifier,
		AvgRating:      s.AvgRating.Ptr(),
		NumReviews:     s.NumReviews.Ptr(),
		Downloads:      s.Downloads.Ptr(),
		DownloadsWeek:  s.Week.Ptr(),
		DownloadsMonth: s.Month.Ptr(),
		LastUpdated:    now,
	}
	stars := bytes.TrimSpace(s.Stars)
	if len(stars) > 0 && string(stars) != "null" {
		stats.Stars = domain.RawJSON(stars)
	} else {
		stats.Stars = domain.RawJSON("[]")
	}
	return stats
}
