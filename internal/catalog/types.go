package catalog

import (
	"bytes"

	json "github.com/goccy/go-json"

	"github.com/cesargomez89/archivebackup/internal/domain"
)

// ItemMetadata is the decoded metadata endpoint document. Raw keeps the body
// verbatim for the proxy route.
type ItemMetadata struct {
	Metadata        json.RawMessage     `json:"metadata"`
	Files           RemoteFiles         `json:"files"`
	Reviews         []RemoteReview      `json:"reviews"`
	WorkableServers domain.ListOrString `json:"workable_servers"`
	D1              domain.FlexString   `json:"d1"`
	D2              domain.FlexString   `json:"d2"`
	Dir             domain.FlexString   `json:"dir"`
	Server          domain.FlexString   `json:"server"`
	Created         domain.FlexInt      `json:"created"`
	FilesCount      domain.FlexInt      `json:"files_count"`
	ItemLastUpdated domain.FlexInt      `json:"item_last_updated"`
	ItemSize        domain.FlexInt      `json:"item_size"`
	Uniq            domain.FlexInt      `json:"uniq"`

	Raw    []byte         `json:"-"`
	Fields MetadataFields `json:"-"`
}

// MetadataFields are the entries of the nested metadata object that get
// their own columns.
type MetadataFields struct {
	Identifier domain.FlexString   `json:"identifier"`
	Title      domain.ListOrString `json:"title"`
	Creator    domain.ListOrString `json:"creator"`
	Date       domain.FlexString   `json:"date"`
	Venue      domain.FlexString   `json:"venue"`
	Year       domain.FlexString   `json:"year"`
	Collection domain.ListOrString `json:"collection"`
	AvgRating  domain.FlexFloat    `json:"avg_rating"`
	NumReviews domain.FlexInt      `json:"num_reviews"`
	Reviews    []RemoteReview      `json:"reviews"`
}

// HasFiles reports whether the document carried a files key at all.
func (m *ItemMetadata) HasFiles() bool {
	return m.Files != nil
}

// IsEmpty reports the "{}" answer the archive gives for unknown identifiers.
func (m *ItemMetadata) IsEmpty() bool {
	trimmed := bytes.TrimSpace(m.Metadata)
	noMetadata := len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == "{}"
	return noMetadata && m.Files == nil && !m.Created.Valid
}

func (m *ItemMetadata) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	type plain ItemMetadata
	return json.Marshal((*plain)(m))
}

// RemoteFiles keeps an empty listing distinct from a missing one.
type RemoteFiles []RemoteFile

func (l *RemoteFiles) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*l = nil
		return nil
	}
	var files []RemoteFile
	if err := json.Unmarshal(data, &files); err != nil {
		return err
	}
	if files == nil {
		files = []RemoteFile{}
	}
	*l = files
	return nil
}

// RemoteFile is one entry of the files listing.
type RemoteFile struct {
	Name      domain.FlexString `json:"name"`
	Source    domain.FlexString `json:"source"`
	Format    domain.FlexString `json:"format"`
	Mtime     domain.FlexString `json:"mtime"`
	Size      domain.FlexString `json:"size"`
	MD5       domain.FlexString `json:"md5"`
	CRC32     domain.FlexString `json:"crc32"`
	SHA1      domain.FlexString `json:"sha1"`
	Length    domain.FlexString `json:"length"`
	Height    domain.FlexString `json:"height"`
	Width     domain.FlexString `json:"width"`
	Track     domain.FlexString `json:"track"`
	Album     domain.FlexString `json:"album"`
	Artist    domain.FlexString `json:"artist"`
	Title     domain.FlexString `json:"title"`
	Bitrate   domain.FlexString `json:"bitrate"`
	Creator   domain.FlexString `json:"creator"`
	Rotation  domain.FlexString `json:"rotation"`
	Summation domain.FlexString `json:"summation"`
	Private   domain.FlexBool   `json:"private"`
}

type RemoteReview struct {
	ReviewBody       domain.FlexString `json:"reviewbody"`
	ReviewTitle      domain.FlexString `json:"reviewtitle"`
	Reviewer         domain.FlexString `json:"reviewer"`
	ReviewDate       domain.FlexString `json:"reviewdate"`
	CreateDate       domain.FlexString `json:"createdate"`
	Stars            domain.FlexString `json:"stars"`
	ReviewerItemName domain.FlexString `json:"reviewer_itemname"`
}

// SearchPayload is a scrape endpoint answer. Items are left loosely typed
// because the requested fields vary per query.
type SearchPayload struct {
	Items  []map[string]interface{} `json:"items"`
	Cursor string                   `json:"cursor,omitempty"`
	Count  int                      `json:"count"`
	Total  int                      `json:"total"`

	Raw []byte `json:"-"`
}

func (p *SearchPayload) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain SearchPayload
	return json.Marshal((*plain)(p))
}

// Identifiers returns the identifier field of every item, in order.
func (p *SearchPayload) Identifiers() []string {
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		if id, ok := item["identifier"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// TotalsPayload is an advancedsearch answer with rows=0.
type TotalsPayload struct {
	ResponseHeader map[string]interface{} `json:"responseHeader,omitempty"`
	Response       struct {
		NumFound int           `json:"numFound"`
		Start    int           `json:"start"`
		Docs     []interface{} `json:"docs"`
	} `json:"response"`

	Raw []byte `json:"-"`
}

func (p *TotalsPayload) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain TotalsPayload
	return json.Marshal((*plain)(p))
}

// statsItem is the first item of a stats scrape.
type statsItem struct {
	Stars      json.RawMessage  `json:"stars"`
	AvgRating  domain.FlexFloat `json:"avg_rating"`
	NumReviews domain.FlexInt   `json:"num_reviews"`
	Downloads  domain.FlexInt   `json:"downloads"`
	Week       domain.FlexInt   `json:"week"`
	Month      domain.FlexInt   `json:"month"`
}

type statsPayload struct {
	Items []statsItem `json:"items"`
}
