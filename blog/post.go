package blog

import "time"

// PostSummary is a post as it appears in the listing.
type PostSummary struct {
	UID                  string    `json:"uid"`
	FirstPublicationDate time.Time `json:"first_publication_date"`
	Title                string    `json:"title"`
	Subtitle             string    `json:"subtitle"`
	Author               string    `json:"author"`
}

// PostDetail is a single post with its structured content.
type PostDetail struct {
	UID                  string         `json:"uid"`
	FirstPublicationDate time.Time      `json:"first_publication_date"`
	Title                string         `json:"title"`
	BannerURL            string         `json:"banner_url"`
	Author               string         `json:"author"`
	Content              []ContentBlock `json:"content"`
}

// ContentBlock is a heading followed by its paragraphs.
type ContentBlock struct {
	Heading string      `json:"heading"`
	Body    []Paragraph `json:"body"`
}

// Paragraph is one block of body text.
type Paragraph struct {
	Text string `json:"text"`
}

// Page is one page of post summaries. An empty NextPage means there are no
// further pages.
type Page struct {
	Results  []PostSummary `json:"results"`
	NextPage string        `json:"next_page"`
}

// Published reports whether the summary carries a publication date.
func (p PostSummary) Published() bool {
	return !p.FirstPublicationDate.IsZero()
}
