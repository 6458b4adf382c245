package prismic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"spacetraveling/blog"
)

// Document is a single Prismic document. Data is decoded per document type.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href"`
	Tags                 []string        `json:"tags"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	LastPublicationDate  *string         `json:"last_publication_date"`
	Lang                 string          `json:"lang"`
	Data                 json.RawMessage `json:"data"`
}

// SearchResponse is one page of a documents search.
type SearchResponse struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Text is a field that the API delivers either as a key-text string or as a
// rich-text array; rich text is flattened to its blocks joined by newlines.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	var blocks []RichTextBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("text field: %w", err)
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	*t = Text(strings.Join(parts, "\n"))
	return nil
}

// RichTextBlock is a paragraph-level rich-text element.
type RichTextBlock struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Spans []Span `json:"spans"`
}

// Span marks formatting over a range of a block's text.
type Span struct {
	Start int             `json:"start"`
	End   int             `json:"end"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Image is an image field.
type Image struct {
	URL        string `json:"url"`
	Alt        string `json:"alt"`
	Dimensions struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"dimensions"`
}

// ContentGroup is one heading with its body in a post's content group field.
type ContentGroup struct {
	Heading Text            `json:"heading"`
	Body    []RichTextBlock `json:"body"`
}

// PostData is the data of a "posts" document.
type PostData struct {
	Title    Text           `json:"title"`
	Subtitle Text           `json:"subtitle"`
	Author   Text           `json:"author"`
	Banner   Image          `json:"banner"`
	Content  []ContentGroup `json:"content"`
}

// PostData decodes the document's data as a post.
func (d *Document) PostData() (*PostData, error) {
	if len(d.Data) == 0 {
		return nil, &FetchError{Op: "decode document", URL: d.Href, Err: fmt.Errorf("document %s has no data", d.ID)}
	}
	var data PostData
	if err := json.Unmarshal(d.Data, &data); err != nil {
		return nil, &FetchError{Op: "decode document", URL: d.Href, Err: fmt.Errorf("document %s: %w", d.ID, err)}
	}
	return &data, nil
}

// PublishedAt parses the first publication date. A null date yields the
// zero time.
func (d *Document) PublishedAt() (time.Time, error) {
	if d.FirstPublicationDate == nil || *d.FirstPublicationDate == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseAny(*d.FirstPublicationDate)
	if err != nil {
		return time.Time{}, &FetchError{Op: "decode document", URL: d.Href, Err: fmt.Errorf("publication date %q: %w", *d.FirstPublicationDate, err)}
	}
	return t, nil
}

// ToSummary converts the document into a listing entry.
func (d *Document) ToSummary() (blog.PostSummary, error) {
	data, err := d.PostData()
	if err != nil {
		return blog.PostSummary{}, err
	}
	published, err := d.PublishedAt()
	if err != nil {
		return blog.PostSummary{}, err
	}
	return blog.PostSummary{
		UID:                  d.UID,
		FirstPublicationDate: published,
		Title:                string(data.Title),
		Subtitle:             string(data.Subtitle),
		Author:               string(data.Author),
	}, nil
}

// ToDetail converts the document into a full post.
func (d *Document) ToDetail() (*blog.PostDetail, error) {
	data, err := d.PostData()
	if err != nil {
		return nil, err
	}
	published, err := d.PublishedAt()
	if err != nil {
		return nil, err
	}

	content := make([]blog.ContentBlock, 0, len(data.Content))
	for _, group := range data.Content {
		block := blog.ContentBlock{
			Heading: string(group.Heading),
			Body:    make([]blog.Paragraph, 0, len(group.Body)),
		}
		for _, p := range group.Body {
			block.Body = append(block.Body, blog.Paragraph{Text: p.Text})
		}
		content = append(content, block)
	}

	return &blog.PostDetail{
		UID:                  d.UID,
		FirstPublicationDate: published,
		Title:                string(data.Title),
		BannerURL:            data.Banner.URL,
		Author:               string(data.Author),
		Content:              content,
	}, nil
}

// ToPage converts the response into a listing page.
func (r *SearchResponse) ToPage() (*blog.Page, error) {
	page := &blog.Page{Results: make([]blog.PostSummary, 0, len(r.Results))}
	if r.NextPage != nil {
		page.NextPage = *r.NextPage
	}
	for i := range r.Results {
		summary, err := r.Results[i].ToSummary()
		if err != nil {
			return nil, err
		}
		page.Results = append(page.Results, summary)
	}
	return page, nil
}
