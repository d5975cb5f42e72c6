package timeline

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawPost is one post as returned by the upstream list-timeline API. The
// upstream mixes several payload generations, so every nested block is
// optional and accessed defensively. Posts are read-only after decoding.
type RawPost struct {
	IDStr          string          `json:"id_str"`
	RestID         string          `json:"rest_id"`
	Core           *Core           `json:"core"`
	Legacy         *Legacy         `json:"legacy"`
	Views          *Views          `json:"views"`
	Article        *ArticleWrapper `json:"article"`
	ArticleResults *ArticleResults `json:"article_results"`
}

// ID returns the stable external post id, preferring the legacy id over the
// newer rest_id
func (p *RawPost) ID() string {
	if p.Legacy != nil && p.Legacy.IDStr != "" {
		return p.Legacy.IDStr
	}
	if p.RestID != "" {
		return p.RestID
	}
	return p.IDStr
}

// Text returns the post's full text, falling back to the short text field
func (p *RawPost) Text() string {
	if p.Legacy == nil {
		return ""
	}
	if p.Legacy.FullText != "" {
		return p.Legacy.FullText
	}
	return p.Legacy.Text
}

// Core is the newer API generation's wrapper around author info
type Core struct {
	UserResults *UserResults `json:"user_results"`
}

// UserResults wraps the author record
type UserResults struct {
	Result *UserResult `json:"result"`
}

// UserResult holds the author record, with user fields under its own legacy block
type UserResult struct {
	Legacy *User `json:"legacy"`
}

// User carries author identity fields shared by both payload generations
type User struct {
	IDStr           string `json:"id_str"`
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url_https"`
}

// Legacy is the older API generation's post block; it also carries the
// engagement counters and entities in current responses
type Legacy struct {
	IDStr         string    `json:"id_str"`
	FullText      string    `json:"full_text"`
	Text          string    `json:"text"`
	CreatedAt     string    `json:"created_at"`
	User          *User     `json:"user"`
	Entities      *Entities `json:"entities"`
	ReplyCount    Count     `json:"reply_count"`
	RetweetCount  Count     `json:"retweet_count"`
	FavoriteCount Count     `json:"favorite_count"`
	BookmarkCount Count     `json:"bookmark_count"`
}

// Entities holds URL expansions attached to the post text
type Entities struct {
	URLs []EntityURL `json:"urls"`
}

// EntityURL is one shortened/expanded URL pair
type EntityURL struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
}

// Views carries the view counter, which the upstream reports as a string
type Views struct {
	Count Count `json:"count"`
}

// ArticleWrapper is the legacy location of the article block
type ArticleWrapper struct {
	ArticleResults *ArticleResults `json:"article_results"`
}

// ArticleResults wraps the long-form article payload
type ArticleResults struct {
	Result *ArticleResult `json:"result"`
}

// ArticleResult is the long-form article payload attached to a post
type ArticleResult struct {
	RestID      string      `json:"rest_id"`
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	PreviewText string      `json:"preview_text"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	Content     string      `json:"content"`
	CoverMedia  *CoverMedia `json:"cover_media"`
	Lifecycle   *Lifecycle  `json:"lifecycle_state"`
	Metadata    *Metadata   `json:"metadata"`
}

// CoverImageURL returns the cover image URL if present
func (a *ArticleResult) CoverImageURL() string {
	if a == nil || a.CoverMedia == nil || a.CoverMedia.MediaInfo == nil {
		return ""
	}
	return a.CoverMedia.MediaInfo.OriginalImgURL
}

// CoverMedia wraps the article's cover image info
type CoverMedia struct {
	MediaInfo *MediaInfo `json:"media_info"`
}

// MediaInfo holds the cover image URL
type MediaInfo struct {
	OriginalImgURL string `json:"original_img_url"`
}

// Lifecycle holds article modification metadata
type Lifecycle struct {
	ModifiedAtSecs int64 `json:"modified_at_secs"`
}

// Metadata holds article publication metadata
type Metadata struct {
	FirstPublishedAtSecs int64 `json:"first_published_at_secs"`
}

// Count is an engagement counter that the upstream serializes inconsistently:
// as a JSON number, or as a string possibly abbreviated like "1.2k" or
// "3,456". It decodes either form and keeps the raw text for parsing.
type Count string

// UnmarshalJSON accepts both numeric and string forms
func (c *Count) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Count(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Count(n.String())
	return nil
}

// Int64 parses the counter tolerating comma separators and k/m/b suffixes;
// anything unparseable counts as zero
func (c Count) Int64() int64 {
	v := strings.ToLower(strings.TrimSpace(string(c)))
	if v == "" {
		return 0
	}

	mult := int64(1)
	switch {
	case strings.HasSuffix(v, "k"):
		mult, v = 1_000, strings.TrimSuffix(v, "k")
	case strings.HasSuffix(v, "m"):
		mult, v = 1_000_000, strings.TrimSuffix(v, "m")
	case strings.HasSuffix(v, "b"):
		mult, v = 1_000_000_000, strings.TrimSuffix(v, "b")
	}
	v = strings.ReplaceAll(v, ",", "")

	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int64(f * float64(mult))
	}
	return 0
}
