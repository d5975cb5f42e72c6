package domain

import "time"

// Article represents one long-form piece of content harvested from a single
// external post. ExternalPostID is the upstream platform's stable post id and
// the sole deduplication key.
type Article struct {
	ID             int64  `json:"id"`
	ExternalPostID string `json:"externalPostId"`

	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Content  string `json:"content"`
	Excerpt  string `json:"excerpt"`
	Language string `json:"language,omitempty"`

	AuthorName      string `json:"authorName"`
	AuthorHandle    string `json:"authorHandle"`
	AuthorAvatarURL string `json:"authorAvatarUrl,omitempty"`

	ArticleURL string `json:"articleUrl"`
	SourceType string `json:"sourceType"`
	ListID     string `json:"listId"`

	FeaturedImageURL string `json:"featuredImageUrl,omitempty"`

	Views     int64 `json:"views"`
	Likes     int64 `json:"likes"`
	Retweets  int64 `json:"retweets"`
	Replies   int64 `json:"replies"`
	Bookmarks int64 `json:"bookmarks"`

	PublishedAt time.Time `json:"publishedAt"`
	// PublishedAtGuessed marks articles where the upstream payload carried no
	// creation timestamp and the local clock was used instead.
	PublishedAtGuessed bool `json:"publishedAtGuessed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// enrichment fields, written by the summarizer after ingestion
	Summary    string     `json:"summary,omitempty"`
	Category   string     `json:"category,omitempty"`
	EnrichedAt *time.Time `json:"enrichedAt,omitempty"`
}

// SourceTypeListIngest marks articles harvested from list feeds, as opposed to
// manually inserted ones.
const SourceTypeListIngest = "list-ingest"

// Changed reports whether the candidate differs from the stored article in any
// field the upsert engine considers material. Identity, slug and bookkeeping
// timestamps are excluded.
func (a *Article) Changed(other *Article) bool {
	return a.Title != other.Title ||
		a.Content != other.Content ||
		a.Excerpt != other.Excerpt ||
		a.FeaturedImageURL != other.FeaturedImageURL ||
		a.Views != other.Views ||
		a.Likes != other.Likes ||
		a.Retweets != other.Retweets ||
		a.Replies != other.Replies ||
		a.Bookmarks != other.Bookmarks
}
