package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/time/rate"
)

// QuotaKey identifies the upstream API budget consumed by this client
const QuotaKey = "timeline-api"

// Gate controls access to the shared daily call budget. Consume reports
// whether one more upstream call is allowed and records it if so.
type Gate interface {
	Consume(ctx context.Context, key string) (bool, error)
}

// Config holds client configuration for the upstream list-timeline API
type Config struct {
	BaseURL      string
	APIKey       string
	APIHost      string
	MaxPages     int           // pagination ceiling per list
	Timeout      time.Duration // per-request timeout
	CallInterval time.Duration // minimum delay between successive upstream calls
}

// Client talks to the upstream paginated list API. It paces calls with a
// fixed-interval limiter and consults the quota gate before every request.
// The client never retries; retry policy belongs to the caller.
type Client struct {
	cfg     Config
	gate    Gate
	httpCli *http.Client
	limiter *rate.Limiter
}

// NewClient creates a feed client. A nil gate means no quota enforcement.
func NewClient(cfg Config, gate Gate) *Client {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CallInterval <= 0 {
		cfg.CallInterval = time.Second
	}
	return &Client{
		cfg:     cfg,
		gate:    gate,
		httpCli: &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.CallInterval), 1),
	}
}

// FetchPage retrieves one page of posts for a list. An empty cursor requests
// the first page. The returned cursor is empty when the list is exhausted.
func (c *Client) FetchPage(ctx context.Context, listID, cursor string) ([]RawPost, string, error) {
	if listID == "" {
		return nil, "", fmt.Errorf("list id is required")
	}

	params := url.Values{"listId": []string{listID}}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp timelineResponse
	if err := c.get(ctx, listID, "/list-timeline", params, &resp); err != nil {
		return nil, "", err
	}

	posts, next := resp.posts(), resp.nextCursor()
	lgr.Printf("[DEBUG] list %s: page returned %d posts, next cursor %q", listID, len(posts), truncCursor(next))
	return posts, next, nil
}

// FetchAllPages follows cursors until the list is exhausted, the page ceiling
// is reached, or a cursor repeats a previously seen value. On a mid-loop
// failure it returns the posts accumulated so far together with the error.
func (c *Client) FetchAllPages(ctx context.Context, listID string) ([]RawPost, error) {
	var all []RawPost
	seen := map[string]bool{}
	cursor := ""

	for page := 0; page < c.cfg.MaxPages; page++ {
		posts, next, err := c.FetchPage(ctx, listID, cursor)
		if err != nil {
			return all, err
		}
		all = append(all, posts...)

		if next == "" {
			break
		}
		if seen[next] {
			lgr.Printf("[WARN] list %s: cursor %q repeated, stopping pagination", listID, truncCursor(next))
			break
		}
		seen[next] = true
		cursor = next
	}

	lgr.Printf("[DEBUG] list %s: collected %d posts", listID, len(all))
	return all, nil
}

// FetchPost retrieves a single post by id for deep refetch. Returns nil
// without error when the upstream has no such post.
func (c *Client) FetchPost(ctx context.Context, postID string) (*RawPost, error) {
	if postID == "" {
		return nil, fmt.Errorf("post id is required")
	}

	var resp postResponse
	if err := c.get(ctx, "", "/tweet", url.Values{"pid": []string{postID}}, &resp); err != nil {
		return nil, err
	}
	return resp.Data.TweetResult.Result, nil
}

// get performs one paced, quota-gated GET and decodes the JSON body
func (c *Client) get(ctx context.Context, listID, path string, params url.Values, out any) error {
	if c.gate != nil {
		allowed, err := c.gate.Consume(ctx, QuotaKey)
		if err != nil {
			return fmt.Errorf("check quota: %w", err)
		}
		if !allowed {
			return &QuotaExceededError{Key: QuotaKey}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &FeedFetchError{ListID: listID, Err: err}
	}

	reqURL := c.cfg.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return &FeedFetchError{ListID: listID, Err: err}
	}
	req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", c.cfg.APIHost)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return &FeedFetchError{ListID: listID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &FeedFetchError{ListID: listID, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FeedFetchError{ListID: listID, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncCursor(cursor string) string {
	if len(cursor) > 20 {
		return cursor[:20] + "..."
	}
	return cursor
}

// timelineResponse mirrors the upstream timeline envelope. Unknown entry
// types decode into zero values and are ignored.
type timelineResponse struct {
	Data struct {
		List struct {
			TweetsTimeline struct {
				Timeline struct {
					Instructions []instruction `json:"instructions"`
				} `json:"timeline"`
			} `json:"tweets_timeline"`
		} `json:"list"`
	} `json:"data"`
}

type instruction struct {
	Type    string  `json:"type"`
	Entries []entry `json:"entries"`
}

type entry struct {
	EntryID string       `json:"entryId"`
	Content entryContent `json:"content"`
}

type entryContent struct {
	EntryType   string       `json:"entryType"`
	ItemContent *itemContent `json:"itemContent"`
	CursorType  string       `json:"cursorType"`
	Value       string       `json:"value"`
}

type itemContent struct {
	ItemType     string `json:"itemType"`
	TweetResults struct {
		Result *RawPost `json:"result"`
	} `json:"tweet_results"`
}

// posts walks the instruction entries and collects timeline tweet results in
// arrival order
func (r *timelineResponse) posts() []RawPost {
	var posts []RawPost
	for _, inst := range r.Data.List.TweetsTimeline.Timeline.Instructions {
		if inst.Type != "TimelineAddEntries" {
			continue
		}
		for _, e := range inst.Entries {
			if e.Content.EntryType != "TimelineTimelineItem" || e.Content.ItemContent == nil {
				continue
			}
			if e.Content.ItemContent.ItemType != "TimelineTweet" {
				continue
			}
			if post := e.Content.ItemContent.TweetResults.Result; post != nil {
				posts = append(posts, *post)
			}
		}
	}
	return posts
}

// nextCursor finds the bottom pagination cursor, empty when absent
func (r *timelineResponse) nextCursor() string {
	for _, inst := range r.Data.List.TweetsTimeline.Timeline.Instructions {
		if inst.Type != "TimelineAddEntries" {
			continue
		}
		for _, e := range inst.Entries {
			if e.Content.EntryType == "TimelineTimelineCursor" && e.Content.CursorType == "Bottom" {
				return e.Content.Value
			}
		}
	}
	return ""
}

type postResponse struct {
	Data struct {
		TweetResult struct {
			Result *RawPost `json:"result"`
		} `json:"tweetResult"`
	} `json:"data"`
}
