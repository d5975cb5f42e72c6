package domain

// RunStatus is the terminal state of one ingestion run
type RunStatus string

// run terminal states; a run completes even when individual lists failed,
// it fails only when no lists could be resolved at all
const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// UpsertStats aggregates the outcome of one batch upsert
type UpsertStats struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ListResult holds per-list counters for one ingestion run
type ListResult struct {
	ListID            string   `json:"listId"`
	PostsFound        int      `json:"postsFound"`
	ArticlesHarvested int      `json:"articlesHarvested"`
	Errors            []string `json:"errors"`
}

// RunSummary is the aggregate outcome of one ingestion run, returned by the
// orchestrator and serialized as-is by the trigger endpoint
type RunSummary struct {
	Status              RunStatus    `json:"status"`
	Inserted            int          `json:"inserted"`
	Updated             int          `json:"updated"`
	Skipped             int          `json:"skipped"`
	TotalPostsProcessed int          `json:"totalPostsProcessed"`
	TotalListsProcessed int          `json:"totalListsProcessed"`
	Lists               []ListResult `json:"lists"`
	DryRun              bool         `json:"dryRun"`
	ProcessingTimeMs    int64        `json:"processingTimeMs"`
}
