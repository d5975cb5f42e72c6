package domain

import "time"

// List represents one external list feed in the registry
type List struct {
	ID            int64      `json:"id"`
	ListID        string     `json:"listId"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Active        bool       `json:"active"`
	LastScannedAt *time.Time `json:"lastScannedAt,omitempty"`
	ArticlesFound int        `json:"articlesFound"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
