package domain

import "time"

// Checkpoint is the most recent leading item observed for a platform.
type Checkpoint struct {
	Platform   Platform  `db:"platform"`
	LastSeenID string    `db:"last_seen_id"`
	LastRunAt  time.Time `db:"last_run_at"`
	CreatedAt  time.Time `db:"created_at"`
}

// Empty reports whether no leading item has been recorded yet.
func (c *Checkpoint) Empty() bool {
	return c == nil || c.LastSeenID == ""
}

// ProfileSnapshot is the singleton per-platform profile row. It is
// overwritten on every successful refresh.
type ProfileSnapshot struct {
	Platform        Platform  `db:"platform" json:"platform"`
	Handle          string    `db:"handle" json:"handle"`
	ProfileURL      string    `db:"profile_url" json:"profile_url"`
	AvatarURL       string    `db:"avatar_url" json:"avatar_url"`
	AvatarPath      string    `db:"avatar_path" json:"avatar_path,omitempty"`
	BannerURL       string    `db:"banner_url" json:"banner_url"`
	FollowerCount   int64     `db:"follower_count" json:"follower_count"`
	FollowerDisplay string    `db:"follower_display" json:"follower_display"`
	FetchedAt       time.Time `db:"fetched_at" json:"fetched_at"`
}

// SyncState is the phase a sync cycle is in.
type SyncState string

const (
	StateFetching  SyncState = "fetching"
	StateDiffing   SyncState = "diffing"
	StateUpserting SyncState = "upserting"
	StateAdvancing SyncState = "advancing"
	StateDone      SyncState = "done"
	StateAborted   SyncState = "aborted"
)

// SyncStats holds statistics about a sync operation.
type SyncStats struct {
	RunID              string
	Platform           Platform
	State              SyncState
	Fetched            int
	New                int
	Updated            int
	Skipped            int
	MediaFailures      int
	Errors             int
	Published          int
	LeadingID          string
	CheckpointAdvanced bool
	Duration           time.Duration
}
