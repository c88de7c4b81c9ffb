package types

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeCarousel MediaType = "carousel"
)

type SyncKind string

const (
	SyncKindProfile SyncKind = "profile"
	SyncKindPosts   SyncKind = "posts"
	SyncKindMetrics SyncKind = "metrics"
)

type SyncState string

const (
	SyncStateInProgress SyncState = "in_progress"
	SyncStateSuccess    SyncState = "success"
	SyncStateFailed     SyncState = "failed"
)

type ContentPostStatus string

const (
	ContentPostStatusPosted ContentPostStatus = "posted"
)
