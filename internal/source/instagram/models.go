package instagram

// discoveryResponse is the Graph API business_discovery payload.
type discoveryResponse struct {
	ID                string    `json:"id"`
	BusinessDiscovery *business `json:"business_discovery"`
}

type business struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Name              string     `json:"name"`
	Website           string     `json:"website"`
	ProfilePictureURL string     `json:"profile_picture_url"`
	FollowersCount    int64      `json:"followers_count"`
	MediaCount        int64      `json:"media_count"`
	Media             *mediaPage `json:"media"`
}

type mediaPage struct {
	Data []media `json:"data"`
}

type media struct {
	ID               string     `json:"id"`
	Caption          *string    `json:"caption"`
	LikeCount        *int64     `json:"like_count"`
	CommentsCount    int64      `json:"comments_count"`
	Timestamp        string     `json:"timestamp"`
	MediaProductType string     `json:"media_product_type"`
	MediaType        string     `json:"media_type"`
	Permalink        string     `json:"permalink"`
	MediaURL         string     `json:"media_url"`
	ThumbnailURL     string     `json:"thumbnail_url"`
	Children         *mediaPage `json:"children"`
}

const (
	productFeed  = "FEED"
	productReels = "REELS"

	typeImage    = "IMAGE"
	typeVideo    = "VIDEO"
	typeCarousel = "CAROUSEL_ALBUM"
)
