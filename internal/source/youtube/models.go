package youtube

// channelsResponse is the subset of the Data API channels.list payload the
// profile refresh reads.
type channelsResponse struct {
	Items []channel `json:"items"`
}

type channel struct {
	ID               string           `json:"id"`
	Snippet          snippet          `json:"snippet"`
	Statistics       statistics       `json:"statistics"`
	BrandingSettings brandingSettings `json:"brandingSettings"`
}

type snippet struct {
	Title      string               `json:"title"`
	CustomURL  string               `json:"customUrl"`
	Thumbnails map[string]thumbnail `json:"thumbnails"`
}

type thumbnail struct {
	URL string `json:"url"`
}

type statistics struct {
	SubscriberCount       string `json:"subscriberCount"`
	HiddenSubscriberCount bool   `json:"hiddenSubscriberCount"`
}

type brandingSettings struct {
	Image struct {
		BannerExternalURL string `json:"bannerExternalUrl"`
	} `json:"image"`
}
