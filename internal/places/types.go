package places

// LatLng is a coordinate pair used to bias text searches.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Response shapes of the places provider (v1 API).

type providerPlace struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string           `json:"formattedAddress"`
	Rating           float64          `json:"rating"`
	Reviews          []providerReview `json:"reviews"`
}

type providerReview struct {
	Text struct {
		Text string `json:"text"`
	} `json:"text"`
	Rating                         int    `json:"rating"`
	RelativePublishTimeDescription string `json:"relativePublishTimeDescription"`
	AuthorAttribution              struct {
		DisplayName string `json:"displayName"`
	} `json:"authorAttribution"`
}

type searchTextRequest struct {
	TextQuery      string        `json:"textQuery"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
	MaxResultCount int           `json:"maxResultCount"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type searchTextResponse struct {
	Places []providerPlace `json:"places"`
}

type providerErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
