package api

type GenerateDeckRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"user_id"`
}

type GenerateDeckResponse struct {
	DeckID     string `json:"deck_id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	SlideCount int    `json:"slide_count"`
	Theme      string `json:"theme"`
}

type EditDeckRequest struct {
	Request string `json:"request"`
}

type EditDeckResponse struct {
	DeckID     string `json:"deck_id"`
	Title      string `json:"title"`
	SlideCount int    `json:"slide_count"`
}

type UploadImageResponse struct {
	ImageURL   string `json:"image_url"`
	SlideIndex int    `json:"slide_index"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
