package domain

// Domain contains the wire models shared with the news backend.

// ArticleResponse is the success body of the scrape endpoint.
type ArticleResponse struct {
	Success bool `json:"success"`
	News    News `json:"news"`
}

// News is the reframed article returned by the backend.
// Content carries HTML markup; Timestamp is an ISO-8601 date string.
type News struct {
	Headline  string `json:"headline"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ErrorBody is the optional body of non-2xx backend responses.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
