package models

// Request bodies for the /api/ai endpoints.

type GenerateArticleRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length"`
}

type GenerateBlogTitleRequest struct {
	Prompt string `json:"prompt"`
}

type GenerateImageRequest struct {
	Prompt  string `json:"prompt"`
	Publish bool   `json:"publish"`
}
