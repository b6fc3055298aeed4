package dto

type TagResponse struct {
	ID        string `json:"id" example:"0192f0c4-8a3b-7cde-9f00-1a2b3c4d5e6f"`
	Name      string `json:"name" example:"Sofa"`
	CreatedAt string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

type TagListResponse struct {
	Tags  []TagResponse `json:"tags"`
	Limit int           `json:"limit" example:"2"`
}
