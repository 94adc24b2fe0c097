package dto

import "time"

type UpsertModelConfigRequest struct {
	Feature string `json:"feature" validate:"required,oneof=correction translation"`
	Tier    string `json:"tier" validate:"required,oneof=free starter pro"`
	Model   string `json:"model" validate:"required,max=255"`
}

type ModelConfigResponse struct {
	Feature   string    `json:"feature"`
	Tier      string    `json:"tier"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}
