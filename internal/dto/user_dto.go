package dto

type UpdateUserRequest struct {
	Email          *string `json:"email" validate:"omitempty,email,max=256"`
	PhoneNumber    *string `json:"phone_number" validate:"omitempty,min=5,max=20"`
	IsAnonymous    *bool   `json:"is_anonymous"`
	HashedDeviceID *string `json:"hashed_device_id" validate:"omitempty,max=256"`
	// Admin-only fields.
	IsActive *bool   `json:"is_active"`
	TenantID *string `json:"tenant_id" validate:"omitempty,max=100"`
	ClientID *string `json:"client_id" validate:"omitempty,max=100"`
}

type RoleUpdateRequest struct {
	Role string `json:"role" validate:"required"`
}

type UserFilter struct {
	Role     string `query:"role" validate:"omitempty,role"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination Pagination     `json:"pagination"`
}
