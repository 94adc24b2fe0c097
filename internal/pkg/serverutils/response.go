package serverutils

// BaseResponse is the JSON envelope of every API response.
type BaseResponse[T any] struct {
	Success          bool   `json:"success"`
	Code             int    `json:"code"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error_code,omitempty"`
	Data             T      `json:"data,omitempty"`
	RemainingActions *int   `json:"remaining_actions,omitempty"`
	Limit            *int   `json:"limit,omitempty"`
}

func SuccessResponse[T any](message string, data T) *BaseResponse[T] {
	return &BaseResponse[T]{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) *BaseResponse[any] {
	return &BaseResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// WithRemaining sets the top-level remaining_actions the client cache syncs from.
func (r *BaseResponse[T]) WithRemaining(remaining int) *BaseResponse[T] {
	r.RemainingActions = &remaining
	return r
}

func (r *BaseResponse[T]) WithErrorCode(errorCode string) *BaseResponse[T] {
	r.ErrorCode = errorCode
	return r
}

func (r *BaseResponse[T]) WithLimit(limit int) *BaseResponse[T] {
	r.Limit = &limit
	return r
}
