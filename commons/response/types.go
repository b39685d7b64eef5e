package response

type StatusEnum string

const (
	StatusSuccess StatusEnum = "SUCCESS"
	StatusFailed  StatusEnum = "FAILED"
)

// StandardResponse is the envelope of every admin API response
type StandardResponse struct {
	Status    StatusEnum `json:"status"`
	ErrorCode int        `json:"errorCode"`
	Message   string     `json:"message"`
	RequestID string     `json:"requestId,omitempty"`
	Data      any        `json:"data"`
	Errors    []Errors   `json:"errors"`
}

type Errors struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
}

func Success(requestID string, data any) StandardResponse {
	return StandardResponse{
		Status:    StatusSuccess,
		Message:   "Success",
		RequestID: requestID,
		Data:      data,
		Errors:    []Errors{},
	}
}

// Failure builds a failed envelope. The first error supplies the top-level
// code and message; an empty list reports a generic internal error.
func Failure(requestID string, data any, errs []Errors) StandardResponse {
	resp := StandardResponse{
		Status:    StatusFailed,
		ErrorCode: 500,
		Message:   "Internal server error",
		RequestID: requestID,
		Data:      data,
		Errors:    errs,
	}
	if len(errs) > 0 {
		resp.ErrorCode = errs[0].ErrorCode
		resp.Message = errs[0].Message
	} else {
		resp.Errors = []Errors{}
	}
	return resp
}
