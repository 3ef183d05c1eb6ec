// Package response defines the JSON envelope shared by all API handlers.
package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Error:   "Empty Request Body",
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Error:   "Bad Request",
	Message: "The request could not be processed. Check the request body.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Error:   "Resource Not Found",
	Message: "The requested resource was not found.",
}

var UnauthorizedResponse = Response{
	Status:  StatusError,
	Error:   "Unauthorized",
	Message: "Authentication is required to access this resource.",
}

var TooManyRequestsResponse = Response{
	Status:  StatusError,
	Error:   "Too Many Requests",
	Message: "Rate limit exceeded. Please try again later.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Error:   "Server Error",
	Message: "An internal server error occurred. Please try again later.",
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 && data[0] != nil {
		resp.Data = data[0]
	}

	return resp
}

// ErrorResponse builds a one-off error envelope for cases without a canned var.
func ErrorResponse(errTitle, msg string) Response {
	return Response{
		Status:  StatusError,
		Error:   errTitle,
		Message: msg,
	}
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func getValidationErrors(err error) []validationError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	errs := make([]validationError, 0, len(validationErrs))

	for _, err := range validationErrs {
		issue := "Invalid value."

		switch err.Tag() {
		case "required":
			issue = "This field is required."
		case "url":
			issue = "Invalid url."
		case "email":
			issue = "Invalid email."
		case "min":
			issue = fmt.Sprintf("Must be at least %s characters long.", err.Param())
		case "max":
			issue = fmt.Sprintf("Must be at most %s characters long.", err.Param())
		}

		errs = append(errs, validationError{
			Field: err.Field(),
			Value: err.Value(),
			Issue: issue,
		})
	}

	return errs
}

func ValidationErrorResponse(err error) Response {
	resp := Response{
		Status:  StatusError,
		Error:   "Validation Error",
		Message: "The request contains invalid data. Check the details.",
	}

	for _, e := range getValidationErrors(err) {
		resp.Details = append(resp.Details, e)
	}

	return resp
}
