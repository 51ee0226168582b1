package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	ValidationErrorType = "validation_failed"
	DecodingErrorType   = "decoding_failed"
	ServiceErrorType    = "service_error"
)

const validationFailedMessage = "Request validation failed"

var validate = newValidator()

type Struct any

// Every response has the same shape, success or not
type Envelope struct {
	StatusCode int        `json:"statusCode"`
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	Data       any        `json:"data"`
	Error      *ErrorBody `json:"error"`
}

type ErrorBody struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Render data with 200 status
func JSON(w http.ResponseWriter, data any, message string) {
	JSONWithStatus(w, data, message, http.StatusOK)
}

func JSONWithStatus(w http.ResponseWriter, data any, message string, code int) {
	jsonWithStatus(w, Envelope{
		StatusCode: code,
		Success:    true,
		Message:    message,
		Data:       data,
	}, code)
}

// Render ServiceError
func ServiceError(w http.ResponseWriter, message string, code int) {
	failure(w, ErrorBody{Type: ServiceErrorType, Message: message}, code)
}

// Render json DecodeError
func DecodeError(w http.ResponseWriter, err error) {
	body := ErrorBody{Type: DecodingErrorType}

	// Try to provide more specific error message based on error type
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		body.Message = fmt.Sprintf("Invalid data type for field '%s'", typeErr.Field)
	default:
		body.Message = fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}

	failure(w, body, http.StatusBadRequest)
}

// Render multipart form DecodeError
func FormDecodeError(w http.ResponseWriter, err error) {
	body := ErrorBody{Type: DecodingErrorType, Message: fmt.Sprintf("Failed to parse form: %s", err.Error())}
	failure(w, body, http.StatusBadRequest)
}

// Render ValidationErrors with the default message
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	ValidationErrorsWithMessage(w, validationFailedMessage, errs)
}

func ValidationErrorsWithMessage(w http.ResponseWriter, message string, errs validator.ValidationErrors) {
	fields := make(map[string]string, len(errs))

	// Create user-friendly error messages based on validation tag
	for _, fieldError := range errs {
		var msg string
		switch fieldError.Tag() {
		case "required", "notblank":
			msg = "This field is required"
		case "required_without":
			msg = fmt.Sprintf("This field is required if %s is not set", fieldError.Param())
		case "min":
			msg = fmt.Sprintf("Value is too short (minimum %s)", fieldError.Param())
		case "email":
			msg = "Must be a valid email"
		case "date":
			msg = "Must be a date in format YYYY-MM-DD"
		default:
			msg = "Invalid value"
		}

		fields[fieldError.Field()] = msg
	}

	FieldErrors(w, message, fields)
}

// Render validation failure for checks made by hand
func FieldErrors(w http.ResponseWriter, message string, fields map[string]string) {
	failure(w, ErrorBody{Type: ValidationErrorType, Message: message, Fields: fields}, http.StatusBadRequest)
}

// BindAndValidate decodes JSON request body into type T and validates it using struct tags.
// Returns the decoded value and writes appropriate error responses for decoding or validation failures.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	return BindAndValidateWithMessage[T](w, r, validationFailedMessage)
}

// Same as BindAndValidate with custom top level validation message
func BindAndValidateWithMessage[T Struct](w http.ResponseWriter, r *http.Request, message string) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		DecodeError(w, err)
		return value, err
	}

	return value, ValidateWithMessage(w, message, value)
}

// Validate already filled struct, writes validation failure response if any
func Validate(w http.ResponseWriter, value any) error {
	return ValidateWithMessage(w, validationFailedMessage, value)
}

func ValidateWithMessage(w http.ResponseWriter, message string, value any) error {
	err := validate.Struct(value)
	if err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return err
		}
		ValidationErrorsWithMessage(w, message, errs)
		return err
	}

	return nil
}

func failure(w http.ResponseWriter, body ErrorBody, code int) {
	jsonWithStatus(w, Envelope{
		StatusCode: code,
		Success:    false,
		Message:    body.Message,
		Error:      &body,
	}, code)
}

// renderJSONWithStatus sends data as json and enforces status code
func jsonWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
