// Package response provides generic handlers for responses to eliminate boilerplate.
package response

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-asynchttp/message"
)

// ErrUnexpectedStatus marks errors for responses whose status code was not
// the expected one.
var ErrUnexpectedStatus = errors.New("unexpected status")

// maxErrorBody limits how much of an unexpected response is quoted in the error.
const maxErrorBody = 512

// Handle decodes a JSON response body into a new T.
// It checks for errors, validates status code (expects 200 OK), and closes the response.
//
// Usage:
//
//	resp, err := client.Do(ctx, req)
//	return response.Handle[Device](resp, err, "failed to get device")
func Handle[T any](resp *message.Response, err error, errorMsg string) (*T, error) {
	return HandleWithStatus[T](resp, err, errorMsg, http.StatusOK)
}

// HandleWithStatus is like Handle but allows specifying the expected status code.
// Use this for endpoints that return non-200 success codes (e.g., 201 Created).
func HandleWithStatus[T any](resp *message.Response, err error, errorMsg string, expectedStatus int) (*T, error) {
	if err := check(resp, err, errorMsg, expectedStatus); err != nil {
		return nil, err
	}
	defer resp.Close()

	var data T
	if err := resp.DecodeJSON(&data); err != nil {
		return nil, errors.Wrap(err, errorMsg)
	}

	return &data, nil
}

// HandleNoContent is a handler for responses whose body is not needed.
// It checks for errors, validates status code (expects 200 OK) and closes the response.
//
// Usage:
//
//	resp, err := client.Do(ctx, req)
//	return response.HandleNoContent(resp, err, "failed to delete resource")
func HandleNoContent(resp *message.Response, err error, errorMsg string) error {
	return HandleNoContentWithStatus(resp, err, errorMsg, http.StatusOK)
}

// HandleNoContentWithStatus is like HandleNoContent but allows specifying expected status code.
// Use this for DELETE endpoints that return 204 No Content.
func HandleNoContentWithStatus(resp *message.Response, err error, errorMsg string, expectedStatus int) error {
	if err := check(resp, err, errorMsg, expectedStatus); err != nil {
		return err
	}
	return errors.Wrap(resp.Close(), errorMsg)
}

// check validates the outcome of a call. On a status mismatch the response is
// consumed and closed.
func check(resp *message.Response, err error, errorMsg string, expectedStatus int) error {
	if err != nil {
		return errors.Wrap(err, errorMsg)
	}

	if resp == nil {
		return errors.Newf("%s: empty response", errorMsg)
	}

	if resp.StatusCode() == expectedStatus {
		return nil
	}

	defer resp.Close()

	statusErr := errors.Mark(
		errors.Newf("%s: status=%d, want %d", errorMsg, resp.StatusCode(), expectedStatus),
		ErrUnexpectedStatus,
	)

	if body, readErr := resp.Bytes(); readErr == nil && len(body) > 0 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		statusErr = errors.WithDetailf(statusErr, "body: %s", body)
	}

	return statusErr
}
