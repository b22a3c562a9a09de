package v1

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ProblemDetails is the body of every error response.
type ProblemDetails struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("%d %s: %s", p.Status, p.Title, p.Detail)
}

func newProblem(status int, detail string) *ProblemDetails {
	title := http.StatusText(status)
	if status == http.StatusUnprocessableEntity {
		title = "Invalid Request"
	}
	if title == "" {
		title = "Error"
	}
	return &ProblemDetails{Title: title, Detail: detail, Status: status}
}

func validationProblem(detail string) *ProblemDetails {
	return newProblem(http.StatusUnprocessableEntity, detail)
}

// HTTPErrorHandler renders any handler error as ProblemDetails.
// Errors that are neither *ProblemDetails nor *echo.HTTPError become a bare 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var problem *ProblemDetails
	switch e := err.(type) {
	case *ProblemDetails:
		problem = e
	case *echo.HTTPError:
		detail := http.StatusText(e.Code)
		if msg, ok := e.Message.(string); ok && msg != "" {
			detail = msg
		}
		problem = newProblem(e.Code, detail)
		if e.Internal != nil {
			slog.Debug("request rejected", "status", e.Code, "error", e.Internal)
		}
	default:
		slog.Error("unhandled request error",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
		problem = newProblem(http.StatusInternalServerError, "Internal server error")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(problem.Status)
	} else {
		writeErr = c.JSON(problem.Status, problem)
	}
	if writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
}
