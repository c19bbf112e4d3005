package response

import (
	"math/rand/v2"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
)

var notFoundMessages = []string{
	"Nothing here, the note may have been deleted",
	"This page wandered off",
	"No such thing, try the search instead",
	"404: the slug points nowhere",
	"It was here a moment ago. Probably.",
}

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

type pagedBody struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	OK      int    `json:"ok"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Fail aborts the request with an ErrorBody.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Code: status, Message: message})
}

// OK writes data with 200. Slices are wrapped as {"data": [...]}.
func OK(c *gin.Context, data any) {
	if data != nil && reflect.ValueOf(data).Kind() == reflect.Slice {
		data = gin.H{"data": data}
	}
	c.JSON(http.StatusOK, data)
}

func Paged(c *gin.Context, data any, p Pagination) {
	c.JSON(http.StatusOK, pagedBody{Data: data, Pagination: p})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context) {
	Fail(c, http.StatusUnauthorized, "authentication required")
}

func Forbidden(c *gin.Context) {
	Fail(c, http.StatusForbidden, "you are not allowed to do this")
}

func ForbiddenMsg(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, message)
}

// NotFound answers with one of the stock 404 messages.
func NotFound(c *gin.Context) {
	Fail(c, http.StatusNotFound, notFoundMessages[rand.IntN(len(notFoundMessages))])
}

func NotFoundMsg(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, message)
}

// InternalError attaches err to the context for the access log and answers
// with a generic 500; the cause is never sent to the client.
func InternalError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	Fail(c, http.StatusInternalServerError, "internal server error")
}

func UnprocessableEntity(c *gin.Context, message string) {
	Fail(c, http.StatusUnprocessableEntity, message)
}

func Conflict(c *gin.Context, message string) {
	Fail(c, http.StatusConflict, message)
}
