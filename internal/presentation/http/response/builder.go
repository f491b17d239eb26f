package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/compralink/procura/pkg/errorbank"
)

// Builder constructs HTTP responses in the portal's wire format: read
// endpoints return their payload bare, mutations return {"success": true}
// with an optional message, and failures return {"error": ...} plus any
// error details (a stale transition carries statusAtual).
type Builder struct {
	ctx     echo.Context
	status  int
	data    any
	message string
	err     error
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a payload to be rendered as-is.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithMessage attaches a human-readable message to a success response.
func (b *Builder) WithMessage(message string) *Builder {
	b.message = message
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if b.err != nil {
		return b.buildError()
	}
	return b.buildSuccess()
}

func (b *Builder) buildSuccess() error {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	if b.data != nil {
		return b.ctx.JSON(b.status, b.data)
	}
	payload := struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
	}{
		Success: true,
		Message: b.message,
	}
	return b.ctx.JSON(b.status, payload)
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}

	payload := map[string]any{"error": appErr.Message()}
	for k, v := range appErr.Details() {
		payload[k] = v
	}

	return b.ctx.JSON(status, payload)
}
