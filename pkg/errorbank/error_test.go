package errorbank

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestStatusCodes(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, BadRequest("bad").StatusCode())
	require.Equal(t, http.StatusNotFound, NotFound("missing").StatusCode())
	require.Equal(t, http.StatusConflict, Conflict("clash").StatusCode())
	require.Equal(t, http.StatusUnprocessableEntity, Unprocessable("nope").StatusCode())
	require.Equal(t, http.StatusInternalServerError, Internal("boom").StatusCode())
}

func TestGRPCCodes(t *testing.T) {
	require.Equal(t, codes.InvalidArgument, BadRequest("bad").GRPCCode())
	require.Equal(t, codes.NotFound, NotFound("missing").GRPCCode())
	require.Equal(t, codes.AlreadyExists, Conflict("clash").GRPCCode())
	require.Equal(t, codes.Internal, Internal("boom").GRPCCode())
}

func TestStaleStatus(t *testing.T) {
	appErr := StaleStatus(1)

	require.Equal(t, KindConflict, appErr.Kind())
	require.Equal(t, http.StatusConflict, appErr.StatusCode())
	require.Equal(t, "status do pedido foi alterado por outro usuario", appErr.Message())

	actual, ok := appErr.Detail(DetailStatusAtual)
	require.True(t, ok)
	require.Equal(t, 1, actual)
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("driver: bad connection")
	appErr := From(cause)

	require.Equal(t, KindInternal, appErr.Kind())
	require.ErrorIs(t, appErr, cause)
}

func TestFromPreservesAppErrorThroughWrapping(t *testing.T) {
	inner := NotFound("pedido nao encontrado")
	wrapped := Internal("lookup failed", WithCause(inner))

	require.Same(t, inner, From(errors.Unwrap(wrapped)))
	require.Equal(t, KindInternal, From(wrapped).Kind())
}

func TestWithDetailsMerges(t *testing.T) {
	appErr := New(KindBadRequest, "invalid payload",
		WithDetail("campo", "qt"),
		WithDetails(map[string]any{"minimo": 1}),
	)

	details := appErr.Details()
	require.Equal(t, "qt", details["campo"])
	require.Equal(t, 1, details["minimo"])
}
