package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/compralink/procura/pkg/errorbank"
)

func record(t *testing.T, build func(b *Builder) *Builder) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	require.NoError(t, build(New(ctx)).Build())
	return rec
}

func TestBuild_BarePayload(t *testing.T) {
	rec := record(t, func(b *Builder) *Builder {
		return b.WithData([]map[string]any{{"id": 1001, "nome": "Papel A4"}})
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[{"id":1001,"nome":"Papel A4"}]`, rec.Body.String())
}

func TestBuild_SuccessEnvelope(t *testing.T) {
	rec := record(t, func(b *Builder) *Builder {
		return b.WithStatus(http.StatusCreated)
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestBuild_SuccessWithMessage(t *testing.T) {
	rec := record(t, func(b *Builder) *Builder {
		return b.WithMessage("pedido 200 enviado para aprovacao")
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"message":"pedido 200 enviado para aprovacao"}`, rec.Body.String())
}

func TestBuild_ErrorStatusFromKind(t *testing.T) {
	rec := record(t, func(b *Builder) *Builder {
		return b.WithError(errorbank.NotFound("pedido nao encontrado"))
	})

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"pedido nao encontrado"}`, rec.Body.String())
}

func TestBuild_ConflictCarriesDetails(t *testing.T) {
	rec := record(t, func(b *Builder) *Builder {
		return b.WithError(errorbank.StaleStatus(1))
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"status do pedido foi alterado por outro usuario","statusAtual":1}`, rec.Body.String())
}

func TestBuild_UnknownErrorIsInternal(t *testing.T) {
	rec := record(t, func(b *Builder) *Builder {
		return b.WithError(echo.ErrForbidden)
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
