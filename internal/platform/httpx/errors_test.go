package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/editorialhouse/newsroom/internal/shared"
)

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		shared.ErrNotFound:                       http.StatusNotFound,
		shared.ErrForbidden:                      http.StatusForbidden,
		shared.ErrConflictingState:               http.StatusConflict,
		shared.ErrInvalidArgument:                http.StatusBadRequest,
		shared.ErrUnauthenticated:                http.StatusUnauthorized,
		shared.ErrInvalidCredentials:             http.StatusUnauthorized,
		shared.Internal(errors.New("disk full")): http.StatusInternalServerError,
		fmt.Errorf("x: %w", shared.ErrForbidden): http.StatusForbidden,
	}
	for err, want := range cases {
		require.Equal(t, want, StatusOf(err), err.Error())
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.Internal(errors.New("password=hunter2")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.NotContains(t, rec.Body.String(), "hunter2")

	rec = httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("%w: article 9", shared.ErrNotFound))
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, http.StatusNotFound, problem.Status)
	require.Contains(t, problem.Detail, "article 9")
}

type bindTarget struct {
	Name string `json:"name" validate:"required"`
}

func TestBind(t *testing.T) {
	v := validator.New()
	bind := func(body string) (bindTarget, error) {
		var out bindTarget
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return out, Bind(req, v, &out)
	}

	out, err := bind(`{"name":"ok"}`)
	require.NoError(t, err)
	require.Equal(t, "ok", out.Name)

	_, err = bind(`{}`)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = bind(`{"name":"x","extra":1}`)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestIDParam(t *testing.T) {
	parse := func(raw string) (int64, error) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", raw)
		req = req.WithContext(chiContext(req, rctx))
		return IDParam(req, "id")
	}
	id, err := parse("12")
	require.NoError(t, err)
	require.EqualValues(t, 12, id)
	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parse(bad)
		require.ErrorIs(t, err, shared.ErrInvalidArgument, bad)
	}
}

func chiContext(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}
