package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveGate(t *testing.T, gate func(http.Handler) http.Handler, caller *Caller) *httptest.ResponseRecorder {
	t.Helper()
	handler := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if caller != nil {
		req = req.WithContext(ContextWithCaller(req.Context(), caller))
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestMiddlewareRejectsAnonymous(t *testing.T) {
	m := Middleware{}
	rr := serveGate(t, m.RequireAny(PrivilegeRead), nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "problem+json")
}

func TestMiddlewareRequireAny(t *testing.T) {
	m := Middleware{}
	clerk := NewCaller(7, "clerk", Subject{Roles: []Role{{Name: RoleClerk, Privileges: DefaultPrivileges(RoleClerk)}}})

	assert.Equal(t, http.StatusNoContent, serveGate(t, m.RequireAny(PrivilegeApproveArticle, PrivilegePublish), clerk).Code)
	assert.Equal(t, http.StatusForbidden, serveGate(t, m.RequireAny(PrivilegeApproveArticle), clerk).Code)
}

func TestMiddlewareRequireAll(t *testing.T) {
	m := Middleware{}
	manager := NewCaller(1, "manager", Subject{CustomPrivileges: []Privilege{PrivilegeManageUsers}})

	assert.Equal(t, http.StatusForbidden, serveGate(t, m.RequireAll(PrivilegeManageUsers, PrivilegeGrantRevoke), manager).Code)
	assert.Equal(t, http.StatusNoContent, serveGate(t, m.RequireAll(PrivilegeManageUsers), manager).Code)
}

func TestMiddlewareRequireCaller(t *testing.T) {
	m := Middleware{}
	reader := NewCaller(3, "reader", Subject{})
	assert.Equal(t, http.StatusNoContent, serveGate(t, m.RequireCaller(), reader).Code)
	assert.Equal(t, http.StatusUnauthorized, serveGate(t, m.RequireCaller(), nil).Code)
}
