package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/praisehq/praise/internal/shared"
)

func requestWithIdentity(perms ...string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/periods", nil)
	identity := &shared.Identity{UserID: uuid.New(), Username: "tester", Permissions: perms}
	return req.WithContext(shared.ContextWithIdentity(req.Context(), identity))
}

func TestRequireAnyAllowsMatchingPermission(t *testing.T) {
	var called bool
	handler := Middleware{}.RequireAny(PermPeriodView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, requestWithIdentity(PermPeriodView, PermPraiseGive))

	require.True(t, called)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireAnyRejectsMissingPermission(t *testing.T) {
	handler := Middleware{}.RequireAny(PermPeriodAssign)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, requestWithIdentity(PermPeriodView))

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequireAnyRejectsAnonymous(t *testing.T) {
	handler := Middleware{}.RequireAny(PermPeriodView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/periods", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPermissionsForRolesStacksWithoutDuplicates(t *testing.T) {
	perms := PermissionsForRoles([]string{"USER", "ADMIN", "QUANTIFIER"})

	set := make(map[string]int)
	for _, p := range perms {
		set[p]++
	}
	require.Equal(t, 1, set[PermPeriodView], "duplicate permissions must collapse")
	require.Equal(t, 1, set[PermPraiseQuantify])
	require.Equal(t, 1, set[PermPeriodAssign])
}
