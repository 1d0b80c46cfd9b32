package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

func TestRequireRole(t *testing.T) {
	staffOnly := RequireRole(domain.RoleAdmin, domain.RoleEmployee)

	cases := []struct {
		role    string
		allowed bool
	}{
		{domain.RoleAdmin, true},
		{domain.RoleEmployee, true},
		{domain.RoleIntern, false},
		{"", false},
	}

	for _, tc := range cases {
		t.Run("role="+tc.role, func(t *testing.T) {
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/v1/conversations/pending", nil), httptest.NewRecorder())
			if tc.role != "" {
				c.Set("role", tc.role)
			}

			reached := false
			err := staffOnly(func(echo.Context) error {
				reached = true
				return nil
			})(c)

			if reached != tc.allowed {
				t.Fatalf("reached=%v, want %v", reached, tc.allowed)
			}
			if tc.allowed {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusForbidden {
				t.Fatalf("expected 403 HTTPError, got %v", err)
			}
		})
	}
}
