package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestProfileEndpoint verifies /auth/me reflects the signed-in account and
// rejects anonymous requests.
func TestProfileEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(t, baseURL)
	registerUser(t, client, "profile@skillbase.test", "Profile123!", "Pat Profile")
	login(t, client, "profile@skillbase.test", "Profile123!")

	var profile profileResponse
	status := client.do(t, http.MethodGet, "/auth/me", nil, &profile)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "profile@skillbase.test", profile.Email)
	require.Equal(t, "Pat Profile", profile.FullName)
	require.Equal(t, "student", profile.Role, "New accounts start as students")
	require.False(t, profile.MFAEnabled)

	// Update the display name.
	status = client.do(t, http.MethodPut, "/auth/me", map[string]string{
		"full_name": "Patricia Profile",
	}, &profile)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Patricia Profile", profile.FullName)

	// Anonymous requests are rejected.
	anon := newAPIClient(t, baseURL)
	status = anon.do(t, http.MethodGet, "/auth/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

// TestOwnerCanImpersonateAndChangeRoles exercises the seeded owner account
// against the admin endpoints.
func TestOwnerCanImpersonateAndChangeRoles(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	student := newAPIClient(t, baseURL)
	studentID := registerUser(t, student, "target@skillbase.test", "Target123!", "Tara Target")

	owner := newAPIClient(t, baseURL)
	login(t, owner, ownerEmail, ownerPassword)

	// Impersonate the student.
	var tokens tokenResponse
	status := owner.do(t, http.MethodPost, "/admin/users/"+studentID+"/impersonate", nil, &tokens)
	require.Equal(t, http.StatusOK, status)
	assertTokenResponse(t, tokens)

	// The impersonation access token acts as the student.
	asStudent := newAPIClient(t, baseURL)
	asStudent.accessToken = tokens.AccessToken
	var profile profileResponse
	status = asStudent.do(t, http.MethodGet, "/auth/me", nil, &profile)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "target@skillbase.test", profile.Email)

	// Rotating the impersonation session keeps the one-hour cookie, not the
	// regular seven-day one.
	req, err := http.NewRequest(http.MethodPost, baseURL+"/auth/refresh", nil)
	require.NoError(t, err)
	resp, err := owner.http.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rotated *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			rotated = c
		}
	}
	require.NotNil(t, rotated, "refresh should re-set the cookie")
	require.Greater(t, rotated.MaxAge, 0)
	require.LessOrEqual(t, rotated.MaxAge, 3600)

	// Promote the student to instructor.
	status = owner.do(t, http.MethodPut, "/admin/users/"+studentID+"/role", map[string]string{
		"role": "instructor",
	}, nil)
	require.Equal(t, http.StatusNoContent, status)

	// The audit trail recorded both actions.
	var logs []map[string]any
	status = owner.do(t, http.MethodGet, "/admin/audit-logs?target_id="+studentID, nil, &logs)
	require.Equal(t, http.StatusOK, status)

	actions := make(map[string]bool)
	for _, entry := range logs {
		if action, ok := entry["action"].(string); ok {
			actions[action] = true
		}
	}
	require.True(t, actions["impersonation_start"], "Impersonation should be audited")
	require.True(t, actions["role_changed"], "Role change should be audited")
}

// TestStudentCannotUseAdminEndpoints verifies the role gate on /admin.
func TestStudentCannotUseAdminEndpoints(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(t, baseURL)
	registerUser(t, client, "peon@skillbase.test", "Peon1234!ok", "Pea On")
	login(t, client, "peon@skillbase.test", "Peon1234!ok")

	status := client.do(t, http.MethodGet, "/admin/audit-logs", nil, nil)
	require.Equal(t, http.StatusForbidden, status)

	status = client.do(t, http.MethodPost, "/admin/users/someone/impersonate", nil, nil)
	require.Equal(t, http.StatusForbidden, status)
}

// TestHealthEndpoints verifies both probes answer before any traffic.
func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(t, baseURL)

	var health struct {
		Status string `json:"status"`
	}
	status := client.do(t, http.MethodGet, "/livez", nil, &health)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", health.Status)

	status = client.do(t, http.MethodGet, "/readyz", nil, &health)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", health.Status)
}
