package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"ideaportal/internal/model"
	"ideaportal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRoles struct {
	err error
}

func (s stubRoles) ListRoles(context.Context) ([]service.RoleResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []service.RoleResponse{
		{ID: model.RoleWorkstreamLeader, Name: "Workstream Leader", ApprovalLevel: 1, Scope: model.ScopeDepartment},
	}, nil
}

func (stubRoles) SeedDefaultRoles(context.Context) error { return nil }

func TestListRolesEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewRoleHandler(stubRoles{}).RegisterRoutes(&r.RouterGroup, fakeAuth(uuid.New(), 0))

	w, env := do(r, http.MethodGet, "/api/roles", "")
	require.Equal(t, http.StatusOK, w.Code)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var got []service.RoleResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 1)
	assert.Equal(t, model.RoleWorkstreamLeader, got[0].ID)
	assert.Equal(t, model.ScopeDepartment, got[0].Scope)

	r = gin.New()
	NewRoleHandler(stubRoles{err: errors.New("db down")}).RegisterRoutes(&r.RouterGroup, fakeAuth(uuid.New(), 0))
	w, _ = do(r, http.MethodGet, "/api/roles", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
