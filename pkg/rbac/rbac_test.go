package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserPermissions(t *testing.T) {
	assert.True(t, HasPermission(RoleUser, PermissionReadDraft))
	assert.True(t, HasPermission(RoleUser, PermissionApproveDraft))
	assert.True(t, HasPermission(RoleUser, PermissionRateDraft))

	assert.False(t, HasPermission(RoleUser, PermissionReplayOutbox))
	assert.False(t, HasPermission(RoleUser, PermissionRunPipeline))
}

func TestAdminPermissions(t *testing.T) {
	assert.True(t, HasPermission(RoleAdmin, PermissionReplayOutbox))
	assert.True(t, HasPermission(RoleAdmin, PermissionRunPipeline))
	assert.True(t, HasPermission(RoleAdmin, PermissionApproveDraft))
}

func TestUnknownRole(t *testing.T) {
	assert.False(t, HasPermission("ghost", PermissionReadDraft))
}

func TestCheckPermission(t *testing.T) {
	assert.NoError(t, CheckPermission(RoleAdmin, PermissionReplayOutbox))

	err := CheckPermission(RoleUser, PermissionReplayOutbox)
	assert.Error(t, err)

	var denied *PermissionDeniedError
	assert.ErrorAs(t, err, &denied)
	assert.Equal(t, RoleUser, denied.Role)
	assert.Equal(t, PermissionReplayOutbox, denied.Permission)
}
