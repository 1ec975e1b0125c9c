package rbac

// 权限常量
const (
	// 草稿审批权限
	PermissionApproveDraft = "draft:approve"
	PermissionRejectDraft  = "draft:reject"
	PermissionEditDraft    = "draft:edit"
	PermissionRateDraft    = "draft:rate"
	PermissionRestoreDraft = "draft:restore"
	PermissionDismissDraft = "draft:dismiss"

	// 普通操作权限
	PermissionReadDraft = "draft:read"
	PermissionReadEmail = "email:read"
	PermissionReadUsage = "usage:read"

	// 管理操作权限
	PermissionReplayOutbox = "outbox:replay"
	PermissionRunPipeline  = "pipeline:run"
)

// 角色常量
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadDraft,
		PermissionReadEmail,
		PermissionReadUsage,
		PermissionApproveDraft,
		PermissionRejectDraft,
		PermissionEditDraft,
		PermissionRateDraft,
		PermissionRestoreDraft,
		PermissionDismissDraft,
	},
	RoleAdmin: {
		PermissionReadDraft,
		PermissionReadEmail,
		PermissionReadUsage,
		PermissionApproveDraft,
		PermissionRejectDraft,
		PermissionEditDraft,
		PermissionRateDraft,
		PermissionRestoreDraft,
		PermissionDismissDraft,
		PermissionReplayOutbox,
		PermissionRunPipeline,
	},
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查角色是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
