package security

import (
	"slices"

	"github.com/aryan0dhankhar/tenantsync/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermCreateTenant      Permission = "create_tenant"
	PermListTenants       Permission = "list_tenants"
	PermReadTenant        Permission = "read_tenant"
	PermReadSourceConfig  Permission = "read_source_config"
	PermWriteSourceConfig Permission = "write_source_config"
	PermReadPipeline      Permission = "read_pipeline"
	PermWritePipeline     Permission = "write_pipeline"
	PermReadHealth        Permission = "read_health"
	PermListUsers         Permission = "list_users"
	PermManageUsers       Permission = "manage_users"
)

// RolePermissions maps roles to their permissions.
// Tenant-scoped roles only ever exercise these inside their own tenant.
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: {
		PermCreateTenant,
		PermListTenants,
		PermReadTenant,
		PermReadSourceConfig,
		PermWriteSourceConfig,
		PermReadPipeline,
		PermWritePipeline,
		PermReadHealth,
		PermListUsers,
		PermManageUsers,
	},
	domain.RoleTenantAdmin: {
		PermReadTenant,
		PermReadSourceConfig,
		PermWriteSourceConfig,
		PermReadPipeline,
		PermWritePipeline,
		PermReadHealth,
		PermListUsers,
		PermManageUsers,
	},
	domain.RoleUser: {
		PermReadTenant,
		PermReadSourceConfig,
		PermReadPipeline,
		PermReadHealth,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role domain.Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetRolePermissions returns a copy of the permissions granted to role
func GetRolePermissions(role domain.Role) []Permission {
	return slices.Clone(RolePermissions[role])
}
