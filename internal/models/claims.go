package models

import "github.com/golang-jwt/jwt/v5"

// Admin permissions
const (
	PermissionSettlementRun  = "settlement:run"
	PermissionSettlementRead = "settlement:read"
	PermissionMerchantWrite  = "merchant:write"
	PermissionVoucherWrite   = "voucher:write"
)

// AdminClaims are the JWT claims carried by admin API tokens.
type AdminClaims struct {
	jwt.RegisteredClaims
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HasPermission checks if the claims include a specific permission.
func (c *AdminClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
