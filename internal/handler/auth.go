package handler

import "github.com/golang-jwt/jwt/v5"

// AuthClaims 由外部会话服务签发，sub 为操作员编号，role 为 operator 或 viewer
type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
