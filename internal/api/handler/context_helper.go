package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"exam-proctor/pkg/jwt"
	"exam-proctor/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	return id, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// resolveActor 确定本次操作针对的用户：
// requested 为 0 时取当前登录用户；proctor 角色只能以本人身份操作
func resolveActor(c *gin.Context, requested int64) (int64, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return 0, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return 0, false
	}
	if requested == 0 || requested == userID {
		return userID, true
	}
	if role == jwt.RoleProctor {
		response.Forbidden(c, 10003, "只能以本人身份操作")
		return 0, false
	}
	return requested, true
}

// mustGetProctorParam 解析路径中的 :user_id，并校验本人或管理角色
func mustGetProctorParam(c *gin.Context) (int64, bool) {
	target, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || target <= 0 {
		response.BadRequest(c, 10001, "user_id 无效")
		return 0, false
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return 0, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return 0, false
	}
	if target != userID && !jwt.IsStaff(role) {
		response.Forbidden(c, 10003, "无权查看他人的监考安排")
		return 0, false
	}
	return target, true
}
