package handler

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"exam-proctor/internal/model"
)

// RegisterValidators 向 gin 的校验引擎注册自定义规则，启动时调用一次
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 校验引擎不是 validator.Validate")
	}
	return v.RegisterValidation("attendance_role", func(fl validator.FieldLevel) bool {
		_, ok := model.ParseAttendanceRole(fl.Field().String())
		return ok
	})
}

// failedTag 返回第一个未通过的校验规则名；非校验错误返回空串
func failedTag(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve[0].Tag()
	}
	return ""
}
