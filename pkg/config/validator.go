package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Validator 基于 validate tag 的配置校验
// 错误信息中的字段名使用 mapstructure tag，和配置文件中的 key 一致
type Validator struct {
	validate *validator.Validate
}

// NewValidator 创建验证器
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		default:
			return name
		}
	})
	return &Validator{validate: v}
}

// RegisterValidation 注册自定义规则
func (v *Validator) RegisterValidation(tag string, fn validator.Func) error {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		return errors.Wrapf(err, "config: register validation %s", tag)
	}
	return nil
}

// RegisterStructValidation 注册结构体级别规则，用于跨字段约束
func (v *Validator) RegisterStructValidation(fn validator.StructLevelFunc, types ...any) {
	v.validate.RegisterStructValidation(fn, types...)
}

// Validate 校验配置结构体
func (v *Validator) Validate(cfg any) error {
	if cfg == nil {
		return ErrNilConfig
	}
	if rv := reflect.ValueOf(cfg); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return ErrNilConfig
	}

	if err := v.validate.Struct(cfg); err != nil {
		return errors.Wrap(ErrValidationFailed, formatValidationErrors(err))
	}
	return nil
}

func formatValidationErrors(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field, param := fe.Namespace(), fe.Param()
		// 去掉顶层结构体名
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}

		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("field '%s' is required", field)
		case "min", "gte":
			msg = fmt.Sprintf("field '%s' must be at least %s", field, param)
		case "max", "lte":
			msg = fmt.Sprintf("field '%s' must be at most %s", field, param)
		case "gtfield", "gtefield":
			msg = fmt.Sprintf("field '%s' must be >= '%s'", field, param)
		case "oneof":
			msg = fmt.Sprintf("field '%s' must be one of [%s]", field, param)
		case "hostname_rfc1123", "ip", "hostname|ip":
			msg = fmt.Sprintf("field '%s' must be a valid host", field)
		default:
			msg = fmt.Sprintf("field '%s' failed validation '%s'", field, fe.Tag())
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}
