package config

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// Ptr 返回 v 的指针，用于设置三态字段的显式值
func Ptr[T any](v T) *T {
	return &v
}

// MergeConfig 将 src 中的非零值深度覆盖到 dst 上并返回 dst
//   - 两者都为 nil 返回 ErrNilConfig
//   - 只有一方为 nil 时返回另一方
//   - 结构体和 map 递归合并，切片整体替换，零值不覆盖
//
// 零值不覆盖意味着 bool 字段无法用 false 覆盖默认的 true，
// 需要三态语义的字段应声明为 *bool
func MergeConfig[T any](dst, src *T) (*T, error) {
	switch {
	case dst == nil && src == nil:
		return nil, errors.Wrap(ErrNilConfig, "both dst and src are nil")
	case dst == nil:
		return src, nil
	case src == nil:
		return dst, nil
	}

	if err := mergeValue(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, err
	}
	return dst, nil
}

func mergeValue(dst, src reflect.Value) error {
	if !src.IsValid() || src.IsZero() {
		return nil
	}
	if dst.Kind() != src.Kind() {
		return errors.Newf("cannot merge %s into %s", src.Kind(), dst.Kind())
	}

	switch dst.Kind() {
	case reflect.Struct:
		return mergeStruct(dst, src)
	case reflect.Map:
		return mergeMap(dst, src)
	case reflect.Ptr:
		// 指向结构体时递归合并，其余指针（如 *bool）整体替换以保留显式零值
		if dst.Type().Elem().Kind() != reflect.Struct {
			dst.Set(src)
			return nil
		}
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return mergeValue(dst.Elem(), src.Elem())
	default:
		// 基本类型、切片、函数直接覆盖
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}

func mergeStruct(dst, src reflect.Value) error {
	t := src.Type()
	for i := 0; i < src.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		df := dst.Field(i)
		if !df.CanSet() {
			continue
		}
		if err := mergeValue(df, src.Field(i)); err != nil {
			return errors.Wrapf(err, "merge field %s", field.Name)
		}
	}
	return nil
}

func mergeMap(dst, src reflect.Value) error {
	if dst.IsNil() {
		dst.Set(reflect.MakeMapWithSize(dst.Type(), src.Len()))
	}

	iter := src.MapRange()
	for iter.Next() {
		key, sv := iter.Key(), iter.Value()
		dv := dst.MapIndex(key)
		if !dv.IsValid() {
			dst.SetMapIndex(key, sv)
			continue
		}

		// map 元素不可寻址，复制后合并再写回
		merged := reflect.New(dst.Type().Elem()).Elem()
		merged.Set(dv)
		if err := mergeValue(merged, sv); err != nil {
			return errors.Wrapf(err, "merge key %v", key.Interface())
		}
		dst.SetMapIndex(key, merged)
	}
	return nil
}
