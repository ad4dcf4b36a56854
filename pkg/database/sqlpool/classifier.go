package sqlpool

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-sqlpool/pkg/database/driver"
)

var (
	reusableMark = errors.New("sqlpool: reusable")
	brokenMark   = errors.New("sqlpool: broken")
)

// 应用层错误保留连接，传输层与未知错误丢弃连接
var defaultVerdicts = map[driver.ErrorClass]bool{
	driver.ClassProgramming:  true,
	driver.ClassIntegrity:    true,
	driver.ClassAccess:       true,
	driver.ClassNotSupported: true,
	driver.ClassData:         true,
	driver.ClassTransaction:  true,
	driver.ClassIO:           false,
	driver.ClassProtocol:     false,
	driver.ClassOperational:  false,
	driver.ClassUnknown:      false,
}

// Categorizer 将错误映射为类别
type Categorizer func(err error) driver.ErrorClass

// Classifier 判断出错后的连接能否放回连接池
type Classifier struct {
	categorizers []Categorizer
	verdicts     map[driver.ErrorClass]bool
}

// ClassifierOption 分类器选项
type ClassifierOption func(*Classifier)

// WithVerdict 覆盖某个类别的判定
func WithVerdict(class driver.ErrorClass, reusable bool) ClassifierOption {
	return func(c *Classifier) {
		c.verdicts[class] = reusable
	}
}

// WithCategorizer 在驱动的归类之前追加归类函数，返回 ClassUnknown 表示交给下一个
func WithCategorizer(fn Categorizer) ClassifierOption {
	return func(c *Classifier) {
		c.categorizers = append(c.categorizers, fn)
	}
}

// NewClassifier 创建分类器，categorize 通常为 driver.Driver.Classify
func NewClassifier(categorize Categorizer, opts ...ClassifierOption) *Classifier {
	c := &Classifier{verdicts: make(map[driver.ErrorClass]bool, len(defaultVerdicts))}
	for class, ok := range defaultVerdicts {
		c.verdicts[class] = ok
	}
	for _, opt := range opts {
		opt(c)
	}
	if categorize != nil {
		c.categorizers = append(c.categorizers, categorize)
	}
	return c
}

// Class 返回错误类别，nil 返回 ClassUnknown
func (c *Classifier) Class(err error) driver.ErrorClass {
	if err == nil {
		return driver.ClassUnknown
	}
	for _, fn := range c.categorizers {
		if class := fn(err); class != driver.ClassUnknown {
			return class
		}
	}
	return driver.ClassUnknown
}

// Reusable 出现 err 后连接是否仍可复用
// 优先级：nil > panic > MarkBroken > MarkReusable > 类别表
func (c *Classifier) Reusable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrPanicked), errors.Is(err, brokenMark):
		return false
	case errors.Is(err, reusableMark):
		return true
	}
	return c.verdicts[c.Class(err)]
}

// MarkReusable 标记 err 不影响连接可用性
func MarkReusable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, reusableMark)
}

// MarkBroken 标记 err 后连接必须丢弃
func MarkBroken(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, brokenMark)
}
