package driver

import "context"

// Conn 单个物理数据库会话
// 同一时刻只能由一个 goroutine 使用，并发安全由上层连接池保证
type Conn interface {
	// Ping 轻量级存活探测
	Ping(ctx context.Context) error
	// Exec 执行写语句（INSERT/UPDATE/DELETE/DDL）
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	// Query 执行查询并读取全部结果
	Query(ctx context.Context, query string, args ...any) (*Rows, error)
	// Close 关闭物理连接
	Close() error
}

// SessionResetter 可选接口：归还连接池前重置会话状态
type SessionResetter interface {
	ResetSession(ctx context.Context) error
}

// Driver 物理连接工厂，同时负责把驱动错误归类
type Driver interface {
	// Name 驱动名称（mysql、postgres）
	Name() string
	// Open 打开一个新的物理连接
	Open(ctx context.Context) (Conn, error)
	// Classify 将驱动返回的错误映射为错误类别
	Classify(err error) ErrorClass
}

// Result 写操作结果
type Result struct {
	RowsAffected int64 // 影响行数
	LastInsertID int64 // 最后插入 ID（驱动不支持时为 0）
}

// Rows 查询结果（一次性读取）
type Rows struct {
	Columns []string
	Values  [][]any
}

// Len 返回行数
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Values)
}

// First 返回第一行，没有数据时返回 nil
func (r *Rows) First() []any {
	if r.Len() == 0 {
		return nil
	}
	return r.Values[0]
}

// Maps 以列名为 key 返回每一行
func (r *Rows) Maps() []map[string]any {
	if r.Len() == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(r.Values))
	for _, row := range r.Values {
		m := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}
