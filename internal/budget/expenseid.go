package budget

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// 未入库日期记录的合成 ID 前缀，如 unsaved-2025-06-15
const virtualIDPrefix = "unsaved-"

// ExpenseID 区分两种支出记录标识：
// 已入库记录用 UUID，未入库的占位日用日期合成的虚拟 ID。
type ExpenseID struct {
	Raw     string
	Virtual bool
	Date    string // 仅虚拟 ID 有值
}

// ParseExpenseID 解析支出记录 ID，拒绝既不是 UUID 也不是合法虚拟 ID 的输入
func ParseExpenseID(s string) (ExpenseID, error) {
	if strings.HasPrefix(s, virtualIDPrefix) {
		date := strings.TrimPrefix(s, virtualIDPrefix)
		if _, err := ParseDate(date); err != nil {
			return ExpenseID{}, fmt.Errorf("invalid virtual expense id %q: %w", s, err)
		}
		return ExpenseID{Raw: s, Virtual: true, Date: date}, nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return ExpenseID{}, fmt.Errorf("invalid expense id %q: %w", s, err)
	}
	return ExpenseID{Raw: s}, nil
}

// VirtualID 为指定日期生成占位记录的虚拟 ID
func VirtualID(date string) string {
	return virtualIDPrefix + date
}
