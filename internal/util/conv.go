package util

import (
	"strconv"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParseUintList 解析逗号分隔或重复的 ID 参数，忽略非法值和 0
func ParseUintList(values []string) []uint {
	ids := make([]uint, 0, len(values))
	for _, v := range values {
		if id := MustParseUint(v); id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
