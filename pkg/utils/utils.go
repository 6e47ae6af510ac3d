// Package utils 提供 ID 生成等通用工具
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewID 生成带前缀的唯一标识：前缀 + 毫秒时间戳 + 8 位十六进制随机数。
// 时间戳保证大体有序，随机部分让同一毫秒内的碰撞概率可以忽略。
func NewID(prefix string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand 失败极罕见，退化为纳秒时间戳
		return fmt.Sprintf("%s%d%08x", prefix, time.Now().UnixMilli(), time.Now().UnixNano()&0xffffffff)
	}
	return fmt.Sprintf("%s%d%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(buf))
}
