package utils

import (
	"math/rand"
	"strings"
)

// Slugify 由标题生成 URL slug：小写，非字母数字替换为 '-'，
// 连续 '-' 合并，去掉首尾 '-'
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true // 抑制开头的 '-'
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

const letterBytes = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandString 生成 n 位随机字符串（slug 冲突时追加后缀用）
func RandString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
