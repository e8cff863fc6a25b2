package novel

import "strings"

// StripMarkup 去掉模型输出中残留的 Markdown 强调符号，仅保留纯文本
func StripMarkup(s string) string {
	s = strings.ReplaceAll(s, "#", "")
	s = strings.ReplaceAll(s, "*", "")
	return strings.TrimSpace(s)
}

// orPlaceholder 空白文本替换为占位符
func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
