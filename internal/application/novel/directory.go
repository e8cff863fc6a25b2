package novel

import (
	"regexp"
	"strconv"
	"strings"

	apperrors "z-novel-writer/pkg/errors"
)

// ChapterMeta 是目录中一章的标题与剧情简述
type ChapterMeta struct {
	Number int
	Title  string
	Brief  string
}

var chapterLineRe = regexp.MustCompile(`第\s*(\d+)\s*章`)

// ParseDirectory 从目录文本中提取各章元信息。
// 章节行形如「第N章 《标题》：简述」，标题书名号与简述均可缺省；
// 章节行之后、下一章节行之前的普通行并入当前章的简述。
func ParseDirectory(text string) []ChapterMeta {
	var chapters []ChapterMeta
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		loc := chapterLineRe.FindStringSubmatchIndex(line)
		if loc == nil {
			// 目录行之间的描述行并入上一章简述
			if len(chapters) > 0 {
				last := &chapters[len(chapters)-1]
				if last.Brief == "" {
					last.Brief = line
				} else {
					last.Brief += " " + line
				}
			}
			continue
		}
		number, err := strconv.Atoi(line[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		rest := strings.TrimSpace(line[loc[1]:])
		title, brief := splitTitleBrief(rest)
		chapters = append(chapters, ChapterMeta{Number: number, Title: title, Brief: brief})
	}
	return chapters
}

// splitTitleBrief 从章节号之后的剩余文本中分离标题与简述
func splitTitleBrief(rest string) (string, string) {
	if start := strings.Index(rest, "《"); start >= 0 {
		if end := strings.Index(rest[start:], "》"); end > 0 {
			title := rest[start+len("《") : start+end]
			brief := strings.TrimSpace(rest[start+end+len("》"):])
			return strings.TrimSpace(title), trimBriefPrefix(brief)
		}
	}
	for _, sep := range []string{"：", ":"} {
		if idx := strings.Index(rest, sep); idx >= 0 {
			return strings.TrimSpace(rest[:idx]), strings.TrimSpace(rest[idx+len(sep):])
		}
	}
	return strings.TrimSpace(rest), ""
}

func trimBriefPrefix(brief string) string {
	brief = strings.TrimPrefix(brief, "：")
	brief = strings.TrimPrefix(brief, ":")
	return strings.TrimSpace(brief)
}

// LookupChapter 在目录文本中查找第 number 章的元信息。
// 未找到时返回章节不存在错误。
func LookupChapter(directoryText string, number int) (ChapterMeta, error) {
	for _, meta := range ParseDirectory(directoryText) {
		if meta.Number == number {
			return meta, nil
		}
	}
	// 每次新建错误实例，避免把 detail 写进共享的预定义错误
	return ChapterMeta{}, apperrors.New(apperrors.CodeChapterNotFound, "chapter not found in directory").
		WithDetail("chapter " + strconv.Itoa(number) + " not listed in directory")
}
