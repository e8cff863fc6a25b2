// Package novel 实现小说项目的生成流水线与文件持久化
package novel

import (
	"fmt"
	"path/filepath"

	"z-novel-writer/internal/infrastructure/storage"
)

// 项目目录下的固定文件布局
const (
	settingFile        = "Novel_setting.txt"
	directoryFile      = "Novel_directory.txt"
	characterStateFile = "character_state.txt"
	globalSummaryFile  = "global_summary.txt"
	plotArcsFile       = "plot_arcs.txt"
	outlinesDir        = "outlines"
	chaptersDir        = "chapters"
)

// ProjectStore 管理单个项目的全部落盘产物：设定、目录、
// 各章大纲与正文、三份状态台账。所有写入均为整体覆盖。
type ProjectStore struct {
	files   *storage.FileStore
	root    string
	project string
}

func NewProjectStore(files *storage.FileStore, workspaceRoot, project string) *ProjectStore {
	return &ProjectStore{
		files:   files,
		root:    filepath.Join(workspaceRoot, project),
		project: project,
	}
}

func (s *ProjectStore) Root() string {
	return s.root
}

func (s *ProjectStore) Project() string {
	return s.project
}

func (s *ProjectStore) settingPath() string {
	return filepath.Join(s.root, settingFile)
}

func (s *ProjectStore) directoryPath() string {
	return filepath.Join(s.root, directoryFile)
}

func (s *ProjectStore) outlinePath(number int) string {
	return filepath.Join(s.root, outlinesDir, fmt.Sprintf("outline_%d.txt", number))
}

func (s *ProjectStore) chapterPath(number int) string {
	return filepath.Join(s.root, chaptersDir, fmt.Sprintf("chapter_%d.txt", number))
}

func (s *ProjectStore) ReadSetting() (string, error) {
	return s.files.Read(s.settingPath())
}

func (s *ProjectStore) WriteSetting(content string) error {
	return s.files.Write(s.settingPath(), content)
}

func (s *ProjectStore) ReadDirectory() (string, error) {
	return s.files.Read(s.directoryPath())
}

func (s *ProjectStore) WriteDirectory(content string) error {
	return s.files.Write(s.directoryPath(), content)
}

func (s *ProjectStore) ReadOutline(number int) (string, error) {
	return s.files.Read(s.outlinePath(number))
}

func (s *ProjectStore) WriteOutline(number int, content string) error {
	return s.files.Write(s.outlinePath(number), content)
}

func (s *ProjectStore) ReadChapter(number int) (string, error) {
	return s.files.Read(s.chapterPath(number))
}

func (s *ProjectStore) WriteChapter(number int, content string) error {
	return s.files.Write(s.chapterPath(number), content)
}

func (s *ProjectStore) ReadCharacterState() (string, error) {
	return s.files.Read(filepath.Join(s.root, characterStateFile))
}

func (s *ProjectStore) WriteCharacterState(content string) error {
	return s.files.Write(filepath.Join(s.root, characterStateFile), content)
}

func (s *ProjectStore) ReadGlobalSummary() (string, error) {
	return s.files.Read(filepath.Join(s.root, globalSummaryFile))
}

func (s *ProjectStore) WriteGlobalSummary(content string) error {
	return s.files.Write(filepath.Join(s.root, globalSummaryFile), content)
}

func (s *ProjectStore) ReadPlotArcs() (string, error) {
	return s.files.Read(filepath.Join(s.root, plotArcsFile))
}

func (s *ProjectStore) WritePlotArcs(content string) error {
	return s.files.Write(filepath.Join(s.root, plotArcsFile), content)
}

// RecentChapters 返回 current 之前（含 current）的最近 n 章正文，
// 从旧到新排列；不足 n 章时在前部以空串补齐，长度恒为 n。
func (s *ProjectStore) RecentChapters(current, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	texts := make([]string, n)
	for i := 0; i < n; i++ {
		number := current - (n - 1) + i
		if number < 1 {
			continue
		}
		text, err := s.ReadChapter(number)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}
	return texts, nil
}
