// Package storage 提供项目工作区的纯文本文件读写
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore 以覆盖写语义操作 UTF-8 文本文件。
// 约定：Read 对不存在的文件返回空串（不报错），写入前自动创建父目录。
type FileStore struct{}

func NewFileStore() *FileStore {
	return &FileStore{}
}

// Read 读取文件内容；文件不存在时返回空串
func (s *FileStore) Read(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

// Write 覆盖写入文件内容。
// 先写同目录临时文件再 rename，读者不会看到半截内容。
func (s *FileStore) Write(path string, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Clear 删除文件；文件不存在时视为已清空。Read 对缺失文件返回空串，
// 因此删除与写空等价，且不留空壳文件。
func (s *FileStore) Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear %s: %w", path, err)
	}
	return nil
}

// Exists 判断文件是否存在且非目录
func (s *FileStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
