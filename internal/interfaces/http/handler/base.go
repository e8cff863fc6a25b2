package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/gin-gonic/gin"

	"z-novel-writer/internal/application/generation"
	"z-novel-writer/internal/application/novel"
	"z-novel-writer/internal/application/retrieval"
	"z-novel-writer/internal/config"
	"z-novel-writer/internal/infrastructure/storage"
	"z-novel-writer/internal/workflow/prompt"
	"z-novel-writer/pkg/logger"
)

// Deps 各处理器共享的依赖集合
type Deps struct {
	Config     *config.Config
	Completion *generation.Continuation
	Prompts    *prompt.Registry
	Files      *storage.FileStore
	Embedder   embedding.Embedder
	VectorRepo retrieval.VectorRepository
	Summaries  SummaryCache

	// Locks 进程级章节定稿锁表；流水线按请求构建，锁必须共享
	Locks *novel.ChapterLocks
}

// SummaryCache 最近章节摘要缓存；nil 表示不启用缓存
type SummaryCache interface {
	Get(ctx context.Context, project string, chapter int) (string, bool)
	Set(ctx context.Context, project string, chapter int, summary string) error
	Invalidate(ctx context.Context, project string, chapters ...int) error
}

// projectParam 校验并返回路径中的项目名，拒绝路径穿越
func projectParam(c *gin.Context) (string, bool) {
	project := strings.TrimSpace(c.Param("project"))
	if project == "" || strings.ContainsAny(project, "/\\") || project == "." || project == ".." {
		return "", false
	}
	return project, true
}

// chapterParam 解析路径中的章节号
func chapterParam(c *gin.Context) (int, bool) {
	num, err := strconv.Atoi(c.Param("num"))
	if err != nil || num < 1 {
		return 0, false
	}
	return num, true
}

// storeFor 构建绑定到 project 的文件存储
func (d *Deps) storeFor(project string) *novel.ProjectStore {
	return novel.NewProjectStore(d.Files, d.Config.Workspace.Root, project)
}

// indexFor 构建绑定到 project 的向量索引句柄
func (d *Deps) indexFor(project string) *retrieval.Index {
	return retrieval.NewIndex(d.Embedder, d.VectorRepo, project)
}

// withProject 把项目名注入日志上下文
func withProject(c *gin.Context, project string) {
	ctx := logger.WithContext(c.Request.Context(), logger.ProjectKey, project)
	c.Request = c.Request.WithContext(ctx)
}
