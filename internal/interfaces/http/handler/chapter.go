package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-writer/internal/application/novel"
	"z-novel-writer/internal/interfaces/http/dto"
	"z-novel-writer/pkg/logger"
)

// ChapterHandler 章节起草与定稿处理器
type ChapterHandler struct {
	deps *Deps
}

func NewChapterHandler(deps *Deps) *ChapterHandler {
	return &ChapterHandler{deps: deps}
}

func (h *ChapterHandler) pipelineFor(project string) *novel.ChapterPipeline {
	return novel.NewChapterPipeline(
		h.deps.Completion,
		h.deps.Prompts,
		h.deps.storeFor(project),
		h.deps.indexFor(project),
		h.deps.Config.Generation.RetrievalTopK,
		h.deps.Locks,
	)
}

// Draft POST /v1/projects/:project/chapters/:num/draft
func (h *ChapterHandler) Draft(c *gin.Context) {
	project, ok := projectParam(c)
	if !ok {
		dto.BadRequest(c, "invalid project name")
		return
	}
	num, ok := chapterParam(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter number")
		return
	}
	withProject(c, project)

	var req dto.DraftChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	pipeline := h.pipelineFor(project)

	summary, cached := "", false
	if h.deps.Summaries != nil {
		summary, cached = h.deps.Summaries.Get(ctx, project, num)
	}
	if !cached {
		var err error
		summary, err = pipeline.SummarizeRecent(ctx, num, h.deps.Config.Generation.RecentChapterWindow)
		if err != nil {
			dto.Failure(c, err)
			return
		}
		if h.deps.Summaries != nil {
			if cacheErr := h.deps.Summaries.Set(ctx, project, num, summary); cacheErr != nil {
				logger.Warn(ctx, "failed to cache recent summary", "error", cacheErr)
			}
		}
	}

	draft, err := pipeline.Draft(ctx, novel.DraftRequest{
		Number:        num,
		WordCount:     req.WordCount,
		UserGuidance:  req.Guidance,
		RecentSummary: summary,
	})
	if err != nil {
		dto.Failure(c, err)
		return
	}

	dto.Created(c, dto.ChapterResponse{Number: num, Content: draft, Runes: len([]rune(draft))})
}

// Finalize POST /v1/projects/:project/chapters/:num/finalize
func (h *ChapterHandler) Finalize(c *gin.Context) {
	project, ok := projectParam(c)
	if !ok {
		dto.BadRequest(c, "invalid project name")
		return
	}
	num, ok := chapterParam(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter number")
		return
	}
	withProject(c, project)

	var req dto.FinalizeChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	final, err := h.pipelineFor(project).Finalize(ctx, novel.FinalizeRequest{
		Number:    num,
		WordCount: req.WordCount,
	})
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if final == "" {
		dto.Error(c, 412, "chapter draft is empty")
		return
	}

	// 定稿改变了前文，之后若干章的摘要缓存随之作废
	if h.deps.Summaries != nil {
		window := h.deps.Config.Generation.RecentChapterWindow
		stale := make([]int, 0, window)
		for i := 1; i <= window; i++ {
			stale = append(stale, num+i)
		}
		if err := h.deps.Summaries.Invalidate(ctx, project, stale...); err != nil {
			logger.Warn(ctx, "failed to invalidate summary cache", "error", err)
		}
	}

	dto.Success(c, dto.ChapterResponse{Number: num, Content: final, Runes: len([]rune(final))})
}

// GetChapter GET /v1/projects/:project/chapters/:num
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	h.readChapterFile(c, func(store *novel.ProjectStore, num int) (string, error) {
		return store.ReadChapter(num)
	})
}

// GetOutline GET /v1/projects/:project/chapters/:num/outline
func (h *ChapterHandler) GetOutline(c *gin.Context) {
	h.readChapterFile(c, func(store *novel.ProjectStore, num int) (string, error) {
		return store.ReadOutline(num)
	})
}

// GetState GET /v1/projects/:project/state — 三份台账
func (h *ChapterHandler) GetState(c *gin.Context) {
	project, ok := projectParam(c)
	if !ok {
		dto.BadRequest(c, "invalid project name")
		return
	}
	withProject(c, project)

	store := h.deps.storeFor(project)
	characterState, err := store.ReadCharacterState()
	if err != nil {
		dto.Failure(c, err)
		return
	}
	globalSummary, err := store.ReadGlobalSummary()
	if err != nil {
		dto.Failure(c, err)
		return
	}
	plotArcs, err := store.ReadPlotArcs()
	if err != nil {
		dto.Failure(c, err)
		return
	}

	dto.Success(c, gin.H{
		"character_state": characterState,
		"global_summary":  globalSummary,
		"plot_arcs":       plotArcs,
	})
}

func (h *ChapterHandler) readChapterFile(c *gin.Context, read func(*novel.ProjectStore, int) (string, error)) {
	project, ok := projectParam(c)
	if !ok {
		dto.BadRequest(c, "invalid project name")
		return
	}
	num, ok := chapterParam(c)
	if !ok {
		dto.BadRequest(c, "invalid chapter number")
		return
	}
	withProject(c, project)

	content, err := read(h.deps.storeFor(project), num)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if content == "" {
		dto.NotFound(c, "chapter artifact not found")
		return
	}
	dto.Success(c, dto.ChapterResponse{Number: num, Content: content, Runes: len([]rune(content))})
}
