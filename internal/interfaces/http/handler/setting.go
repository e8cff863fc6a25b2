package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-writer/internal/application/novel"
	"z-novel-writer/internal/interfaces/http/dto"
)

// SettingHandler 设定与目录生成处理器
type SettingHandler struct {
	deps *Deps
}

func NewSettingHandler(deps *Deps) *SettingHandler {
	return &SettingHandler{deps: deps}
}

func (h *SettingHandler) pipelineFor(project string) *novel.SettingPipeline {
	return novel.NewSettingPipeline(h.deps.Completion, h.deps.Prompts, h.deps.storeFor(project))
}

// GenerateSetting POST /v1/projects/:project/setting
func (h *SettingHandler) GenerateSetting(c *gin.Context) {
	project, ok := projectParam(c)
	if !ok {
		dto.BadRequest(c, "invalid project name")
		return
	}
	withProject(c, project)

	var req dto.GenerateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	setting, err := h.pipelineFor(project).GenerateSetting(c.Request.Context(), novel.SettingRequest{
		Topic:        req.Topic,
		Genre:        req.Genre,
		NumChapters:  req.NumChapters,
		WordCount:    req.WordCount,
		UserGuidance: req.Guidance,
	})
	if err != nil {
		dto.Failure(c, err)
		return
	}

	dto.Created(c, dto.TextResponse{Content: setting, Runes: len([]rune(setting))})
}

// GenerateDirectory POST /v1/projects/:project/directory
func (h *SettingHandler) GenerateDirectory(c *gin.Context) {
	project, ok := projectParam(c)
	if !ok {
		dto.BadRequest(c, "invalid project name")
		return
	}
	withProject(c, project)

	var req dto.GenerateDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	directory, err := h.pipelineFor(project).GenerateDirectory(c.Request.Context(), req.NumChapters, req.Guidance)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if directory == "" {
		dto.Error(c, 412, "novel setting not generated yet")
		return
	}

	dto.Created(c, dto.TextResponse{Content: directory, Runes: len([]rune(directory))})
}

// GetSetting GET /v1/projects/:project/setting
func (h *SettingHandler) GetSetting(c *gin.Context) {
	h.readArtifact(c, func(store *novel.ProjectStore) (string, error) {
		return store.ReadSetting()
	})
}

// GetDirectory GET /v1/projects/:project/directory
func (h *SettingHandler) GetDirectory(c *gin.Context) {
	h.readArtifact(c, func(store *novel.ProjectStore) (string, error) {
		return store.ReadDirectory()
	})
}

func (h *SettingHandler) readArtifact(c *gin.Context, read func(*novel.ProjectStore) (string, error)) {
	project, ok := projectParam(c)
	if !ok {
		dto.BadRequest(c, "invalid project name")
		return
	}
	withProject(c, project)

	content, err := read(h.deps.storeFor(project))
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if content == "" {
		dto.NotFound(c, "artifact not generated yet")
		return
	}
	dto.Success(c, dto.TextResponse{Content: content, Runes: len([]rune(content))})
}
