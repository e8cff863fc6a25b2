package handler

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"z-novel-writer/internal/application/retrieval"
	"z-novel-writer/internal/interfaces/http/dto"
)

// RetrievalHandler 知识库导入与检索调试处理器
type RetrievalHandler struct {
	deps *Deps
}

func NewRetrievalHandler(deps *Deps) *RetrievalHandler {
	return &RetrievalHandler{deps: deps}
}

func (h *RetrievalHandler) importerFor(project string) *retrieval.Importer {
	chunker := retrieval.NewSemanticChunker(
		h.deps.Embedder,
		h.deps.Config.Chunker.SimilarityThreshold,
		h.deps.Config.Chunker.MaxSegmentRunes,
	)
	return retrieval.NewImporter(chunker, h.deps.indexFor(project))
}

// Import POST /v1/projects/:project/knowledge/import
func (h *RetrievalHandler) Import(c *gin.Context) {
	project, ok := projectParam(c)
	if !ok {
		dto.BadRequest(c, "invalid project name")
		return
	}
	withProject(c, project)

	var req dto.ImportKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.Path) == "" {
		dto.BadRequest(c, "either content or path is required")
		return
	}

	importer := h.importerFor(project)

	var segments int
	var err error
	if strings.TrimSpace(req.Content) != "" {
		segments, err = importer.ImportText(c.Request.Context(), req.Content)
	} else {
		path, ok := resolveImportPath(h.deps.Config.Workspace.Root, project, req.Path)
		if !ok {
			dto.BadRequest(c, "path must stay within the project workspace")
			return
		}
		segments, err = importer.ImportFile(c.Request.Context(), path)
	}
	if err != nil {
		dto.Failure(c, err)
		return
	}

	dto.Created(c, dto.ImportResponse{Segments: segments})
}

// resolveImportPath 把请求中的相对路径解析到项目目录下。
// 绝对路径与带 .. 的路径一律拒绝，避免逃出工作区。
func resolveImportPath(root, project, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !filepath.IsLocal(raw) {
		return "", false
	}
	return filepath.Join(root, project, raw), true
}

// Query POST /v1/projects/:project/retrieval/query
func (h *RetrievalHandler) Query(c *gin.Context) {
	project, ok := projectParam(c)
	if !ok {
		dto.BadRequest(c, "invalid project name")
		return
	}
	withProject(c, project)

	var req dto.RetrievalQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = h.deps.Config.Generation.RetrievalTopK
	}

	results, err := h.deps.indexFor(project).Query(c.Request.Context(), req.Query, topK)
	if err != nil {
		dto.Failure(c, err)
		return
	}
	if results == nil {
		results = []string{}
	}

	dto.Success(c, dto.RetrievalQueryResponse{Results: results})
}
