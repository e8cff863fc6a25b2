package novel

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"z-novel-writer/internal/application/generation"
	"z-novel-writer/internal/application/retrieval"
	"z-novel-writer/internal/workflow/prompt"
	apperrors "z-novel-writer/pkg/errors"
	"z-novel-writer/pkg/logger"
	"z-novel-writer/pkg/metrics"
)

const (
	// fallbackQuery 检索查询集中的固定兜底查询
	fallbackQuery = "回顾剧情"
	// noContextPlaceholder 一无所获时注入提示词的占位文本
	noContextPlaceholder = "暂无相关内容。"
	// noSummaryPlaceholder 尚无前文可摘要时的占位文本
	noSummaryPlaceholder = "暂无摘要。"

	// enrichThresholdRatio 定稿字数低于目标的该比例时触发一次扩写
	enrichThresholdRatio = 0.8
	// summaryFallbackRunes 摘要模型输出为空时截取原文的字符数
	summaryFallbackRunes = 800
)

// DraftRequest 章节草稿的输入参数
type DraftRequest struct {
	Number        int
	WordCount     int
	UserGuidance  string
	RecentSummary string
}

// FinalizeRequest 章节定稿的输入参数
type FinalizeRequest struct {
	Number    int
	WordCount int
}

// ChapterLocks 按（项目，章节号）串行化定稿的共享锁表。
// 进程内只应有一份，由各请求构建的流水线共用，否则锁不住并发定稿。
type ChapterLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewChapterLocks() *ChapterLocks {
	return &ChapterLocks{locks: make(map[string]*sync.Mutex)}
}

// For 返回指定项目章节的锁，首次访问时创建
func (l *ChapterLocks) For(project string, number int) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := project + "#" + strconv.Itoa(number)
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	return lock
}

// ChapterPipeline 实现章节的两阶段生成：
// Draft 只产出大纲与正文草稿，不触碰台账与索引；
// Finalize 负责扩写保底、三份台账的整合更新与向量索引写入。
type ChapterPipeline struct {
	completion *generation.Continuation
	prompts    *prompt.Registry
	store      *ProjectStore
	index      *retrieval.Index
	topK       int
	locks      *ChapterLocks
}

func NewChapterPipeline(completion *generation.Continuation, prompts *prompt.Registry,
	store *ProjectStore, index *retrieval.Index, topK int, locks *ChapterLocks) *ChapterPipeline {
	if topK <= 0 {
		topK = 2
	}
	if locks == nil {
		locks = NewChapterLocks()
	}
	return &ChapterPipeline{
		completion: completion,
		prompts:    prompts,
		store:      store,
		index:      index,
		topK:       topK,
		locks:      locks,
	}
}

// Draft 生成第 number 章的大纲与正文草稿并落盘，返回草稿文本。
// 台账与向量索引在本阶段保持不变。
func (p *ChapterPipeline) Draft(ctx context.Context, req DraftRequest) (string, error) {
	ctx = logger.WithContext(ctx, logger.ChapterKey, req.Number)

	directory, err := p.store.ReadDirectory()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(directory) == "" {
		return "", apperrors.New(apperrors.CodeDirectoryMissing, "novel directory not generated yet")
	}
	meta, err := LookupChapter(directory, req.Number)
	if err != nil {
		metrics.ChapterPipelineTotal.WithLabelValues("draft", "error").Inc()
		return "", err
	}

	retrieved, err := p.retrieveContext(ctx, req.UserGuidance, meta.Brief)
	if err != nil {
		return "", err
	}

	setting, err := p.store.ReadSetting()
	if err != nil {
		return "", err
	}
	characterState, err := p.store.ReadCharacterState()
	if err != nil {
		return "", err
	}
	globalSummary, err := p.store.ReadGlobalSummary()
	if err != nil {
		return "", err
	}

	vars := map[string]any{
		"chapter_number":    req.Number,
		"chapter_title":     meta.Title,
		"chapter_brief":     orPlaceholder(meta.Brief, noGuidance),
		"word_count":        req.WordCount,
		"novel_setting":     setting,
		"character_state":   characterState,
		"global_summary":    orPlaceholder(globalSummary, noSummaryPlaceholder),
		"recent_summary":    orPlaceholder(req.RecentSummary, noSummaryPlaceholder),
		"retrieved_context": retrieved,
		"user_guidance":     orPlaceholder(req.UserGuidance, noGuidance),
	}

	outline, err := p.runStage(ctx, prompt.PromptChapterOutlineV1, vars)
	if err != nil {
		metrics.ChapterPipelineTotal.WithLabelValues("draft", "error").Inc()
		return "", err
	}
	if err := p.store.WriteOutline(req.Number, outline); err != nil {
		return "", err
	}

	vars["outline"] = outline
	draft, err := p.runStage(ctx, prompt.PromptChapterWriteV1, vars)
	if err != nil {
		metrics.ChapterPipelineTotal.WithLabelValues("draft", "error").Inc()
		return "", err
	}
	if err := p.store.WriteChapter(req.Number, draft); err != nil {
		return "", err
	}

	metrics.ChapterPipelineTotal.WithLabelValues("draft", "ok").Inc()
	metrics.ChapterWordCount.Observe(float64(len([]rune(draft))))
	logger.Info(ctx, "chapter draft persisted", "runes", len([]rune(draft)))
	return draft, nil
}

// retrieveContext 以指导语、章节简述与固定兜底查询各检索 topK 条，
// 原样拼接（允许重复片段）；一无所获时返回占位文本。
func (p *ChapterPipeline) retrieveContext(ctx context.Context, guidance, brief string) (string, error) {
	var parts []string
	for _, q := range []string{guidance, brief, fallbackQuery} {
		if strings.TrimSpace(q) == "" {
			continue
		}
		texts, err := p.index.Query(ctx, q, p.topK)
		if err != nil {
			if errors.Is(err, retrieval.ErrVectorDisabled) {
				logger.Warn(ctx, "vector retrieval disabled, drafting without context")
				break
			}
			return "", err
		}
		parts = append(parts, texts...)
	}
	if len(parts) == 0 {
		return noContextPlaceholder, nil
	}
	return strings.Join(parts, "\n"), nil
}

// Finalize 对草稿执行定稿：字数保底扩写、三份台账整合、向量索引写入。
// 同一章节的并发定稿会被串行化；草稿为空时告警返回，台账不动。
func (p *ChapterPipeline) Finalize(ctx context.Context, req FinalizeRequest) (string, error) {
	ctx = logger.WithContext(ctx, logger.ChapterKey, req.Number)

	lock := p.locks.For(p.store.Project(), req.Number)
	lock.Lock()
	defer lock.Unlock()

	chapter, err := p.store.ReadChapter(req.Number)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(chapter) == "" {
		logger.Warn(ctx, "chapter draft empty, skip finalize")
		return "", nil
	}

	chapter, err = p.maybeEnrich(ctx, req, chapter)
	if err != nil {
		metrics.ChapterPipelineTotal.WithLabelValues("finalize", "error").Inc()
		return "", err
	}

	if err := p.consolidateLedgers(ctx, chapter); err != nil {
		metrics.ChapterPipelineTotal.WithLabelValues("finalize", "error").Inc()
		return "", err
	}

	if err := p.indexChapter(ctx, chapter); err != nil {
		metrics.ChapterPipelineTotal.WithLabelValues("finalize", "error").Inc()
		return "", err
	}

	metrics.ChapterPipelineTotal.WithLabelValues("finalize", "ok").Inc()
	metrics.ChapterWordCount.Observe(float64(len([]rune(chapter))))
	logger.Info(ctx, "chapter finalized", "runes", len([]rune(chapter)))
	return chapter, nil
}

// maybeEnrich 字数低于目标八成时做一次扩写；扩写输出为空则保留原稿
func (p *ChapterPipeline) maybeEnrich(ctx context.Context, req FinalizeRequest, chapter string) (string, error) {
	if req.WordCount <= 0 {
		return chapter, nil
	}
	if float64(len([]rune(chapter))) >= enrichThresholdRatio*float64(req.WordCount) {
		return chapter, nil
	}

	outline, err := p.store.ReadOutline(req.Number)
	if err != nil {
		return "", err
	}
	logger.Info(ctx, "chapter below target length, enriching",
		"runes", len([]rune(chapter)), "target", req.WordCount)
	enriched, err := p.runStage(ctx, prompt.PromptChapterEnrichV1, map[string]any{
		"chapter_text": chapter,
		"outline":      outline,
		"word_count":   req.WordCount,
	})
	if err != nil {
		return "", err
	}
	if enriched == "" {
		logger.Warn(ctx, "enrichment returned empty output, keeping original draft")
		return chapter, nil
	}

	if err := p.store.WriteChapter(req.Number, enriched); err != nil {
		return "", err
	}
	metrics.ChapterEnrichTotal.Inc()
	return enriched, nil
}

// consolidateLedgers 依次整合全局摘要、角色状态与剧情线。
// 任一整合的模型输出为空时回退到旧值；三份文件均整体覆盖。
func (p *ChapterPipeline) consolidateLedgers(ctx context.Context, chapter string) error {
	type ledger struct {
		name     string
		promptID prompt.PromptID
		varKey   string
		read     func() (string, error)
		write    func(string) error
	}
	ledgers := []ledger{
		{"global_summary", prompt.PromptGlobalSummaryUpdateV1, "global_summary",
			p.store.ReadGlobalSummary, p.store.WriteGlobalSummary},
		{"character_state", prompt.PromptCharacterStateUpdateV1, "character_state",
			p.store.ReadCharacterState, p.store.WriteCharacterState},
		{"plot_arcs", prompt.PromptPlotArcsUpdateV1, "plot_arcs",
			p.store.ReadPlotArcs, p.store.WritePlotArcs},
	}

	for _, l := range ledgers {
		old, err := l.read()
		if err != nil {
			return err
		}
		updated, err := p.runStage(ctx, l.promptID, map[string]any{
			l.varKey:       orPlaceholder(old, noGuidance),
			"chapter_text": chapter,
		})
		if err != nil {
			return err
		}
		if updated == "" {
			logger.Warn(ctx, "ledger consolidation returned empty output, keeping previous value",
				"ledger", l.name)
			updated = old
		}
		if err := l.write(updated); err != nil {
			return err
		}
	}
	return nil
}

// indexChapter 将定稿正文作为单个片段写入向量索引
func (p *ChapterPipeline) indexChapter(ctx context.Context, chapter string) error {
	err := p.index.Insert(ctx, []string{chapter})
	if errors.Is(err, retrieval.ErrVectorDisabled) {
		logger.Warn(ctx, "vector index disabled, finalized chapter not indexed")
		return nil
	}
	return err
}

// SummarizeRecent 概括第 number 章之前最近 window 章的剧情，供 Draft 使用。
// 没有任何前文时返回占位摘要；模型输出为空时回退为原文截断。
func (p *ChapterPipeline) SummarizeRecent(ctx context.Context, number, window int) (string, error) {
	texts, err := p.store.RecentChapters(number-1, window)
	if err != nil {
		return "", err
	}
	var nonEmpty []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	if len(nonEmpty) == 0 {
		return noSummaryPlaceholder, nil
	}
	combined := strings.Join(nonEmpty, "\n\n")

	msgs, err := p.prompts.Render(ctx, prompt.PromptRecentSummaryV1, map[string]any{
		"combined_text": combined,
	})
	if err != nil {
		return "", err
	}
	out, err := p.completion.InvokeCleaned(ctx, msgs)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		logger.Warn(ctx, "recent summary empty, falling back to truncated source")
		runes := []rune(combined)
		if len(runes) > summaryFallbackRunes {
			return string(runes[:summaryFallbackRunes]) + "...", nil
		}
		return combined, nil
	}
	return out, nil
}

func (p *ChapterPipeline) runStage(ctx context.Context, id prompt.PromptID, vars map[string]any) (string, error) {
	msgs, err := p.prompts.Render(ctx, id, vars)
	if err != nil {
		return "", err
	}
	out, err := p.completion.Complete(ctx, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
