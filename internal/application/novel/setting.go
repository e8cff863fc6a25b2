package novel

import (
	"context"
	"strings"

	"z-novel-writer/internal/application/generation"
	"z-novel-writer/internal/workflow/prompt"
	"z-novel-writer/pkg/logger"
)

// noGuidance 用户未提供写作指导时的占位符
const noGuidance = "（无）"

// SettingRequest 设定生成的输入参数
type SettingRequest struct {
	Topic        string
	Genre        string
	NumChapters  int
	WordCount    int
	UserGuidance string
}

// SettingPipeline 生成小说设定集与章节目录。
// 设定生成是固定的四阶段串行链，每一阶段的输出拼入下一阶段的提示词。
type SettingPipeline struct {
	completion *generation.Continuation
	prompts    *prompt.Registry
	store      *ProjectStore
}

func NewSettingPipeline(completion *generation.Continuation, prompts *prompt.Registry, store *ProjectStore) *SettingPipeline {
	return &SettingPipeline{
		completion: completion,
		prompts:    prompts,
		store:      store,
	}
}

// GenerateSetting 依次生成世界观、角色、冲突暗线，并整合为最终设定集落盘。
// 任一阶段输出为空时告警并放弃本次生成，不写入任何文件。
func (p *SettingPipeline) GenerateSetting(ctx context.Context, req SettingRequest) (string, error) {
	guidance := orPlaceholder(req.UserGuidance, noGuidance)

	base, err := p.runStage(ctx, prompt.PromptSettingBaseV1, map[string]any{
		"topic":         req.Topic,
		"genre":         req.Genre,
		"num_chapters":  req.NumChapters,
		"word_count":    req.WordCount,
		"user_guidance": guidance,
	})
	if err != nil || base == "" {
		return "", p.abortStage(ctx, "base", err)
	}

	characters, err := p.runStage(ctx, prompt.PromptSettingCharactersV1, map[string]any{
		"base_setting":  base,
		"user_guidance": guidance,
	})
	if err != nil || characters == "" {
		return "", p.abortStage(ctx, "characters", err)
	}

	conflicts, err := p.runStage(ctx, prompt.PromptSettingConflictsV1, map[string]any{
		"base_setting":      base,
		"character_setting": characters,
		"user_guidance":     guidance,
	})
	if err != nil || conflicts == "" {
		return "", p.abortStage(ctx, "conflicts", err)
	}

	final, err := p.runStage(ctx, prompt.PromptSettingFinalV1, map[string]any{
		"base_setting":      base,
		"character_setting": characters,
		"conflict_setting":  conflicts,
	})
	if err != nil || final == "" {
		return "", p.abortStage(ctx, "final", err)
	}

	setting := StripMarkup(final)
	if err := p.store.WriteSetting(setting); err != nil {
		return "", err
	}
	logger.Info(ctx, "novel setting generated", "runes", len([]rune(setting)))
	return setting, nil
}

// GenerateDirectory 基于已有设定集生成章节目录。
// 设定集尚未生成时告警并直接返回，不产生任何写入。
func (p *SettingPipeline) GenerateDirectory(ctx context.Context, numChapters int, userGuidance string) (string, error) {
	setting, err := p.store.ReadSetting()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(setting) == "" {
		logger.Warn(ctx, "novel setting missing, skip directory generation")
		return "", nil
	}

	out, err := p.runStage(ctx, prompt.PromptDirectoryV1, map[string]any{
		"novel_setting": setting,
		"num_chapters":  numChapters,
		"user_guidance": orPlaceholder(userGuidance, noGuidance),
	})
	if err != nil {
		return "", err
	}
	if out == "" {
		logger.Warn(ctx, "directory generation returned empty output, nothing persisted")
		return "", nil
	}

	directory := StripMarkup(out)
	if err := p.store.WriteDirectory(directory); err != nil {
		return "", err
	}
	logger.Info(ctx, "novel directory generated", "chapters", len(ParseDirectory(directory)))
	return directory, nil
}

func (p *SettingPipeline) runStage(ctx context.Context, id prompt.PromptID, vars map[string]any) (string, error) {
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

// abortStage 区分模型错误与空输出：错误向上传播，空输出仅告警
func (p *SettingPipeline) abortStage(ctx context.Context, stage string, err error) error {
	if err != nil {
		return err
	}
	logger.Warn(ctx, "setting stage returned empty output, aborting", "stage", stage)
	return nil
}
