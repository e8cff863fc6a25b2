// Package prompt 管理内嵌的提示词模板
package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"z-novel-writer/internal/application/generation"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptSettingBaseV1          PromptID = "setting_base_v1"
	PromptSettingCharactersV1    PromptID = "setting_characters_v1"
	PromptSettingConflictsV1     PromptID = "setting_conflicts_v1"
	PromptSettingFinalV1         PromptID = "setting_final_v1"
	PromptDirectoryV1            PromptID = "directory_v1"
	PromptChapterOutlineV1       PromptID = "chapter_outline_v1"
	PromptChapterWriteV1         PromptID = "chapter_write_v1"
	PromptChapterEnrichV1        PromptID = "chapter_enrich_v1"
	PromptGlobalSummaryUpdateV1  PromptID = "global_summary_update_v1"
	PromptCharacterStateUpdateV1 PromptID = "character_state_update_v1"
	PromptPlotArcsUpdateV1       PromptID = "plot_arcs_update_v1"
	PromptRecentSummaryV1        PromptID = "recent_summary_v1"
)

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

// Render 渲染模板并转换为流水线使用的消息序列
func (r *Registry) Render(ctx context.Context, id PromptID, vars map[string]any) ([]generation.Message, error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	rendered, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("render prompt %s: %w", id, err)
	}

	msgs := make([]generation.Message, 0, len(rendered))
	for _, m := range rendered {
		msgs = append(msgs, generation.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return msgs, nil
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	switch id {
	case PromptSettingBaseV1,
		PromptSettingCharactersV1,
		PromptSettingConflictsV1,
		PromptSettingFinalV1,
		PromptDirectoryV1,
		PromptChapterOutlineV1,
		PromptChapterWriteV1,
		PromptChapterEnrichV1,
		PromptGlobalSummaryUpdateV1,
		PromptCharacterStateUpdateV1,
		PromptPlotArcsUpdateV1,
		PromptRecentSummaryV1:
		return fmt.Sprintf("templates/%s.system.txt", id), fmt.Sprintf("templates/%s.user.txt", id), nil
	default:
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
