package novel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSettingFourStages(t *testing.T) {
	f := newFixture(t,
		"世界观：孤岛灯塔。",
		"角色：守塔人、信使。",
		"暗线：三十年前的海难。",
		"# 最终设定\n*孤岛灯塔*，守塔人与三十年前的海难。",
	)

	setting, err := f.settingPipeline().GenerateSetting(context.Background(), SettingRequest{
		Topic:       "灯塔守望者",
		Genre:       "悬疑",
		NumChapters: 3,
		WordCount:   1000,
	})
	require.NoError(t, err)

	// 强调符号被剥除后整体覆盖写入
	assert.NotContains(t, setting, "#")
	assert.NotContains(t, setting, "*")
	assert.Contains(t, setting, "孤岛灯塔")

	persisted, err := f.store.ReadSetting()
	require.NoError(t, err)
	assert.Equal(t, setting, persisted)

	// 四个阶段恰好消耗四条回复
	assert.Empty(t, f.gen.responses)
}

func TestGenerateSettingStagesAreChained(t *testing.T) {
	f := newFixture(t,
		"基础设定甲",
		"角色设定乙",
		"冲突设定丙",
		"最终设定",
	)

	_, err := f.settingPipeline().GenerateSetting(context.Background(), SettingRequest{
		Topic: "t", Genre: "g", NumChapters: 1, WordCount: 500,
	})
	require.NoError(t, err)

	joined := ""
	for _, p := range f.gen.prompts {
		joined += p + "\n"
	}
	// 前一阶段的输出出现在后续阶段的提示词里
	assert.Contains(t, joined, "基础设定甲")
	assert.Contains(t, joined, "角色设定乙")
	assert.Contains(t, joined, "冲突设定丙")
}

func TestGenerateSettingIdempotentOverwrite(t *testing.T) {
	responses := []string{"一", "二", "三", "最终设定全文"}
	req := SettingRequest{Topic: "t", Genre: "g", NumChapters: 2, WordCount: 800}

	f := newFixture(t, responses...)
	first, err := f.settingPipeline().GenerateSetting(context.Background(), req)
	require.NoError(t, err)

	f.gen.responses = append([]string{}, responses...)
	second, err := f.settingPipeline().GenerateSetting(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	persisted, err := f.store.ReadSetting()
	require.NoError(t, err)
	assert.Equal(t, first, persisted)
}

func TestGenerateSettingEmptyStageAborts(t *testing.T) {
	f := newFixture(t, "基础设定", "")

	setting, err := f.settingPipeline().GenerateSetting(context.Background(), SettingRequest{
		Topic: "t", Genre: "g", NumChapters: 1, WordCount: 500,
	})
	require.NoError(t, err)
	assert.Empty(t, setting)

	persisted, err := f.store.ReadSetting()
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestGenerateDirectoryRequiresSetting(t *testing.T) {
	f := newFixture(t, "不该被消费的回复")

	directory, err := f.settingPipeline().GenerateDirectory(context.Background(), 3, "")
	require.NoError(t, err)
	assert.Empty(t, directory)

	// 前置条件缺失时不触发任何模型调用
	assert.Len(t, f.gen.responses, 1)
}

func TestGenerateDirectory(t *testing.T) {
	f := newFixture(t, "第1章 《起点》：开端。\n第2章 《转折》：变化。")
	require.NoError(t, f.store.WriteSetting("已有设定"))

	directory, err := f.settingPipeline().GenerateDirectory(context.Background(), 2, "")
	require.NoError(t, err)

	chapters := ParseDirectory(directory)
	require.Len(t, chapters, 2)
	assert.Equal(t, "起点", chapters[0].Title)

	persisted, err := f.store.ReadDirectory()
	require.NoError(t, err)
	assert.Equal(t, directory, persisted)
}
