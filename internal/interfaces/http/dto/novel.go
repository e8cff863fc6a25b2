package dto

// GenerateSettingRequest 设定生成请求
type GenerateSettingRequest struct {
	Topic       string `json:"topic" binding:"required"`
	Genre       string `json:"genre" binding:"required"`
	NumChapters int    `json:"num_chapters" binding:"required,min=1"`
	WordCount   int    `json:"word_count" binding:"required,min=100"`
	Guidance    string `json:"guidance"`
}

// GenerateDirectoryRequest 目录生成请求
type GenerateDirectoryRequest struct {
	NumChapters int    `json:"num_chapters" binding:"required,min=1"`
	Guidance    string `json:"guidance"`
}

// DraftChapterRequest 章节草稿请求
type DraftChapterRequest struct {
	WordCount int    `json:"word_count" binding:"required,min=100"`
	Guidance  string `json:"guidance"`
}

// FinalizeChapterRequest 章节定稿请求
type FinalizeChapterRequest struct {
	WordCount int `json:"word_count" binding:"required,min=100"`
}

// ImportKnowledgeRequest 知识库导入请求：二选一，优先使用 Content
type ImportKnowledgeRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RetrievalQueryRequest 检索调试请求
type RetrievalQueryRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// TextResponse 纯文本产物响应
type TextResponse struct {
	Content string `json:"content"`
	Runes   int    `json:"runes"`
}

// ChapterResponse 章节产物响应
type ChapterResponse struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
	Runes   int    `json:"runes"`
}

// ImportResponse 知识库导入响应
type ImportResponse struct {
	Segments int `json:"segments"`
}

// RetrievalQueryResponse 检索调试响应
type RetrievalQueryResponse struct {
	Results []string `json:"results"`
}
