package handlers

import (
	"context"
	"fmt"
	"strings"

	"finsight/internal/knowledge"
	"finsight/internal/tools"
)

const (
	PrivateDatabaseTool = "query_private_database"
	// NoDocumentsMessage 是没有命中时返回给模型的正常结果。
	NoDocumentsMessage = "No specific internal documents found for this query."
)

// Retriever 是知识库检索接口，*knowledge.Index 实现了它。
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]knowledge.Passage, error)
}

type privateDatabaseArgs struct {
	Query string `json:"query" jsonschema:"description=Natural-language question about internal AI initiatives or research"`
}

// PrivateDatabase 返回 query_private_database 工具。命中的片段按相关度拼接，
// 同时通过 Sources 交给调用方展示。
func PrivateDatabase(retriever Retriever, k int) tools.Definition {
	if k <= 0 {
		k = knowledge.DefaultTopK
	}
	return tools.NewTool(PrivateDatabaseTool,
		"Search internal research on company AI initiatives and strategy. Use this for any question about internal strategy, research, or AI projections.",
		func(ctx context.Context, in privateDatabaseArgs) (tools.Output, error) {
			query := strings.TrimSpace(in.Query)
			if query == "" {
				return tools.Output{}, tools.InvalidArgument("query", "must not be empty")
			}
			passages, err := retriever.Query(ctx, query, k)
			if err != nil {
				return tools.Output{}, fmt.Errorf("knowledge query: %w", err)
			}
			if len(passages) == 0 {
				return tools.Output{Content: NoDocumentsMessage}, nil
			}
			texts := make([]string, len(passages))
			sources := make([]string, len(passages))
			for i, p := range passages {
				texts[i] = p.Content
				sources[i] = SourceLabel(p)
			}
			return tools.Output{Content: strings.Join(texts, "\n\n"), Sources: sources}, nil
		})
}

// SourceLabel 是片段在来源列表中的展示形式。
func SourceLabel(p knowledge.Passage) string {
	if p.Source == "" {
		return p.Content
	}
	return p.Source + ": " + p.Content
}
