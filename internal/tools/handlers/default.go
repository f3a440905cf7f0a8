package handlers

import (
	"finsight/internal/market"
	"finsight/internal/tools"
)

// Default 返回内置的三个工具，顺序即发送给模型的顺序。
func Default(provider market.Provider, retriever Retriever, topK int) []tools.Definition {
	return []tools.Definition{
		StockPrice(provider),
		StockHistory(provider),
		PrivateDatabase(retriever, topK),
	}
}

// NewRegistry 用内置工具构造注册表；冻结由 agent.NewLoop 完成。
func NewRegistry(provider market.Provider, retriever Retriever, topK int) (*tools.Registry, error) {
	return tools.NewRegistry(Default(provider, retriever, topK)...)
}
