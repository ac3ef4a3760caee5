package database

import (
	"quant_bench_go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// InitElasticsearch 创建 Elasticsearch 客户端。
// 搜索是可降级功能：地址未配置或连接失败时返回 nil，
// 调用方（SearchService）收到 nil 客户端会自动走数据库回退。
func InitElasticsearch(addresses []string, username, password string) *elasticsearch.Client {
	if len(addresses) == 0 {
		log.Info("Elasticsearch not configured, search falls back to database")
		return nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
	if err != nil {
		log.Error("failed to create elasticsearch client, search falls back to database", err)
		return nil
	}

	if _, err := client.Ping(); err != nil {
		log.Error("failed to ping elasticsearch, search falls back to database", err)
		return nil
	}

	log.Info("Elasticsearch client connected successfully")
	return client
}
