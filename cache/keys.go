package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// =============================================================================
// 🔑 缓存键命名规范
// =============================================================================
// 所有调用方通过这里生成键，保证前缀一致，才能按模式失效且互不冲突。
// =============================================================================

const (
	productPrefix      = "product"
	userProductsPrefix = "user_products"
	categoriesKey      = "categories"
	searchPrefix       = "search"
)

// ProductKey 单个商品
func ProductKey(id string) string {
	return productPrefix + ":" + id
}

// UserProductsKey 卖家商品列表的某一页
func UserProductsKey(userID string, page int) string {
	return userProductsPrefix + ":" + userID + ":" + strconv.Itoa(page)
}

// CategoriesKey 全部分类
func CategoriesKey() string {
	return categoriesKey
}

// SearchKey 搜索结果。filters 以 JSON 编码后取哈希，
// map 的键在编码时有序，因此相同的过滤条件总是得到相同的键。
func SearchKey(query string, filters any) string {
	return fmt.Sprintf("%s:%s:%s", searchPrefix, query, filtersHash(filters))
}

// ProductPattern 匹配所有商品键
func ProductPattern() string {
	return productPrefix + ":*"
}

// UserProductsPattern 匹配某个卖家的所有列表页
func UserProductsPattern(userID string) string {
	return userProductsPrefix + ":" + userID + ":*"
}

// SearchPattern 匹配所有搜索结果
func SearchPattern() string {
	return searchPrefix + ":*"
}

func filtersHash(filters any) string {
	data, err := json.Marshal(filters)
	if err != nil {
		// 无法编码的过滤条件退化为 %#v，仍然保证不同值得到不同键
		data = []byte(fmt.Sprintf("%#v", filters))
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])[:16]
}
