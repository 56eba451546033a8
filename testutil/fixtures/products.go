// =============================================================================
// 📦 测试数据工厂 - 商品目录
// =============================================================================
// 提供缓存测试使用的商品与分类样例
// =============================================================================
package fixtures

import (
	"fmt"
	"time"
)

// Product 商品样例，字段覆盖缓存序列化常见类型
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PriceCent int64     `json:"price_cent"`
	Tags      []string  `json:"tags,omitempty"`
	InStock   bool      `json:"in_stock"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category 分类样例
type Category struct {
	Slug     string   `json:"slug"`
	Products []string `json:"products"`
}

var fixedTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// SampleProduct 返回一个固定商品
func SampleProduct() Product {
	return Product{
		ID:        "p-100",
		Name:      "Ceramic Mug",
		PriceCent: 1299,
		Tags:      []string{"kitchen", "gift"},
		InStock:   true,
		UpdatedAt: fixedTime,
	}
}

// Products 生成 n 个按序编号的商品
func Products(n int) []Product {
	out := make([]Product, n)
	for i := range out {
		out[i] = Product{
			ID:        fmt.Sprintf("p-%d", i+1),
			Name:      fmt.Sprintf("Product %d", i+1),
			PriceCent: int64(100 * (i + 1)),
			InStock:   i%2 == 0,
			UpdatedAt: fixedTime.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

// SampleCategory 返回包含前 n 个商品 ID 的分类
func SampleCategory(slug string, n int) Category {
	c := Category{Slug: slug}
	for _, p := range Products(n) {
		c.Products = append(c.Products, p.ID)
	}
	return c
}
