package integration

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 图书模块集成测试
// 覆盖:上架、重复ISBN、未登录上架、详情查询、列表分页

func TestBookPublish(t *testing.T) {
	base := apiBase(t)
	_, token := RegisterTestUser(t, "book_seller")

	t.Run("正常上架", func(t *testing.T) {
		b := PublishTestBook(t, token, "《上架测试图书》", 5900, 100)
		assert.NotZero(t, b.ID)
		assert.Equal(t, int64(5900), b.Price)
		assert.Equal(t, "59.00", b.PriceYuan)
		assert.Equal(t, 100, b.Stock)
	})

	t.Run("重复ISBN", func(t *testing.T) {
		isbn := GenerateTestISBN()
		req := map[string]interface{}{
			"title":  "《ISBN测试图书》",
			"author": "测试作者",
			"isbn":   isbn,
			"price":  5900,
			"stock":  10,
		}

		first := PostJSON(t, base+"/books", req, token)
		require.Equal(t, 0, first.Code)

		second := PostJSON(t, base+"/books", req, token)
		assert.Equal(t, 40004, second.Code, "重复ISBN应该被拒绝")
	})

	t.Run("不带ISBN可以上架多本", func(t *testing.T) {
		req := map[string]interface{}{
			"title":  "《无ISBN图书》",
			"author": "测试作者",
			"price":  1000,
			"stock":  5,
		}

		first := PostJSON(t, base+"/books", req, token)
		require.Equal(t, 0, first.Code, "ISBN是可选字段: %s", first.Message)

		second := PostJSON(t, base+"/books", req, token)
		assert.Equal(t, 0, second.Code, "多本无ISBN图书不应该冲突")
	})

	t.Run("未登录不能上架", func(t *testing.T) {
		resp := PostJSON(t, base+"/books", map[string]interface{}{
			"title":  "《未授权图书》",
			"author": "测试作者",
			"price":  5900,
			"stock":  10,
		}, "")
		assert.NotEqual(t, 0, resp.Code)
	})
}

func TestBookGet(t *testing.T) {
	base := apiBase(t)
	_, token := RegisterTestUser(t, "book_reader")
	published := PublishTestBook(t, token, "《详情测试图书》", 3990, 50)

	t.Run("查询详情", func(t *testing.T) {
		resp := GetJSON(t, fmt.Sprintf("%s/books/%d", base, published.ID), "")
		require.Equal(t, 0, resp.Code)

		var data BookData
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, published.ID, data.ID)
		assert.Equal(t, "《详情测试图书》", data.Title)
		assert.Equal(t, "集成测试用图书", data.Description)
	})

	t.Run("图书不存在", func(t *testing.T) {
		resp := GetJSON(t, base+"/books/99999999", "")
		assert.Equal(t, 40402, resp.Code)
	})
}

func TestBookList(t *testing.T) {
	base := apiBase(t)
	_, token := RegisterTestUser(t, "book_cataloger")
	PublishTestBook(t, token, "《列表独特关键词图书》", 1250, 10)

	t.Run("分页查询", func(t *testing.T) {
		resp := GetJSON(t, base+"/books?page=1&page_size=5", "")
		require.Equal(t, 0, resp.Code)

		var data struct {
			List     []BookData `json:"list"`
			Total    int64      `json:"total"`
			Page     int        `json:"page"`
			PageSize int        `json:"page_size"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.LessOrEqual(t, len(data.List), 5)
		assert.Equal(t, 1, data.Page)
	})

	t.Run("关键词搜索", func(t *testing.T) {
		resp := GetJSON(t, base+"/books?keyword=列表独特关键词", "")
		require.Equal(t, 0, resp.Code)

		var data struct {
			List  []BookData `json:"list"`
			Total int64      `json:"total"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		require.NotEmpty(t, data.List)
		assert.Contains(t, data.List[0].Title, "列表独特关键词")
	})
}
