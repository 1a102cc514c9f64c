// Package integration 黑盒集成测试
//
// 这些测试针对一个已经运行的服务实例发起真实HTTP请求,
// 通过环境变量BOOKSHOP_API_URL指定服务地址(如http://localhost:8080),
// 未设置时自动跳过。
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Timeout HTTP请求超时时间
const Timeout = 10 * time.Second

// apiBase 返回API基础URL,未配置时跳过测试
func apiBase(t *testing.T) string {
	t.Helper()
	base := os.Getenv("BOOKSHOP_API_URL")
	if base == "" {
		t.Skip("未设置BOOKSHOP_API_URL,跳过集成测试")
	}
	return base + "/api/v1"
}

// Response 统一响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// RegisterData 注册响应数据
type RegisterData struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginData 登录响应数据
type LoginData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// BookData 图书响应数据
type BookData struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Price       int64  `json:"price"`
	PriceYuan   string `json:"price_yuan"`
	Stock       int    `json:"stock"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
}

// OrderData 订单响应数据
type OrderData struct {
	OrderID   uint        `json:"order_id"`
	OrderNo   string      `json:"order_no"`
	Total     int64       `json:"total"`
	TotalYuan string      `json:"total_yuan"`
	Status    string      `json:"status"`
	Items     []OrderItem `json:"items"`
}

// OrderItem 订单明细行
type OrderItem struct {
	BookID   uint   `json:"book_id"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	Subtotal int64  `json:"subtotal"`
}

// CartData 购物车汇总数据
type CartData struct {
	Items     []CartItem `json:"items"`
	ItemCount int        `json:"item_count"`
	Total     int64      `json:"total"`
	TotalYuan string     `json:"total_yuan"`
}

// CartItem 购物车行项
type CartItem struct {
	BookID    uint   `json:"book_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Subtotal  int64  `json:"subtotal"`
	Available bool   `json:"available"`
}

// doJSON 发送HTTP请求并解析统一响应
func doJSON(t *testing.T, method, url string, data interface{}, headers map[string]string) *Response {
	t.Helper()

	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		require.NoError(t, err, "JSON序列化失败")
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err, "创建HTTP请求失败")

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: Timeout}
	resp, err := client.Do(req)
	require.NoError(t, err, "发送HTTP请求失败")
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "读取响应体失败")

	var result Response
	err = json.Unmarshal(respBody, &result)
	require.NoError(t, err, "解析JSON响应失败: %s", string(respBody))

	return &result
}

func authHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// PostJSON 发送POST请求
func PostJSON(t *testing.T, url string, data interface{}, token string) *Response {
	return doJSON(t, http.MethodPost, url, data, authHeaders(token))
}

// GetJSON 发送GET请求
func GetJSON(t *testing.T, url string, token string) *Response {
	return doJSON(t, http.MethodGet, url, nil, authHeaders(token))
}

// PutJSON 发送PUT请求
func PutJSON(t *testing.T, url string, data interface{}, token string) *Response {
	return doJSON(t, http.MethodPut, url, data, authHeaders(token))
}

// DeleteJSON 发送DELETE请求
func DeleteJSON(t *testing.T, url string, token string) *Response {
	return doJSON(t, http.MethodDelete, url, nil, authHeaders(token))
}

// GenerateTestEmail 生成唯一的测试邮箱
// 使用纳秒时间戳避免测试重复运行时邮箱冲突
func GenerateTestEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@test.com", prefix, time.Now().UnixNano())
}

// GenerateTestISBN 生成唯一的测试ISBN(978+10位数字)
func GenerateTestISBN() string {
	timestamp := time.Now().UnixNano()
	return fmt.Sprintf("978%010d", timestamp%10000000000)
}

// RegisterTestUser 注册测试用户并登录,返回邮箱和Token
func RegisterTestUser(t *testing.T, name string) (email string, token string) {
	t.Helper()
	base := apiBase(t)

	email = GenerateTestEmail(name)
	registerReq := map[string]string{
		"name":     name,
		"email":    email,
		"password": "Test1234",
	}

	registerResp := PostJSON(t, base+"/users/register", registerReq, "")
	require.Equal(t, 0, registerResp.Code, "注册失败: %s", registerResp.Message)

	loginReq := map[string]string{
		"email":    email,
		"password": "Test1234",
	}

	loginResp := PostJSON(t, base+"/users/login", loginReq, "")
	require.Equal(t, 0, loginResp.Code, "登录失败: %s", loginResp.Message)

	var loginData LoginData
	err := json.Unmarshal(loginResp.Data, &loginData)
	require.NoError(t, err, "解析登录响应失败")

	return email, loginData.AccessToken
}

// PublishTestBook 上架测试图书并返回图书数据
func PublishTestBook(t *testing.T, token string, title string, price int64, stock int) *BookData {
	t.Helper()
	base := apiBase(t)

	bookReq := map[string]interface{}{
		"title":       title,
		"author":      "测试作者",
		"isbn":        GenerateTestISBN(),
		"price":       price,
		"stock":       stock,
		"description": "集成测试用图书",
	}

	bookResp := PostJSON(t, base+"/books", bookReq, token)
	require.Equal(t, 0, bookResp.Code, "图书上架失败: %s", bookResp.Message)

	var bookData BookData
	err := json.Unmarshal(bookResp.Data, &bookData)
	require.NoError(t, err, "解析图书响应失败")

	return &bookData
}
