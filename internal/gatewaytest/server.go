// Package gatewaytest 提供一个内存版的网关假后端，
// 按统一信封 {success, message, data} 实现控制台消费的各个接口，
// 供集成测试在 httptest 里驱动真实的 HTTP 往返。
package gatewaytest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sakurapi/newapi-console/internal/models"
)

// Server 假网关
// 各资源直接存在内存切片里，测试用例可以直接预置和检查
type Server struct {
	mu          sync.Mutex
	AccessToken string // 非空时校验 Authorization 头
	ForceStatus int    // 非零时所有请求直接返回该状态码（模拟 429/500）

	Channels    []*models.Channel
	Tokens      []*models.Token
	Users       []*models.User
	Redemptions []*models.Redemption
	Logs        []*models.Log
	Options     map[string]string

	// FailOptionKeys 配置项 key → 失败消息，模拟 success:false 的业务失败
	FailOptionKeys map[string]string

	// PutCount 按路径统计收到的 PUT 次数，校验差量提交只发必要请求
	PutCount map[string]int

	nextID int
}

// New 创建假网关
func New() *Server {
	return &Server{
		Options:        make(map[string]string),
		FailOptionKeys: make(map[string]string),
		PutCount:       make(map[string]int),
		nextID:         1000,
	}
}

// NextID 分配一个新的资源 id
func (s *Server) NextID() int {
	s.nextID++
	return s.nextID
}

// Router 构建路由
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(cors.Default())
	router.Use(s.guard)

	api := router.Group("/api")
	{
		channelGroup := api.Group("/channel")
		{
			channelGroup.GET("/", s.listChannels)
			channelGroup.GET("/search", s.searchChannels)
			channelGroup.PUT("/", s.updateChannel)
			channelGroup.DELETE("/disabled", s.deleteDisabledChannels)
			channelGroup.DELETE("/:id/", s.deleteChannel)
			channelGroup.POST("/batch", s.batchDeleteChannels)
			channelGroup.POST("/tag/enabled", s.setTagStatus(models.ChannelStatusEnabled))
			channelGroup.POST("/tag/disabled", s.setTagStatus(models.ChannelStatusDisabled))
			channelGroup.PUT("/tag", s.editTag)
			channelGroup.GET("/test", s.testAllChannels)
			channelGroup.GET("/test/:id", s.testChannel)
			channelGroup.GET("/update_balance", s.updateAllBalances)
			channelGroup.GET("/update_balance/:id", s.updateBalance)
		}

		tokenGroup := api.Group("/token")
		{
			tokenGroup.GET("/", s.listTokens)
			tokenGroup.GET("/search", s.searchTokens)
			tokenGroup.POST("/", s.createToken)
			tokenGroup.PUT("/", s.updateToken)
			tokenGroup.DELETE("/:id", s.deleteToken)
		}

		userGroup := api.Group("/user")
		{
			userGroup.GET("/", s.listUsers)
			userGroup.GET("/search", s.searchUsers)
			userGroup.POST("/", s.createUser)
			userGroup.PUT("/", s.updateUser)
			userGroup.DELETE("/:id", s.deleteUser)
		}

		redemptionGroup := api.Group("/redemption")
		{
			redemptionGroup.GET("/", s.listRedemptions)
			redemptionGroup.GET("/search", s.searchRedemptions)
			redemptionGroup.POST("/", s.createRedemption)
			redemptionGroup.PUT("/", s.updateRedemption)
			redemptionGroup.DELETE("/:id", s.deleteRedemption)
		}

		logGroup := api.Group("/log")
		{
			logGroup.GET("/", s.listLogs(false))
			logGroup.GET("/self/", s.listLogs(true))
			logGroup.GET("/stat", s.logStat)
			logGroup.DELETE("/", s.purgeLogs)
		}

		optionGroup := api.Group("/option")
		{
			optionGroup.GET("/", s.listOptions)
			optionGroup.PUT("/", s.updateOption)
		}
	}

	return router
}

// guard 模拟鉴权与强制状态码
func (s *Server) guard(c *gin.Context) {
	if s.ForceStatus != 0 {
		c.AbortWithStatus(s.ForceStatus)
		return
	}
	if s.AccessToken != "" {
		if c.GetHeader("Authorization") != "Bearer "+s.AccessToken {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
	}
	if c.Request.Method == http.MethodPut {
		s.mu.Lock()
		s.PutCount[c.Request.URL.Path]++
		s.mu.Unlock()
	}
	c.Next()
}

// ==================== 信封辅助 ====================

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "", "data": data})
}

func okPaged(c *gin.Context, data interface{}, total int64) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "", "data": data, "total": total})
}

func fail(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "message": message})
}

// pageQuery 解析分页参数
func pageQuery(c *gin.Context) (p, size int) {
	p, _ = strconv.Atoi(c.DefaultQuery("p", "0"))
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if size < 1 {
		size = 10
	}
	return p, size
}

// slicePage 截取第 p 页
func slicePage[T any](items []T, p, size int) []T {
	start := p * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ==================== 渠道 ====================

func (s *Server) listChannels(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := append([]*models.Channel(nil), s.Channels...)
	if c.Query("id_sort") == "true" {
		sort.SliceStable(channels, func(i, j int) bool {
			return channels[i].ID < channels[j].ID
		})
	} else {
		sort.SliceStable(channels, func(i, j int) bool {
			return channels[i].Priority > channels[j].Priority
		})
	}
	p, size := pageQuery(c)
	okPaged(c, slicePage(channels, p, size), int64(len(channels)))
}

func (s *Server) searchChannels(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyword := c.Query("keyword")
	group := c.Query("group")
	model := c.Query("model")

	var matched []*models.Channel
	for _, ch := range s.Channels {
		if keyword != "" && !strings.Contains(ch.Name, keyword) &&
			strconv.Itoa(ch.ID) != keyword {
			continue
		}
		if group != "" && !strings.Contains(ch.Group, group) {
			continue
		}
		if model != "" && !strings.Contains(ch.Models, model) {
			continue
		}
		matched = append(matched, ch)
	}
	ok(c, matched)
}

// channelPatch PUT /api/channel/ 的请求体，nil 字段表示不改动
type channelPatch struct {
	ID           int     `json:"id"`
	Name         *string `json:"name"`
	Key          *string `json:"key"`
	BaseURL      *string `json:"base_url"`
	Models       *string `json:"models"`
	ModelMapping *string `json:"model_mapping"`
	Group        *string `json:"group"`
	Tag          *string `json:"tag"`
	Status       *int    `json:"status"`
	Priority     *int64  `json:"priority"`
	Weight       *int    `json:"weight"`
}

func (s *Server) updateChannel(c *gin.Context) {
	var patch channelPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, "无效的请求参数")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.Channels {
		if ch.ID != patch.ID {
			continue
		}
		if patch.Name != nil {
			ch.Name = *patch.Name
		}
		if patch.Key != nil {
			ch.Key = *patch.Key
		}
		if patch.BaseURL != nil {
			ch.BaseURL = *patch.BaseURL
		}
		if patch.Models != nil {
			ch.Models = *patch.Models
		}
		if patch.ModelMapping != nil {
			ch.ModelMapping = *patch.ModelMapping
		}
		if patch.Group != nil {
			ch.Group = *patch.Group
		}
		if patch.Tag != nil {
			ch.Tag = *patch.Tag
		}
		if patch.Status != nil {
			ch.Status = *patch.Status
		}
		if patch.Priority != nil {
			ch.Priority = *patch.Priority
		}
		if patch.Weight != nil {
			ch.Weight = *patch.Weight
		}
		ok(c, ch)
		return
	}
	fail(c, "渠道不存在")
}

func (s *Server) deleteChannel(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ch := range s.Channels {
		if ch.ID == id {
			s.Channels = append(s.Channels[:i], s.Channels[i+1:]...)
			ok(c, nil)
			return
		}
	}
	fail(c, "渠道不存在")
}

func (s *Server) deleteDisabledChannels(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*models.Channel
	var removed int64
	for _, ch := range s.Channels {
		if ch.Status == models.ChannelStatusEnabled {
			kept = append(kept, ch)
		} else {
			removed++
		}
	}
	s.Channels = kept
	ok(c, removed)
}

func (s *Server) batchDeleteChannels(c *gin.Context) {
	var req struct {
		IDs []int `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "无效的请求参数")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	targets := make(map[int]struct{}, len(req.IDs))
	for _, id := range req.IDs {
		targets[id] = struct{}{}
	}
	var kept []*models.Channel
	var removed int64
	for _, ch := range s.Channels {
		if _, hit := targets[ch.ID]; hit {
			removed++
		} else {
			kept = append(kept, ch)
		}
	}
	s.Channels = kept
	ok(c, removed)
}

func (s *Server) setTagStatus(status int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Tag string `json:"tag"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Tag == "" {
			fail(c, "标签不能为空")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		for _, ch := range s.Channels {
			if ch.Tag == req.Tag {
				ch.Status = status
			}
		}
		ok(c, nil)
	}
}

func (s *Server) editTag(c *gin.Context) {
	var req struct {
		Tag      string  `json:"tag"`
		NewTag   *string `json:"new_tag"`
		Priority *int64  `json:"priority"`
		Weight   *int64  `json:"weight"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Tag == "" {
		fail(c, "标签不能为空")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.Channels {
		if ch.Tag != req.Tag {
			continue
		}
		if req.Priority != nil {
			ch.Priority = *req.Priority
		}
		if req.Weight != nil {
			ch.Weight = int(*req.Weight)
		}
		if req.NewTag != nil {
			ch.Tag = *req.NewTag
		}
	}
	ok(c, nil)
}

func (s *Server) testChannel(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.Channels {
		if ch.ID == id {
			ch.TestTime = time.Now().Unix()
			ch.ResponseTime = 120
			ok(c, gin.H{"time": 0.12, "model": c.Query("model")})
			return
		}
	}
	fail(c, "渠道不存在")
}

func (s *Server) testAllChannels(c *gin.Context) {
	ok(c, nil)
}

func (s *Server) updateBalance(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.Channels {
		if ch.ID == id {
			ch.BalanceUpdatedTime = time.Now().Unix()
			ok(c, gin.H{"balance": ch.Balance})
			return
		}
	}
	fail(c, "渠道不存在")
}

func (s *Server) updateAllBalances(c *gin.Context) {
	ok(c, nil)
}

// ==================== 令牌 ====================

func (s *Server) listTokens(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, size := pageQuery(c)
	okPaged(c, slicePage(s.Tokens, p, size), int64(len(s.Tokens)))
}

func (s *Server) searchTokens(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyword := c.Query("keyword")
	var matched []*models.Token
	for _, t := range s.Tokens {
		if keyword == "" || strings.Contains(t.Name, keyword) {
			matched = append(matched, t)
		}
	}
	ok(c, matched)
}

func (s *Server) createToken(c *gin.Context) {
	var t models.Token
	if err := c.ShouldBindJSON(&t); err != nil {
		fail(c, "无效的请求参数")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.NextID()
	t.Status = models.TokenStatusEnabled
	t.CreatedTime = time.Now().Unix()
	s.Tokens = append(s.Tokens, &t)
	ok(c, &t)
}

func (s *Server) updateToken(c *gin.Context) {
	var patch struct {
		ID             int     `json:"id"`
		Name           *string `json:"name"`
		RemainQuota    *int64  `json:"remain_quota"`
		ExpiredTime    *int64  `json:"expired_time"`
		UnlimitedQuota *bool   `json:"unlimited_quota"`
		Status         *int    `json:"status"`
		Group          *string `json:"group"`
	}
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, "无效的请求参数")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.Tokens {
		if t.ID != patch.ID {
			continue
		}
		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.RemainQuota != nil {
			t.RemainQuota = *patch.RemainQuota
		}
		if patch.ExpiredTime != nil {
			t.ExpiredTime = *patch.ExpiredTime
		}
		if patch.UnlimitedQuota != nil {
			t.UnlimitedQuota = *patch.UnlimitedQuota
		}
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		if patch.Group != nil {
			t.Group = *patch.Group
		}
		ok(c, t)
		return
	}
	fail(c, "令牌不存在")
}

func (s *Server) deleteToken(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.Tokens {
		if t.ID == id {
			s.Tokens = append(s.Tokens[:i], s.Tokens[i+1:]...)
			ok(c, nil)
			return
		}
	}
	fail(c, "令牌不存在")
}

// ==================== 用户 ====================

func (s *Server) listUsers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, size := pageQuery(c)
	okPaged(c, slicePage(s.Users, p, size), int64(len(s.Users)))
}

func (s *Server) searchUsers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyword := c.Query("keyword")
	var matched []*models.User
	for _, u := range s.Users {
		if keyword == "" || strings.Contains(u.Username, keyword) {
			matched = append(matched, u)
		}
	}
	ok(c, matched)
}

func (s *Server) createUser(c *gin.Context) {
	var u models.User
	if err := c.ShouldBindJSON(&u); err != nil || u.Username == "" {
		fail(c, "用户名不能为空")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.NextID()
	u.Role = models.RoleCommonUser
	u.Status = models.UserStatusEnabled
	s.Users = append(s.Users, &u)
	ok(c, &u)
}

func (s *Server) updateUser(c *gin.Context) {
	var patch struct {
		ID          int     `json:"id"`
		Username    *string `json:"username"`
		DisplayName *string `json:"display_name"`
		Group       *string `json:"group"`
		Quota       *int64  `json:"quota"`
		Role        *int    `json:"role"`
		Status      *int    `json:"status"`
	}
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, "无效的请求参数")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if u.ID != patch.ID {
			continue
		}
		if patch.Username != nil {
			u.Username = *patch.Username
		}
		if patch.DisplayName != nil {
			u.DisplayName = *patch.DisplayName
		}
		if patch.Group != nil {
			u.Group = *patch.Group
		}
		if patch.Quota != nil {
			u.Quota = *patch.Quota
		}
		if patch.Role != nil {
			u.Role = *patch.Role
		}
		if patch.Status != nil {
			u.Status = *patch.Status
		}
		ok(c, u)
		return
	}
	fail(c, "用户不存在")
}

// deleteUser 软删除：打删除标记，行保留
func (s *Server) deleteUser(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if u.ID == id {
			u.DeletedAt = time.Now().Unix()
			ok(c, nil)
			return
		}
	}
	fail(c, "用户不存在")
}

// ==================== 兑换码 ====================

func (s *Server) listRedemptions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, size := pageQuery(c)
	okPaged(c, slicePage(s.Redemptions, p, size), int64(len(s.Redemptions)))
}

func (s *Server) searchRedemptions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyword := c.Query("keyword")
	var matched []*models.Redemption
	for _, r := range s.Redemptions {
		if keyword == "" || strings.Contains(r.Name, keyword) {
			matched = append(matched, r)
		}
	}
	ok(c, matched)
}

func (s *Server) createRedemption(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Quota int64  `json:"quota"`
		Count int    `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Count < 1 {
		fail(c, "无效的请求参数")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		id := s.NextID()
		key := "redeem-" + strconv.Itoa(id)
		s.Redemptions = append(s.Redemptions, &models.Redemption{
			ID:          id,
			Key:         key,
			Status:      models.RedemptionStatusEnabled,
			Name:        req.Name,
			Quota:       req.Quota,
			CreatedTime: time.Now().Unix(),
		})
		keys = append(keys, key)
	}
	ok(c, keys)
}

func (s *Server) updateRedemption(c *gin.Context) {
	var patch struct {
		ID     int     `json:"id"`
		Name   *string `json:"name"`
		Quota  *int64  `json:"quota"`
		Status *int    `json:"status"`
	}
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, "无效的请求参数")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.Redemptions {
		if r.ID != patch.ID {
			continue
		}
		// 已使用的兑换码不可再改动
		if r.Status == models.RedemptionStatusUsed {
			fail(c, "兑换码已使用，无法修改")
			return
		}
		if patch.Name != nil {
			r.Name = *patch.Name
		}
		if patch.Quota != nil {
			r.Quota = *patch.Quota
		}
		if patch.Status != nil {
			r.Status = *patch.Status
		}
		ok(c, r)
		return
	}
	fail(c, "兑换码不存在")
}

func (s *Server) deleteRedemption(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.Redemptions {
		if r.ID == id {
			s.Redemptions = append(s.Redemptions[:i], s.Redemptions[i+1:]...)
			ok(c, nil)
			return
		}
	}
	fail(c, "兑换码不存在")
}

// ==================== 日志 ====================

func (s *Server) listLogs(selfOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()

		logType, _ := strconv.Atoi(c.DefaultQuery("type", "0"))
		username := c.Query("username")
		modelName := c.Query("model_name")

		var matched []*models.Log
		for _, l := range s.Logs {
			if logType != 0 && l.Type != logType {
				continue
			}
			if !selfOnly && username != "" && l.Username != username {
				continue
			}
			if modelName != "" && l.ModelName != modelName {
				continue
			}
			matched = append(matched, l)
		}
		p, size := pageQuery(c)
		okPaged(c, slicePage(matched, p, size), int64(len(matched)))
	}
}

func (s *Server) logStat(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stat models.LogStat
	for _, l := range s.Logs {
		stat.Quota += l.Quota
	}
	ok(c, stat)
}

func (s *Server) purgeLogs(c *gin.Context) {
	target, _ := strconv.ParseInt(c.Query("target_timestamp"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*models.Log
	var removed int64
	for _, l := range s.Logs {
		if l.CreatedAt < target {
			removed++
		} else {
			kept = append(kept, l)
		}
	}
	s.Logs = kept
	ok(c, removed)
}

// ==================== 配置 ====================

func (s *Server) listOptions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	options := make([]models.Option, 0, len(s.Options))
	for k, v := range s.Options {
		options = append(options, models.Option{Key: k, Value: v})
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].Key < options[j].Key
	})
	ok(c, options)
}

func (s *Server) updateOption(c *gin.Context) {
	var opt models.Option
	if err := c.ShouldBindJSON(&opt); err != nil || opt.Key == "" {
		fail(c, "无效的请求参数")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, bad := s.FailOptionKeys[opt.Key]; bad {
		fail(c, msg)
		return
	}
	s.Options[opt.Key] = opt.Value
	ok(c, nil)
}
