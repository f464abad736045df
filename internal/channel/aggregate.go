package channel

import (
	"strconv"
	"strings"

	"github.com/sakurapi/newapi-console/internal/models"
)

// RowKind 行类型
type RowKind int

const (
	// RowLeaf 单个渠道行
	RowLeaf RowKind = iota
	// RowGroup 标签聚合行（客户端合成，不对应服务端实体）
	RowGroup
)

// Row 渠道列表中的一行：普通渠道或标签聚合组
// 显式的 tagged union，避免用“有没有 children 字段”来区分两种形态
type Row struct {
	Kind    RowKind
	Channel *models.Channel // Kind == RowLeaf 时有效
	Group   *TagGroup       // Kind == RowGroup 时有效
}

// Key 行的稳定标识：渠道行用 id，聚合行用标签名
func (r Row) Key() string {
	if r.Kind == RowGroup {
		return r.Group.Tag
	}
	return strconv.Itoa(r.Channel.ID)
}

// MergedValue 聚合组的合并数值（优先级/权重）
// 所有子渠道取值一致时为具体值；出现分歧后进入 Mixed 态且不可逆，
// 此时编辑该值会下发到组内全部渠道
type MergedValue struct {
	set   bool
	mixed bool
	value int64
}

// absorb 吸收一个子渠道的取值
// 首个值直接采纳；后续值不一致则坍缩为 Mixed，且本轮内不再恢复
func (v *MergedValue) absorb(x int64) {
	if !v.set {
		v.set = true
		v.value = x
		return
	}
	if v.mixed {
		return
	}
	if v.value != x {
		v.mixed = true
	}
}

// Mixed 子渠道取值是否不一致
func (v MergedValue) Mixed() bool {
	return v.mixed
}

// Value 合并值与其有效性；Mixed 或尚未吸收任何值时无效
func (v MergedValue) Value() (int64, bool) {
	if !v.set || v.mixed {
		return 0, false
	}
	return v.value, true
}

// String 展示形式：Mixed 显示为空串，与编辑框“混合”占位语义一致
func (v MergedValue) String() string {
	if x, ok := v.Value(); ok {
		return strconv.FormatInt(x, 10)
	}
	return ""
}

// TagGroup 标签聚合组
// 由共享同一非空 tag 的渠道折叠而成，每次列表加载/搜索时整体重建
type TagGroup struct {
	Tag          string
	Name         string
	Group        string // 子渠道分组的并集（逗号集，首见序）
	Status       int    // 任一子渠道启用则为启用，本轮内粘性不回退
	UsedQuota    int64
	ResponseTime int // 衰减式滑动平均，越靠后的子渠道权重越大
	Priority     MergedValue
	Weight       MergedValue
	Children     []*models.Channel
}

// absorb 将一个渠道并入聚合组
func (g *TagGroup) absorb(ch *models.Channel) {
	g.Priority.absorb(ch.Priority)
	g.Weight.absorb(int64(ch.Weight))
	g.Group = unionCommaSet(g.Group, ch.Group)

	if len(g.Children) == 0 {
		g.Status = ch.Status
		g.ResponseTime = ch.ResponseTime
	} else {
		g.ResponseTime = (g.ResponseTime + ch.ResponseTime) / 2
	}
	if ch.Status == models.ChannelStatusEnabled {
		g.Status = models.ChannelStatusEnabled
	}

	g.UsedQuota += ch.UsedQuota
	g.Children = append(g.Children, ch)
}

// Aggregate 标签聚合变换
// enabled 为 false 时恒等：每个渠道自成一行。
// enabled 为 true 时从左到右单趟扫描：共享同一非空 tag 的渠道折叠进
// 同一聚合行，聚合行按标签首见顺序出现；无 tag 的渠道保持独立行，
// 不合并进任何组。纯函数，不修改输入渠道。
func Aggregate(channels []*models.Channel, enabled bool) []Row {
	rows := make([]Row, 0, len(channels))
	if !enabled {
		for _, ch := range channels {
			rows = append(rows, Row{Kind: RowLeaf, Channel: ch})
		}
		return rows
	}

	groups := make(map[string]*TagGroup)
	for _, ch := range channels {
		if ch.Tag == "" {
			rows = append(rows, Row{Kind: RowLeaf, Channel: ch})
			continue
		}
		g, ok := groups[ch.Tag]
		if !ok {
			g = &TagGroup{
				Tag:  ch.Tag,
				Name: "标签：" + ch.Tag,
			}
			groups[ch.Tag] = g
			rows = append(rows, Row{Kind: RowGroup, Group: g})
		}
		g.absorb(ch)
	}
	return rows
}

// unionCommaSet 并入逗号集中的新元素，保持首见顺序
func unionCommaSet(existing, incoming string) string {
	if existing == "" {
		return incoming
	}
	if incoming == "" {
		return existing
	}
	merged := models.SplitCommaSet(existing)
	seen := make(map[string]struct{}, len(merged))
	for _, g := range merged {
		seen[g] = struct{}{}
	}
	for _, g := range models.SplitCommaSet(incoming) {
		if _, ok := seen[g]; !ok {
			seen[g] = struct{}{}
			merged = append(merged, g)
		}
	}
	return strings.Join(merged, ",")
}
