package channel

import "github.com/sakurapi/newapi-console/internal/models"

// MutateRows 行变更引擎
// 按 id 在行集合中定位渠道并原位应用补丁，聚合行会继续深入其子渠道。
// 最多修改一条记录；未命中是空操作而不是错误，返回是否命中。
// 供持有聚合行快照的调用方（如渲染层）在服务端确认变更后就地刷新，
// 避免整页重新拉取；Store 内部对平铺列表的补丁走 liststore.MutateByID。
func MutateRows(rows []Row, id int, patch func(*models.Channel)) bool {
	for _, row := range rows {
		switch row.Kind {
		case RowLeaf:
			if row.Channel.ID == id {
				patch(row.Channel)
				return true
			}
		case RowGroup:
			for _, ch := range row.Group.Children {
				if ch.ID == id {
					patch(ch)
					return true
				}
			}
		}
	}
	return false
}
