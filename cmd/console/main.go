package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/sakurapi/newapi-console/internal/channel"
	"github.com/sakurapi/newapi-console/internal/client"
	"github.com/sakurapi/newapi-console/internal/config"
	"github.com/sakurapi/newapi-console/internal/db"
	"github.com/sakurapi/newapi-console/internal/history"
	"github.com/sakurapi/newapi-console/internal/logview"
	"github.com/sakurapi/newapi-console/internal/models"
	"github.com/sakurapi/newapi-console/internal/prefs"
	"github.com/sakurapi/newapi-console/internal/quota"
	"github.com/sakurapi/newapi-console/internal/redemption"
	"github.com/sakurapi/newapi-console/internal/settings"
	"github.com/sakurapi/newapi-console/internal/token"
	"github.com/sakurapi/newapi-console/internal/user"
)

// channelColumns 渠道表的全部列，列可见性偏好以此为准
var channelColumns = []string{"id", "name", "type", "status", "priority", "weight", "group", "tag", "used_quota", "response_time"}

// app 聚合 CLI 运行期依赖
type app struct {
	cfg     *config.Config
	api     *client.Client
	prefs   *prefs.Service
	history *history.Service
}

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Gateway.AccessToken == "" {
		log.Fatal("缺少 NEWAPI_ACCESS_TOKEN，请在环境变量或 .env 中配置")
	}

	database, err := db.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("初始化本地数据库失败: %v", err)
	}
	defer func() {
		_ = db.CloseDatabase(database)
	}()
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(database); err != nil {
			log.Fatalf("%v", err)
		}
	}

	a := &app{
		cfg:     cfg,
		api:     client.New(cfg.Gateway.BaseURL, cfg.Gateway.AccessToken, cfg.Gateway.UserID),
		prefs:   prefs.NewService(prefs.NewGormStorage(database)),
		history: history.NewService(database),
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if err := a.run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("操作失败: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `用法: console <资源> [参数]
  channel   list | search <关键字> | test <id> | enable <id> | disable <id> | delete <id>
  tag       enable <标签> | disable <标签> | priority <标签> <值>
  token     list | disable <id> | delete <id>
  user      list | ban <id> | delete <id>
  redeem    list | create <名称> <额度> <数量>
  logs      list | stat | purge <时间戳>
  option    list | get <key> | set <key> <value>
  history   [数量]`)
}

func (a *app) run(ctx context.Context, resource string, args []string) error {
	switch resource {
	case "channel":
		return a.runChannel(ctx, args)
	case "tag":
		return a.runTag(ctx, args)
	case "token":
		return a.runToken(ctx, args)
	case "user":
		return a.runUser(ctx, args)
	case "redeem":
		return a.runRedemption(ctx, args)
	case "logs":
		return a.runLogs(ctx, args)
	case "option":
		return a.runOption(ctx, args)
	case "history":
		return a.runHistory(args)
	default:
		usage()
		return fmt.Errorf("未知资源: %s", resource)
	}
}

// ==================== 渠道 ====================

func (a *app) channelStore() *channel.Store {
	store := channel.NewStore(a.api, a.prefs.PageSize())
	store.SetIDSort(a.prefs.IDSort())
	store.SetTagMode(true)
	return store
}

func (a *app) runChannel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("channel", flag.ExitOnError)
	page := fs.Int("p", 0, "页码（从 0 开始）")
	model := fs.String("model", "", "测试用模型")
	if len(args) == 0 {
		return fmt.Errorf("缺少子命令")
	}
	sub := args[0]
	_ = fs.Parse(args[1:])

	store := a.channelStore()
	switch sub {
	case "list":
		if err := store.LoadPage(ctx, *page); err != nil {
			return err
		}
		a.renderChannelRows(store.Rows())
		fmt.Printf("共约 %d 条\n", store.List().TotalEstimate())
		return nil
	case "search":
		if err := store.Search(ctx, fs.Arg(0), "", ""); err != nil {
			return err
		}
		a.renderChannelRows(store.Rows())
		return nil
	case "test":
		id, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("无效的渠道 id: %q", fs.Arg(0))
		}
		if err := store.LoadPage(ctx, *page); err != nil {
			return err
		}
		rows := store.Rows()
		result, err := store.Test(ctx, id, *model)
		if err != nil {
			return err
		}
		// 就地刷新已渲染行快照里的测速结果
		channel.MutateRows(rows, id, func(ch *models.Channel) {
			ch.ResponseTime = int(result.Time * 1000)
		})
		a.renderChannelRows(rows)
		fmt.Printf("渠道 %d 测试通过，耗时 %.2fs\n", id, result.Time)
		return nil
	case "enable", "disable", "delete":
		id, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("无效的渠道 id: %q", fs.Arg(0))
		}
		switch sub {
		case "enable":
			err = store.SetStatus(ctx, id, models.ChannelStatusEnabled)
		case "disable":
			err = store.SetStatus(ctx, id, models.ChannelStatusDisabled)
		case "delete":
			err = store.Delete(ctx, id)
		}
		if err != nil {
			return err
		}
		_ = a.history.RecordInfo(models.ActionTypeChannel,
			fmt.Sprintf("channel %s: %d", sub, id), map[string]interface{}{"id": id})
		fmt.Println("完成")
		return nil
	default:
		return fmt.Errorf("未知子命令: %s", sub)
	}
}

func (a *app) runTag(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("用法: tag enable|disable|priority <标签> [值]")
	}
	store := a.channelStore()
	sub, tag := args[0], args[1]

	var err error
	switch sub {
	case "enable":
		err = store.EnableTag(ctx, tag)
	case "disable":
		err = store.DisableTag(ctx, tag)
	case "priority":
		if len(args) < 3 {
			return fmt.Errorf("缺少优先级值")
		}
		var p int64
		if p, err = strconv.ParseInt(args[2], 10, 64); err != nil {
			return fmt.Errorf("无效的优先级: %q", args[2])
		}
		err = store.EditTag(ctx, channel.EditTagRequest{Tag: tag, Priority: &p})
	default:
		return fmt.Errorf("未知子命令: %s", sub)
	}
	if err != nil {
		return err
	}
	_ = a.history.RecordInfo(models.ActionTypeChannel,
		fmt.Sprintf("tag %s: %s", sub, tag), map[string]interface{}{"tag": tag})
	fmt.Println("完成")
	return nil
}

// renderChannelRows 按列可见性偏好渲染渠道行
func (a *app) renderChannelRows(rows []channel.Row) {
	visible := a.prefs.ColumnVisibility("channel", channelColumns)
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	defer w.Flush()

	var header []string
	for _, col := range channelColumns {
		if visible[col] {
			header = append(header, col)
		}
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	printRow := func(cells map[string]string) {
		var line []string
		for _, col := range channelColumns {
			if visible[col] {
				line = append(line, cells[col])
			}
		}
		fmt.Fprintln(w, strings.Join(line, "\t"))
	}

	for _, row := range rows {
		switch row.Kind {
		case channel.RowLeaf:
			ch := row.Channel
			printRow(map[string]string{
				"id":            strconv.Itoa(ch.ID),
				"name":          ch.Name,
				"type":          strconv.Itoa(ch.Type),
				"status":        strconv.Itoa(ch.Status),
				"priority":      strconv.FormatInt(ch.Priority, 10),
				"weight":        strconv.Itoa(ch.Weight),
				"group":         ch.Group,
				"tag":           ch.Tag,
				"used_quota":    quota.Render(ch.UsedQuota, true),
				"response_time": strconv.Itoa(ch.ResponseTime) + "ms",
			})
		case channel.RowGroup:
			g := row.Group
			printRow(map[string]string{
				"id":            g.Tag,
				"name":          g.Name,
				"type":          "-",
				"status":        strconv.Itoa(g.Status),
				"priority":      g.Priority.String(),
				"weight":        g.Weight.String(),
				"group":         g.Group,
				"tag":           g.Tag,
				"used_quota":    quota.Render(g.UsedQuota, true),
				"response_time": strconv.Itoa(g.ResponseTime) + "ms",
			})
			for _, ch := range g.Children {
				printRow(map[string]string{
					"id":            "  " + strconv.Itoa(ch.ID),
					"name":          "  " + ch.Name,
					"type":          strconv.Itoa(ch.Type),
					"status":        strconv.Itoa(ch.Status),
					"priority":      strconv.FormatInt(ch.Priority, 10),
					"weight":        strconv.Itoa(ch.Weight),
					"group":         ch.Group,
					"tag":           ch.Tag,
					"used_quota":    quota.Render(ch.UsedQuota, true),
					"response_time": strconv.Itoa(ch.ResponseTime) + "ms",
				})
			}
		}
	}
}

// ==================== 令牌 ====================

func (a *app) runToken(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("缺少子命令")
	}
	store := token.NewStore(a.api, a.prefs.PageSize())
	switch args[0] {
	case "list":
		if err := store.LoadPage(ctx, 0); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "id\tname\tkey\tstatus\tremain_quota\texpired_time")
		for _, t := range store.Items() {
			remain := strconv.FormatInt(t.RemainQuota, 10)
			if t.UnlimitedQuota {
				remain = "unlimited"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%d\n",
				t.ID, t.Name, t.DisplayKey(), t.Status, remain, t.ExpiredTime)
		}
		return w.Flush()
	case "disable", "delete":
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("无效的令牌 id: %q", args[1])
		}
		if args[0] == "disable" {
			err = store.SetStatus(ctx, id, models.TokenStatusDisabled)
		} else {
			err = store.Delete(ctx, id)
		}
		if err != nil {
			return err
		}
		_ = a.history.RecordInfo(models.ActionTypeToken,
			fmt.Sprintf("token %s: %d", args[0], id), nil)
		fmt.Println("完成")
		return nil
	default:
		return fmt.Errorf("未知子命令: %s", args[0])
	}
}

// ==================== 用户 ====================

func (a *app) runUser(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("缺少子命令")
	}
	store := user.NewStore(a.api, a.prefs.PageSize())
	switch args[0] {
	case "list":
		if err := store.LoadPage(ctx, 0); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "id\tusername\trole\tstatus\tquota\tused_quota\tgroup")
		for _, u := range store.Items() {
			name := u.Username
			if u.Deleted() {
				name += " (已删除)"
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\t%s\n",
				u.ID, name, u.Role, u.Status,
				quota.Render(u.Quota, true), quota.Render(u.UsedQuota, true), u.Group)
		}
		return w.Flush()
	case "ban", "delete":
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("无效的用户 id: %q", args[1])
		}
		if args[0] == "ban" {
			err = store.SetStatus(ctx, id, models.UserStatusDisabled)
		} else {
			err = store.Delete(ctx, id)
		}
		if err != nil {
			return err
		}
		_ = a.history.RecordWarning(models.ActionTypeUser,
			fmt.Sprintf("user %s: %d", args[0], id), nil)
		fmt.Println("完成")
		return nil
	default:
		return fmt.Errorf("未知子命令: %s", args[0])
	}
}

// ==================== 兑换码 ====================

func (a *app) runRedemption(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("缺少子命令")
	}
	store := redemption.NewStore(a.api, a.prefs.PageSize())
	switch args[0] {
	case "list":
		if err := store.LoadPage(ctx, 0); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "id\tname\tstatus\tquota\tcreated_time")
		for _, r := range store.Items() {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\n",
				r.ID, r.Name, r.Status, quota.Render(r.Quota, true), r.CreatedTime)
		}
		return w.Flush()
	case "create":
		if len(args) < 4 {
			return fmt.Errorf("用法: redeem create <名称> <额度> <数量>")
		}
		amount, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("无效的额度: %q", args[2])
		}
		count, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("无效的数量: %q", args[3])
		}
		keys, err := store.Create(ctx, redemption.CreateRequest{
			Name:  args[1],
			Quota: amount,
			Count: count,
		})
		if err != nil {
			return err
		}
		_ = a.history.RecordInfo(models.ActionTypeRedemption,
			fmt.Sprintf("redemption create: %s x%d", args[1], count), nil)
		for _, key := range keys {
			fmt.Println(key)
		}
		return nil
	default:
		return fmt.Errorf("未知子命令: %s", args[0])
	}
}

// ==================== 日志 ====================

func (a *app) runLogs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("缺少子命令")
	}
	store := logview.NewStore(a.api, a.prefs.PageSize(), false)
	switch args[0] {
	case "list":
		if err := store.LoadPage(ctx, 0, logview.Filters{}); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "id\ttype\tusername\tmodel\tquota\ttokens\tuse_time")
		for _, l := range store.Items() {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%d/%d\t%dms\n",
				l.ID, l.Type, l.Username, l.ModelName,
				quota.Render(l.Quota, true), l.PromptTokens, l.CompletionTokens, l.UseTime)
		}
		return w.Flush()
	case "stat":
		stat, err := store.Stat(ctx, logview.Filters{})
		if err != nil {
			return err
		}
		fmt.Printf("消耗配额 %s，RPM %d，TPM %d\n", quota.Render(stat.Quota, true), stat.RPM, stat.TPM)
		return nil
	case "purge":
		if len(args) < 2 {
			return fmt.Errorf("缺少目标时间戳")
		}
		target, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("无效的时间戳: %q", args[1])
		}
		count, err := store.Purge(ctx, target)
		if err != nil {
			return err
		}
		_ = a.history.RecordWarning(models.ActionTypeLog,
			fmt.Sprintf("log purge before %d, removed %d", target, count), nil)
		fmt.Printf("已清理 %d 条日志\n", count)
		return nil
	default:
		return fmt.Errorf("未知子命令: %s", args[0])
	}
}

// ==================== 配置 ====================

func (a *app) runOption(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("缺少子命令")
	}
	engine := settings.NewEngine(a.api)
	if err := engine.Load(ctx); err != nil {
		return err
	}
	switch args[0] {
	case "list":
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		for _, key := range engine.Keys() {
			value, _ := engine.Get(key)
			if len(value) > 60 {
				value = value[:57] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\n", key, value)
		}
		return w.Flush()
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("缺少 key")
		}
		value, ok := engine.Get(args[1])
		if !ok {
			return fmt.Errorf("配置项不存在: %s", args[1])
		}
		fmt.Println(value)
		return nil
	case "set":
		if len(args) < 3 {
			return fmt.Errorf("用法: option set <key> <value>")
		}
		key, value := args[1], args[2]
		engine.Set(key, value)
		result, err := engine.Submit(ctx, []string{key})
		if err != nil {
			return err
		}
		if result.NothingChanged {
			fmt.Println("配置未变化，未发出请求")
			return nil
		}
		if !result.OK() {
			return fmt.Errorf("提交失败: %s", result.Failed[key])
		}
		_ = a.history.RecordInfo(models.ActionTypeOption,
			fmt.Sprintf("option set: %s", key), map[string]interface{}{"key": key})
		fmt.Println("完成")
		return nil
	default:
		return fmt.Errorf("未知子命令: %s", args[0])
	}
}

// ==================== 操作历史 ====================

func (a *app) runHistory(args []string) error {
	limit := 20
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			limit = n
		}
	}
	records, err := a.history.Recent(limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "time\ttype\tlevel\tmessage")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.Type, r.Level, r.Message)
	}
	return w.Flush()
}
