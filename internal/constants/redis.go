package constants

import "fmt"

// Redis 键约定：列表队列用 RPush/BRPop，行情与余额用 Hash。
const (
	OrderBotQueueKey = "orderBot:queue" // 出站：id[,id...]=ACTION
	OrderResponseKey = "order:response" // 入站：成交回报 JSON
	SocketParserKey  = "socket:parser"  // 出站：UI 推送
	TelegramQueueKey = "telegram:queue" // 出站：用户通知
)

// 虚拟盘余额按整数存储的换算系数
const BalanceIntegerScale = 100000000

// MarketDataKey 行情规格 hash（field 为 symbol，值含 tickSize/stepSize）
func MarketDataKey(exchange string) string {
	return exchange + ":marketData"
}

// PriceKey 最新价 hash（field 为 symbol）
func PriceKey(exchange string) string {
	return exchange + ":price"
}

// WatcherNewOrderKey 价格监视器的新订单队列
func WatcherNewOrderKey(exchange string) string {
	return exchange + ":watcher:newOrder"
}

// WatcherDetailKey 监视订单详情 hash（field 为订单 id）
func WatcherDetailKey(exchange string) string {
	return exchange + ":watcher:orderDetail"
}

// BalanceKey 用户余额 hash。实盘值为 {free,locked} JSON，
// 虚拟盘值为 free*BalanceIntegerScale 的整数。
func BalanceKey(exchange, userID string, virtual bool) string {
	mode := "actual"
	if virtual {
		mode = "virtual"
	}
	return fmt.Sprintf("%s:userData:%s:%s:balance", exchange, userID, mode)
}

// orderBot:queue 指令
const (
	ExecuteActionOpen   = "OPEN"
	ExecuteActionClose  = "CLOSE"
	ExecuteActionCancel = "CANCEL"
)
