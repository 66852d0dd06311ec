package redisrepo

import "fmt"

const ns = "museumtix:v1"

func KeyDashboardStats(order string) string {
	return fmt.Sprintf("%s:admin:stats:%s", ns, order)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemTicket(scope, idemKey string) string {
	return fmt.Sprintf("%s:idem:tickets:%s:%s", ns, scope, idemKey)
}

func KeyChatDraft(sessionID string) string {
	return fmt.Sprintf("%s:chat:draft:%s", ns, sessionID)
}

func ChannelTicketsChanged() string {
	return ns + ":tickets:changed"
}
