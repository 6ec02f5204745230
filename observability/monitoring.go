package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// RelayStats is the snapshot served on /stats.
type RelayStats struct {
	// --- PRESENCE ---
	OnlineUsers   int64  `json:"online_users"`
	OpenSockets   int64  `json:"open_sockets"`
	Connections   uint64 `json:"connections_total"`
	Logins        uint64 `json:"logins_total"`
	LoginRejected uint64 `json:"logins_rejected_total"`

	// --- PROTOCOL ---
	FriendRequests    uint64 `json:"friend_requests_total"`
	FriendResponses   uint64 `json:"friend_responses_total"`
	MessagesRelayed   uint64 `json:"messages_relayed_total"`
	MessagesDropped   uint64 `json:"messages_dropped_total"`
	LeaveNotified     uint64 `json:"leave_notifications_total"`
	PushesDropped     uint64 `json:"pushes_dropped_total"`
	MessagesCensored  uint64 `json:"messages_censored_total"`
	ProtocolErrors    uint64 `json:"protocol_errors_total"`
	TransportFailures uint64 `json:"transport_failures_total"`

	// --- ENGINE ---
	QueueLength   int64 `json:"queue_length"`
	QueueCapacity int64 `json:"queue_capacity"`

	// --- PROCESS ---
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
	SampledAt  string  `json:"sampled_at"`
	StartedAt  string  `json:"started_at"`
}

// Monitoring aggregates relay counters.
// Counters are atomic so transports and the engine loop can update them
// without sharing a lock; process figures are sampled by the heartbeat.
type Monitoring struct {
	log       *slog.Logger
	startedAt time.Time

	onlineUsers       int64
	openSockets       int64
	connections       uint64
	logins            uint64
	loginRejected     uint64
	friendRequests    uint64
	friendResponses   uint64
	messagesRelayed   uint64
	messagesDropped   uint64
	leaveNotified     uint64
	pushesDropped     uint64
	messagesCensored  uint64
	protocolErrors    uint64
	transportFailures uint64
	queueLength       int64
	queueCapacity     int64

	mu         sync.RWMutex
	rssBytes   uint64
	cpuPercent float64
	sampledAt  time.Time
}

func NewMonitoring(log *slog.Logger) *Monitoring {
	return &Monitoring{log: log, startedAt: time.Now().UTC()}
}

func (m *Monitoring) IncrConnections()       { atomic.AddUint64(&m.connections, 1) }
func (m *Monitoring) IncrLogins()            { atomic.AddUint64(&m.logins, 1) }
func (m *Monitoring) IncrLoginRejected()     { atomic.AddUint64(&m.loginRejected, 1) }
func (m *Monitoring) IncrFriendRequests()    { atomic.AddUint64(&m.friendRequests, 1) }
func (m *Monitoring) IncrFriendResponses()   { atomic.AddUint64(&m.friendResponses, 1) }
func (m *Monitoring) IncrMessagesRelayed()   { atomic.AddUint64(&m.messagesRelayed, 1) }
func (m *Monitoring) IncrMessagesDropped()   { atomic.AddUint64(&m.messagesDropped, 1) }
func (m *Monitoring) IncrLeaveNotified()     { atomic.AddUint64(&m.leaveNotified, 1) }
func (m *Monitoring) IncrPushesDropped()     { atomic.AddUint64(&m.pushesDropped, 1) }
func (m *Monitoring) IncrMessagesCensored()  { atomic.AddUint64(&m.messagesCensored, 1) }
func (m *Monitoring) IncrProtocolErrors()    { atomic.AddUint64(&m.protocolErrors, 1) }
func (m *Monitoring) IncrTransportFailures() { atomic.AddUint64(&m.transportFailures, 1) }

// SetOnlineUsers records the registry size after a mutation.
func (m *Monitoring) SetOnlineUsers(n int) {
	atomic.StoreInt64(&m.onlineUsers, int64(n))
}

// SetQueueDepth records how full the engine command queue is.
func (m *Monitoring) SetQueueDepth(length, capacity int) {
	atomic.StoreInt64(&m.queueLength, int64(length))
	atomic.StoreInt64(&m.queueCapacity, int64(capacity))
}

func (m *Monitoring) SocketOpened() { atomic.AddInt64(&m.openSockets, 1) }
func (m *Monitoring) SocketClosed() { atomic.AddInt64(&m.openSockets, -1) }

// SetProcessStats stores the latest self-sampled process figures.
func (m *Monitoring) SetProcessStats(rss uint64, cpu float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rssBytes = rss
	m.cpuPercent = cpu
	m.sampledAt = time.Now().UTC()
}

func (m *Monitoring) GetLatest() RelayStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.RLock()
	rss, cpu, sampledAt := m.rssBytes, m.cpuPercent, m.sampledAt
	m.mu.RUnlock()

	stats := RelayStats{
		OnlineUsers:       atomic.LoadInt64(&m.onlineUsers),
		OpenSockets:       atomic.LoadInt64(&m.openSockets),
		Connections:       atomic.LoadUint64(&m.connections),
		Logins:            atomic.LoadUint64(&m.logins),
		LoginRejected:     atomic.LoadUint64(&m.loginRejected),
		FriendRequests:    atomic.LoadUint64(&m.friendRequests),
		FriendResponses:   atomic.LoadUint64(&m.friendResponses),
		MessagesRelayed:   atomic.LoadUint64(&m.messagesRelayed),
		MessagesDropped:   atomic.LoadUint64(&m.messagesDropped),
		LeaveNotified:     atomic.LoadUint64(&m.leaveNotified),
		PushesDropped:     atomic.LoadUint64(&m.pushesDropped),
		MessagesCensored:  atomic.LoadUint64(&m.messagesCensored),
		ProtocolErrors:    atomic.LoadUint64(&m.protocolErrors),
		TransportFailures: atomic.LoadUint64(&m.transportFailures),
		QueueLength:       atomic.LoadInt64(&m.queueLength),
		QueueCapacity:     atomic.LoadInt64(&m.queueCapacity),
		RSSBytes:          rss,
		CPUPercent:        cpu,
		AllocMemMb:        mem.Alloc / 1024 / 1024,
		NumGC:             mem.NumGC,
		Goroutines:        runtime.NumGoroutine(),
		StartedAt:         m.startedAt.Format(time.RFC3339),
	}
	if !sampledAt.IsZero() {
		stats.SampledAt = sampledAt.Format(time.RFC3339)
	}

	m.log.Debug("Stats snapshot taken",
		"online_users", stats.OnlineUsers,
		"messages_relayed", stats.MessagesRelayed,
		"rss_bytes", stats.RSSBytes,
	)
	return stats
}
