package infrastructure

import (
	"encoding/binary"
	"hash/fnv"
	"log/slog"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// userConnections is the set of open connection ids of one user. Mutations happen
// inside the owning shard's callback, reads lock mu only.
type userConnections struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// ConnectionRegistry tracks which socket connections each authenticated user holds.
// A user key exists only while it owns at least one connection. Misses are silent.
type ConnectionRegistry struct {
	users  cmap.ConcurrentMap[int64, *userConnections]
	logger *slog.Logger
}

// NewConnectionRegistry returns an empty registry.
func NewConnectionRegistry(logger *slog.Logger) *ConnectionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionRegistry{
		users:  cmap.NewWithCustomShardingFunction[int64, *userConnections](shardUserID),
		logger: logger.With(slog.String("component", "connection-registry")),
	}
}

// Register adds connectionID to the user's set, creating the set on first connect.
func (r *ConnectionRegistry) Register(userID int64, connectionID string) {
	if connectionID == "" {
		return
	}
	r.users.Upsert(userID, nil, func(exist bool, set *userConnections, _ *userConnections) *userConnections {
		if !exist || set == nil {
			set = &userConnections{ids: make(map[string]struct{}, 1)}
		}
		set.mu.Lock()
		set.ids[connectionID] = struct{}{}
		set.mu.Unlock()
		return set
	})
	r.logger.Debug("connection registered", slog.Int64("userId", userID), slog.String("connectionId", connectionID))
}

// Unregister removes connectionID and drops the user key once the set is empty.
// Unknown users or connections are ignored.
func (r *ConnectionRegistry) Unregister(userID int64, connectionID string) {
	removedUser := r.users.RemoveCb(userID, func(_ int64, set *userConnections, exists bool) bool {
		if !exists || set == nil {
			return false
		}
		set.mu.Lock()
		defer set.mu.Unlock()
		delete(set.ids, connectionID)
		return len(set.ids) == 0
	})
	r.logger.Debug("connection unregistered", slog.Int64("userId", userID), slog.String("connectionId", connectionID), slog.Bool("userOffline", removedUser))
}

// ConnectionsFor returns a point-in-time copy of the user's connection ids, nil when
// the user has none.
func (r *ConnectionRegistry) ConnectionsFor(userID int64) []string {
	set, ok := r.users.Get(userID)
	if !ok || set == nil {
		return nil
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	if len(set.ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(set.ids))
	for id := range set.ids {
		out = append(out, id)
	}
	return out
}

// Online reports whether the user currently has a key in the registry.
func (r *ConnectionRegistry) Online(userID int64) bool {
	return r.users.Has(userID)
}

// UserCount is the number of users with at least one open connection.
func (r *ConnectionRegistry) UserCount() int {
	return r.users.Count()
}

// ConnectionCount sums the connections of every user.
func (r *ConnectionRegistry) ConnectionCount() int {
	total := 0
	r.users.IterCb(func(_ int64, set *userConnections) {
		set.mu.Lock()
		total += len(set.ids)
		set.mu.Unlock()
	})
	return total
}

// shardUserID is FNV-1a over the id's eight little-endian bytes.
func shardUserID(userID int64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(userID))
	h := fnv.New32a()
	_, _ = h.Write(buf[:])
	return h.Sum32()
}
