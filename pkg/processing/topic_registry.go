package processing

import (
	"sort"
	"sync"
	"time"

	"github.com/open-teleop/invkin/pkg/config"
	customlog "github.com/open-teleop/invkin/pkg/log"
)

// TopicInfo holds metadata and traffic counters for a topic
type TopicInfo struct {
	TopicID      string    `json:"topic_id"`
	Topic        string    `json:"topic"`
	MessageType  string    `json:"message_type"`
	Direction    string    `json:"direction"`
	MessageCount int64     `json:"message_count"`
	ByteCount    int64     `json:"byte_count"`
	ErrorCount   int64     `json:"error_count"`
	LastMessage  time.Time `json:"last_message"`
}

// TopicRegistry maintains information about topics
type TopicRegistry struct {
	logger customlog.Logger
	topics map[string]*TopicInfo
	mu     sync.RWMutex
}

// NewTopicRegistry creates a new topic registry
func NewTopicRegistry(logger customlog.Logger) *TopicRegistry {
	return &TopicRegistry{
		logger: logger,
		topics: make(map[string]*TopicInfo),
	}
}

// LoadFromConfig replaces the registry contents with the topics of cfg
func (r *TopicRegistry) LoadFromConfig(cfg *config.ControlConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.topics = make(map[string]*TopicInfo)
	for _, mapping := range cfg.TopicMappings() {
		r.topics[mapping.Topic] = &TopicInfo{
			TopicID:     mapping.TopicID,
			Topic:       mapping.Topic,
			MessageType: mapping.MessageType,
			Direction:   mapping.Direction,
		}
	}

	r.logger.Infof("Loaded %d topics into registry", len(r.topics))
}

// GetTopicInfo gets information for a topic
func (r *TopicRegistry) GetTopicInfo(topic string) (TopicInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.topics[topic]
	if !exists {
		return TopicInfo{}, false
	}
	return *info, true
}

// UpdateTopicStats counts one message of size bytes on topic. Unknown topics
// are registered on first use.
func (r *TopicRegistry) UpdateTopicStats(topic string, size int, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := r.lookupOrCreate(topic)
	info.MessageCount++
	info.ByteCount += int64(size)
	info.LastMessage = at
}

// RecordError counts a message on topic that could not be sent or decoded
func (r *TopicRegistry) RecordError(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lookupOrCreate(topic).ErrorCount++
}

func (r *TopicRegistry) lookupOrCreate(topic string) *TopicInfo {
	info, exists := r.topics[topic]
	if !exists {
		info = &TopicInfo{TopicID: topic, Topic: topic}
		r.topics[topic] = info
		r.logger.Warnf("Traffic on unregistered topic %s", topic)
	}
	return info
}

// GetMessageType gets the message type for a topic
func (r *TopicRegistry) GetMessageType(topic string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.topics[topic]
	if !exists {
		return "", false
	}
	return info.MessageType, true
}

// GetAllTopics returns all registered topics, sorted
func (r *TopicRegistry) GetAllTopics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]string, 0, len(r.topics))
	for topic := range r.topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// GetTopicStats returns a copy of every topic's counters, sorted by topic
func (r *TopicRegistry) GetTopicStats() []TopicInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]TopicInfo, 0, len(r.topics))
	for _, info := range r.topics {
		stats = append(stats, *info)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Topic < stats[j].Topic })
	return stats
}
