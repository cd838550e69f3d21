// Package compose implements the quiz composer: given the pool of items
// the phase/ranker/selector/breaker/review stages chose, it interleaves
// them so adjacent items avoid repeating a topic, then truncates to the
// fixed quiz length.
package compose

import "github.com/tutu-network/jeevibe-iidp/internal/domain"

// SlotItem is one candidate item destined for the quiz, still unordered.
type SlotItem struct {
	ItemID  string
	TopicID string
}

// topicQueue is a FIFO of items for one topic, preserving the order its
// items were appended in.
type topicQueue struct {
	topicID string
	items   []SlotItem
}

// Interleave orders items so that no two adjacent quiz items share a topic
// when avoidable, truncating to domain.QuizLength. Among topics eligible to
// emit next (anything but the topic just emitted, unless it's the only
// topic with items left), it consults rng for a fair pick — ties in which
// topic goes next are intentionally randomized, not which item within a
// topic's queue (that order is preserved as given).
func Interleave(candidates []SlotItem, rng domain.RNG) []domain.QuizItem {
	queues := groupByTopic(candidates)

	var out []domain.QuizItem
	lastTopic := ""
	for remaining(queues) > 0 && len(out) < domain.QuizLength {
		eligible := eligibleTopics(queues, lastTopic)
		idx := 0
		if len(eligible) > 1 {
			idx = rng.Intn(len(eligible))
		}
		chosen := eligible[idx]

		q := queues[chosen]
		item := q.items[0]
		q.items = q.items[1:]
		queues[chosen] = q

		out = append(out, domain.QuizItem{ItemID: item.ItemID, TopicID: item.TopicID, Position: len(out)})
		lastTopic = chosen
	}
	return out
}

func groupByTopic(candidates []SlotItem) map[string]topicQueue {
	order := make([]string, 0)
	seen := make(map[string]bool)
	byTopic := make(map[string][]SlotItem)
	for _, c := range candidates {
		if !seen[c.TopicID] {
			seen[c.TopicID] = true
			order = append(order, c.TopicID)
		}
		byTopic[c.TopicID] = append(byTopic[c.TopicID], c)
	}

	queues := make(map[string]topicQueue, len(order))
	for _, topicID := range order {
		queues[topicID] = topicQueue{topicID: topicID, items: byTopic[topicID]}
	}
	return queues
}

func remaining(queues map[string]topicQueue) int {
	n := 0
	for _, q := range queues {
		n += len(q.items)
	}
	return n
}

// eligibleTopics returns, in deterministic lexicographic order, the
// topic ids with items left excluding lastTopic — unless lastTopic is the
// only topic with items remaining, in which case it's the sole option.
func eligibleTopics(queues map[string]topicQueue, lastTopic string) []string {
	var others []string
	lastHasItems := false
	for topicID, q := range queues {
		if len(q.items) == 0 {
			continue
		}
		if topicID == lastTopic {
			lastHasItems = true
			continue
		}
		others = append(others, topicID)
	}
	if len(others) > 0 {
		sortStrings(others)
		return others
	}
	if lastHasItems {
		return []string{lastTopic}
	}
	return nil
}

// sortStrings is a tiny insertion sort to keep eligibleTopics' output
// deterministic before the RNG picks among it, without pulling in sort for
// what's always a short slice (≤ distinct-topic count, well under quiz length).
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// Union returns the deduplicated set of topic ids covered by a composed
// quiz, in first-appearance order.
func Union(items []domain.QuizItem) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		if !seen[it.TopicID] {
			seen[it.TopicID] = true
			out = append(out, it.TopicID)
		}
	}
	return out
}
