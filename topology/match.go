package topology

import (
	"reflect"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	HeadersMatchArg = "x-match"
	HeadersMatchAll = "all"
	HeadersMatchAny = "any"

	topicWordSeparator = "."
	topicAnyWord       = "*"
	topicAnyWords      = "#"
)

// Match reports whether a message with routingKey and headers published to
// an exchange of the given kind is routed through the binding.
func Match(kind string, binding *Binding, routingKey string, headers amqp.Table) bool {
	switch kind {
	case amqp.ExchangeFanout:
		return true
	case amqp.ExchangeDirect:
		return binding.RoutingKey == routingKey
	case amqp.ExchangeTopic:
		return matchTopic(binding.RoutingKey, routingKey)
	case amqp.ExchangeHeaders:
		return matchHeaders(binding.Args, headers)
	default:
		return false
	}
}

func matchTopic(pattern string, routingKey string) bool {
	return matchWords(splitWords(pattern), splitWords(routingKey))
}

func splitWords(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, topicWordSeparator)
}

// matchWords fills a table of "pattern[i:] matches key[j:]" from the tail,
// so the cost is bounded by len(pattern)*len(key) whatever the number of '#'.
func matchWords(pattern []string, key []string) bool {
	pattern = collapseAnyWords(pattern)

	next := make([]bool, len(key)+1)
	next[len(key)] = true
	for i := len(pattern) - 1; i >= 0; i-- {
		current := make([]bool, len(key)+1)
		for j := len(key); j >= 0; j-- {
			switch pattern[i] {
			case topicAnyWords:
				current[j] = next[j] || (j < len(key) && current[j+1])
			case topicAnyWord:
				current[j] = j < len(key) && next[j+1]
			default:
				current[j] = j < len(key) && pattern[i] == key[j] && next[j+1]
			}
		}
		next = current
	}
	return next[0]
}

func collapseAnyWords(pattern []string) []string {
	result := make([]string, 0, len(pattern))
	for _, word := range pattern {
		if word == topicAnyWords && len(result) > 0 && result[len(result)-1] == topicAnyWords {
			continue
		}
		result = append(result, word)
	}
	return result
}

func matchHeaders(args amqp.Table, headers amqp.Table) bool {
	mode := HeadersMatchAll
	if value, ok := args[HeadersMatchArg].(string); ok {
		mode = value
	}

	matched, total := 0, 0
	for key, expected := range args {
		if strings.HasPrefix(key, "x-") {
			continue
		}
		total++
		actual, ok := headers[key]
		if ok && reflect.DeepEqual(expected, actual) {
			matched++
		}
	}

	if mode == HeadersMatchAny {
		return matched > 0
	}
	return matched == total
}
