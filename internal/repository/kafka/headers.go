package kafka

import "github.com/segmentio/kafka-go"

// headerCarrier lets the otel propagator write trace context into message headers.
type headerCarrier map[string]string

func (h headerCarrier) Get(k string) string { return h[k] }
func (h headerCarrier) Set(k, v string)     { h[k] = v }
func (h headerCarrier) Keys() []string {
	ks := make([]string, 0, len(h))
	for k := range h {
		ks = append(ks, k)
	}
	return ks
}

func (h headerCarrier) toKafka() []kafka.Header {
	hs := make([]kafka.Header, 0, len(h))
	for k, v := range h {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return hs
}
