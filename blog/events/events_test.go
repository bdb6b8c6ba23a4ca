package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dfryer1193/postboard/api"
	"github.com/dfryer1193/postboard/blog/domain"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

func TestBroadcaster_DeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster()

	ch1, cancel1 := b.Subscribe(4)
	defer cancel1()
	ch2, cancel2 := b.Subscribe(4)
	defer cancel2()

	if b.Subscribers() != 2 {
		t.Fatalf("Subscribers() = %d, want 2", b.Subscribers())
	}

	evt := domain.Event{Kind: domain.EventPostCreated, PostID: 0, Actor: "0xowner"}
	b.Publish(evt)

	for i, ch := range []<-chan domain.Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got != evt {
				t.Errorf("subscriber %d got %+v, want %+v", i, got, evt)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(domain.Event{Kind: domain.EventPostLikedDisliked, PostID: i, IsLike: true})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	got := <-ch
	if got.PostID != 0 {
		t.Errorf("first buffered event PostID = %d, want 0", got.PostID)
	}
}

func TestBroadcaster_Cancel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(0)

	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", b.Subscribers())
	}

	// publishing with no subscribers is a no-op
	b.Publish(domain.Event{Kind: domain.EventPostCreated})
}

func TestBroadcaster_CloseThenCancel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(0)

	b.Close()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
}

func TestMulti(t *testing.T) {
	var got []string
	first := domain.PublisherFunc(func(evt domain.Event) { got = append(got, "first") })
	second := domain.PublisherFunc(func(evt domain.Event) { got = append(got, "second") })

	Multi{first, nil, second}.Publish(domain.Event{Kind: domain.EventPostUpdated})

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("publish order = %v, want [first second]", got)
	}
}

type logLine struct {
	Level  string `json:"level"`
	Kind   string `json:"kind"`
	PostID int    `json:"postID"`
	Actor  string `json:"actor"`
	IsLike *bool  `json:"isLike"`
}

type bufferWriter struct {
	mu    sync.Mutex
	lines [][]byte
}

func (w *bufferWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	line := make([]byte, len(p))
	copy(line, p)
	w.lines = append(w.lines, line)
	return len(p), nil
}

func TestLogPublisher(t *testing.T) {
	tests := []struct {
		name       string
		evt        domain.Event
		wantIsLike *bool
	}{
		{
			name: "created",
			evt:  domain.Event{Kind: domain.EventPostCreated, PostID: 3, Actor: "0xowner"},
		},
		{
			name:       "disliked",
			evt:        domain.Event{Kind: domain.EventPostLikedDisliked, PostID: 1, Actor: "0xaddr1", IsLike: false},
			wantIsLike: new(bool),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &bufferWriter{}
			NewLogPublisher(zerolog.New(w)).Publish(tt.evt)

			if len(w.lines) != 1 {
				t.Fatalf("got %d log lines, want 1", len(w.lines))
			}
			var line logLine
			if err := json.Unmarshal(w.lines[0], &line); err != nil {
				t.Fatalf("invalid log line %q: %v", w.lines[0], err)
			}
			if line.Level != "info" || line.Kind != string(tt.evt.Kind) || line.PostID != tt.evt.PostID || line.Actor != string(tt.evt.Actor) {
				t.Errorf("log line = %+v, want event %+v", line, tt.evt)
			}
			if (line.IsLike == nil) != (tt.wantIsLike == nil) {
				t.Errorf("isLike = %v, want %v", line.IsLike, tt.wantIsLike)
			}
		})
	}
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements only what MQTTPublisher calls; the embedded interface
// panics on anything else.
type fakeClient struct {
	paho.Client

	// release, when set, stalls Publish until closed
	release chan struct{}

	mu           sync.Mutex
	published    []published
	publishErr   error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if c.release != nil {
		<-c.release
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &fakeToken{err: c.publishErr}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func TestNewMQTTPublisher_Validation(t *testing.T) {
	if _, err := NewMQTTPublisher(MQTTConfig{}); err == nil {
		t.Error("expected error with empty broker")
	}
	if _, err := NewMQTTPublisher(MQTTConfig{Broker: "tcp://localhost:1883", QoS: 3}); err == nil {
		t.Error("expected error with QoS 3")
	}
}

func TestMQTTPublisher_Topic(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "postboard/events/PostCreated"},
		{prefix: "custom", want: "custom/PostCreated"},
		{prefix: "custom/", want: "custom/PostCreated"},
	}

	for _, tt := range tests {
		p := newMQTTPublisher(&fakeClient{}, tt.prefix, 1)
		if got := p.Topic(domain.EventPostCreated); got != tt.want {
			t.Errorf("Topic() with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
		p.Close()
	}
}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, "board", 1)

	p.Publish(domain.Event{Kind: domain.EventPostLikedDisliked, PostID: 2, Actor: "0xaddr1", IsLike: true})
	p.Publish(domain.Event{Kind: domain.EventPostCreated, PostID: 3, Actor: "0xowner"})
	p.Close()

	if !client.disconnected {
		t.Error("Close should disconnect the client")
	}
	if len(client.published) != 2 {
		t.Fatalf("published %d messages, want 2", len(client.published))
	}

	msg := client.published[0]
	if msg.topic != "board/PostLikedDisliked" {
		t.Errorf("topic = %q", msg.topic)
	}
	if msg.qos != 1 || msg.retained {
		t.Errorf("qos/retained = %d/%v, want 1/false", msg.qos, msg.retained)
	}

	var evt api.Event
	if err := json.Unmarshal(msg.payload, &evt); err != nil {
		t.Fatalf("invalid payload %q: %v", msg.payload, err)
	}
	if evt.Kind != "PostLikedDisliked" || evt.PostID != 2 || evt.Actor != "0xaddr1" {
		t.Errorf("payload = %+v", evt)
	}
	if evt.IsLike == nil || !*evt.IsLike {
		t.Errorf("is_like = %v, want true", evt.IsLike)
	}

	var created api.Event
	if err := json.Unmarshal(client.published[1].payload, &created); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if created.IsLike != nil {
		t.Errorf("PostCreated payload should omit is_like, got %v", *created.IsLike)
	}
}

func TestMQTTPublisher_PublishErrorIsLogged(t *testing.T) {
	client := &fakeClient{publishErr: errors.New("not connected")}
	p := newMQTTPublisher(client, "", 0)

	// must not panic or block
	p.Publish(domain.Event{Kind: domain.EventPostUpdated, PostID: 0, Actor: "0xowner"})
	p.Close()
}

func TestMQTTPublisher_PublishDoesNotWaitForClient(t *testing.T) {
	client := &fakeClient{release: make(chan struct{})}
	p := newMQTTPublisher(client, "board", 1)

	returned := make(chan struct{})
	go func() {
		for id := 0; id < 3; id++ {
			p.Publish(domain.Event{Kind: domain.EventPostCreated, PostID: id, Actor: "0xowner"})
		}
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stalled client")
	}

	close(client.release)
	p.Close()

	if len(client.published) != 3 {
		t.Fatalf("published %d messages, want 3", len(client.published))
	}
	for i, msg := range client.published {
		var evt api.Event
		if err := json.Unmarshal(msg.payload, &evt); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if evt.PostID != i {
			t.Errorf("published[%d].PostID = %d, want %d", i, evt.PostID, i)
		}
	}
}

func TestMQTTPublisher_PublishAfterClose(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, "board", 1)
	p.Close()
	p.Close()

	p.Publish(domain.Event{Kind: domain.EventPostUpdated, PostID: 1, Actor: "0xowner"})
	if len(client.published) != 0 {
		t.Errorf("published %d messages after Close, want 0", len(client.published))
	}
}
