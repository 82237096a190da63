package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/observability"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

const watchEventBufferSize = 16

// Watch event types.
const (
	WatchEventUpdate = "update"
	WatchEventError  = "error"
	WatchEventDone   = "done"
)

// WatchEvent is one outcome of a submission poll.
type WatchEvent struct {
	Type        string              `json:"type"`
	Key         string              `json:"key"`
	Submissions []models.Submission `json:"submissions,omitempty"`
	Error       string              `json:"error,omitempty"`
	NextPollMs  int64               `json:"nextPollMs,omitempty"`
	At          time.Time           `json:"at"`
}

// ListWatchKey identifies the list watch of a user.
func ListWatchKey(userID string) string {
	return "list:" + userID
}

// DetailWatchKey identifies the watch of one submission.
func DetailWatchKey(userID, submissionID string) string {
	return "detail:" + userID + ":" + submissionID
}

func watchKind(key string) string {
	if kind, _, ok := strings.Cut(key, ":"); ok {
		return kind
	}
	return "unknown"
}

// SubmissionFetcher loads the records a watch re-evaluates.
type SubmissionFetcher func(ctx context.Context) ([]models.Submission, error)

// WatchRequest starts a watch. When Initial is non-nil the first decision is
// taken on it instead of fetching immediately.
type WatchRequest struct {
	Key     string
	Fetch   SubmissionFetcher
	Initial []models.Submission
	OnData  func([]models.Submission)
}

// SubmissionWatcher re-polls in-flight submissions and fans the results out.
type SubmissionWatcher interface {
	Watch(req WatchRequest) bool
	Active(key string) bool
	Subscribe(key string) (<-chan WatchEvent, func())
	Start(ctx context.Context)
	Close()
}

type submissionWatcher struct {
	policy      PollPolicy
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	tracer      trace.Tracer
	broker      *watchBroker
	nodeID      string

	mu      sync.Mutex
	active  map[string]struct{}
	pending map[string]WatchRequest
	root    context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

type watchRelayEvent struct {
	Source string     `json:"source"`
	Event  WatchEvent `json:"event"`
}

type watchBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan WatchEvent]struct{}
}

// NewSubmissionWatcher constructs a watcher. redisClient and natsConn are optional relays.
func NewSubmissionWatcher(policy PollPolicy, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) SubmissionWatcher {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":submission-watch"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".submission-watch"
	}

	root, cancel := context.WithCancel(context.Background())
	return &submissionWatcher{
		policy:      policy,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "submission_watcher").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-arena/internal/service/watcher"),
		broker: &watchBroker{
			subscribers: make(map[string]map[chan WatchEvent]struct{}),
		},
		nodeID: uuid.NewString(),
		active:  make(map[string]struct{}),
		pending: make(map[string]WatchRequest),
		root:   root,
		cancel: cancel,
	}
}

// Start launches the relay consumers and ties the watcher lifetime to ctx.
func (w *submissionWatcher) Start(ctx context.Context) {
	if w.redis != nil && w.redisStream != "" {
		go w.consumeRedis(ctx)
	}
	if w.nats != nil && w.natsSubject != "" {
		go w.consumeNATS(ctx)
	}
	go func() {
		select {
		case <-ctx.Done():
			w.cancel()
		case <-w.root.Done():
		}
	}()
}

// Close stops every watch and waits for the pollers to exit.
func (w *submissionWatcher) Close() {
	w.cancel()
	w.running.Wait()
}

// Watch starts polling for req.Key unless the watcher is closed. When a watch
// with that key is already running, req is handed to it and adopted before its
// next decision, so a watch about to finish still sees the new records. It
// reports whether a new watch started.
func (w *submissionWatcher) Watch(req WatchRequest) bool {
	if req.Key == "" || req.Fetch == nil {
		return false
	}

	w.mu.Lock()
	if w.root.Err() != nil {
		w.mu.Unlock()
		return false
	}
	if _, exists := w.active[req.Key]; exists {
		w.pending[req.Key] = req
		w.mu.Unlock()
		return false
	}
	w.active[req.Key] = struct{}{}
	w.running.Add(1)
	w.mu.Unlock()

	observability.ActiveWatches().Inc()
	go w.run(req)
	return true
}

func (w *submissionWatcher) Active(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.active[key]
	return ok
}

func (w *submissionWatcher) run(req WatchRequest) {
	defer func() {
		observability.ActiveWatches().Dec()
		w.running.Done()
	}()

	kind := watchKind(req.Key)
	logger := w.logger.With().Str("watch_key", req.Key).Logger()

	last := req.Initial
	haveData := req.Initial != nil
	fetchNow := !haveData

	for {
		if next, ok := w.takePending(req.Key); ok {
			req = next
			if next.Initial != nil {
				last = next.Initial
				haveData = true
				fetchNow = false
			}
		}

		if fetchNow {
			records, err := w.fetch(req)
			switch {
			case err != nil:
				observability.PollTicks().WithLabelValues(kind, "error").Inc()
				logger.Warn().Err(err).Msg("submission poll failed")
				w.emit(WatchEvent{Type: WatchEventError, Key: req.Key, Error: err.Error(), At: time.Now().UTC()})
				if arena.IsUnauthorized(err) {
					if w.finish(WatchEvent{Type: WatchEventDone, Key: req.Key, At: time.Now().UTC()}) {
						return
					}
					continue
				}
			default:
				observability.PollTicks().WithLabelValues(kind, "ok").Inc()
				last = records
				haveData = true
				if req.OnData != nil {
					req.OnData(records)
				}
			}
		}
		fetchNow = true

		if !haveData {
			if w.finish(WatchEvent{Type: WatchEventDone, Key: req.Key, At: time.Now().UTC()}) {
				return
			}
			continue
		}

		delay, again := w.policy.Next(last)
		if !again {
			if w.finish(WatchEvent{Type: WatchEventDone, Key: req.Key, Submissions: last, At: time.Now().UTC()}) {
				logger.Debug().Msg("no submission in flight, watch finished")
				return
			}
			continue
		}

		w.emit(WatchEvent{
			Type:        WatchEventUpdate,
			Key:         req.Key,
			Submissions: last,
			NextPollMs:  delay.Milliseconds(),
			At:          time.Now().UTC(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-w.root.Done():
			timer.Stop()
			w.release(req.Key)
			return
		case <-timer.C:
		}
	}
}

func (w *submissionWatcher) takePending(key string) (WatchRequest, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	req, ok := w.pending[key]
	if ok {
		delete(w.pending, key)
	}
	return req, ok
}

// finish ends the watch of event.Key with event unless a request is pending
// for the key, in which case it reports false and the watch goes on. The key
// is released and local subscribers are told before the relay publish, which
// may block on the network.
func (w *submissionWatcher) finish(event WatchEvent) bool {
	w.mu.Lock()
	if _, ok := w.pending[event.Key]; ok {
		w.mu.Unlock()
		return false
	}
	delete(w.active, event.Key)
	w.broker.broadcast(event.Key, event)
	w.mu.Unlock()

	if err := w.publish(event); err != nil {
		w.logger.Warn().Err(err).Msg("failed to relay watch event")
	}
	return true
}

func (w *submissionWatcher) release(key string) {
	w.mu.Lock()
	delete(w.active, key)
	delete(w.pending, key)
	w.mu.Unlock()
}

func (w *submissionWatcher) fetch(req WatchRequest) ([]models.Submission, error) {
	ctx, span := w.tracer.Start(w.root, "submissions.watch.fetch", trace.WithAttributes(
		attribute.String("watch.key", req.Key),
	))
	defer span.End()

	records, err := req.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return records, err
}

// Subscribe registers a listener for key. The returned function must be called to release it.
func (w *submissionWatcher) Subscribe(key string) (<-chan WatchEvent, func()) {
	channel := make(chan WatchEvent, watchEventBufferSize)
	w.broker.subscribe(key, channel)

	var once sync.Once
	cleanup := func() {
		once.Do(func() { w.broker.unsubscribe(key, channel) })
	}
	return channel, cleanup
}

func (w *submissionWatcher) emit(event WatchEvent) {
	w.broker.broadcast(event.Key, event)
	if err := w.publish(event); err != nil {
		w.logger.Warn().Err(err).Msg("failed to relay watch event")
	}
}

func (w *submissionWatcher) publish(event WatchEvent) error {
	if (w.redis == nil || w.redisStream == "") && (w.nats == nil || w.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(watchRelayEvent{Source: w.nodeID, Event: event})
	if err != nil {
		return err
	}

	if w.redis != nil && w.redisStream != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := w.redis.Publish(ctx, w.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if w.nats != nil && w.natsSubject != "" {
		if err := w.nats.Publish(w.natsSubject, payload); err != nil {
			return err
		}
	}
	return nil
}

func (w *submissionWatcher) consumeRedis(ctx context.Context) {
	pubsub := w.redis.Subscribe(ctx, w.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error().Err(err).Msg("watch redis subscription closed")
			return
		}
		w.handleRelay([]byte(msg.Payload))
	}
}

func (w *submissionWatcher) consumeNATS(ctx context.Context) {
	// Every node must see every event, so no queue group here.
	sub, err := w.nats.Subscribe(w.natsSubject, func(msg *nats.Msg) {
		w.handleRelay(msg.Data)
	})
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to subscribe to nats watch subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			w.logger.Warn().Err(err).Msg("failed to drain watch nats subscription")
		}
	}()
}

func (w *submissionWatcher) handleRelay(payload []byte) {
	var relayed watchRelayEvent
	if err := json.Unmarshal(payload, &relayed); err != nil {
		w.logger.Warn().Err(err).Msg("invalid watch event payload")
		return
	}
	if relayed.Source == w.nodeID || relayed.Event.Key == "" {
		return
	}
	w.broker.broadcast(relayed.Event.Key, relayed.Event)
}

func (b *watchBroker) subscribe(key string, ch chan WatchEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[key]; !exists {
		b.subscribers[key] = make(map[chan WatchEvent]struct{})
	}
	b.subscribers[key][ch] = struct{}{}
}

func (b *watchBroker) unsubscribe(key string, ch chan WatchEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[key]; ok {
		if _, present := subscribers[ch]; present {
			delete(subscribers, ch)
			close(ch)
		}
		if len(subscribers) == 0 {
			delete(b.subscribers, key)
		}
	}
}

func (b *watchBroker) broadcast(key string, event WatchEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[key] {
		select {
		case ch <- event:
		default:
		}
	}
}
