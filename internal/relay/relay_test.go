package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sliceSource replays a fixed chunk sequence, then finalErr (io.EOF by
// default). Close unblocks any pending Next.
type sliceSource struct {
	chunks   []Chunk
	finalErr error

	mu     sync.Mutex
	pos    int
	closed chan struct{}
	once   sync.Once
}

func newSliceSource(deltas []string, finalErr error) *sliceSource {
	chunks := make([]Chunk, len(deltas))
	for i, d := range deltas {
		chunks[i] = Chunk{AnswerDelta: d}
	}
	if finalErr == nil {
		finalErr = io.EOF
	}
	return &sliceSource{chunks: chunks, finalErr: finalErr, closed: make(chan struct{})}
}

func (s *sliceSource) Next(ctx context.Context) (Chunk, error) {
	select {
	case <-ctx.Done():
		return Chunk{}, ctx.Err()
	case <-s.closed:
		return Chunk{}, ErrClosed
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.chunks) {
		return Chunk{}, s.finalErr
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *sliceSource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// recordingSaver captures saved exchanges. An optional gate channel
// blocks the save until released.
type recordingSaver struct {
	mu    sync.Mutex
	saved []Exchange
	gate  chan struct{}
}

func (s *recordingSaver) SaveExchange(ctx context.Context, conversationID uuid.UUID, human, ai string) error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, Exchange{ConversationID: conversationID, Question: human, Answer: ai})
	return nil
}

func (s *recordingSaver) exchanges() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Exchange(nil), s.saved...)
}

func TestReadPreservesOrderAndAccumulates(t *testing.T) {
	source := newSliceSource([]string{"Hel", "lo", " world"}, nil)
	saver := &recordingSaver{}
	tracker := NewTracker()
	convID := uuid.New()

	r := New(context.Background(), source, saver, tracker, convID, "greet me", nil)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", string(out))
	assert.Equal(t, "Hello world", r.Answer())
	require.NoError(t, r.Close())

	tracker.Wait()
	saved := saver.exchanges()
	require.Len(t, saved, 1)
	assert.Equal(t, convID, saved[0].ConversationID)
	assert.Equal(t, "greet me", saved[0].Question)
	assert.Equal(t, "Hello world", saved[0].Answer)
}

func TestReadSkipsChunksWithoutText(t *testing.T) {
	source := newSliceSource([]string{"", "Hel", "lo", ""}, nil)
	tracker := NewTracker()

	r := New(context.Background(), source, &recordingSaver{}, tracker, uuid.New(), "q", nil)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(out))

	require.NoError(t, r.Close())
	tracker.Wait()
}

func TestSmallReadBufferDrainsChunk(t *testing.T) {
	source := newSliceSource([]string{"Hello"}, nil)
	tracker := NewTracker()

	r := New(context.Background(), source, &recordingSaver{}, tracker, uuid.New(), "q", nil)

	var got []byte
	buf := make([]byte, 2)
	for {
		n, err := r.Read(buf)
		got = append(got, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "Hello", string(got))

	require.NoError(t, r.Close())
	tracker.Wait()
}

func TestStreamErrorPersistsNothing(t *testing.T) {
	streamErr := errors.New("upstream exploded")
	source := newSliceSource([]string{"par", "tial"}, streamErr)
	saver := &recordingSaver{}
	tracker := NewTracker()

	r := New(context.Background(), source, saver, tracker, uuid.New(), "q", nil)
	out, err := io.ReadAll(r)
	require.ErrorIs(t, err, streamErr)
	assert.Equal(t, "partial", string(out))

	require.NoError(t, r.Close())
	tracker.Wait()
	assert.Empty(t, saver.exchanges())

	// A failed relay stays failed.
	_, err = r.Read(make([]byte, 8))
	require.ErrorIs(t, err, streamErr)
}

func TestCloseBeforeDrainPersistsNothing(t *testing.T) {
	source := newSliceSource([]string{"Hel", "lo", " world"}, nil)
	saver := &recordingSaver{}
	tracker := NewTracker()

	r := New(context.Background(), source, saver, tracker, uuid.New(), "q", nil)

	buf := make([]byte, 4)
	_, err := r.Read(buf)
	require.NoError(t, err)

	require.NoError(t, r.Close())

	_, err = r.Read(buf)
	require.ErrorIs(t, err, ErrClosed)

	tracker.Wait()
	assert.Empty(t, saver.exchanges())
}

func TestContextCancelPersistsNothing(t *testing.T) {
	source := newSliceSource([]string{"Hel", "lo"}, nil)
	saver := &recordingSaver{}
	tracker := NewTracker()

	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, source, saver, tracker, uuid.New(), "q", nil)

	buf := make([]byte, 4)
	_, err := r.Read(buf)
	require.NoError(t, err)

	cancel()
	_, err = r.Read(buf)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, r.Close())
	tracker.Wait()
	assert.Empty(t, saver.exchanges())
}

func TestSlowSaverDoesNotBlockStreamEnd(t *testing.T) {
	source := newSliceSource([]string{"done"}, nil)
	saver := &recordingSaver{gate: make(chan struct{})}
	tracker := NewTracker()

	r := New(context.Background(), source, saver, tracker, uuid.New(), "q", nil)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		out, err := io.ReadAll(r)
		assert.NoError(t, err)
		assert.Equal(t, "done", string(out))
		assert.NoError(t, r.Close())
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("stream end blocked on a slow save")
	}

	assert.Empty(t, saver.exchanges())

	close(saver.gate)
	tracker.Wait()
	require.Len(t, saver.exchanges(), 1)
}

func TestCloseAfterCompleteKeepsSave(t *testing.T) {
	source := newSliceSource([]string{"ok"}, nil)
	saver := &recordingSaver{}
	tracker := NewTracker()

	r := New(context.Background(), source, saver, tracker, uuid.New(), "q", nil)
	_, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	tracker.Wait()
	require.Len(t, saver.exchanges(), 1)
}

func TestNilSaverStreamsWithoutPersistence(t *testing.T) {
	source := newSliceSource([]string{"hi"}, nil)
	tracker := NewTracker()

	r := New(context.Background(), source, nil, tracker, uuid.New(), "q", nil)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(out))
	require.NoError(t, r.Close())
	tracker.Wait()
}
