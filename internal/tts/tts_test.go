package tts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

type recordSpeaker struct {
	mu    sync.Mutex
	said  []string
	delay time.Duration
	fail  string
}

func (r *recordSpeaker) Speak(_ context.Context, text string) error {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	if text == r.fail {
		return errors.New("boom")
	}
	r.said = append(r.said, text)
	return nil
}

func TestClean(t *testing.T) {
	require.Equal(t, "Hello there", Clean("**Hello**   there</s>"))
	require.Equal(t, "", Clean(" * "))
}

func TestQueueOrderAndDrain(t *testing.T) {
	s := &recordSpeaker{delay: 5 * time.Millisecond}
	q := NewQueue(s, 8)

	require.True(t, q.Say("one"))
	require.True(t, q.Say("two"))
	require.True(t, q.Say("three"))
	q.Close()

	require.Equal(t, []string{"one", "two", "three"}, s.said)
	require.False(t, q.Say("late"))
	q.Close()
}

func TestQueueSurvivesErrors(t *testing.T) {
	s := &recordSpeaker{fail: "bad"}
	q := NewQueue(s, 4)
	q.Say("bad")
	q.Say("good")
	q.Close()
	require.Equal(t, []string{"good"}, s.said)
}

func TestQueueDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	s := SpeakerFunc(func(context.Context, string) error {
		<-block
		return nil
	})
	q := NewQueue(s, 1)

	q.Say("first")
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.True(t, q.Say("second"))
	require.False(t, q.Say("third"))

	close(block)
	q.Close()
}

func TestSplitText(t *testing.T) {
	long := strings.Repeat("word ", 100)
	chunks := splitText(long, 200)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 200)
		require.NotEmpty(t, c)
	}
	require.Equal(t, strings.TrimSpace(long), strings.Join(chunks, " "))

	require.Equal(t, []string{"Hi.", "There"}, splitText("Hi. There", 5))
}

func TestSplitTextKeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("привет", 20) + strings.Repeat("日本語", 20)
	chunks := splitText(long, 7)
	for _, c := range chunks {
		require.True(t, utf8.ValidString(c), c)
		require.LessOrEqual(t, len(c), 7)
	}
	require.Equal(t, long, strings.Join(chunks, ""))

	// A rune wider than the limit still comes out whole.
	require.Equal(t, []string{"日", "本"}, splitText("日本", 2))
}

type bufPlayer struct{ got []byte }

func (b *bufPlayer) PlayMP3(_ context.Context, r io.ReadCloser) error {
	defer r.Close()
	var buf bytes.Buffer
	_, err := io.Copy(&buf, r)
	b.got = buf.Bytes()
	return err
}

func TestGTTS(t *testing.T) {
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "en", r.URL.Query().Get("tl"))
		texts = append(texts, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte("mp3:" + r.URL.Query().Get("idx") + ";"))
	}))
	defer srv.Close()

	p := &bufPlayer{}
	g := NewGTTS("en", srv.Client(), p)
	g.URL = srv.URL

	text := "The method is GPS. " + strings.Repeat("The location is somewhere far away. ", 8)
	require.NoError(t, g.Speak(context.Background(), text))
	require.Len(t, texts, 2)
	require.Equal(t, "mp3:0;mp3:1;", string(p.got))
}

func TestGTTSStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGTTS("en", srv.Client(), &bufPlayer{})
	g.URL = srv.URL
	require.ErrorContains(t, g.Speak(context.Background(), "hello"), "429")
}

type fakeDucker struct{ calls []string }

func (f *fakeDucker) Duck(context.Context, float64, time.Duration) error {
	f.calls = append(f.calls, "duck")
	return nil
}

func (f *fakeDucker) Restore(context.Context, time.Duration) error {
	f.calls = append(f.calls, "restore")
	return errors.New("ignored")
}

func TestWithDucking(t *testing.T) {
	d := &fakeDucker{}
	s := &recordSpeaker{}
	require.NoError(t, WithDucking(s, d).Speak(context.Background(), "hi"))
	require.Equal(t, []string{"duck", "restore"}, d.calls)
	require.Equal(t, []string{"hi"}, s.said)
}
