package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	DefaultGTTSURL = "https://translate.google.com/translate_tts"

	gttsMaxChars = 200
)

type MP3Player interface {
	PlayMP3(ctx context.Context, r io.ReadCloser) error
}

// GTTS speaks through the Google Translate TTS endpoint (requires network).
type GTTS struct {
	URL    string
	Lang   string
	Client *http.Client
	Player MP3Player
}

func NewGTTS(lang string, client *http.Client, player MP3Player) *GTTS {
	if client == nil {
		client = http.DefaultClient
	}
	return &GTTS{URL: DefaultGTTSURL, Lang: lang, Client: client, Player: player}
}

func (g *GTTS) Speak(ctx context.Context, text string) error {
	text = Clean(text)
	if text == "" {
		return nil
	}

	audio, err := g.Fetch(ctx, text)
	if err != nil {
		return err
	}
	return g.Player.PlayMP3(ctx, io.NopCloser(bytes.NewReader(audio)))
}

// Fetch returns MP3 audio for text. Long text is requested in chunks and
// the frames concatenated.
func (g *GTTS) Fetch(ctx context.Context, text string) ([]byte, error) {
	chunks := splitText(text, gttsMaxChars)

	var out bytes.Buffer
	for i, c := range chunks {
		if err := g.fetchChunk(ctx, &out, c, i, len(chunks)); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}

func (g *GTTS) fetchChunk(ctx context.Context, w io.Writer, chunk string, idx, total int) error {
	lang := g.Lang
	if lang == "" {
		lang = "en"
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", chunk)
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(len(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.URL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("gtts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gtts: status %s", resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// splitText breaks text into pieces of at most n bytes, preferring
// sentence ends, then spaces.
func splitText(text string, n int) []string {
	var out []string
	text = strings.TrimSpace(text)
	for len(text) > n {
		cut := strings.LastIndexAny(text[:n], ".!?;,")
		if cut <= 0 {
			cut = strings.LastIndexByte(text[:n], ' ')
		}
		if cut <= 0 {
			cut = runeCut(text, n) - 1
		}
		out = append(out, strings.TrimSpace(text[:cut+1]))
		text = strings.TrimSpace(text[cut+1:])
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// runeCut returns the largest rune boundary in text[:n], or the end of the
// first rune when that alone is longer than n.
func runeCut(text string, n int) int {
	for e := n; e > 0; e-- {
		if utf8.RuneStart(text[e]) {
			return e
		}
	}
	_, size := utf8.DecodeRuneInString(text)
	return size
}
