package nlu

import (
	"sort"
	"strings"

	"orin/pkg/keyword"
)

type Intent string

const (
	IntentSleep     Intent = "sleep"
	IntentExit      Intent = "exit"
	IntentRunScript Intent = "run_script"
	IntentAsk       Intent = "ask"
)

type Result struct {
	Intent Intent
	Query  string
	Phrase string // matched phrase, if any
	Script string // for IntentRunScript
}

// Router maps a transcript to an intent by keyword. Exit phrases win over
// script phrases; anything else is a question.
type Router struct {
	exit    keyword.Matcher
	scripts map[string]string
	phrases keyword.Matcher
}

func NewRouter(exitPhrases []string, scripts map[string]string) *Router {
	norm := make(map[string]string, len(scripts))
	keys := make([]string, 0, len(scripts))
	for phrase, path := range scripts {
		p := keyword.Normalize(phrase)
		if p == "" || path == "" {
			continue
		}
		norm[p] = path
		keys = append(keys, p)
	}
	// Longest phrase first so "open camera now" beats "open camera".
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	return &Router{
		exit:    keyword.New(exitPhrases...),
		scripts: norm,
		phrases: keyword.New(keys...),
	}
}

func (r *Router) Route(transcript string) Result {
	q := strings.TrimSpace(transcript)
	if keyword.Normalize(q) == "" {
		return Result{Intent: IntentSleep}
	}

	if p, ok := r.exit.Match(q); ok {
		return Result{Intent: IntentExit, Query: q, Phrase: p}
	}
	if p, ok := r.phrases.Match(q); ok {
		return Result{Intent: IntentRunScript, Query: q, Phrase: p, Script: r.scripts[p]}
	}
	return Result{Intent: IntentAsk, Query: q}
}
